package errors

import "errors"

var (
	ErrTableNameRequired    = errors.New("CONFIGURATION_TABLE_NAME environment variable is required")
	ErrInvalidRequestType   = errors.New("invalid RequestType")
	ErrInvalidS3URI         = errors.New("invalid S3 URI")
	ErrMissingProperty      = errors.New("missing required resource property")
	ErrNonFiniteNumber      = errors.New("non-finite number cannot be stored")
	ErrCallbackNotDelivered = errors.New("failed to deliver custom resource callback")
)
