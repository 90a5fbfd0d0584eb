// Package cfn implements the CloudFormation custom resource lifecycle
// protocol for handlers that may also be invoked directly (e.g. via
// aws_lambda_invocation from Terraform). It detects the invocation mode,
// normalizes the request, dispatches to a Handler, and delivers the
// result through the channel the caller expects.
package cfn

import (
	"fmt"

	"github.com/savaki/config-provisioner/internal/errors"
)

// RequestType identifies the lifecycle operation requested by the caller.
type RequestType string

const (
	RequestCreate RequestType = "Create"
	RequestUpdate RequestType = "Update"
	RequestDelete RequestType = "Delete"
)

// Event is the invocation payload. CloudFormation populates the
// StackId/LogicalResourceId/ResponseURL triple; direct invokers typically
// send ResourceProperties alone.
type Event struct {
	RequestType        string         `json:"RequestType,omitempty"`
	ResponseURL        string         `json:"ResponseURL,omitempty"`
	StackId            string         `json:"StackId,omitempty"`
	RequestId          string         `json:"RequestId,omitempty"`
	LogicalResourceId  string         `json:"LogicalResourceId,omitempty"`
	PhysicalResourceId string         `json:"PhysicalResourceId,omitempty"`
	ResourceProperties map[string]any `json:"ResourceProperties,omitempty"`
}

// NormalizedRequestType validates the RequestType field. An absent field
// defaults to Create so that minimal direct invocations keep working; any
// other unrecognized value is rejected before properties are inspected.
func (e *Event) NormalizedRequestType() (RequestType, error) {
	switch e.RequestType {
	case "":
		return RequestCreate, nil
	case string(RequestCreate):
		return RequestCreate, nil
	case string(RequestUpdate):
		return RequestUpdate, nil
	case string(RequestDelete):
		return RequestDelete, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidRequestType, e.RequestType)
	}
}

// IsOrchestrator reports whether the event came from CloudFormation and
// expects an asynchronous callback. ResponseURL is the signal: without it
// there is no channel to deliver a callback on, regardless of StackId.
func (e *Event) IsOrchestrator() bool {
	return e.ResponseURL != ""
}

// Properties returns a copy of ResourceProperties with the ServiceToken
// routing field removed. A missing ResourceProperties is treated as empty.
func (e *Event) Properties() map[string]any {
	props := make(map[string]any, len(e.ResourceProperties))
	for k, v := range e.ResourceProperties {
		if k == "ServiceToken" {
			continue
		}
		props[k] = v
	}
	return props
}

// PhysicalResourceID derives the stable physical id for a custom resource.
// It must not change between Create and Update invocations of the same
// logical resource, or CloudFormation will treat the update as a replacement.
func PhysicalResourceID(stackID, logicalID string) string {
	return fmt.Sprintf("%s/%s/configuration", stackID, logicalID)
}
