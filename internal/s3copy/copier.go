// Package s3copy bulk-copies objects between S3 prefixes with per-entry
// failure tolerance.
package s3copy

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/savaki/config-provisioner/internal/errors"
)

// S3API is the subset of the S3 client used by the copier.
type S3API interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Encryption holds the optional encryption parameters forwarded on each
// copy request. Empty fields are omitted from the request entirely.
type Encryption struct {
	ServerSideEncryption string
	KMSKeyID             string
	CustomerAlgorithm    string
	CustomerKey          string
	CustomerKeyMD5       string
}

// Job describes one bulk copy request. FileList entries are paths relative
// to both prefixes.
type Job struct {
	SourceBucket string
	SourcePrefix string
	TargetBucket string
	TargetPrefix string
	FileList     []string
	Encryption   Encryption
}

// Failure records one entry that could not be copied.
type Failure struct {
	Key string
	Err string
}

// Outcome is produced after attempting every entry; no short-circuiting on
// first failure.
type Outcome struct {
	Copied     int
	Failed     []Failure
	Considered int
}

// Success reports whether the operation counts as successful: an empty
// file list is a no-op success, and partial success is still success. Only
// attempting entries and copying none of them fails the operation.
func (o *Outcome) Success() bool {
	return o.Considered == 0 || o.Copied > 0
}

const (
	maxFailedKeys   = 5
	maxErrorDetails = 3
	maxMessageLen   = 512
)

// ErrorMessage aggregates the failure set into a bounded, human-readable
// message listing a capped number of keys and error details.
func (o *Outcome) ErrorMessage() string {
	keys := make([]string, 0, len(o.Failed))
	for i, f := range o.Failed {
		if i == maxFailedKeys {
			keys = append(keys, fmt.Sprintf("and %d more", len(o.Failed)-maxFailedKeys))
			break
		}
		keys = append(keys, f.Key)
	}

	details := make([]string, 0, len(o.Failed))
	for i, f := range o.Failed {
		if i == maxErrorDetails {
			details = append(details, fmt.Sprintf("and %d more", len(o.Failed)-maxErrorDetails))
			break
		}
		details = append(details, fmt.Sprintf("%s: %s", f.Key, f.Err))
	}

	msg := fmt.Sprintf("failed to copy any configuration files. Failed keys: %s. Errors: %s",
		strings.Join(keys, ", "), strings.Join(details, "; "))
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return msg
}

// Copier executes copy jobs against S3.
type Copier struct {
	client S3API
}

func New(client S3API) *Copier {
	return &Copier{client: client}
}

// Copy attempts every entry in the job's file list, recording failures and
// continuing: the operator needs the complete failure set, not the first
// error. The returned error is non-nil only for invalid input.
func (c *Copier) Copy(ctx context.Context, job Job) (*Outcome, error) {
	logger := zerolog.Ctx(ctx)

	if err := validate(job); err != nil {
		return nil, err
	}

	outcome := &Outcome{}
	for _, entry := range job.FileList {
		relative := strings.TrimLeft(strings.TrimSpace(entry), "/")
		if relative == "" {
			continue
		}
		outcome.Considered++

		sourceKey := joinKey(job.SourcePrefix, relative)
		targetKey := joinKey(job.TargetPrefix, relative)

		logger.Info().
			Str("source", job.SourceBucket+"/"+sourceKey).
			Str("target", job.TargetBucket+"/"+targetKey).
			Msg("Copying object")

		if err := c.copyObject(ctx, job, sourceKey, targetKey); err != nil {
			outcome.Failed = append(outcome.Failed, Failure{Key: sourceKey, Err: errDetail(err)})
			logger.Warn().Err(err).Str("key", sourceKey).Msg("Failed to copy object")
			continue
		}
		outcome.Copied++
	}

	if outcome.Failed != nil && outcome.Copied > 0 {
		logger.Warn().Int("failed", len(outcome.Failed)).Msg("Some objects failed to copy")
	}
	return outcome, nil
}

func (c *Copier) copyObject(ctx context.Context, job Job, sourceKey, targetKey string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(job.TargetBucket),
		Key:        aws.String(targetKey),
		CopySource: aws.String(job.SourceBucket + "/" + sourceKey),
	}

	enc := job.Encryption
	if enc.ServerSideEncryption != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryption(enc.ServerSideEncryption)
	}
	if enc.KMSKeyID != "" {
		input.SSEKMSKeyId = aws.String(enc.KMSKeyID)
	}
	if enc.CustomerAlgorithm != "" {
		input.SSECustomerAlgorithm = aws.String(enc.CustomerAlgorithm)
		input.SSECustomerKey = aws.String(enc.CustomerKey)
		input.SSECustomerKeyMD5 = aws.String(enc.CustomerKeyMD5)
	}

	_, err := c.client.CopyObject(ctx, input)
	return err
}

// errDetail prefers the service error code over the SDK's fully wrapped
// operation error, which repeats the bucket and key already being reported.
func errDetail(err error) string {
	var apiErr smithy.APIError
	if goerrors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}

func validate(job Job) error {
	var missing []string
	if job.SourceBucket == "" {
		missing = append(missing, "SourceBucket")
	}
	if job.SourcePrefix == "" {
		missing = append(missing, "SourcePrefix")
	}
	if job.TargetBucket == "" {
		missing = append(missing, "TargetBucket")
	}
	if missing != nil {
		return fmt.Errorf("%w: %s", errors.ErrMissingProperty, strings.Join(missing, ", "))
	}
	return nil
}

// joinKey joins a prefix and a relative path with a single slash, omitting
// the prefix entirely when empty.
func joinKey(prefix, relative string) string {
	if prefix == "" {
		return relative
	}
	return strings.TrimRight(prefix, "/") + "/" + relative
}
