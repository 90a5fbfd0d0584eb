// Package content resolves configuration values that may be indirections
// into S3 rather than inline literals.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/savaki/config-provisioner/internal/errors"
	"gopkg.in/yaml.v3"
)

const s3Scheme = "s3://"

// S3API is the subset of the S3 client used by the resolver.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Resolver struct {
	client S3API
}

func NewResolver(client S3API) *Resolver {
	return &Resolver{client: client}
}

// Resolve dereferences value if it is an s3:// URI, otherwise returns it
// unchanged. Resolution is shallow: nested values inside mappings are not
// walked, matching the per-property resolution the merge engine applies.
func (r *Resolver) Resolve(ctx context.Context, value any) (any, error) {
	uri, ok := value.(string)
	if !ok || !strings.HasPrefix(uri, s3Scheme) {
		return value, nil
	}
	return r.fetch(ctx, uri)
}

func (r *Resolver) fetch(ctx context.Context, uri string) (any, error) {
	logger := zerolog.Ctx(ctx)

	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: %s", errors.ErrInvalidS3URI, uri)
	}

	logger.Info().Str("bucket", bucket).Str("key", key).Msg("Fetching content from S3")

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content from %s: %w", uri, err)
	}
	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content from %s: %w", uri, err)
	}

	return parse(ctx, uri, raw), nil
}

// parse attempts JSON first, then YAML, then falls back to the verbatim
// text. The order matters: some payloads are valid YAML scalars that must
// not be short-circuited to plain text.
func parse(ctx context.Context, uri string, raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	if err := yaml.Unmarshal(raw, &v); err == nil {
		return v
	}

	zerolog.Ctx(ctx).Warn().Str("uri", uri).Msg("Content is not valid JSON or YAML, returning as string")
	return string(raw)
}
