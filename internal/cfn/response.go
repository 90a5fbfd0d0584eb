package cfn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/savaki/config-provisioner/internal/errors"
)

// Status is the outcome reported back to CloudFormation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Response is the JSON body delivered to the pre-signed ResponseURL.
type Response struct {
	Status             Status         `json:"Status"`
	Reason             string         `json:"Reason,omitempty"`
	PhysicalResourceId string         `json:"PhysicalResourceId"`
	StackId            string         `json:"StackId"`
	RequestId          string         `json:"RequestId"`
	LogicalResourceId  string         `json:"LogicalResourceId"`
	Data               map[string]any `json:"Data,omitempty"`
}

// ResponseSender delivers a lifecycle result to the orchestrator.
type ResponseSender interface {
	Send(ctx context.Context, url string, response *Response) error
}

// HTTPSender delivers responses with an HTTP PUT, the channel CloudFormation
// expects for custom resources.
type HTTPSender struct {
	client *http.Client
}

func NewHTTPSender() *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send PUTs the response to the pre-signed URL. A delivery failure is
// returned, never swallowed: an undelivered callback leaves the stack
// hanging until CloudFormation's own timeout.
func (s *HTTPSender) Send(ctx context.Context, url string, response *Response) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal callback response: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrCallbackNotDelivered, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrCallbackNotDelivered, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d from %s", errors.ErrCallbackNotDelivered, resp.StatusCode, url)
	}

	zerolog.Ctx(ctx).Info().
		Str("status", string(response.Status)).
		Str("physical_resource_id", response.PhysicalResourceId).
		Msg("Delivered custom resource callback")
	return nil
}

// LogSender is the fallback used when no callback channel exists, e.g. when
// running outside the orchestrator's managed runtime. It logs the response
// and always succeeds.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, url string, response *Response) error {
	zerolog.Ctx(ctx).Warn().
		Str("status", string(response.Status)).
		Str("physical_resource_id", response.PhysicalResourceId).
		Msg("No callback channel available, returning direct response")
	return nil
}
