package cfn

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

const maxReasonLen = 1024

// Request is the normalized input handed to a Handler.
type Request struct {
	Type       RequestType
	Properties map[string]any
}

// Handler performs the side effects for a single lifecycle request and
// returns the response data. Delete semantics belong to the handler; the
// adapter dispatches all three request types.
type Handler interface {
	Handle(ctx context.Context, req Request) (map[string]any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) (map[string]any, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (map[string]any, error) {
	return f(ctx, req)
}

// Result is the outcome of a dispatched request, before it is shaped for
// either delivery channel.
type Result struct {
	Status Status
	Data   map[string]any
	Err    error
}

// Payload renders the result as a direct-invocation response body. Failures
// become a structured value rather than an error so direct callers always
// receive a result object.
func (r *Result) Payload() map[string]any {
	if r.Status == StatusSuccess {
		return r.Data
	}
	return map[string]any{
		"Error":  Truncate(r.Err.Error(), maxReasonLen),
		"Status": string(StatusFailed),
	}
}

// Adapter runs handlers under the dual-mode lifecycle protocol.
type Adapter struct {
	sender    ResponseSender
	fallback  ResponseSender
	logStream string
}

// NewAdapter creates an adapter that delivers orchestrator callbacks through
// sender. logStream identifies the execution's log stream and is referenced
// in default callback reasons.
func NewAdapter(sender ResponseSender, logStream string) *Adapter {
	return &Adapter{
		sender:    sender,
		fallback:  LogSender{},
		logStream: logStream,
	}
}

// Run dispatches the event to the handler and delivers the result through
// the channel the invocation mode calls for. The returned error is non-nil
// only when an orchestrator callback could not be delivered; handler
// failures are reported inside the Result.
func (a *Adapter) Run(ctx context.Context, event *Event, handler Handler) (*Result, error) {
	requestID := event.RequestId
	if requestID == "" {
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			requestID = lc.AwsRequestID
		}
	}
	if requestID == "" {
		// direct invocations without a request id still need log correlation
		requestID = ksuid.New().String()
	}

	logger := zerolog.Ctx(ctx).With().Str("request_id", requestID).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().
		Str("request_type", event.RequestType).
		Str("stack_id", event.StackId).
		Bool("orchestrator", event.IsOrchestrator()).
		Msg("Received lifecycle event")

	result := a.dispatch(ctx, event, handler)

	if event.IsOrchestrator() {
		if err := a.sender.Send(ctx, event.ResponseURL, a.buildResponse(event, result)); err != nil {
			logger.Error().Err(err).Str("response_url", event.ResponseURL).Msg("Callback delivery failed")
			return result, err
		}
	} else if event.StackId != "" {
		// StackId without ResponseURL: there is no deliverable callback, so
		// fall back to a direct response rather than stalling the stack silently.
		logger.Warn().Str("stack_id", event.StackId).Msg("Event carries StackId but no ResponseURL")
		_ = a.fallback.Send(ctx, "", a.buildResponse(event, result))
	}

	return result, nil
}

func (a *Adapter) dispatch(ctx context.Context, event *Event, handler Handler) (result *Result) {
	logger := zerolog.Ctx(ctx)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during dispatch: %v", r)
			logger.Error().Err(err).Msg("Handler panicked")
			result = &Result{Status: StatusFailed, Err: err}
		}
	}()

	requestType, err := event.NormalizedRequestType()
	if err != nil {
		logger.Error().Err(err).Msg("Rejected lifecycle event")
		return &Result{Status: StatusFailed, Err: err}
	}

	data, err := handler.Handle(ctx, Request{
		Type:       requestType,
		Properties: event.Properties(),
	})
	if err != nil {
		logger.Error().Err(err).Str("request_type", string(requestType)).Msg("Request failed")
		return &Result{Status: StatusFailed, Err: err}
	}

	return &Result{Status: StatusSuccess, Data: data}
}

func (a *Adapter) buildResponse(event *Event, result *Result) *Response {
	reason := fmt.Sprintf("See the details in CloudWatch Log Stream: %s", a.logStream)
	if result.Err != nil {
		reason = Truncate(result.Err.Error(), maxReasonLen)
	}

	return &Response{
		Status:             result.Status,
		Reason:             reason,
		PhysicalResourceId: PhysicalResourceID(event.StackId, event.LogicalResourceId),
		StackId:            event.StackId,
		RequestId:          event.RequestId,
		LogicalResourceId:  event.LogicalResourceId,
		Data:               result.Data,
	}
}

// Truncate bounds s to max bytes, marking the cut. Callback reasons and
// response bodies have transport size limits.
func Truncate(s string, max int) string {
	const marker = " (truncated)"
	if len(s) <= max {
		return s
	}
	if max <= len(marker) {
		return s[:max]
	}
	return s[:max-len(marker)] + marker
}
