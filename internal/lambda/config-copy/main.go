package main

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/savaki/config-provisioner/internal/cfn"
	"github.com/savaki/config-provisioner/internal/di"
	"github.com/savaki/config-provisioner/internal/errors"
	"github.com/savaki/config-provisioner/internal/s3copy"
	"github.com/urfave/cli/v2"
)

const maxBodyErrorLen = 256

type Handler struct {
	adapter *cfn.Adapter
	copier  *s3copy.Copier
}

func NewHandler(adapter *cfn.Adapter, copier *s3copy.Copier) *Handler {
	return &Handler{
		adapter: adapter,
		copier:  copier,
	}
}

// HandleEvent runs one lifecycle request. Direct invocations receive the
// legacy statusCode/body envelope; orchestrator invocations are answered
// through the callback with the flat payload.
func (h *Handler) HandleEvent(ctx context.Context, event *cfn.Event) (map[string]any, error) {
	result, err := h.adapter.Run(ctx, event, cfn.HandlerFunc(h.run))
	if err != nil {
		return nil, err
	}
	if event.IsOrchestrator() {
		return result.Payload(), nil
	}
	return wireEnvelope(result), nil
}

func (h *Handler) run(ctx context.Context, req cfn.Request) (map[string]any, error) {
	logger := zerolog.Ctx(ctx)

	if req.Type == cfn.RequestDelete {
		// Copied objects may be read by other resources; never remove them.
		logger.Info().Msg("Delete request - no action needed for configuration files")
		return map[string]any{
			"message": "Delete completed - configuration files retained",
		}, nil
	}

	outcome, err := h.copier.Copy(ctx, s3copy.JobFromProperties(req.Properties))
	if err != nil {
		return nil, err
	}
	if !outcome.Success() {
		return nil, goerrors.New(outcome.ErrorMessage())
	}

	logger.Info().Int("copied", outcome.Copied).Msg("Successfully copied configuration files")
	return map[string]any{
		"CopiedFiles": outcome.Copied,
		"FailedFiles": len(outcome.Failed),
		"message":     fmt.Sprintf("Successfully copied %d configuration files", outcome.Copied),
	}, nil
}

// wireEnvelope shapes a result the way direct invokers consume it: an HTTP
// style statusCode plus a JSON-encoded body.
func wireEnvelope(result *cfn.Result) map[string]any {
	if result.Status == cfn.StatusSuccess {
		body, _ := json.Marshal(result.Data)
		return map[string]any{
			"statusCode": 200,
			"body":       string(body),
		}
	}

	code := 500
	if goerrors.Is(result.Err, errors.ErrMissingProperty) || goerrors.Is(result.Err, errors.ErrInvalidRequestType) {
		code = 400
	}
	body, _ := json.Marshal(map[string]any{
		"error": cfn.Truncate(result.Err.Error(), maxBodyErrorLen),
	})
	return map[string]any{
		"statusCode": code,
		"body":       string(body),
	}
}

func main() {
	logger := di.ProvideLogger().With().Str("lambda", "config-copy").Logger()

	env := os.Getenv("ENV")
	if env == "" {
		env = "dev"
	}

	container, err := di.New(env)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DI container")
		os.Exit(1)
	}

	handler := NewHandler(
		di.MustGet[*cfn.Adapter](container),
		di.MustGet[*s3copy.Copier](container),
	)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		// Wrap handler to inject logger into context
		wrappedHandler := func(ctx context.Context, event *cfn.Event) (map[string]any, error) {
			ctx = logger.WithContext(ctx)
			return handler.HandleEvent(ctx, event)
		}
		lambda.Start(wrappedHandler)
		return
	}

	app := &cli.App{
		Name:  "config-copy",
		Usage: "Copy configuration files between S3 prefixes from a lifecycle event file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "event",
				Usage:    "path to an event JSON file",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			raw, err := os.ReadFile(c.String("event"))
			if err != nil {
				return err
			}

			var event cfn.Event
			if err := json.Unmarshal(raw, &event); err != nil {
				return fmt.Errorf("failed to parse event file: %w", err)
			}

			ctx := logger.WithContext(context.Background())
			out, err := handler.HandleEvent(ctx, &event)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
