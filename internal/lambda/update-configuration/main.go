package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/savaki/config-provisioner/internal/cfn"
	"github.com/savaki/config-provisioner/internal/dao/configdao"
	"github.com/savaki/config-provisioner/internal/di"
	"github.com/savaki/config-provisioner/internal/services"
	"github.com/urfave/cli/v2"
)

type Handler struct {
	adapter *cfn.Adapter
	configs *services.ConfigurationService
}

func NewHandler(adapter *cfn.Adapter, configs *services.ConfigurationService) *Handler {
	return &Handler{
		adapter: adapter,
		configs: configs,
	}
}

// HandleEvent runs one lifecycle request. The returned error is non-nil only
// when an orchestrator callback could not be delivered; handler failures
// come back as a structured FAILED payload.
func (h *Handler) HandleEvent(ctx context.Context, event *cfn.Event) (map[string]any, error) {
	result, err := h.adapter.Run(ctx, event, cfn.HandlerFunc(h.apply))
	if err != nil {
		return nil, err
	}
	return result.Payload(), nil
}

func (h *Handler) apply(ctx context.Context, req cfn.Request) (map[string]any, error) {
	logger := zerolog.Ctx(ctx)

	if req.Type == cfn.RequestDelete {
		// Deleting the custom resource must never destroy configuration
		// records other resources still read.
		logger.Info().Msg("Delete request - no operation performed")
		return map[string]any{
			"Message": "Success (delete = no-op)",
			"Status":  string(cfn.StatusSuccess),
		}, nil
	}

	if err := h.configs.Apply(ctx, req.Properties); err != nil {
		return nil, err
	}

	return map[string]any{
		"Message": fmt.Sprintf("Successfully %sd configurations", strings.ToLower(string(req.Type))),
		"Status":  string(cfn.StatusSuccess),
	}, nil
}

func main() {
	logger := di.ProvideLogger().With().Str("lambda", "update-configuration").Logger()

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
		di.MustGet[*services.ConfigurationService](container),
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
		Name:  "update-configuration",
		Usage: "Apply configuration records from a lifecycle event file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "event",
				Usage: "path to an event JSON file",
			},
			&cli.StringFlag{
				Name:  "show",
				Usage: "print the named configuration record (Schema, Default or Custom)",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := logger.WithContext(context.Background())

			if name := c.String("show"); name != "" {
				dao := di.MustGet[*configdao.DAO](container)
				record, err := dao.Find(ctx, configdao.Name(name))
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("configuration %s not found", name)
				}
				return printJSON(record)
			}

			path := c.String("event")
			if path == "" {
				return fmt.Errorf("either --event or --show is required")
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			var event cfn.Event
			if err := json.Unmarshal(raw, &event); err != nil {
				return fmt.Errorf("failed to parse event file: %w", err)
			}

			out, err := handler.HandleEvent(ctx, &event)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
