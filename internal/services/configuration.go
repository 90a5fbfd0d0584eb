package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/savaki/config-provisioner/internal/content"
	"github.com/savaki/config-provisioner/internal/dao/configdao"
	"github.com/savaki/config-provisioner/internal/errors"
)

// customInfoSentinel marks a Custom block that carries no actual settings;
// templates send it as a placeholder and it must never be persisted.
const customInfoSentinel = "Custom inference settings"

// ConfigurationService merges resource properties into the Schema, Default
// and Custom configuration records.
type ConfigurationService struct {
	dao      *configdao.DAO
	resolver *content.Resolver
}

func NewConfigurationService(dao *configdao.DAO, resolver *content.Resolver) *ConfigurationService {
	return &ConfigurationService{
		dao:      dao,
		resolver: resolver,
	}
}

// Apply upserts the configuration records named in props. Each write fully
// replaces the existing record for that name; names absent from props are
// left untouched.
func (s *ConfigurationService) Apply(ctx context.Context, props map[string]any) error {
	logger := zerolog.Ctx(ctx)

	if err := s.applySchema(ctx, props); err != nil {
		return err
	}
	if err := s.applyDefault(ctx, props); err != nil {
		return err
	}
	if err := s.applyCustom(ctx, props); err != nil {
		return err
	}

	logger.Info().Msg("Applied configuration updates")
	return nil
}

func (s *ConfigurationService) applySchema(ctx context.Context, props map[string]any) error {
	raw, ok := props[configdao.NameSchema.String()]
	if !ok {
		return nil
	}

	resolved, err := s.resolver.Resolve(ctx, raw)
	if err != nil {
		return fmt.Errorf("failed to resolve Schema content: %w", err)
	}

	if err := s.dao.Put(ctx, configdao.NameSchema, map[string]any{"Schema": resolved}); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Msg("Updated Schema configuration")
	return nil
}

func (s *ConfigurationService) applyDefault(ctx context.Context, props map[string]any) error {
	logger := zerolog.Ctx(ctx)

	raw, ok := props[configdao.NameDefault.String()]
	if !ok {
		return nil
	}

	resolved, err := s.resolver.Resolve(ctx, raw)
	if err != nil {
		return fmt.Errorf("failed to resolve Default content: %w", err)
	}

	record, ok := resolved.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: Default content must be a mapping, got %T", errors.ErrMissingProperty, resolved)
	}

	applyModelOverride(logger, record, "classification", props["CustomClassificationModelARN"])
	applyModelOverride(logger, record, "extraction", props["CustomExtractionModelARN"])

	if err := s.dao.Put(ctx, configdao.NameDefault, record); err != nil {
		return err
	}
	logger.Info().Msg("Updated Default configuration")
	return nil
}

func (s *ConfigurationService) applyCustom(ctx context.Context, props map[string]any) error {
	logger := zerolog.Ctx(ctx)

	raw, ok := props[configdao.NameCustom.String()]
	if !ok {
		return nil
	}

	record, ok := raw.(map[string]any)
	if !ok {
		// intentionally-empty override, not an error
		logger.Warn().Str("type", fmt.Sprintf("%T", raw)).Msg("Custom properties is not a mapping, skipping Custom configuration update")
		return nil
	}
	if record["Info"] == customInfoSentinel {
		logger.Debug().Msg("Custom properties carry the placeholder sentinel, skipping")
		return nil
	}

	if err := s.dao.Put(ctx, configdao.NameCustom, record); err != nil {
		return err
	}
	logger.Info().Msg("Updated Custom configuration")
	return nil
}

// applyModelOverride replaces section.model with override when the override
// is a non-blank string and the section already exists in the record.
// Overrides never create sections.
func applyModelOverride(logger *zerolog.Logger, record map[string]any, section string, override any) {
	arn, ok := override.(string)
	if !ok || strings.TrimSpace(arn) == "" {
		return
	}
	sec, ok := record[section].(map[string]any)
	if !ok {
		return
	}
	sec["model"] = arn
	logger.Info().Str("section", section).Str("model", arn).Msg("Applied model override")
}
