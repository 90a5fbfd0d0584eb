package services

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/savaki/config-provisioner/internal/errors"
	"github.com/stretchr/testify/assert"
)

type mockSSMClient struct {
	getParameterFunc func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	calls            int
}

func (m *mockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.calls++
	return m.getParameterFunc(ctx, params, optFns...)
}

func TestSSMParameterStore(t *testing.T) {
	ctx := context.Background()

	t.Run("env var takes precedence over SSM", func(t *testing.T) {
		t.Setenv("CONFIGURATION_TABLE_NAME", "explicit-table")

		client := &mockSSMClient{
			getParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				t.Fatal("SSM should not be consulted")
				return nil, nil
			},
		}

		config, err := NewSSMParameterStore(client, "dev").GetConfig(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "explicit-table", config.TableName)
	})

	t.Run("falls back to SSM parameter", func(t *testing.T) {
		t.Setenv("CONFIGURATION_TABLE_NAME", "")

		client := &mockSSMClient{
			getParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				assert.Equal(t, "/prod/config-provisioner/configuration-table", *params.Name)
				return &ssm.GetParameterOutput{
					Parameter: &ssmtypes.Parameter{Value: aws.String("prod-table")},
				}, nil
			},
		}

		config, err := NewSSMParameterStore(client, "prod").GetConfig(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "prod-table", config.TableName)
	})

	t.Run("caches parameter lookups", func(t *testing.T) {
		client := &mockSSMClient{
			getParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				return &ssm.GetParameterOutput{
					Parameter: &ssmtypes.Parameter{Value: aws.String("cached-value")},
				}, nil
			},
		}

		store := NewSSMParameterStore(client, "dev")
		for i := 0; i < 3; i++ {
			value, err := store.GetParameter(ctx, "/dev/config-provisioner/configuration-table")
			assert.NoError(t, err)
			assert.Equal(t, "cached-value", value)
		}
		assert.Equal(t, 1, client.calls)
	})

	t.Run("missing table name is an error", func(t *testing.T) {
		t.Setenv("CONFIGURATION_TABLE_NAME", "")

		client := &mockSSMClient{
			getParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				return nil, assert.AnError
			},
		}

		_, err := NewSSMParameterStore(client, "dev").GetConfig(ctx)
		assert.ErrorIs(t, err, errors.ErrTableNameRequired)
	})
}

func TestEnvParameterStore(t *testing.T) {
	ctx := context.Background()

	t.Run("uses env var", func(t *testing.T) {
		t.Setenv("CONFIGURATION_TABLE_NAME", "local-table")

		config, err := NewEnvParameterStore("dev").GetConfig(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "local-table", config.TableName)
	})

	t.Run("derives table name from environment", func(t *testing.T) {
		t.Setenv("CONFIGURATION_TABLE_NAME", "")

		config, err := NewEnvParameterStore("staging").GetConfig(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "staging-configuration", config.TableName)
	})
}
