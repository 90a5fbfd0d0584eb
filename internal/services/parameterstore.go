package services

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/savaki/config-provisioner/internal/dao/configdao"
	"github.com/savaki/config-provisioner/internal/errors"
)

// Config holds the handler configuration resolved at startup
type Config struct {
	TableName string
}

// SSMAPI is the subset of the SSM client used by the parameter store
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStore defines the interface for accessing configuration parameters
type ParameterStore interface {
	// GetParameter retrieves a single parameter by name
	GetParameter(ctx context.Context, name string) (string, error)

	// GetConfig loads the handler configuration
	GetConfig(ctx context.Context) (*Config, error)
}

// SSMParameterStore implements ParameterStore using AWS Systems Manager
// Parameter Store, with CONFIGURATION_TABLE_NAME taking precedence.
type SSMParameterStore struct {
	client SSMAPI
	env    string
	mu     sync.RWMutex
	cache  map[string]string
}

// NewSSMParameterStore creates a new SSM-backed parameter store
func NewSSMParameterStore(client SSMAPI, env string) *SSMParameterStore {
	return &SSMParameterStore{
		client: client,
		env:    env,
		cache:  make(map[string]string),
	}
}

// GetParameter retrieves a single parameter from SSM Parameter Store
func (s *SSMParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	// Check cache first
	s.mu.RLock()
	if value, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return value, nil
	}
	s.mu.RUnlock()

	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: boolPtr(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s not found", name)
	}

	value := *result.Parameter.Value

	// Cache the value
	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()

	return value, nil
}

// GetConfig resolves the configuration table name. The environment variable
// wins; SSM is the fallback for deployments that publish the name as a
// parameter instead of baking it into the function environment.
func (s *SSMParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	if table := os.Getenv("CONFIGURATION_TABLE_NAME"); table != "" {
		return &Config{TableName: table}, nil
	}

	name := fmt.Sprintf("/%s/config-provisioner/configuration-table", s.env)
	table, err := s.GetParameter(ctx, name)
	if err != nil || table == "" {
		return nil, errors.ErrTableNameRequired
	}
	return &Config{TableName: table}, nil
}

// EnvParameterStore implements ParameterStore using environment variables.
// This is a NoOp implementation for local development without AWS connection.
type EnvParameterStore struct {
	env string
}

// NewEnvParameterStore creates a new environment variable-backed parameter store
func NewEnvParameterStore(env string) *EnvParameterStore {
	return &EnvParameterStore{
		env: env,
	}
}

// GetParameter retrieves a parameter from environment variables
func (e *EnvParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	return os.Getenv(name), nil
}

// GetConfig loads the handler configuration from environment variables,
// deriving the table name from the environment when unset.
func (e *EnvParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	table := os.Getenv("CONFIGURATION_TABLE_NAME")
	if table == "" {
		table = configdao.TableName(e.env)
	}
	return &Config{TableName: table}, nil
}

func boolPtr(b bool) *bool {
	return &b
}
