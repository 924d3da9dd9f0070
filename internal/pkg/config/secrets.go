// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Secret keys read by ApplySecrets
const (
	SecretDatabasePassword = "DB_PASSWORD"
	SecretRedisPassword    = "REDIS_PASSWORD"
	SecretAWSAccessKeyID   = "AWS_ACCESS_KEY_ID"
	SecretAWSSecretKey     = "AWS_SECRET_ACCESS_KEY"
)

// SecretsProvider fetches credentials kept outside the environment file
type SecretsProvider interface {
	GetSecret(ctx context.Context, key string) (string, error)
	GetSecrets(ctx context.Context, keys []string) (map[string]string, error)
	RefreshSecrets(ctx context.Context) error
}

// SecretsManagerAPI is the part of the Secrets Manager client in use
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager reads a JSON key/value secret from AWS Secrets Manager
type AWSSecretsManager struct {
	client     SecretsManagerAPI
	secretName string
	cache      map[string]string
	cacheMu    sync.RWMutex
	lastFetch  time.Time
	ttl        time.Duration
	clock      func() time.Time
	logger     *slog.Logger
}

// NewAWSSecretsManager creates a client for secretName in region
func NewAWSSecretsManager(ctx context.Context, region, secretName string, logger *slog.Logger) (*AWSSecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewAWSSecretsManagerWithClient(secretsmanager.NewFromConfig(cfg), secretName, logger), nil
}

// NewAWSSecretsManagerWithClient wires an existing client
func NewAWSSecretsManagerWithClient(client SecretsManagerAPI, secretName string, logger *slog.Logger) *AWSSecretsManager {
	return &AWSSecretsManager{
		client:     client,
		secretName: secretName,
		cache:      make(map[string]string),
		ttl:        5 * time.Minute,
		clock:      time.Now,
		logger:     logger.With(slog.String("component", "secrets")),
	}
}

// GetSecret retrieves a single secret
func (sm *AWSSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	secrets, err := sm.GetSecrets(ctx, []string{key})
	if err != nil {
		return "", err
	}

	val, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("secret key %s not found", key)
	}

	return val, nil
}

// GetSecrets retrieves multiple secrets, served from cache within the TTL
func (sm *AWSSecretsManager) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if cached, ok := sm.cached(keys); ok {
		sm.logger.DebugContext(ctx, "returning cached secrets")
		return cached, nil
	}

	sm.logger.InfoContext(ctx, "fetching secrets from AWS Secrets Manager",
		slog.String("secret_name", sm.secretName))

	result, err := sm.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(sm.secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret value: %w", err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", sm.secretName)
	}

	var secretData map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secretData); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	sm.cacheMu.Lock()
	sm.cache = secretData
	sm.lastFetch = sm.clock()
	sm.cacheMu.Unlock()

	filtered := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := secretData[key]; ok {
			filtered[key] = val
		} else {
			sm.logger.WarnContext(ctx, "secret key not found in AWS Secrets Manager",
				slog.String("key", key))
		}
	}

	return filtered, nil
}

func (sm *AWSSecretsManager) cached(keys []string) (map[string]string, bool) {
	sm.cacheMu.RLock()
	defer sm.cacheMu.RUnlock()

	if sm.clock().Sub(sm.lastFetch) >= sm.ttl || len(sm.cache) == 0 {
		return nil, false
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		val, ok := sm.cache[key]
		if !ok {
			return nil, false
		}
		out[key] = val
	}
	return out, true
}

// RefreshSecrets drops the cache and refetches
func (sm *AWSSecretsManager) RefreshSecrets(ctx context.Context) error {
	sm.cacheMu.Lock()
	sm.cache = make(map[string]string)
	sm.lastFetch = time.Time{}
	sm.cacheMu.Unlock()

	_, err := sm.GetSecrets(ctx, []string{})
	return err
}

// EnvSecretsManager reads secrets from environment variables
type EnvSecretsManager struct{}

// NewEnvSecretsManager creates a new environment-based secrets manager
func NewEnvSecretsManager() *EnvSecretsManager {
	return &EnvSecretsManager{}
}

// GetSecret retrieves a secret from environment variables
func (em *EnvSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("environment variable %s not set", key)
	}
	return val, nil
}

// GetSecrets retrieves multiple secrets from environment variables
func (em *EnvSecretsManager) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	secrets := make(map[string]string)
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			secrets[key] = val
		}
	}
	return secrets, nil
}

// RefreshSecrets is a no-op for environment variables
func (em *EnvSecretsManager) RefreshSecrets(ctx context.Context) error {
	return nil
}

// NewSecretsProvider returns the provider named by cfg.AWS.SecretsProvider
func NewSecretsProvider(ctx context.Context, cfg *Config, logger *slog.Logger) (SecretsProvider, error) {
	switch cfg.AWS.SecretsProvider {
	case "aws":
		return NewAWSSecretsManager(ctx, cfg.AWS.Region, cfg.AWS.SecretName, logger)
	case "env", "":
		return NewEnvSecretsManager(), nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.AWS.SecretsProvider)
	}
}

// ApplySecrets overwrites credentials in cfg with the values the provider knows.
// Keys the provider does not hold keep their current value.
func ApplySecrets(ctx context.Context, cfg *Config, provider SecretsProvider) error {
	secrets, err := provider.GetSecrets(ctx, []string{
		SecretDatabasePassword,
		SecretRedisPassword,
		SecretAWSAccessKeyID,
		SecretAWSSecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if v, ok := secrets[SecretDatabasePassword]; ok {
		cfg.Database.Password = v
	}
	if v, ok := secrets[SecretRedisPassword]; ok {
		cfg.Redis.Password = v
		cfg.Asynq.RedisPassword = v
	}
	if v, ok := secrets[SecretAWSAccessKeyID]; ok {
		cfg.AWS.AccessKeyID = v
	}
	if v, ok := secrets[SecretAWSSecretKey]; ok {
		cfg.AWS.SecretAccessKey = v
	}
	return nil
}
