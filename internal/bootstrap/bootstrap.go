// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/finops-console/internal/adapters/db"
	"github.com/ammerola/finops-console/internal/adapters/fixtures"
	"github.com/ammerola/finops-console/internal/adapters/storage"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/pkg/config"
)

// LoadConfig reads configuration and overlays credentials from the
// configured secrets provider
func LoadConfig(ctx context.Context, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(logger)
	if err != nil {
		return nil, err
	}

	provider, err := config.NewSecretsProvider(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets provider: %w", err)
	}
	if err := config.ApplySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDataset reads the fixtures every view is served from
func LoadDataset(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*domain.Dataset, error) {
	var opts []fixtures.Option
	if cfg.App.FixtureRows > 0 {
		opts = append(opts, fixtures.WithQueryCount(cfg.App.FixtureRows))
	}
	if cfg.App.FixtureSeed != 0 {
		opts = append(opts, fixtures.WithSeed(uint64(cfg.App.FixtureSeed)))
	}

	data, err := fixtures.NewLoader(logger, opts...).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	return data, nil
}

// DatabaseConfig maps application settings onto the pool configuration
func DatabaseConfig(cfg *config.Config, maxConns int32) *db.Config {
	if maxConns <= 0 {
		maxConns = cfg.Database.MaxConnections
	}
	return &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     maxConns,
		MinConnections:     min(cfg.Database.MinConnections, maxConns),
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}
}

// ResolutionStore is the opened persistence port plus, for Postgres, the
// pool behind it so health checks can ping it
type ResolutionStore struct {
	ports.ResolutionStore
	Database *db.Database
}

// OpenResolutionStore opens the backend named by cfg.Store.Resolutions.
// Postgres migrations run before the store is returned.
func OpenResolutionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ResolutionStore, error) {
	switch cfg.Store.Resolutions {
	case config.StoreNoop, "":
		return &ResolutionStore{ResolutionStore: services.NoopResolutionStore{}}, nil

	case config.StoreSQLite:
		store, err := db.OpenSQLite(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "resolutions stored in sqlite", slog.String("path", cfg.Store.SQLitePath))
		return &ResolutionStore{ResolutionStore: store}, nil

	case config.StorePostgres:
		if err := Migrate(ctx, cfg, logger); err != nil {
			return nil, err
		}
		database, err := db.NewDatabase(ctx, DatabaseConfig(cfg, 0), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.InfoContext(ctx, "resolutions stored in postgres",
			slog.String("host", cfg.Database.Host),
			slog.String("database", cfg.Database.Name))
		return &ResolutionStore{
			ResolutionStore: db.NewResolutionStore(database, logger),
			Database:        database,
		}, nil

	default:
		return nil, fmt.Errorf("unknown resolution store %q", cfg.Store.Resolutions)
	}
}

// Migrate applies the embedded Postgres schema
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	retries := cfg.Database.MigrationRetries
	if retries <= 0 {
		retries = 3
	}
	err := db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{
		DatabaseURL: DatabaseConfig(cfg, 0).URL(),
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}, logger, retries)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.GetRedisAddress(),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		ConnMaxLifetime: cfg.Redis.MaxConnAge,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		ConnMaxIdleTime: cfg.Redis.IdleTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewExportStorage opens the object storage export files are written to
func NewExportStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ObjectStorage, error) {
	switch cfg.Export.Storage {
	case config.ExportStorageS3:
		s3, err := storage.NewS3Storage(ctx, &storage.S3Config{
			Region:          cfg.AWS.Region,
			Bucket:          cfg.AWS.S3Bucket,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.S3Endpoint,
			UsePathStyle:    cfg.AWS.UsePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s3, nil
	case config.ExportStorageLocal, "":
		return storage.NewLocalStorage(cfg.Export.LocalDir, logger)
	default:
		return nil, fmt.Errorf("unknown export storage %q", cfg.Export.Storage)
	}
}

// ExportOptions maps export settings onto the service options
func ExportOptions(cfg *config.Config) services.ExportOptions {
	return services.ExportOptions{
		Prefix:    cfg.Export.Prefix,
		URLTTL:    cfg.Export.URLTTL,
		Retention: cfg.Export.Retention,
	}
}
