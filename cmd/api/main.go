// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/finops-console/internal/adapters/export"
	redis_a "github.com/ammerola/finops-console/internal/adapters/redis_adapter"
	"github.com/ammerola/finops-console/internal/bootstrap"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/handlers"
	"github.com/ammerola/finops-console/internal/handlers/middleware"
	"github.com/ammerola/finops-console/internal/pkg/config"
	"github.com/ammerola/finops-console/internal/pkg/logger"
	"github.com/ammerola/finops-console/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("info", "json")

	slogger.Info("starting finops console api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	ctx := context.Background()

	cfg, err := bootstrap.LoadConfig(ctx, slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.New(logger.Options{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		ServiceName: "finops-api",
		Version:     Version,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(slogger)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
		slog.String("resolution_store", cfg.Store.Resolutions),
		slog.String("export_storage", cfg.Export.Storage),
	)

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup(slogger)

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		if cfg.Server.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	dataset        *domain.Dataset
	resolutions    *bootstrap.ResolutionStore
	redisClient    *redis.Client
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector
	rateLimiter    *middleware.RateLimiter
	router         *handlers.Router
}

func (d *dependencies) cleanup(logger *slog.Logger) {
	if d.rateLimiter != nil {
		d.rateLimiter.Stop()
	}
	if d.asynqInspector != nil {
		d.asynqInspector.Close()
	}
	if d.asynqClient != nil {
		if err := d.asynqClient.Close(); err != nil {
			logger.Error("failed to close Asynq client", slog.String("error", err.Error()))
		}
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.resolutions != nil {
		if err := d.resolutions.Close(); err != nil {
			logger.Error("failed to close resolution store", slog.String("error", err.Error()))
		}
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	dataset, err := bootstrap.LoadDataset(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.dataset = dataset

	deps.resolutions, err = bootstrap.OpenResolutionStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	recs := services.NewRecommendationService(dataset.Recommendations, deps.resolutions, logger)
	if err := recs.Restore(ctx); err != nil {
		deps.cleanup(logger)
		return nil, err
	}

	// Redis backs the dashboard cache, preferences and export jobs. Without it
	// the API still serves every view from memory.
	var (
		cache       ports.CacheRepository
		preferences ports.PreferenceStore = services.NewMemoryPreferenceStore()
		jobs        ports.ExportJobStore
		queue       ports.TaskQueue
	)
	logger.Info("connecting to Redis", slog.String("address", cfg.GetRedisAddress()))
	if client, err := bootstrap.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn("redis unavailable, running without cache and export jobs",
			slog.String("error", err.Error()))
	} else {
		deps.redisClient = client
		redisCache := redis_a.NewCache(client, cfg.Redis.TTL, logger)
		cache = redisCache
		preferences = redis_a.NewPreferenceStore(client, cfg.App.Name)
		jobs = redis_a.NewJobStore(redisCache, cfg.Redis.JobTTL)

		asynqOpt := workers.RedisOpt(cfg.Asynq)
		deps.asynqClient = asynq.NewClient(asynqOpt)
		deps.asynqInspector = asynq.NewInspector(asynqOpt)
		queue = workers.NewTaskQueue(deps.asynqClient, cfg.Asynq.RetryMax, cfg.Export.Timeout, logger)
	}

	objects, err := bootstrap.NewExportStorage(ctx, cfg, logger)
	if err != nil {
		deps.cleanup(logger)
		return nil, err
	}

	views := services.NewViewService(dataset, recs, logger)
	dashboard := services.NewDashboardService(dataset, recs, cache, cfg.Redis.DashboardTTL, logger)
	recs.OnChange(func(ctx context.Context, _ domain.Recommendation) {
		if err := dashboard.Invalidate(ctx); err != nil {
			logger.WarnContext(ctx, "failed to invalidate dashboard", slog.String("error", err.Error()))
		}
	})

	encoder := export.NewEncoder()
	exports := services.NewExportService(views, encoder, jobs, queue, objects, bootstrap.ExportOptions(cfg), logger)

	healthOpts := []handlers.HealthOption{
		handlers.WithDatasetSize(func() int { return len(dataset.Queries) }),
	}
	if deps.resolutions.Database != nil {
		healthOpts = append(healthOpts, handlers.WithDatabase(deps.resolutions.Database))
	}
	if deps.redisClient != nil {
		healthOpts = append(healthOpts,
			handlers.WithRedis(deps.redisClient),
			handlers.WithInspector(deps.asynqInspector))
	}

	deps.router = &handlers.Router{
		Health:          handlers.NewHealthHandler(cfg, logger, healthOpts...),
		Views:           handlers.NewViewHandler(views, logger),
		Recommendations: handlers.NewRecommendationHandler(recs, logger),
		Preferences:     handlers.NewPreferenceHandler(preferences, logger),
		Dashboard:       handlers.NewDashboardHandler(dashboard, logger),
		Export:          handlers.NewExportHandler(exports, encoder, logger),
	}
	if !cfg.Server.EnableHealthCheck {
		deps.router.Health = nil
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mws := []func(http.Handler) http.Handler{
		middleware.RequestID(cfg.Security.RequestIDHeader),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	if cfg.Security.SecureHeaders {
		mws = append(mws, middleware.SecureHeaders)
	}
	if cfg.Security.RateLimitRequests > 0 {
		deps.rateLimiter = middleware.NewRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)
		mws = append(mws, deps.rateLimiter.Middleware)
	}
	if cfg.Server.WriteTimeout > time.Second {
		mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout-time.Second))
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        middleware.Chain(deps.router.Handler(), mws...),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
