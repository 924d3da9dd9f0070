// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/ammerola/finops-console/internal/adapters/export"
	redis_a "github.com/ammerola/finops-console/internal/adapters/redis_adapter"
	"github.com/ammerola/finops-console/internal/bootstrap"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/pkg/logger"
	"github.com/ammerola/finops-console/internal/workers"
)

// Version is injected at compile time
var Version = "dev"

func main() {
	slogger := logger.SetupLogger("info", "json")
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
		ServiceName: "finops-worker",
		Version:     Version,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(slogger)
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	dataset, err := bootstrap.LoadDataset(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to load fixtures", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Exports of the recommendations view must reflect resolutions made
	// through the API, so the worker replays the same store.
	resolutions, err := bootstrap.OpenResolutionStore(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to open resolution store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer resolutions.Close()

	redisClient, err := bootstrap.NewRedisClient(ctx, cfg)
	if err != nil {
		slogger.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	objects, err := bootstrap.NewExportStorage(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize export storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	recs := services.NewRecommendationService(dataset.Recommendations, resolutions, slogger)
	views := services.NewViewService(dataset, recs, slogger)
	jobs := redis_a.NewJobStore(redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger), cfg.Redis.JobTTL)
	exports := services.NewExportService(views, export.NewEncoder(), jobs, nil, objects, bootstrap.ExportOptions(cfg), slogger)

	srv := workers.NewServer(cfg.Asynq, slogger)
	mux := workers.NewServeMux(
		workers.NewExportProcessor(&restoringExports{ExportService: exports, recs: recs}, cfg.Export.Timeout, slogger),
		workers.NewCleanupProcessor(exports, slogger),
		slogger,
	)

	scheduler, err := workers.NewScheduler(cfg.Asynq, slogger)
	if err != nil {
		slogger.Error("failed to create scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(mux); err != nil {
			slogger.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()
	go func() {
		if err := scheduler.Run(); err != nil {
			slogger.Error("failed to run scheduler", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues),
		slog.String("cleanup_schedule", cfg.Asynq.CleanupSchedule))

	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

// restoringExports replays persisted resolutions before each job so the
// worker sees status changes made by the API since it started.
type restoringExports struct {
	*services.ExportService
	recs *services.RecommendationService
}

func (r *restoringExports) RunJob(ctx context.Context, id uuid.UUID) (*ports.ExportJob, error) {
	if err := r.recs.Restore(ctx); err != nil {
		return nil, err
	}
	return r.ExportService.RunJob(ctx, id)
}
