// internal/workers/server.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/finops-console/internal/pkg/config"
)

// RedisOpt builds the asynq connection options from configuration
func RedisOpt(cfg config.AsynqConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewServer creates the asynq server that runs export tasks
func NewServer(cfg config.AsynqConfig, logger *slog.Logger) *asynq.Server {
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{QueueExports: 6, QueueMaintenance: 1}
	}

	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency:         cfg.Concurrency,
		Queues:              queues,
		StrictPriority:      cfg.StrictPriority,
		ErrorHandler:        ErrorHandler(logger),
		RetryDelayFunc:      RetryDelay,
		ShutdownTimeout:     cfg.ShutdownTimeout,
		HealthCheckFunc:     healthCheck(logger),
		HealthCheckInterval: cfg.HealthCheckInterval,
		Logger:              NewAsynqLogger(logger),
	})
}

// NewServeMux registers the export handlers
func NewServeMux(exports *ExportProcessor, cleanup *CleanupProcessor, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(LoggingMiddleware(logger))
	mux.HandleFunc(TypeExportView, exports.ProcessExport)
	mux.HandleFunc(TypeExportCleanup, cleanup.CleanupExports)
	return mux
}

// NewScheduler creates a scheduler that enqueues the cleanup task on spec
func NewScheduler(cfg config.AsynqConfig, logger *slog.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOpt(cfg), &asynq.SchedulerOpts{
		Logger:   NewAsynqLogger(logger),
		Location: time.UTC,
	})
	if _, err := RegisterSchedules(scheduler, cfg.CleanupSchedule); err != nil {
		return nil, err
	}
	return scheduler, nil
}

// Registrar is the part of *asynq.Scheduler used to register periodic tasks
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterSchedules adds the periodic cleanup task. An empty spec disables it.
func RegisterSchedules(r Registrar, cleanupSpec string) (string, error) {
	if cleanupSpec == "" {
		return "", nil
	}
	id, err := r.Register(cleanupSpec, NewCleanupTask())
	if err != nil {
		return "", fmt.Errorf("failed to schedule %s: %w", TypeExportCleanup, err)
	}
	return id, nil
}

// RetryDelay backs off exponentially from one second, capped at ten minutes
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	const (
		baseDelay = time.Second
		maxDelay  = 10 * time.Minute
	)
	if n < 0 {
		n = 0
	}
	if n >= 10 {
		return maxDelay
	}
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// ErrorHandler logs tasks that failed processing
func ErrorHandler(logger *slog.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		logger.ErrorContext(ctx, "task processing failed",
			slog.String("type", task.Type()),
			slog.String("payload", string(task.Payload())),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			slog.String("error", err.Error()))
	})
}

// LoggingMiddleware logs the outcome and duration of every task
func LoggingMiddleware(logger *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			start := time.Now()
			taskID, _ := asynq.GetTaskID(ctx)

			err := next.ProcessTask(ctx, t)

			attrs := []any{
				slog.String("type", t.Type()),
				slog.String("task_id", taskID),
				slog.Duration("duration_ms", time.Since(start)),
			}
			if err != nil {
				logger.WarnContext(ctx, "task_failed", append(attrs, slog.String("error", err.Error()))...)
				return err
			}
			logger.InfoContext(ctx, "task_completed", attrs...)
			return nil
		})
	}
}

func healthCheck(logger *slog.Logger) func(error) {
	return func(err error) {
		if err != nil {
			logger.Error("worker health check failed", slog.String("error", err.Error()))
		}
	}
}

// AsynqLogger adapts slog for asynq
type AsynqLogger struct {
	logger *slog.Logger
	exit   func(int)
}

var _ asynq.Logger = (*AsynqLogger)(nil)

// NewAsynqLogger wraps logger for use as asynq's internal logger
func NewAsynqLogger(logger *slog.Logger) *AsynqLogger {
	return &AsynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
		exit:   os.Exit,
	}
}

func (l *AsynqLogger) Debug(args ...any) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *AsynqLogger) Info(args ...any) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *AsynqLogger) Warn(args ...any) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *AsynqLogger) Error(args ...any) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *AsynqLogger) Fatal(args ...any) {
	l.logger.Error(fmt.Sprint(args...))
	l.exit(1)
}
