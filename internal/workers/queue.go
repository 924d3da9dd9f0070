// internal/workers/queue.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/finops-console/internal/core/ports"
)

// Enqueuer is the part of *asynq.Client the queue needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskQueue hands export jobs to the worker through asynq
type TaskQueue struct {
	client   Enqueuer
	maxRetry int
	timeout  time.Duration
	logger   *slog.Logger
}

var _ ports.TaskQueue = (*TaskQueue)(nil)

// NewTaskQueue creates a queue over an asynq client
func NewTaskQueue(client Enqueuer, maxRetry int, timeout time.Duration, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		client:   client,
		maxRetry: maxRetry,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "task_queue")),
	}
}

// EnqueueExport queues a job for the export processor. The job id doubles
// as the task id so a job is never queued twice.
func (q *TaskQueue) EnqueueExport(ctx context.Context, job *ports.ExportJob) error {
	opts := []asynq.Option{asynq.TaskID(job.ID.String())}
	if q.maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(q.maxRetry))
	}
	if q.timeout > 0 {
		opts = append(opts, asynq.Timeout(q.timeout))
	}

	task, err := NewExportTask(job.ID, opts...)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeExportView, err)
	}

	q.logger.DebugContext(ctx, "task enqueued",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue))

	return nil
}
