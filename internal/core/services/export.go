// internal/core/services/export.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// ExportOptions configures where export files go and how long they live
type ExportOptions struct {
	Prefix    string
	URLTTL    time.Duration
	Retention time.Duration
}

// DefaultExportOptions returns the options used when none are configured
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Prefix:    "exports",
		URLTTL:    time.Hour,
		Retention: 7 * 24 * time.Hour,
	}
}

// ExportService renders views to files. Synchronous exports stream to the
// caller; jobs are queued and finished by the worker.
type ExportService struct {
	views   ports.ViewService
	encoder ports.Encoder
	jobs    ports.ExportJobStore
	queue   ports.TaskQueue
	storage ports.ObjectStorage
	opts    ExportOptions
	clock   func() time.Time
	logger  *slog.Logger
}

// Statically assert that *ExportService implements the ExportService interface.
var _ ports.ExportService = (*ExportService)(nil)

// NewExportService creates an export service. jobs, queue and storage may be
// nil when only synchronous exports are served.
func NewExportService(
	views ports.ViewService,
	encoder ports.Encoder,
	jobs ports.ExportJobStore,
	queue ports.TaskQueue,
	storage ports.ObjectStorage,
	opts ExportOptions,
	logger *slog.Logger,
) *ExportService {
	def := DefaultExportOptions()
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = def.URLTTL
	}
	if opts.Retention <= 0 {
		opts.Retention = def.Retention
	}
	return &ExportService{
		views:   views,
		encoder: encoder,
		jobs:    jobs,
		queue:   queue,
		storage: storage,
		opts:    opts,
		clock:   time.Now,
		logger:  logger.With(slog.String("service", "export")),
	}
}

// WithClock overrides the clock used for job timestamps and retention
func (s *ExportService) WithClock(clock func() time.Time) *ExportService {
	s.clock = clock
	return s
}

// Export writes every filtered, sorted row of a view to w and returns the row count
func (s *ExportService) Export(ctx context.Context, w io.Writer, view domain.View, format ports.ExportFormat, params ports.ListParams) (int, error) {
	table, err := s.views.Table(ctx, view, params)
	if err != nil {
		return 0, fmt.Errorf("failed to build export table: %w", err)
	}

	if err := s.encoder.Encode(w, format, view, table); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}

	s.logger.InfoContext(ctx, "exported view",
		slog.String("view", string(view)),
		slog.String("format", string(format)),
		slog.Int("rows", len(table.Rows)))

	return len(table.Rows), nil
}

// StartJob records a queued job and hands it to the task queue
func (s *ExportService) StartJob(ctx context.Context, view domain.View, format ports.ExportFormat, params ports.ListParams) (*ports.ExportJob, error) {
	if s.jobs == nil || s.queue == nil {
		return nil, fmt.Errorf("export jobs are not configured")
	}

	job := &ports.ExportJob{
		ID:        uuid.New(),
		View:      view,
		Format:    format,
		Params:    params,
		Status:    ports.JobQueued,
		CreatedAt: s.clock().UTC(),
	}

	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save export job: %w", err)
	}

	if err := s.queue.EnqueueExport(ctx, job); err != nil {
		s.fail(ctx, job, err)
		return nil, fmt.Errorf("failed to enqueue export job: %w", err)
	}

	s.logger.InfoContext(ctx, "export job queued",
		slog.String("job_id", job.ID.String()),
		slog.String("view", string(view)),
		slog.String("format", string(format)))

	return job, nil
}

// GetJob returns the current state of a job
func (s *ExportService) GetJob(ctx context.Context, id uuid.UUID) (*ports.ExportJob, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("export job %s: %w", id, domain.ErrNotFound)
	}
	return s.jobs.GetJob(ctx, id)
}

// RunJob renders a queued job, uploads the file and stores a download URL
func (s *ExportService) RunJob(ctx context.Context, id uuid.UUID) (*ports.ExportJob, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("export storage is not configured")
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == ports.JobCompleted {
		return job, nil
	}

	job.Status = ports.JobRunning
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save export job: %w", err)
	}

	var buf bytes.Buffer
	rows, err := s.Export(ctx, &buf, job.View, job.Format, job.Params)
	if err != nil {
		s.fail(ctx, job, err)
		return job, err
	}

	key := fmt.Sprintf("%s/%s/%s.%s", s.opts.Prefix, job.View, job.ID, job.Format)
	if _, err := s.storage.Upload(ctx, key, &buf, s.encoder.ContentType(job.Format)); err != nil {
		err = fmt.Errorf("failed to upload export: %w", err)
		s.fail(ctx, job, err)
		return job, err
	}

	url, err := s.storage.PresignedURL(ctx, key, s.opts.URLTTL)
	if err != nil {
		err = fmt.Errorf("failed to sign export url: %w", err)
		s.fail(ctx, job, err)
		return job, err
	}

	done := s.clock().UTC()
	job.Status = ports.JobCompleted
	job.Rows = rows
	job.ObjectKey = key
	job.DownloadURL = url
	job.CompletedAt = &done
	job.Error = ""
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save export job: %w", err)
	}

	s.logger.InfoContext(ctx, "export job completed",
		slog.String("job_id", job.ID.String()),
		slog.String("key", key),
		slog.Int("rows", rows))

	return job, nil
}

// Cleanup deletes export files older than the retention window
func (s *ExportService) Cleanup(ctx context.Context) (int, error) {
	if s.storage == nil {
		return 0, nil
	}

	objects, err := s.storage.List(ctx, s.opts.Prefix+"/")
	if err != nil {
		return 0, fmt.Errorf("failed to list exports: %w", err)
	}

	cutoff := s.clock().Add(-s.opts.Retention)
	var expired []string
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			expired = append(expired, obj.Key)
		}
	}

	if len(expired) == 0 {
		return 0, nil
	}

	if err := s.storage.Delete(ctx, expired...); err != nil {
		return 0, fmt.Errorf("failed to delete expired exports: %w", err)
	}

	s.logger.InfoContext(ctx, "cleaned up exports",
		slog.Int("deleted", len(expired)),
		slog.Time("cutoff", cutoff))

	return len(expired), nil
}

func (s *ExportService) fail(ctx context.Context, job *ports.ExportJob, cause error) {
	done := s.clock().UTC()
	job.Status = ports.JobFailed
	job.Error = cause.Error()
	job.CompletedAt = &done
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "failed to record export failure",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	s.logger.WarnContext(ctx, "export job failed",
		slog.String("job_id", job.ID.String()),
		slog.String("error", cause.Error()))
}
