// internal/workers/export_processor.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/pkg/logger"
)

// ExportProcessor renders queued export jobs
type ExportProcessor struct {
	service ports.ExportService
	timeout time.Duration
	logger  *slog.Logger
}

// NewExportProcessor creates a new export processor. A zero timeout leaves
// the task deadline to asynq.
func NewExportProcessor(service ports.ExportService, timeout time.Duration, l *slog.Logger) *ExportProcessor {
	return &ExportProcessor{
		service: service,
		timeout: timeout,
		logger:  l.With(slog.String("processor", "export")),
	}
}

// ProcessExport runs the job named in the task payload
func (p *ExportProcessor) ProcessExport(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	payload, err := parseExportPayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	ctx = logger.WithValue(ctx, logger.ContextKeyJobID, payload.JobID.String())

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.InfoContext(ctx, "processing export job")

	job, err := p.service.RunJob(ctx, payload.JobID)
	if err != nil {
		// The job record expired or was never written; retrying cannot help.
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.WarnContext(ctx, "export job not found, dropping task")
			return fmt.Errorf("export job %s: %w", payload.JobID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to run export job: %w", err)
	}

	p.logger.InfoContext(ctx, "export job processed",
		slog.String("view", string(job.View)),
		slog.String("format", string(job.Format)),
		slog.Int("rows", job.Rows),
		slog.Duration("duration_ms", time.Since(start)))

	return nil
}
