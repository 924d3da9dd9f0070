// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/finops-console/internal/core/ports"
)

// CleanupProcessor handles cleanup tasks
type CleanupProcessor struct {
	service ports.ExportService
	logger  *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(service ports.ExportService, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		service: service,
		logger:  logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupExports removes export files past their retention window
func (p *CleanupProcessor) CleanupExports(ctx context.Context, _ *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up export files")

	deleted, err := p.service.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("failed to cleanup exports: %w", err)
	}

	p.logger.InfoContext(ctx, "export files cleaned up",
		slog.Int("files_deleted", deleted))

	return nil
}
