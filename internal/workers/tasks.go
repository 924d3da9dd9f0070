// internal/workers/tasks.go
package workers

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeExportView    = "export:view"
	TypeExportCleanup = "export:cleanup"
)

// Queue names, highest priority first
const (
	QueueExports     = "exports"
	QueueMaintenance = "maintenance"
)

// ExportPayload is the body of an export:view task. The job itself lives
// in the job store; the task only carries its id.
type ExportPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// NewExportTask builds the task that renders one export job
func NewExportTask(jobID uuid.UUID, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPayload{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export payload: %w", err)
	}
	opts = append([]asynq.Option{asynq.Queue(QueueExports)}, opts...)
	return asynq.NewTask(TypeExportView, payload, opts...), nil
}

// NewCleanupTask builds the periodic task that removes expired export files
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeExportCleanup, nil, asynq.Queue(QueueMaintenance), asynq.MaxRetry(1))
}

func parseExportPayload(t *asynq.Task) (ExportPayload, error) {
	var payload ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.JobID == uuid.Nil {
		return payload, fmt.Errorf("export payload has no job id")
	}
	return payload, nil
}
