// internal/core/ports/export.go
package ports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
)

// ExportFormat is the file format of an export
type ExportFormat string

// Export formats
const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatJSON ExportFormat = "json"
)

// ErrUnsupportedFormat is returned for an unknown export format
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat validates an export format name
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(s)); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// JobStatus is the state of an asynchronous export
type JobStatus string

// Job statuses
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ExportJob tracks one asynchronous export
type ExportJob struct {
	ID          uuid.UUID    `json:"id"`
	View        domain.View  `json:"view"`
	Format      ExportFormat `json:"format"`
	Params      ListParams   `json:"params"`
	Status      JobStatus    `json:"status"`
	Rows        int          `json:"rows,omitempty"`
	ObjectKey   string       `json:"object_key,omitempty"`
	DownloadURL string       `json:"download_url,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ExportJobStore keeps the state of export jobs
type ExportJobStore interface {
	SaveJob(ctx context.Context, job *ExportJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*ExportJob, error)
}

// TaskQueue enqueues background work
type TaskQueue interface {
	EnqueueExport(ctx context.Context, job *ExportJob) error
}

// ObjectInfo describes a stored export file
type ObjectInfo struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStorage stores finished export files
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Encoder renders a table in an export format
type Encoder interface {
	Encode(w io.Writer, format ExportFormat, view domain.View, table *dataview.Table) error
	ContentType(format ExportFormat) string
}

// ExportService renders views to files, synchronously or as background jobs
type ExportService interface {
	Export(ctx context.Context, w io.Writer, view domain.View, format ExportFormat, params ListParams) (int, error)
	StartJob(ctx context.Context, view domain.View, format ExportFormat, params ListParams) (*ExportJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*ExportJob, error)
	RunJob(ctx context.Context, id uuid.UUID) (*ExportJob, error)
	Cleanup(ctx context.Context) (int, error)
}
