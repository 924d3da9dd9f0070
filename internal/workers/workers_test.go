package workers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/finops-console/internal/adapters/export"
	redis_a "github.com/ammerola/finops-console/internal/adapters/redis_adapter"
	"github.com/ammerola/finops-console/internal/adapters/storage"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/workers"
	"github.com/ammerola/finops-console/test/helpers"
	"github.com/ammerola/finops-console/test/mocks"
)

// fakeEnqueuer records tasks instead of writing them to Redis
type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(f.tasks)), Queue: workers.QueueExports, Type: task.Type()}, nil
}

type fakeRegistrar struct {
	specs []string
	types []string
	err   error
}

func (f *fakeRegistrar) Register(spec string, task *asynq.Task, _ ...asynq.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.specs = append(f.specs, spec)
	f.types = append(f.types, task.Type())
	return "entry-1", nil
}

func exportTask(t *testing.T, id uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := workers.NewExportTask(id)
	require.NoError(t, err)
	return task
}

func TestNewExportTask(t *testing.T) {
	id := uuid.New()
	task := exportTask(t, id)

	assert.Equal(t, workers.TypeExportView, task.Type())
	var payload workers.ExportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, id, payload.JobID)

	cleanup := workers.NewCleanupTask()
	assert.Equal(t, workers.TypeExportCleanup, cleanup.Type())
	assert.Empty(t, cleanup.Payload())
}

func TestExportProcessor_ProcessExport(t *testing.T) {
	jobID := uuid.New()

	tests := []struct {
		name       string
		task       func(t *testing.T) *asynq.Task
		setupMocks func(*mocks.MockExportService)
		wantErr    bool
		skipRetry  bool
	}{
		{
			name: "completes_job",
			task: func(t *testing.T) *asynq.Task { return exportTask(t, jobID) },
			setupMocks: func(m *mocks.MockExportService) {
				m.EXPECT().RunJob(gomock.Any(), jobID).Return(&ports.ExportJob{
					ID: jobID, View: domain.ViewQueries, Format: ports.FormatCSV,
					Status: ports.JobCompleted, Rows: 4,
				}, nil)
			},
		},
		{
			name: "render_failure_is_retried",
			task: func(t *testing.T) *asynq.Task { return exportTask(t, jobID) },
			setupMocks: func(m *mocks.MockExportService) {
				m.EXPECT().RunJob(gomock.Any(), jobID).Return(nil, errors.New("failed to upload export: timeout"))
			},
			wantErr: true,
		},
		{
			name: "missing_job_is_dropped",
			task: func(t *testing.T) *asynq.Task { return exportTask(t, jobID) },
			setupMocks: func(m *mocks.MockExportService) {
				m.EXPECT().RunJob(gomock.Any(), jobID).
					Return(nil, fmt.Errorf("export job %s: %w", jobID, domain.ErrNotFound))
			},
			wantErr:   true,
			skipRetry: true,
		},
		{
			name: "malformed_payload",
			task: func(t *testing.T) *asynq.Task {
				return asynq.NewTask(workers.TypeExportView, []byte(`{"job_id":`))
			},
			setupMocks: func(m *mocks.MockExportService) {},
			wantErr:    true,
			skipRetry:  true,
		},
		{
			name: "empty_job_id",
			task: func(t *testing.T) *asynq.Task {
				return asynq.NewTask(workers.TypeExportView, []byte(`{}`))
			},
			setupMocks: func(m *mocks.MockExportService) {},
			wantErr:    true,
			skipRetry:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockExportService(ctrl)
			tt.setupMocks(svc)

			p := workers.NewExportProcessor(svc, time.Minute, helpers.TestLogger())
			err := p.ProcessExport(context.Background(), tt.task(t))

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestCleanupProcessor(t *testing.T) {
	t.Run("deletes_expired", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockExportService(ctrl)
		svc.EXPECT().Cleanup(gomock.Any()).Return(3, nil)

		p := workers.NewCleanupProcessor(svc, helpers.TestLogger())
		assert.NoError(t, p.CleanupExports(context.Background(), workers.NewCleanupTask()))
	})

	t.Run("storage_failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockExportService(ctrl)
		svc.EXPECT().Cleanup(gomock.Any()).Return(0, errors.New("access denied"))

		p := workers.NewCleanupProcessor(svc, helpers.TestLogger())
		err := p.CleanupExports(context.Background(), workers.NewCleanupTask())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to cleanup exports")
	})
}

func TestTaskQueue_EnqueueExport(t *testing.T) {
	job := &ports.ExportJob{ID: uuid.New(), View: domain.ViewWarehouses, Format: ports.FormatJSON}

	t.Run("enqueues_export_task", func(t *testing.T) {
		client := &fakeEnqueuer{}
		q := workers.NewTaskQueue(client, 3, time.Minute, helpers.TestLogger())

		require.NoError(t, q.EnqueueExport(context.Background(), job))
		require.Len(t, client.tasks, 1)
		assert.Equal(t, workers.TypeExportView, client.tasks[0].Type())
		assert.Contains(t, string(client.tasks[0].Payload()), job.ID.String())
	})

	t.Run("client_error", func(t *testing.T) {
		client := &fakeEnqueuer{err: asynq.ErrTaskIDConflict}
		q := workers.NewTaskQueue(client, 0, 0, helpers.TestLogger())

		err := q.EnqueueExport(context.Background(), job)
		require.Error(t, err)
		assert.ErrorIs(t, err, asynq.ErrTaskIDConflict)
	})
}

func TestRegisterSchedules(t *testing.T) {
	r := &fakeRegistrar{}
	id, err := workers.RegisterSchedules(r, "@every 30m")
	require.NoError(t, err)
	assert.Equal(t, "entry-1", id)
	assert.Equal(t, []string{"@every 30m"}, r.specs)
	assert.Equal(t, []string{workers.TypeExportCleanup}, r.types)

	disabled := &fakeRegistrar{}
	id, err = workers.RegisterSchedules(disabled, "")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, disabled.specs)

	_, err = workers.RegisterSchedules(&fakeRegistrar{err: errors.New("bad cron")}, "every day")
	assert.ErrorContains(t, err, "failed to schedule export:cleanup")
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retried int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{5, 32 * time.Second},
		{9, 512 * time.Second},
		{10, 10 * time.Minute},
		{64, 10 * time.Minute},
		{-1, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, workers.RetryDelay(tt.retried, nil, nil), "retried=%d", tt.retried)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ok := workers.LoggingMiddleware(logger)(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return nil }))
	failing := workers.LoggingMiddleware(logger)(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return errors.New("boom")
	}))

	require.NoError(t, ok.ProcessTask(context.Background(), workers.NewCleanupTask()))
	require.Error(t, failing.ProcessTask(context.Background(), workers.NewCleanupTask()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"task_completed"`)
	assert.Contains(t, lines[1], `"msg":"task_failed"`)
	assert.Contains(t, lines[1], `"error":"boom"`)
}

func TestAsynqLogger(t *testing.T) {
	var buf bytes.Buffer
	l := workers.NewAsynqLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Debug("scheduler", " starting")
	l.Info("processing ", 3, " tasks")
	l.Warn("lease expired")
	l.Error("redis down")

	out := buf.String()
	assert.Contains(t, out, `"msg":"scheduler starting"`)
	assert.Contains(t, out, `"msg":"processing 3 tasks"`)
	assert.Contains(t, out, `"component":"asynq"`)
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

// TestExportJob_RoundTrip queues a job through the service, then runs the
// captured task the way the worker would.
func TestExportJob_RoundTrip(t *testing.T) {
	ctx := context.Background()
	logger := helpers.TestLogger()
	tr := helpers.SetupTestRedis(t)

	local, err := storage.NewLocalStorage(t.TempDir(), logger)
	require.NoError(t, err)

	data := helpers.TestDataset()
	recs := services.NewRecommendationService(data.Recommendations, nil, logger)
	views := services.NewViewService(data, recs, logger)
	jobs := redis_a.NewJobStore(redis_a.NewCache(tr.Client, time.Hour, logger), time.Hour)
	client := &fakeEnqueuer{}
	queue := workers.NewTaskQueue(client, 3, time.Minute, logger)

	svc := services.NewExportService(views, export.NewEncoder(), jobs, queue, local, services.DefaultExportOptions(), logger)

	job, err := svc.StartJob(ctx, domain.ViewRecommendations, ports.FormatCSV, ports.ListParams{
		Selections: map[string][]string{domain.FieldStatus: {string(domain.RecommendationOpen)}},
	})
	require.NoError(t, err)
	assert.Equal(t, ports.JobQueued, job.Status)
	require.Len(t, client.tasks, 1)

	exports := workers.NewExportProcessor(svc, time.Minute, logger)
	mux := workers.NewServeMux(exports, workers.NewCleanupProcessor(svc, logger), logger)
	require.NoError(t, mux.ProcessTask(ctx, client.tasks[0]))

	done, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, ports.JobCompleted, done.Status)
	assert.Equal(t, 2, done.Rows)
	require.True(t, strings.HasPrefix(done.DownloadURL, "file://"), done.DownloadURL)

	content, err := os.ReadFile(strings.TrimPrefix(done.DownloadURL, "file://"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "rec-1")
	assert.Contains(t, string(content), "rec-2")
	assert.NotContains(t, string(content), "rec-3")

	// Running the task again is a no-op for a completed job.
	require.NoError(t, mux.ProcessTask(ctx, client.tasks[0]))
}
