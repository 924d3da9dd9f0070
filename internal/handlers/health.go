// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/pkg/config"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// HealthHandler reports on the process and the backends it was started with.
// Every dependency is optional; the console runs fine on fixtures alone.
type HealthHandler struct {
	db        ports.Database
	redis     redis.UniversalClient
	asynq     *asynq.Inspector
	dataset   func() int
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

// HealthOption wires an optional dependency into the health checks
type HealthOption func(*HealthHandler)

// WithDatabase adds the Postgres pool to the checks
func WithDatabase(db ports.Database) HealthOption {
	return func(h *HealthHandler) { h.db = db }
}

// WithRedis adds the Redis client to the checks
func WithRedis(client redis.UniversalClient) HealthOption {
	return func(h *HealthHandler) { h.redis = client }
}

// WithInspector adds asynq queue statistics to the report
func WithInspector(inspector *asynq.Inspector) HealthOption {
	return func(h *HealthHandler) { h.asynq = inspector }
}

// WithDatasetSize reports how many fixture rows are loaded
func WithDatasetSize(count func() int) HealthOption {
	return func(h *HealthHandler) { h.dataset = count }
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config, logger *slog.Logger, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthStatus represents the health status of the application
type HealthStatus struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]ServiceInfo `json:"services"`
	System      SystemInfo             `json:"system"`
}

// ServiceInfo represents the status of a service dependency
type ServiceInfo struct {
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	ResponseTime string         `json:"response_time,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// SystemInfo represents system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	MemorySysMB   uint64 `json:"memory_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:      statusHealthy,
		Version:     h.config.App.Version,
		Environment: h.config.App.Environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:   time.Now(),
		Services:    make(map[string]ServiceInfo),
		System:      systemInfo(),
	}

	if h.dataset != nil {
		health.Services["fixtures"] = ServiceInfo{
			Status:  statusHealthy,
			Details: map[string]any{"rows": h.dataset()},
		}
	}
	if h.db != nil {
		health.Services["database"] = h.checkDatabase(ctx)
	}
	if h.redis != nil {
		health.Services["redis"] = h.checkRedis(ctx)
	}
	if h.asynq != nil {
		health.Services["asynq"] = h.checkAsynq(ctx)
	}

	for _, svc := range health.Services {
		if svc.Status != statusHealthy {
			health.Status = statusDegraded
		}
	}

	statusCode := http.StatusOK
	if health.Status == statusDegraded {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}

// Readiness handles GET /ready
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := true
	details := make(map[string]string)

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			ready = false
			details["database"] = "not ready"
		} else {
			details["database"] = "ready"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			ready = false
			details["redis"] = "not ready"
		} else {
			details["redis"] = "ready"
		}
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(map[string]any{"ready": ready, "details": details}); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode readiness response",
			slog.String("error", err.Error()))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceInfo {
	start := time.Now()
	info := ServiceInfo{Status: statusHealthy}

	if err := h.db.Ping(ctx); err != nil {
		info.Status = statusUnhealthy
		info.Message = err.Error()
		h.logger.ErrorContext(ctx, "database health check failed",
			slog.String("error", err.Error()))
		return info
	}

	info.Details = h.db.Health(ctx)
	info.ResponseTime = time.Since(start).String()
	return info
}

func (h *HealthHandler) checkRedis(ctx context.Context) ServiceInfo {
	start := time.Now()
	info := ServiceInfo{Status: statusHealthy, Details: make(map[string]any)}

	pong, err := h.redis.Ping(ctx).Result()
	if err != nil {
		info.Status = statusUnhealthy
		info.Message = err.Error()
		h.logger.ErrorContext(ctx, "redis health check failed",
			slog.String("error", err.Error()))
		return info
	}
	info.Details["ping"] = pong

	if stats := h.redis.PoolStats(); stats != nil {
		info.Details["total_conns"] = stats.TotalConns
		info.Details["idle_conns"] = stats.IdleConns
		info.Details["stale_conns"] = stats.StaleConns
	}

	info.ResponseTime = time.Since(start).String()
	return info
}

func (h *HealthHandler) checkAsynq(ctx context.Context) ServiceInfo {
	start := time.Now()
	info := ServiceInfo{Status: statusHealthy, Details: make(map[string]any)}

	queues, err := h.asynq.Queues()
	if err != nil {
		info.Status = statusUnhealthy
		info.Message = err.Error()
		h.logger.ErrorContext(ctx, "asynq health check failed",
			slog.String("error", err.Error()))
		return info
	}

	queueStats := make(map[string]any, len(queues))
	for _, queue := range queues {
		qInfo, err := h.asynq.GetQueueInfo(queue)
		if err != nil {
			continue
		}
		queueStats[queue] = map[string]any{
			"size":      qInfo.Size,
			"active":    qInfo.Active,
			"pending":   qInfo.Pending,
			"scheduled": qInfo.Scheduled,
			"retry":     qInfo.Retry,
			"archived":  qInfo.Archived,
			"completed": qInfo.Completed,
		}
	}
	info.Details["queues"] = queueStats

	if servers, err := h.asynq.Servers(); err == nil {
		info.Details["servers"] = len(servers)
	}

	info.ResponseTime = time.Since(start).String()
	return info
}

func systemInfo() SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAllocMB: mem.Alloc / 1024 / 1024,
		MemorySysMB:   mem.Sys / 1024 / 1024,
		NumGC:         mem.NumGC,
	}
}
