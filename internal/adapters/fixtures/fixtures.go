// internal/adapters/fixtures/fixtures.go
package fixtures

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ammerola/finops-console/internal/core/domain"
)

//go:embed data/*.yaml
var embedded embed.FS

// DefaultQueryCount is the size of the synthetic query history
const DefaultQueryCount = 200

// Loader reads the static datasets served by the console
type Loader struct {
	files      fs.FS
	queryCount int
	seed       uint64
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithFS reads fixture files from fsys instead of the embedded set
func WithFS(fsys fs.FS) Option {
	return func(l *Loader) { l.files = fsys }
}

// WithQueryCount sets how many synthetic queries are generated
func WithQueryCount(n int) Option {
	return func(l *Loader) { l.queryCount = n }
}

// WithSeed sets the generator seed
func WithSeed(seed uint64) Option {
	return func(l *Loader) { l.seed = seed }
}

// WithClock sets the reference time for generated timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a fixture loader
func NewLoader(logger *slog.Logger, opts ...Option) *Loader {
	sub, _ := fs.Sub(embedded, "data")
	l := &Loader{
		files:      sub,
		queryCount: DefaultQueryCount,
		seed:       42,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "fixtures")),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every dataset. Each file is decoded concurrently.
func (l *Loader) Load(ctx context.Context) (*domain.Dataset, error) {
	var ds domain.Dataset
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ds.Queries = GenerateQueries(l.queryCount, l.now(), l.seed)
		return nil
	})
	g.Go(func() error {
		var raw []warehouseFixture
		if err := l.decode(ctx, "warehouses.yaml", &raw); err != nil {
			return err
		}
		ds.Warehouses = make([]domain.Warehouse, 0, len(raw))
		for _, r := range raw {
			ds.Warehouses = append(ds.Warehouses, r.toDomain(l.logger))
		}
		return nil
	})
	g.Go(func() error {
		var raw []recommendationFixture
		if err := l.decode(ctx, "recommendations.yaml", &raw); err != nil {
			return err
		}
		ds.Recommendations = make([]domain.Recommendation, 0, len(raw))
		for _, r := range raw {
			ds.Recommendations = append(ds.Recommendations, r.toDomain(l.logger))
		}
		return nil
	})
	g.Go(func() error {
		var raw []assignedQueryFixture
		if err := l.decode(ctx, "assigned_queries.yaml", &raw); err != nil {
			return err
		}
		ds.AssignedQueries = make([]domain.AssignedQuery, 0, len(raw))
		for _, r := range raw {
			ds.AssignedQueries = append(ds.AssignedQueries, r.toDomain(l.logger))
		}
		return nil
	})
	g.Go(func() error {
		var raw []activityLogFixture
		if err := l.decode(ctx, "activity_logs.yaml", &raw); err != nil {
			return err
		}
		ds.ActivityLogs = make([]domain.ActivityLog, 0, len(raw))
		for _, r := range raw {
			ds.ActivityLogs = append(ds.ActivityLogs, r.toDomain(l.logger))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "fixtures loaded",
		slog.Int("queries", len(ds.Queries)),
		slog.Int("warehouses", len(ds.Warehouses)),
		slog.Int("recommendations", len(ds.Recommendations)),
		slog.Int("assigned_queries", len(ds.AssignedQueries)),
		slog.Int("activity_logs", len(ds.ActivityLogs)))

	return &ds, nil
}

func (l *Loader) decode(ctx context.Context, name string, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := fs.ReadFile(l.files, name)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode fixture %s: %w", name, err)
	}
	return nil
}

type warehouseFixture struct {
	Name        string `yaml:"name"`
	Size        string `yaml:"size"`
	Status      string `yaml:"status"`
	Credits     string `yaml:"credits"`
	Cost        string `yaml:"cost"`
	Utilization string `yaml:"utilization"`
	LastActive  string `yaml:"last_active"`
}

func (f warehouseFixture) toDomain(logger *slog.Logger) domain.Warehouse {
	return domain.Warehouse{
		Name:        f.Name,
		Size:        domain.WarehouseSize(f.Size),
		Status:      domain.WarehouseStatus(f.Status),
		Credits:     parseDecimal(logger, f.Name, "credits", f.Credits),
		Cost:        parseDecimal(logger, f.Name, "cost", f.Cost),
		Utilization: parseDecimal(logger, f.Name, "utilization", f.Utilization),
		LastActive:  parseTime(logger, f.Name, "last_active", f.LastActive),
	}
}

type recommendationFixture struct {
	ID               string `yaml:"id"`
	Title            string `yaml:"title"`
	Description      string `yaml:"description"`
	Category         string `yaml:"category"`
	Severity         string `yaml:"severity"`
	Warehouse        string `yaml:"warehouse"`
	EstimatedSavings string `yaml:"estimated_savings"`
	Status           string `yaml:"status"`
	CreatedAt        string `yaml:"created_at"`
}

func (f recommendationFixture) toDomain(logger *slog.Logger) domain.Recommendation {
	status := domain.RecommendationStatus(f.Status)
	if !status.Valid() {
		status = domain.RecommendationOpen
	}
	return domain.Recommendation{
		ID:               f.ID,
		Title:            f.Title,
		Description:      f.Description,
		Category:         f.Category,
		Severity:         domain.Severity(f.Severity),
		Warehouse:        f.Warehouse,
		EstimatedSavings: parseDecimal(logger, f.ID, "estimated_savings", f.EstimatedSavings),
		Status:           status,
		CreatedAt:        parseTime(logger, f.ID, "created_at", f.CreatedAt),
	}
}

type assignedQueryFixture struct {
	ID         string `yaml:"id"`
	QueryID    string `yaml:"query_id"`
	Assignee   string `yaml:"assignee"`
	AssignedBy string `yaml:"assigned_by"`
	Priority   string `yaml:"priority"`
	Status     string `yaml:"status"`
	Message    string `yaml:"message"`
	AssignedAt string `yaml:"assigned_at"`
}

func (f assignedQueryFixture) toDomain(logger *slog.Logger) domain.AssignedQuery {
	return domain.AssignedQuery{
		ID:         f.ID,
		QueryID:    f.QueryID,
		Assignee:   f.Assignee,
		AssignedBy: f.AssignedBy,
		Priority:   domain.Priority(f.Priority),
		Status:     domain.AssignmentStatus(f.Status),
		Message:    f.Message,
		AssignedAt: parseTime(logger, f.ID, "assigned_at", f.AssignedAt),
	}
}

type activityLogFixture struct {
	ID        string `yaml:"id"`
	Username  string `yaml:"username"`
	Action    string `yaml:"action"`
	Message   string `yaml:"message"`
	Timestamp string `yaml:"timestamp"`
}

func (f activityLogFixture) toDomain(logger *slog.Logger) domain.ActivityLog {
	return domain.ActivityLog{
		ID:        f.ID,
		Username:  f.Username,
		Action:    f.Action,
		Message:   f.Message,
		Timestamp: parseTime(logger, f.ID, "timestamp", f.Timestamp),
	}
}

// parseTime returns the zero time for malformed values so date filters drop the row
func parseTime(logger *slog.Logger, id, field, value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		logger.Warn("invalid fixture timestamp",
			slog.String("id", id),
			slog.String("field", field),
			slog.String("value", value))
		return time.Time{}
	}
	return t
}

func parseDecimal(logger *slog.Logger, id, field, value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		logger.Warn("invalid fixture number",
			slog.String("id", id),
			slog.String("field", field),
			slog.String("value", value))
		return decimal.Zero
	}
	return d
}
