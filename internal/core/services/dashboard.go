// internal/core/services/dashboard.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// DashboardCacheKey is where the summary is cached
const DashboardCacheKey = "dash:summary"

const (
	topWarehouses  = 5
	recentActivity = 5
)

// DashboardService computes the headline numbers of the console. Results are
// cached, and concurrent misses share one computation.
type DashboardService struct {
	data   *domain.Dataset
	recs   ports.RecommendationService
	cache  ports.CacheRepository
	ttl    time.Duration
	group  singleflight.Group
	clock  func() time.Time
	logger *slog.Logger
}

// Statically assert that *DashboardService implements the DashboardService interface.
var _ ports.DashboardService = (*DashboardService)(nil)

// NewDashboardService creates a dashboard service. cache may be nil.
func NewDashboardService(data *domain.Dataset, recs ports.RecommendationService, cache ports.CacheRepository, ttl time.Duration, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		data:   data,
		recs:   recs,
		cache:  cache,
		ttl:    ttl,
		clock:  time.Now,
		logger: logger.With(slog.String("service", "dashboard")),
	}
}

// Summary returns the cached summary, computing it on a miss
func (s *DashboardService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	v, err, shared := s.group.Do(DashboardCacheKey, func() (interface{}, error) {
		if s.cache == nil {
			return s.compute(ctx), nil
		}
		var out domain.DashboardSummary
		err := s.cache.GetOrSet(ctx, DashboardCacheKey, &out, func() (interface{}, error) {
			return s.compute(ctx), nil
		}, s.ttl)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	if shared {
		s.logger.DebugContext(ctx, "dashboard summary shared with concurrent caller")
	}

	summary := *v.(*domain.DashboardSummary)
	return &summary, nil
}

// Invalidate drops the cached summary
func (s *DashboardService) Invalidate(ctx context.Context) error {
	s.group.Forget(DashboardCacheKey)
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, DashboardCacheKey); err != nil {
		return fmt.Errorf("failed to invalidate dashboard: %w", err)
	}
	return nil
}

func (s *DashboardService) compute(ctx context.Context) *domain.DashboardSummary {
	out := &domain.DashboardSummary{
		TotalCredits:     decimal.Zero,
		TotalCost:        decimal.Zero,
		PotentialSavings: decimal.Zero,
		QueryCount:       len(s.data.Queries),
		GeneratedAt:      s.clock().UTC(),
	}

	for _, q := range s.data.Queries {
		if q.Status == domain.QueryFailed {
			out.FailedQueries++
		}
	}

	spend := make([]domain.WarehouseSpend, 0, len(s.data.Warehouses))
	for _, w := range s.data.Warehouses {
		out.TotalCredits = out.TotalCredits.Add(w.Credits)
		out.TotalCost = out.TotalCost.Add(w.Cost)
		spend = append(spend, domain.WarehouseSpend{Name: w.Name, Credits: w.Credits, Cost: w.Cost})
	}
	slices.SortStableFunc(spend, func(a, b domain.WarehouseSpend) int {
		return b.Credits.Cmp(a.Credits)
	})
	out.TopWarehouses = spend[:min(topWarehouses, len(spend))]

	for _, r := range s.recs.List(ctx) {
		if r.Status == domain.RecommendationOpen {
			out.OpenRecommendations++
			out.PotentialSavings = out.PotentialSavings.Add(r.EstimatedSavings)
		}
	}

	logs := slices.Clone(s.data.ActivityLogs)
	slices.SortStableFunc(logs, func(a, b domain.ActivityLog) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	out.RecentActivity = logs[:min(recentActivity, len(logs))]

	s.logger.InfoContext(ctx, "computed dashboard summary",
		slog.String("total_credits", out.TotalCredits.String()),
		slog.Int("open_recommendations", out.OpenRecommendations))

	return out
}
