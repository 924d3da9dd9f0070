package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/ammerola/finops-console/internal/adapters/redis_adapter"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/test/helpers"
	"github.com/ammerola/finops-console/test/mocks"
)

func TestDashboardService_Summary(t *testing.T) {
	data := helpers.TestDataset()
	recs := services.NewRecommendationService(data.Recommendations, nil, helpers.TestLogger())
	svc := services.NewDashboardService(data, recs, nil, time.Minute, helpers.TestLogger())

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("1754.25").Equal(summary.TotalCredits), summary.TotalCredits.String())
	assert.True(t, decimal.RequireFromString("5262.75").Equal(summary.TotalCost), summary.TotalCost.String())
	assert.Equal(t, 4, summary.QueryCount)
	assert.Equal(t, 1, summary.FailedQueries)
	assert.Equal(t, 2, summary.OpenRecommendations)
	assert.True(t, decimal.RequireFromString("1020").Equal(summary.PotentialSavings))

	require.Len(t, summary.TopWarehouses, 3)
	assert.Equal(t, "ETL_WH", summary.TopWarehouses[0].Name)
	assert.Equal(t, "BI_WH", summary.TopWarehouses[1].Name)
	assert.Equal(t, "DEV_WH", summary.TopWarehouses[2].Name)

	require.Len(t, summary.RecentActivity, 3)
	assert.Equal(t, "log-1", summary.RecentActivity[0].ID)
	assert.Equal(t, "log-3", summary.RecentActivity[2].ID)
}

func TestDashboardService_CachedInRedis(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, time.Hour, helpers.TestLogger())

	data := helpers.TestDataset()
	recs := services.NewRecommendationService(data.Recommendations, nil, helpers.TestLogger())
	svc := services.NewDashboardService(data, recs, cache, 5*time.Minute, helpers.TestLogger())

	first, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, tr.Server.Exists(services.DashboardCacheKey))
	assert.Equal(t, 5*time.Minute, tr.Server.TTL(services.DashboardCacheKey))

	_, err = recs.Resolve(ctx, "rec-1")
	require.NoError(t, err)

	cached, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.OpenRecommendations, cached.OpenRecommendations, "served from cache until invalidated")

	require.NoError(t, svc.Invalidate(ctx))
	assert.False(t, tr.Server.Exists(services.DashboardCacheKey))

	fresh, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.OpenRecommendations)
	assert.True(t, decimal.RequireFromString("120").Equal(fresh.PotentialSavings))
}

func TestDashboardService_InvalidatedOnResolve(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, time.Hour, helpers.TestLogger())

	data := helpers.TestDataset()
	recs := services.NewRecommendationService(data.Recommendations, nil, helpers.TestLogger())
	svc := services.NewDashboardService(data, recs, cache, time.Hour, helpers.TestLogger())
	recs.OnChange(func(ctx context.Context, _ domain.Recommendation) {
		require.NoError(t, svc.Invalidate(ctx))
	})

	before, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, before.OpenRecommendations)

	_, err = recs.Dismiss(ctx, "rec-2")
	require.NoError(t, err)

	after, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, after.OpenRecommendations)
}

func TestDashboardService_CacheErrors(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*mocks.MockCacheRepository)
		run        func(*services.DashboardService) error
		errorMsg   string
	}{
		{
			name: "summary_cache_failure",
			setupMocks: func(m *mocks.MockCacheRepository) {
				m.EXPECT().
					GetOrSet(gomock.Any(), services.DashboardCacheKey, gomock.Any(), gomock.Any(), time.Minute).
					Return(errors.New("redis: connection refused"))
			},
			run: func(s *services.DashboardService) error {
				_, err := s.Summary(context.Background())
				return err
			},
			errorMsg: "failed to load dashboard",
		},
		{
			name: "invalidate_failure",
			setupMocks: func(m *mocks.MockCacheRepository) {
				m.EXPECT().
					Delete(gomock.Any(), services.DashboardCacheKey).
					Return(errors.New("redis: connection refused"))
			},
			run: func(s *services.DashboardService) error {
				return s.Invalidate(context.Background())
			},
			errorMsg: "failed to invalidate dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			cache := mocks.NewMockCacheRepository(ctrl)
			tt.setupMocks(cache)

			data := helpers.TestDataset()
			recs := services.NewRecommendationService(data.Recommendations, nil, helpers.TestLogger())
			svc := services.NewDashboardService(data, recs, cache, time.Minute, helpers.TestLogger())

			err := tt.run(svc)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestDashboardService_ConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, time.Hour, helpers.TestLogger())

	data := helpers.TestDataset()
	recs := services.NewRecommendationService(data.Recommendations, nil, helpers.TestLogger())
	svc := services.NewDashboardService(data, recs, cache, time.Minute, helpers.TestLogger())

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summary, err := svc.Summary(ctx)
			if err != nil {
				results[i] = -1
				return
			}
			results[i] = summary.QueryCount
		}(i)
	}
	wg.Wait()

	for _, n := range results {
		assert.Equal(t, 4, n)
	}
}
