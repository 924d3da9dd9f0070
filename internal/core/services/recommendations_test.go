package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/test/helpers"
	"github.com/ammerola/finops-console/test/mocks"
)

func newRecommendationService(store ports.ResolutionStore) *services.RecommendationService {
	return services.NewRecommendationService(helpers.TestDataset().Recommendations, store, helpers.TestLogger()).
		WithClock(func() time.Time { return helpers.TestNow })
}

func TestRecommendationService_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		action     func(*services.RecommendationService, context.Context, string) (*domain.Recommendation, error)
		setupMocks func(*mocks.MockResolutionStore)
		wantStatus domain.RecommendationStatus
		wantErr    error
		errorMsg   string
	}{
		{
			name:   "resolve_open_recommendation",
			id:     "rec-1",
			action: (*services.RecommendationService).Resolve,
			setupMocks: func(m *mocks.MockResolutionStore) {
				m.EXPECT().Save(gomock.Any(), ports.Resolution{
					RecommendationID: "rec-1",
					Status:           domain.RecommendationResolved,
					ChangedAt:        helpers.TestNow,
				}).Return(nil)
			},
			wantStatus: domain.RecommendationResolved,
		},
		{
			name:   "dismiss_open_recommendation",
			id:     "rec-2",
			action: (*services.RecommendationService).Dismiss,
			setupMocks: func(m *mocks.MockResolutionStore) {
				m.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: domain.RecommendationDismissed,
		},
		{
			name:   "reopen_dismissed_recommendation",
			id:     "rec-3",
			action: (*services.RecommendationService).Reopen,
			setupMocks: func(m *mocks.MockResolutionStore) {
				m.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: domain.RecommendationOpen,
		},
		{
			name:       "dismiss_already_dismissed",
			id:         "rec-3",
			action:     (*services.RecommendationService).Dismiss,
			setupMocks: func(m *mocks.MockResolutionStore) {},
			wantErr:    domain.ErrInvalidStatus,
		},
		{
			name:       "reopen_open_recommendation",
			id:         "rec-1",
			action:     (*services.RecommendationService).Reopen,
			setupMocks: func(m *mocks.MockResolutionStore) {},
			wantErr:    domain.ErrInvalidStatus,
		},
		{
			name:       "unknown_id",
			id:         "rec-404",
			action:     (*services.RecommendationService).Resolve,
			setupMocks: func(m *mocks.MockResolutionStore) {},
			wantErr:    domain.ErrNotFound,
		},
		{
			name:   "store_failure_leaves_row_unchanged",
			id:     "rec-1",
			action: (*services.RecommendationService).Resolve,
			setupMocks: func(m *mocks.MockResolutionStore) {
				m.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("database unavailable"))
			},
			wantStatus: domain.RecommendationOpen,
			errorMsg:   "failed to persist resolution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockResolutionStore(ctrl)
			tt.setupMocks(store)

			svc := newRecommendationService(store)
			ctx := context.Background()

			rec, err := tt.action(svc, ctx, tt.id)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rec)
			case tt.errorMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				current, getErr := svc.Get(ctx, tt.id)
				require.NoError(t, getErr)
				assert.Equal(t, tt.wantStatus, current.Status)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, rec.Status)
				current, getErr := svc.Get(ctx, tt.id)
				require.NoError(t, getErr)
				assert.Equal(t, tt.wantStatus, current.Status)
			}
		})
	}
}

func TestRecommendationService_ResolvedAt(t *testing.T) {
	svc := newRecommendationService(nil)
	ctx := context.Background()

	rec, err := svc.Resolve(ctx, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, rec.ResolvedAt)
	assert.True(t, helpers.TestNow.Equal(*rec.ResolvedAt))

	rec, err = svc.Reopen(ctx, "rec-1")
	require.NoError(t, err)
	assert.Nil(t, rec.ResolvedAt)
}

func TestRecommendationService_ListIsSnapshot(t *testing.T) {
	svc := newRecommendationService(nil)
	ctx := context.Background()

	list := svc.List(ctx)
	list[0].Status = domain.RecommendationDismissed

	rec, err := svc.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendationOpen, rec.Status)
}

func TestRecommendationService_OnChange(t *testing.T) {
	svc := newRecommendationService(nil)
	ctx := context.Background()

	var changed []string
	svc.OnChange(func(_ context.Context, rec domain.Recommendation) {
		changed = append(changed, fmt.Sprintf("%s:%s", rec.ID, rec.Status))
	})

	_, err := svc.Resolve(ctx, "rec-1")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, "rec-1")
	require.Error(t, err)
	_, err = svc.Dismiss(ctx, "rec-2")
	require.NoError(t, err)

	assert.Equal(t, []string{"rec-1:Resolved", "rec-2:Dismissed"}, changed)
}

func TestRecommendationService_Restore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockResolutionStore(ctrl)
	earlier := helpers.TestNow.Add(-2 * time.Hour)

	store.EXPECT().LoadAll(gomock.Any()).Return([]ports.Resolution{
		{RecommendationID: "rec-1", Status: domain.RecommendationResolved, ChangedAt: earlier},
		{RecommendationID: "rec-3", Status: domain.RecommendationOpen, ChangedAt: earlier},
		{RecommendationID: "rec-gone", Status: domain.RecommendationResolved, ChangedAt: earlier},
		{RecommendationID: "rec-2", Status: domain.RecommendationStatus("Snoozed"), ChangedAt: earlier},
		{RecommendationID: "rec-1", Status: domain.RecommendationDismissed, ChangedAt: helpers.TestNow},
	}, nil)

	svc := newRecommendationService(store)
	ctx := context.Background()
	require.NoError(t, svc.Restore(ctx))

	statuses := map[string]domain.RecommendationStatus{}
	for _, r := range svc.List(ctx) {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, map[string]domain.RecommendationStatus{
		"rec-1": domain.RecommendationDismissed,
		"rec-2": domain.RecommendationOpen,
		"rec-3": domain.RecommendationOpen,
	}, statuses)

	rec, err := svc.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, rec.ResolvedAt)
	assert.True(t, helpers.TestNow.Equal(*rec.ResolvedAt))
}

func TestRecommendationService_RestoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockResolutionStore(ctrl)
	store.EXPECT().LoadAll(gomock.Any()).Return(nil, errors.New("no such table"))

	err := newRecommendationService(store).Restore(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load resolutions")
}

func TestRecommendationService_ConcurrentResolve(t *testing.T) {
	svc := newRecommendationService(nil)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Resolve(ctx, "rec-2"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "only one caller can move an open recommendation")
}

func TestNoopResolutionStore(t *testing.T) {
	store := services.NoopResolutionStore{}
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, ports.Resolution{RecommendationID: "rec-1"}))
	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, store.Close())
}
