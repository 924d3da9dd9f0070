// internal/core/services/recommendations.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// RecommendationService keeps recommendations in memory and writes every
// status change through a ResolutionStore
type RecommendationService struct {
	mu       sync.RWMutex
	items    []domain.Recommendation
	index    map[string]int
	store    ports.ResolutionStore
	clock    func() time.Time
	onChange []func(ctx context.Context, rec domain.Recommendation)
	logger   *slog.Logger
}

// Statically assert that *RecommendationService implements the RecommendationService interface.
var _ ports.RecommendationService = (*RecommendationService)(nil)

// NewRecommendationService creates the service over fixture rows. A nil
// store keeps changes in memory only.
func NewRecommendationService(items []domain.Recommendation, store ports.ResolutionStore, logger *slog.Logger) *RecommendationService {
	if store == nil {
		store = NoopResolutionStore{}
	}
	s := &RecommendationService{
		items:  slices.Clone(items),
		index:  make(map[string]int, len(items)),
		store:  store,
		clock:  time.Now,
		logger: logger.With(slog.String("service", "recommendations")),
	}
	for i, r := range s.items {
		s.index[r.ID] = i
	}
	return s
}

// WithClock overrides the clock used for resolution timestamps
func (s *RecommendationService) WithClock(clock func() time.Time) *RecommendationService {
	s.clock = clock
	return s
}

// OnChange registers a callback run after every successful status change
func (s *RecommendationService) OnChange(fn func(ctx context.Context, rec domain.Recommendation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Restore replays persisted resolutions onto the in-memory rows. Unknown ids
// are skipped; later entries win.
func (s *RecommendationService) Restore(ctx context.Context) error {
	resolutions, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load resolutions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, res := range resolutions {
		i, ok := s.index[res.RecommendationID]
		if !ok || !res.Status.Valid() {
			s.logger.WarnContext(ctx, "skipping stored resolution",
				slog.String("recommendation_id", res.RecommendationID),
				slog.String("status", string(res.Status)))
			continue
		}
		rec := &s.items[i]
		rec.Status = res.Status
		if res.Status == domain.RecommendationOpen {
			rec.ResolvedAt = nil
		} else {
			at := res.ChangedAt
			rec.ResolvedAt = &at
		}
		applied++
	}

	s.logger.InfoContext(ctx, "restored recommendation resolutions",
		slog.Int("stored", len(resolutions)),
		slog.Int("applied", applied))
	return nil
}

// List returns a snapshot of every recommendation
func (s *RecommendationService) List(ctx context.Context) []domain.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Get returns one recommendation
func (s *RecommendationService) Get(ctx context.Context, id string) (*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("recommendation %s: %w", id, domain.ErrNotFound)
	}
	rec := s.items[i]
	return &rec, nil
}

// Resolve marks a recommendation as resolved
func (s *RecommendationService) Resolve(ctx context.Context, id string) (*domain.Recommendation, error) {
	return s.transition(ctx, id, domain.RecommendationResolved)
}

// Dismiss marks a recommendation as dismissed
func (s *RecommendationService) Dismiss(ctx context.Context, id string) (*domain.Recommendation, error) {
	return s.transition(ctx, id, domain.RecommendationDismissed)
}

// Reopen moves a resolved or dismissed recommendation back to open
func (s *RecommendationService) Reopen(ctx context.Context, id string) (*domain.Recommendation, error) {
	return s.transition(ctx, id, domain.RecommendationOpen)
}

func (s *RecommendationService) transition(ctx context.Context, id string, to domain.RecommendationStatus) (*domain.Recommendation, error) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("recommendation %s: %w", id, domain.ErrNotFound)
	}

	before := s.items[i]
	updated := before
	now := s.clock()
	if err := updated.Transition(to, now); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("recommendation %s: %w", id, err)
	}

	if err := s.store.Save(ctx, ports.Resolution{
		RecommendationID: id,
		Status:           to,
		ChangedAt:        now,
	}); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to persist resolution: %w", err)
	}

	s.items[i] = updated
	listeners := slices.Clone(s.onChange)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "recommendation status changed",
		slog.String("recommendation_id", id),
		slog.String("from", string(before.Status)),
		slog.String("to", string(to)))

	for _, fn := range listeners {
		fn(ctx, updated)
	}

	return &updated, nil
}

// NoopResolutionStore discards every resolution
type NoopResolutionStore struct{}

var _ ports.ResolutionStore = NoopResolutionStore{}

// Save does nothing
func (NoopResolutionStore) Save(context.Context, ports.Resolution) error { return nil }

// SaveAll does nothing
func (NoopResolutionStore) SaveAll(context.Context, []ports.Resolution) error { return nil }

// LoadAll returns nothing
func (NoopResolutionStore) LoadAll(context.Context) ([]ports.Resolution, error) { return nil, nil }

// Close does nothing
func (NoopResolutionStore) Close() error { return nil }
