// internal/core/ports/recommendations.go
package ports

import (
	"context"
	"time"

	"github.com/ammerola/finops-console/internal/core/domain"
)

// Resolution is a persisted status change of a recommendation
type Resolution struct {
	RecommendationID string                      `json:"recommendation_id"`
	Status           domain.RecommendationStatus `json:"status"`
	ChangedAt        time.Time                   `json:"changed_at"`
}

// ResolutionStore persists recommendation status changes so they survive a
// restart. The default store keeps nothing.
type ResolutionStore interface {
	Save(ctx context.Context, r Resolution) error
	// SaveAll records every resolution or none of them
	SaveAll(ctx context.Context, rs []Resolution) error
	LoadAll(ctx context.Context) ([]Resolution, error)
	Close() error
}

// RecommendationService changes the status of recommendations
type RecommendationService interface {
	List(ctx context.Context) []domain.Recommendation
	Get(ctx context.Context, id string) (*domain.Recommendation, error)
	Resolve(ctx context.Context, id string) (*domain.Recommendation, error)
	Dismiss(ctx context.Context, id string) (*domain.Recommendation, error)
	Reopen(ctx context.Context, id string) (*domain.Recommendation, error)
}
