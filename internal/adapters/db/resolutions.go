// internal/adapters/db/resolutions.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

const resolutionsTable = "recommendation_resolutions"

// upsertResolution builds the insert-or-replace statement shared by the
// Postgres and SQLite stores. Both accept the ON CONFLICT ... excluded form.
func upsertResolution(r ports.Resolution, format squirrel.PlaceholderFormat, changedAt any) (string, []interface{}, error) {
	return squirrel.Insert(resolutionsTable).
		Columns("recommendation_id", "status", "changed_at").
		Values(r.RecommendationID, string(r.Status), changedAt).
		Suffix("ON CONFLICT (recommendation_id) DO UPDATE SET status = excluded.status, changed_at = excluded.changed_at").
		PlaceholderFormat(format).
		ToSql()
}

func selectResolutions(format squirrel.PlaceholderFormat) (string, []interface{}, error) {
	return squirrel.Select("recommendation_id", "status", "changed_at").
		From(resolutionsTable).
		OrderBy("changed_at ASC", "recommendation_id ASC").
		PlaceholderFormat(format).
		ToSql()
}

// ResolutionStore persists recommendation status changes in Postgres
type ResolutionStore struct {
	db     ports.Database
	logger *slog.Logger
}

// Statically assert that *ResolutionStore implements the ResolutionStore interface.
var _ ports.ResolutionStore = (*ResolutionStore)(nil)

// NewResolutionStore creates a Postgres backed store. The schema comes from
// the embedded migrations.
func NewResolutionStore(db ports.Database, logger *slog.Logger) *ResolutionStore {
	return &ResolutionStore{
		db:     db,
		logger: logger.With(slog.String("repository", "resolutions")),
	}
}

// Save records the latest status of a recommendation
func (s *ResolutionStore) Save(ctx context.Context, r ports.Resolution) error {
	query, args, err := upsertResolution(r, squirrel.Dollar, r.ChangedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save resolution: %w", err)
	}

	s.logger.DebugContext(ctx, "resolution saved",
		slog.String("recommendation_id", r.RecommendationID),
		slog.String("status", string(r.Status)))

	return nil
}

// SaveAll records a batch of resolutions in one transaction
func (s *ResolutionStore) SaveAll(ctx context.Context, rs []ports.Resolution) error {
	if len(rs) == 0 {
		return nil
	}

	err := s.db.Transaction(ctx, func(tx pgx.Tx) error {
		for _, r := range rs {
			query, args, err := upsertResolution(r, squirrel.Dollar, r.ChangedAt.UTC())
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to save resolution %s: %w", r.RecommendationID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "resolutions saved", slog.Int("count", len(rs)))
	return nil
}

// LoadAll returns every stored resolution, oldest first
func (s *ResolutionStore) LoadAll(ctx context.Context) ([]ports.Resolution, error) {
	query, args, err := selectResolutions(squirrel.Dollar)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var out []ports.Resolution
	for rows.Next() {
		var r ports.Resolution
		var status string
		if err := rows.Scan(&r.RecommendationID, &status, &r.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		r.Status = domain.RecommendationStatus(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resolutions: %w", err)
	}

	return out, nil
}

// Close releases the pool
func (s *ResolutionStore) Close() error {
	s.db.Close()
	return nil
}
