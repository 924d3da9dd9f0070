// internal/adapters/db/sqlite.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

const preferencesTable = "preferences"

// fixed width so changed_at orders correctly as text
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS recommendation_resolutions (
		recommendation_id TEXT PRIMARY KEY,
		status            TEXT NOT NULL,
		changed_at        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS preferences (
		name       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}

// SQLiteStore keeps resolutions and UI preferences in a local SQLite file.
// The console uses it so state survives between runs without a server.
type SQLiteStore struct {
	db     *sql.DB
	clock  func() time.Time
	logger *slog.Logger
}

var (
	_ ports.ResolutionStore = (*SQLiteStore)(nil)
	_ ports.PreferenceStore = (*SQLiteStore)(nil)
)

// OpenSQLite opens path (":memory:" for a throwaway store) and creates the schema
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one connection keeps :memory: databases alive and serializes writers
	conn.SetMaxOpenConns(1)

	store := NewSQLiteStore(conn, logger)
	if err := store.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an open connection
func NewSQLiteStore(conn *sql.DB, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     conn,
		clock:  time.Now,
		logger: logger.With(slog.String("repository", "sqlite")),
	}
}

// Migrate creates the tables if they do not exist
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create sqlite schema: %w", err)
		}
	}
	return nil
}

// Save records the latest status of a recommendation
func (s *SQLiteStore) Save(ctx context.Context, r ports.Resolution) error {
	query, args, err := upsertResolution(r, squirrel.Question, r.ChangedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save resolution: %w", err)
	}
	return nil
}

// SaveAll records a batch of resolutions in one transaction
func (s *SQLiteStore) SaveAll(ctx context.Context, rs []ports.Resolution) error {
	if len(rs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rs {
		query, args, err := upsertResolution(r, squirrel.Question, r.ChangedAt.UTC().Format(sqliteTimeLayout))
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save resolution %s: %w", r.RecommendationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadAll returns every stored resolution, oldest first
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]ports.Resolution, error) {
	query, args, err := selectResolutions(squirrel.Question)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var out []ports.Resolution
	for rows.Next() {
		var id, status, changed string
		if err := rows.Scan(&id, &status, &changed); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, changed)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping resolution with bad timestamp",
				slog.String("recommendation_id", id),
				slog.String("changed_at", changed))
			continue
		}
		out = append(out, ports.Resolution{
			RecommendationID: id,
			Status:           domain.RecommendationStatus(status),
			ChangedAt:        at,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resolutions: %w", err)
	}

	return out, nil
}

// Get returns a stored preference or ports.ErrPreferenceNotSet
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	query, args, err := squirrel.Select("value").
		From(preferencesTable).
		Where(squirrel.Eq{"name": key}).
		PlaceholderFormat(squirrel.Question).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build query: %w", err)
	}

	var value string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ports.ErrPreferenceNotSet
		}
		return "", fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, nil
}

// Set writes a preference
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	query, args, err := squirrel.Insert(preferencesTable).
		Columns("name", "value", "updated_at").
		Values(key, value, s.clock().UTC().Format(sqliteTimeLayout)).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		PlaceholderFormat(squirrel.Question).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// Close closes the connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
