package db_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/finops-console/internal/adapters/db"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/test/helpers"
	"github.com/ammerola/finops-console/test/mocks"
)

// resolutionRows serves canned rows through the pgx.Rows interface
type resolutionRows struct {
	pgx.Rows
	rows [][3]any
	pos  int
	err  error
}

func (r *resolutionRows) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *resolutionRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("want %d destinations, got %d", len(row), len(dest))
	}
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*string) = row[1].(string)
	*dest[2].(*time.Time) = row[2].(time.Time)
	return nil
}

func (r *resolutionRows) Err() error { return r.err }
func (r *resolutionRows) Close()     {}

func TestResolutionStore_Save(t *testing.T) {
	ctrl := gomock.NewController(t)
	database := mocks.NewMockDatabase(ctrl)
	store := db.NewResolutionStore(database, helpers.TestLogger())

	changed := time.Date(2025, 3, 15, 14, 0, 0, 0, time.FixedZone("CET", 3600))

	var captured string
	database.EXPECT().
		Exec(gomock.Any(), gomock.Any(), "rec-1", "Resolved", changed.UTC()).
		DoAndReturn(func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			captured = sql
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		})

	err := store.Save(context.Background(), ports.Resolution{
		RecommendationID: "rec-1",
		Status:           domain.RecommendationResolved,
		ChangedAt:        changed,
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(captured, "INSERT INTO recommendation_resolutions"))
	assert.Contains(t, captured, "VALUES ($1,$2,$3)")
	assert.Contains(t, captured, "ON CONFLICT (recommendation_id) DO UPDATE")
}

func TestResolutionStore_SaveError(t *testing.T) {
	ctrl := gomock.NewController(t)
	database := mocks.NewMockDatabase(ctrl)
	store := db.NewResolutionStore(database, helpers.TestLogger())

	database.EXPECT().
		Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(pgconn.CommandTag{}, errors.New("connection reset"))

	err := store.Save(context.Background(), ports.Resolution{
		RecommendationID: "rec-1",
		Status:           domain.RecommendationDismissed,
		ChangedAt:        helpers.TestNow,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save resolution")
}

func TestResolutionStore_LoadAll(t *testing.T) {
	tests := []struct {
		name    string
		rows    *resolutionRows
		qErr    error
		want    []ports.Resolution
		wantErr string
	}{
		{
			name: "returns_rows_in_order",
			rows: &resolutionRows{rows: [][3]any{
				{"rec-1", "Resolved", helpers.TestNow.Add(-time.Hour)},
				{"rec-2", "Dismissed", helpers.TestNow},
			}},
			want: []ports.Resolution{
				{RecommendationID: "rec-1", Status: domain.RecommendationResolved, ChangedAt: helpers.TestNow.Add(-time.Hour)},
				{RecommendationID: "rec-2", Status: domain.RecommendationDismissed, ChangedAt: helpers.TestNow},
			},
		},
		{
			name: "empty_table",
			rows: &resolutionRows{},
		},
		{
			name:    "query_fails",
			qErr:    errors.New("relation does not exist"),
			wantErr: "failed to query resolutions",
		},
		{
			name:    "iteration_fails",
			rows:    &resolutionRows{err: errors.New("conn closed")},
			wantErr: "failed to iterate resolutions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			database := mocks.NewMockDatabase(ctrl)
			store := db.NewResolutionStore(database, helpers.TestLogger())

			var rows pgx.Rows
			if tt.rows != nil {
				rows = tt.rows
			}
			database.EXPECT().
				Query(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
					assert.Contains(t, sql, "ORDER BY changed_at ASC, recommendation_id ASC")
					return rows, tt.qErr
				})

			got, err := store.LoadAll(context.Background())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// recordingTx captures the statements run inside a transaction
type recordingTx struct {
	pgx.Tx
	ids    []string
	failOn string
}

func (tx *recordingTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	id := args[0].(string)
	if id == tx.failOn {
		return pgconn.CommandTag{}, errors.New("check constraint violated")
	}
	if !strings.HasPrefix(sql, "INSERT INTO recommendation_resolutions") {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected statement %q", sql)
	}
	tx.ids = append(tx.ids, id)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestResolutionStore_SaveAll(t *testing.T) {
	batch := []ports.Resolution{
		{RecommendationID: "rec-1", Status: domain.RecommendationResolved, ChangedAt: helpers.TestNow},
		{RecommendationID: "rec-2", Status: domain.RecommendationDismissed, ChangedAt: helpers.TestNow},
	}

	tests := []struct {
		name    string
		failOn  string
		wantIDs []string
		wantErr string
	}{
		{name: "runs_every_upsert_in_one_transaction", wantIDs: []string{"rec-1", "rec-2"}},
		{name: "statement_error_aborts_transaction", failOn: "rec-2", wantIDs: []string{"rec-1"}, wantErr: "failed to save resolution rec-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			database := mocks.NewMockDatabase(ctrl)
			store := db.NewResolutionStore(database, helpers.TestLogger())

			tx := &recordingTx{failOn: tt.failOn}
			database.EXPECT().
				Transaction(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, fn func(pgx.Tx) error) error {
					return fn(tx)
				})

			err := store.SaveAll(context.Background(), batch)

			assert.Equal(t, tt.wantIDs, tx.ids)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("empty_batch_skips_transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := db.NewResolutionStore(mocks.NewMockDatabase(ctrl), helpers.TestLogger())
		require.NoError(t, store.SaveAll(context.Background(), nil))
	})
}
