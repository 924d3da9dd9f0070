package benchmarks

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/ammerola/finops-console/internal/adapters/db"
	"github.com/ammerola/finops-console/internal/adapters/export"
	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/pkg/logger"
)

func newViewService(data *domain.Dataset) *services.ViewService {
	l := logger.Discard()
	recs := services.NewRecommendationService(data.Recommendations, nil, l)
	return services.NewViewService(data, recs, l).WithClock(func() time.Time { return benchNow })
}

func BenchmarkViewService_List(b *testing.B) {
	ctx := context.Background()

	cases := []struct {
		name   string
		params ports.ListParams
	}{
		{name: "FirstPage"},
		{name: "Search", params: ports.ListParams{Search: "etl"}},
		{name: "SortByCredits", params: ports.ListParams{SortBy: domain.FieldCredits, SortOrder: "desc"}},
		{name: "FilterStatusAndWindow", params: ports.ListParams{
			Selections: map[string][]string{domain.FieldStatus: {string(domain.QueryFailed)}},
			Dates:      map[string]dataview.DateRange{domain.FieldStartedAt: dataview.Window("7d")},
		}},
	}

	for _, size := range benchSizes {
		svc := newViewService(createBenchmarkDataset(size))
		for _, tc := range cases {
			b.Run(fmt.Sprintf("%s/%d", tc.name, size), func(b *testing.B) {
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := svc.List(ctx, domain.ViewQueries, tc.params); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkController compares paging a memoized result with recomputing it
func BenchmarkController(b *testing.B) {
	data := createBenchmarkDataset(10_000)

	b.Run("PageChange", func(b *testing.B) {
		c := dataview.NewController(domain.QuerySchema, data.Queries,
			dataview.WithClock[domain.Query](func() time.Time { return benchNow }))
		c.SortBy(domain.FieldDuration, dataview.Descending)
		c.SetSearch("wh")
		c.Visible()

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			c.SetPage(i%50 + 1)
			_ = c.Visible()
		}
	})

	b.Run("FilterChange", func(b *testing.B) {
		c := dataview.NewController(domain.QuerySchema, data.Queries,
			dataview.WithClock[domain.Query](func() time.Time { return benchNow }))
		c.SortBy(domain.FieldDuration, dataview.Descending)
		terms := []string{"wh", "etl", "select", "alice"}

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			c.SetSearch(terms[i%len(terms)])
			_ = c.Visible()
		}
	})
}

func BenchmarkPaginate(b *testing.B) {
	rows := make([]int, 50_000)
	for i := range rows {
		rows[i] = i
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dataview.Paginate(rows, i%5000+1, dataview.DefaultPerPage)
	}
}

func BenchmarkEncoder(b *testing.B) {
	data := createBenchmarkDataset(5_000)
	table := dataview.BuildTable(domain.QuerySchema, data.Queries)
	enc := export.NewEncoder()

	for _, format := range []ports.ExportFormat{ports.FormatCSV, ports.FormatJSON, ports.FormatXLSX} {
		b.Run(string(format), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := enc.Encode(io.Discard, format, domain.ViewQueries, table); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSQLiteStore_Save(b *testing.B) {
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, filepath.Join(b.TempDir(), "bench.db"), logger.Discard())
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	statuses := []domain.RecommendationStatus{domain.RecommendationResolved, domain.RecommendationOpen}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := store.Save(ctx, ports.Resolution{
			RecommendationID: fmt.Sprintf("rec-%03d", i%100),
			Status:           statuses[i%2],
			ChangedAt:        benchNow.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
