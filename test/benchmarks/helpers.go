// test/benchmarks/helpers.go
package benchmarks

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/finops-console/internal/adapters/fixtures"
	"github.com/ammerola/finops-console/internal/core/domain"
)

// benchNow anchors generated rows so relative windows match the same set every run
var benchNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// benchSizes are the dataset sizes every view benchmark runs at
var benchSizes = []int{1_000, 10_000, 50_000}

// createBenchmarkDataset returns n generated queries plus a recommendation
// per warehouse and user pair
func createBenchmarkDataset(n int) *domain.Dataset {
	queries := fixtures.GenerateQueries(n, benchNow, 42)

	seen := make(map[string]bool)
	recs := make([]domain.Recommendation, 0, 64)
	for _, q := range queries {
		key := q.Warehouse + "/" + q.User
		if seen[key] {
			continue
		}
		seen[key] = true
		recs = append(recs, domain.Recommendation{
			ID:               fmt.Sprintf("rec-%04d", len(recs)+1),
			Title:            fmt.Sprintf("Review %s usage on %s", q.User, q.Warehouse),
			Category:         "compute",
			Severity:         domain.SeverityMedium,
			Warehouse:        q.Warehouse,
			EstimatedSavings: decimal.NewFromInt(int64(len(recs)+1) * 10),
			Status:           domain.RecommendationOpen,
			CreatedAt:        q.StartedAt,
		})
	}

	return &domain.Dataset{Queries: queries, Recommendations: recs}
}
