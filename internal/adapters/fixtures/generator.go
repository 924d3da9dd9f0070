// internal/adapters/fixtures/generator.go
package fixtures

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/finops-console/internal/core/domain"
)

// CreditPrice is the dollar price of one credit
var CreditPrice = decimal.NewFromInt(3)

var (
	generatedUsers      = []string{"marco", "priya", "sam", "lena", "etl_service", "looker"}
	generatedWarehouses = []string{"COMPUTE_WH", "ETL_WH", "BI_WH", "DATA_SCIENCE_WH", "DEV_WH"}
	generatedStatements = []string{
		"SELECT * FROM analytics.events WHERE event_date >= CURRENT_DATE - 7",
		"INSERT INTO staging.orders SELECT * FROM raw.orders",
		"MERGE INTO dim_customer t USING stg_customer s ON t.id = s.id",
		"SELECT region, SUM(revenue) FROM sales.fact_orders GROUP BY region",
		"COPY INTO raw.clickstream FROM @landing/clickstream",
		"CREATE OR REPLACE TABLE tmp.sessions AS SELECT * FROM analytics.sessions",
		"SELECT COUNT(*) FROM analytics.page_views",
	}
)

// GenerateQueries builds n deterministic query history rows, newest first.
// Every tenth row failed, and the two most recent are still running or queued.
func GenerateQueries(n int, now time.Time, seed uint64) []domain.Query {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]domain.Query, n)
	for i := range out {
		status := domain.QuerySucceeded
		switch {
		case i%10 == 9:
			status = domain.QueryFailed
		case i == 0:
			status = domain.QueryRunning
		case i == 1:
			status = domain.QueryQueued
		}

		credits := decimal.NewFromInt(int64(rng.IntN(5000))).Div(decimal.NewFromInt(100))
		out[i] = domain.Query{
			ID:           fmt.Sprintf("01a%05d", i),
			Text:         generatedStatements[rng.IntN(len(generatedStatements))],
			User:         generatedUsers[rng.IntN(len(generatedUsers))],
			Warehouse:    generatedWarehouses[rng.IntN(len(generatedWarehouses))],
			Status:       status,
			DurationMs:   int64(200 + rng.IntN(600000)),
			BytesScanned: int64(rng.IntN(1 << 30)),
			Credits:      credits,
			Cost:         credits.Mul(CreditPrice),
			StartedAt:    now.Add(-time.Duration(i) * 37 * time.Minute).Truncate(time.Second),
		}
	}
	return out
}
