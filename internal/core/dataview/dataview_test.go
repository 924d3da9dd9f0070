package dataview_test

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/finops-console/internal/core/dataview"
)

type row struct {
	ID        string
	Name      string
	Status    string
	Warehouse string
	Credits   decimal.Decimal
	StartedAt time.Time
}

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

var rowSchema = dataview.NewSchema(
	func(r row) string { return r.ID },
	dataview.Field[row]{Name: "id", Kind: dataview.KindString, Searchable: true,
		Get: func(r row) dataview.Value { return dataview.String(r.ID) }},
	dataview.Field[row]{Name: "name", Kind: dataview.KindString, Searchable: true,
		Get: func(r row) dataview.Value { return dataview.String(r.Name) }},
	dataview.Field[row]{Name: "status", Kind: dataview.KindEnum, Selectable: true,
		Get: func(r row) dataview.Value { return dataview.Enum(r.Status) }},
	dataview.Field[row]{Name: "warehouse", Kind: dataview.KindString, Selectable: true, Mode: dataview.SelectSingle,
		Get: func(r row) dataview.Value { return dataview.String(r.Warehouse) }},
	dataview.Field[row]{Name: "credits", Kind: dataview.KindNumber,
		Get: func(r row) dataview.Value { return dataview.Number(r.Credits) }},
	dataview.Field[row]{Name: "started_at", Kind: dataview.KindTime,
		Get: func(r row) dataview.Value { return dataview.Time(r.StartedAt) }},
)

// makeRows builds n rows; every tenth row has status Failed
func makeRows(n int) []row {
	warehouses := []string{"COMPUTE_WH", "ETL_WH", "BI_WH"}
	rows := make([]row, n)
	for i := range rows {
		status := "Succeeded"
		if i%10 == 9 {
			status = "Failed"
		}
		rows[i] = row{
			ID:        fmt.Sprintf("01a%05d", i),
			Name:      fmt.Sprintf("query %d", i),
			Status:    status,
			Warehouse: warehouses[i%len(warehouses)],
			Credits:   decimal.NewFromInt(int64(i % 7)),
			StartedAt: testNow.Add(-time.Duration(i) * time.Hour),
		}
	}
	return rows
}

func ids(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
