// internal/adapters/export/encoder.go
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// Encoder writes tables as CSV, XLSX or JSON
type Encoder struct {
	clock func() time.Time
}

var _ ports.Encoder = (*Encoder)(nil)

// NewEncoder creates an encoder
func NewEncoder() *Encoder {
	return &Encoder{clock: time.Now}
}

// WithClock overrides the export timestamp source
func (e *Encoder) WithClock(clock func() time.Time) *Encoder {
	e.clock = clock
	return e
}

// ContentType returns the MIME type of a format
func (e *Encoder) ContentType(format ports.ExportFormat) string {
	switch format {
	case ports.FormatCSV:
		return "text/csv"
	case ports.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Filename builds a timestamped download name for a view
func Filename(view domain.View, format ports.ExportFormat, at time.Time) string {
	return fmt.Sprintf("%s_export_%s.%s", strings.ReplaceAll(string(view), "-", "_"), at.UTC().Format("20060102_150405"), format)
}

// Encode writes table to w
func (e *Encoder) Encode(w io.Writer, format ports.ExportFormat, view domain.View, table *dataview.Table) error {
	switch format {
	case ports.FormatCSV:
		return e.encodeCSV(w, table)
	case ports.FormatXLSX:
		return e.encodeXLSX(w, view, table)
	case ports.FormatJSON:
		return e.encodeJSON(w, view, table)
	default:
		return fmt.Errorf("%w: %q", ports.ErrUnsupportedFormat, format)
	}
}

// encodeCSV joins cells with commas. Cells are written verbatim: embedded
// commas, quotes and newlines are not escaped, so free-text columns are left
// out and only names, enums, numbers and timestamps are written.
func (e *Encoder) encodeCSV(w io.Writer, table *dataview.Table) error {
	table = table.Without(func(c dataview.Column) bool { return c.FreeText })
	var b strings.Builder
	b.WriteString(strings.Join(table.Headers(), ","))
	b.WriteByte('\n')
	for _, row := range table.Strings() {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func (e *Encoder) encodeXLSX(w io.Writer, view domain.View, table *dataview.Table) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet(sheetName(view))
	if err != nil {
		return fmt.Errorf("failed to add worksheet: %w", err)
	}

	header := sheet.AddRow()
	for _, col := range table.Columns {
		cell := header.AddCell()
		cell.Value = col.Name
		style := cell.GetStyle()
		style.Font.Bold = true
		style.Fill.PatternType = "solid"
		style.Fill.FgColor = "CCCCCC"
	}

	for _, values := range table.Rows {
		row := sheet.AddRow()
		for _, v := range values {
			cell := row.AddCell()
			switch v.Kind {
			case dataview.KindNumber:
				f, _ := v.Num.Float64()
				cell.SetFloat(f)
			default:
				cell.Value = v.Format()
			}
		}
	}

	for i := range table.Columns {
		sheet.SetColWidth(i+1, i+1, 18)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// sheetName keeps names within the 31 character worksheet limit
func sheetName(view domain.View) string {
	name := strings.ReplaceAll(string(view), "-", " ")
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// JSONExport is the document written by JSON exports
type JSONExport struct {
	View     domain.View      `json:"view"`
	Rows     []map[string]any `json:"rows"`
	Metadata ExportMetadata   `json:"metadata"`
}

// ExportMetadata describes a JSON export
type ExportMetadata struct {
	ExportDate time.Time `json:"export_date"`
	TotalRows  int       `json:"total_rows"`
	Columns    []string  `json:"columns"`
}

func (e *Encoder) encodeJSON(w io.Writer, view domain.View, table *dataview.Table) error {
	doc := JSONExport{
		View: view,
		Rows: make([]map[string]any, 0, len(table.Rows)),
		Metadata: ExportMetadata{
			ExportDate: e.clock().UTC(),
			TotalRows:  len(table.Rows),
			Columns:    table.Headers(),
		},
	}
	for _, values := range table.Rows {
		m := make(map[string]any, len(values))
		for i, v := range values {
			m[table.Columns[i].Name] = v.Any()
		}
		doc.Rows = append(doc.Rows, m)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}
