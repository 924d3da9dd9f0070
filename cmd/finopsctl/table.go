// cmd/finopsctl/table.go
package main

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const maxCellWidth = 48

// printTable writes rows under upper-cased headers, padding each column to
// its widest cell by display width
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], min(runewidth.StringWidth(cell), maxCellWidth))
			}
		}
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			cell = runewidth.Truncate(cell, widths[i], "…")
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
		io.WriteString(w, b.String())
	}

	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	writeRow(upper)
	for _, row := range rows {
		writeRow(row)
	}
}
