// Package report renders a pipeline run into a markdown digest.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// maxRowsPerTable bounds how much of each table lands in the digest.
const maxRowsPerTable = 25

// Render produces the markdown digest for one run.
func Render(runAt, asOf time.Time, tables []models.Table) string {
	var b strings.Builder

	b.WriteString("# Insights Run Report\n\n")
	fmt.Fprintf(&b, "- Run at: %s\n", runAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Data as of: %s\n", asOf.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Tables: %d\n\n", len(tables))

	for _, table := range tables {
		fmt.Fprintf(&b, "## %s\n\n", table.Name)
		if len(table.Rows) == 0 {
			b.WriteString("_no rows_\n\n")
			continue
		}
		b.WriteString(mdTable(table))
		if len(table.Rows) > maxRowsPerTable {
			fmt.Fprintf(&b, "\n_%d more rows omitted_\n", len(table.Rows)-maxRowsPerTable)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// mdTable renders one table as a GitHub-style markdown table.
func mdTable(table models.Table) string {
	var b strings.Builder

	b.WriteString("| " + strings.Join(table.Columns, " | ") + " |\n")
	seps := make([]string, len(table.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")

	limit := len(table.Rows)
	if limit > maxRowsPerTable {
		limit = maxRowsPerTable
	}
	for _, row := range table.Rows[:limit] {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellText(cell)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func cellText(v any) string {
	s := models.CellString(v)
	if s == "" {
		return "n/a"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
