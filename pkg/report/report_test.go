package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlane/insights/pkg/models"
)

func TestRender(t *testing.T) {
	runAt := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 6, 30, 18, 45, 0, 0, time.UTC)

	big := models.Table{Name: "big", Columns: []string{"n"}}
	for i := 0; i < 40; i++ {
		big.Rows = append(big.Rows, []any{i})
	}

	tables := []models.Table{
		{
			Name:    "gateway_asset_conversion",
			Columns: []string{"asset_name", "rate"},
			Rows:    [][]any{{"Open Day | Online", 0.25}, {"Taster", nil}},
		},
		{Name: "empty_table", Columns: []string{"a"}},
		big,
	}

	out := Render(runAt, asOf, tables)

	t.Run("Header block", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(out, "# Insights Run Report\n"))
		assert.Contains(t, out, "- Run at: 2025-07-01T02:00:00Z\n")
		assert.Contains(t, out, "- Data as of: 2025-06-30T18:45:00Z\n")
		assert.Contains(t, out, "- Tables: 3\n")
	})

	t.Run("Table section with escaped pipes and nulls", func(t *testing.T) {
		assert.Contains(t, out, "## gateway_asset_conversion\n")
		assert.Contains(t, out, "| asset_name | rate |\n| --- | --- |\n")
		assert.Contains(t, out, `| Open Day \| Online | 0.25 |`)
		assert.Contains(t, out, "| Taster | n/a |")
	})

	t.Run("Empty table placeholder", func(t *testing.T) {
		assert.Contains(t, out, "## empty_table\n\n_no rows_\n")
	})

	t.Run("Row cap with omission note", func(t *testing.T) {
		assert.Contains(t, out, "_15 more rows omitted_")
		assert.Contains(t, out, "| 24 |")
		assert.NotContains(t, out, "| 25 |")
	})
}

func TestRenderRowLimitBoundary(t *testing.T) {
	table := models.Table{Name: "exact", Columns: []string{"n"}}
	for i := 0; i < maxRowsPerTable; i++ {
		table.Rows = append(table.Rows, []any{i})
	}
	out := Render(time.Now(), time.Now(), []models.Table{table})
	assert.NotContains(t, out, "omitted")
	require.Contains(t, out, fmt.Sprintf("| %d |", maxRowsPerTable-1))
}
