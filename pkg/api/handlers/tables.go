package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mentorlane/insights/pkg/models"
	"github.com/mentorlane/insights/pkg/pipeline"
)

// TablesHandler serves derived tables from the latest pipeline run.
type TablesHandler struct {
	registry *pipeline.Registry
}

// NewTablesHandler creates a new tables handler
func NewTablesHandler(registry *pipeline.Registry) *TablesHandler {
	return &TablesHandler{registry: registry}
}

// ListTables returns the table names of the latest run.
func (h *TablesHandler) ListTables(c echo.Context) error {
	res := h.registry.Latest()
	if res == nil {
		return noRunYet(c)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_at": res.RunAt,
		"as_of":  res.AsOf,
		"tables": res.Names(),
	})
}

// GetTable returns one table by name.
func (h *TablesHandler) GetTable(c echo.Context) error {
	res := h.registry.Latest()
	if res == nil {
		return noRunYet(c)
	}
	name := c.Param("name")
	table, ok := res.Table(name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "table_not_found",
			"name":  name,
		})
	}
	return c.JSON(http.StatusOK, tableResponse(table))
}

// LatestRun returns run metadata.
func (h *TablesHandler) LatestRun(c echo.Context) error {
	res := h.registry.Latest()
	if res == nil {
		return noRunYet(c)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_at": res.RunAt,
		"as_of":  res.AsOf,
		"tables": len(res.Tables),
	})
}

// Health reports process liveness regardless of run state.
func (h *TablesHandler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"status":  "ok",
		"has_run": h.registry.Latest() != nil,
	}
	return c.JSON(http.StatusOK, status)
}

func noRunYet(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{
		"error":   "no_run_yet",
		"message": "pipeline has not completed a run",
	})
}

func tableResponse(t *models.Table) map[string]interface{} {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = models.CellString(cell)
		}
		rows[i] = cells
	}
	return map[string]interface{}{
		"name":    t.Name,
		"columns": t.Columns,
		"rows":    rows,
	}
}
