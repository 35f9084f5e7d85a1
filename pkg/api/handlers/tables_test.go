package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlane/insights/pkg/models"
	"github.com/mentorlane/insights/pkg/pipeline"
)

func publishedRegistry(t *testing.T) *pipeline.Registry {
	t.Helper()

	runAt := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 5, 31, 18, 30, 0, 0, time.UTC)
	rate := 0.5
	tables := []models.Table{
		{
			Name:    "conversion_summary",
			Columns: []string{"cohort", "users", "rate_7d"},
			Rows: [][]any{
				{"newcomer_A", 10, &rate},
				{"strict", 4, (*float64)(nil)},
			},
		},
		{
			Name:    "lead_tags",
			Columns: []string{"tag", "count"},
			Rows:    [][]any{{"course", 3}},
		},
	}

	registry := &pipeline.Registry{}
	registry.Publish(pipeline.NewResults(runAt, asOf, tables))
	return registry
}

func doRequest(h echo.HandlerFunc, path string, params map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestListTables(t *testing.T) {
	t.Run("Error - no run yet", func(t *testing.T) {
		h := NewTablesHandler(&pipeline.Registry{})
		rec := doRequest(h.ListTables, "/api/v1/tables", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "no_run_yet", body["error"])
	})

	t.Run("Success - lists tables after publish", func(t *testing.T) {
		h := NewTablesHandler(publishedRegistry(t))
		rec := doRequest(h.ListTables, "/api/v1/tables", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Tables []string `json:"tables"`
			AsOf   string   `json:"as_of"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []string{"conversion_summary", "lead_tags"}, body.Tables)
		assert.Contains(t, body.AsOf, "2025-05-31")
	})
}

func TestGetTable(t *testing.T) {
	h := NewTablesHandler(publishedRegistry(t))

	t.Run("Success - returns cells as strings", func(t *testing.T) {
		rec := doRequest(h.GetTable, "/api/v1/tables/conversion_summary", map[string]string{"name": "conversion_summary"})

		assert.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Name    string     `json:"name"`
			Columns []string   `json:"columns"`
			Rows    [][]string `json:"rows"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "conversion_summary", body.Name)
		assert.Equal(t, []string{"cohort", "users", "rate_7d"}, body.Columns)
		require.Len(t, body.Rows, 2)
		assert.Equal(t, []string{"newcomer_A", "10", "0.5"}, body.Rows[0])
		assert.Equal(t, "", body.Rows[1][2]) // nil rate renders empty
	})

	t.Run("Error - unknown table", func(t *testing.T) {
		rec := doRequest(h.GetTable, "/api/v1/tables/nope", map[string]string{"name": "nope"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "table_not_found", body["error"])
		assert.Equal(t, "nope", body["name"])
	})

	t.Run("Error - no run yet", func(t *testing.T) {
		empty := NewTablesHandler(&pipeline.Registry{})
		rec := doRequest(empty.GetTable, "/api/v1/tables/x", map[string]string{"name": "x"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestLatestRun(t *testing.T) {
	h := NewTablesHandler(publishedRegistry(t))
	rec := doRequest(h.LatestRun, "/api/v1/runs/latest", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tables int `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Tables)
}

func TestHealth(t *testing.T) {
	t.Run("Success - before first run", func(t *testing.T) {
		h := NewTablesHandler(&pipeline.Registry{})
		rec := doRequest(h.Health, "/health", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, false, body["has_run"])
	})

	t.Run("Success - after a run", func(t *testing.T) {
		h := NewTablesHandler(publishedRegistry(t))
		rec := doRequest(h.Health, "/health", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["has_run"])
	})
}
