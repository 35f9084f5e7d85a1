package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRunsTotal   *prometheus.CounterVec
	PipelineRunDuration prometheus.Histogram
	TablesBuilt         prometheus.Gauge
	SnapshotRows        *prometheus.GaugeVec
	LastRunTimestamp    prometheus.Gauge

	// Enrichment metrics
	EnrichmentRows *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		PipelineRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"status"}, // ok, failed
		),
		PipelineRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		TablesBuilt: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_tables_built",
			Help: "Number of tables produced by the last run",
		}),
		SnapshotRows: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "snapshot_rows",
				Help: "Row counts of the loaded snapshot relations",
			},
			[]string{"relation"},
		),
		LastRunTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_last_run_timestamp_seconds",
			Help: "Unix time of the last successful pipeline run",
		}),

		EnrichmentRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_rows_total",
				Help: "LLM enrichment rows by outcome status",
			},
			[]string{"status"},
		),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of enrichment cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of enrichment cache misses",
		}),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, not the raw request path

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)

			return err
		}
	}
}

// RecordRun records one pipeline run outcome.
func (m *Metrics) RecordRun(ok bool, duration time.Duration, tables int) {
	status := "failed"
	if ok {
		status = "ok"
		m.TablesBuilt.Set(float64(tables))
		m.LastRunTimestamp.SetToCurrentTime()
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	m.PipelineRunDuration.Observe(duration.Seconds())
}

// RecordRelationRows records a loaded relation's row count.
func (m *Metrics) RecordRelationRows(relation string, rows int) {
	m.SnapshotRows.WithLabelValues(relation).Set(float64(rows))
}

// RecordEnrichment counts one enrichment row by status.
func (m *Metrics) RecordEnrichment(status string) {
	m.EnrichmentRows.WithLabelValues(status).Inc()
}

// RecordCacheHit increments cache hits counter
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss increments cache misses counter
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}
