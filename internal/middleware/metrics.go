package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Ingestion
	IngestRuns     *prometheus.CounterVec
	IngestRows     *prometheus.CounterVec
	IngestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairymatrix_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dairymatrix_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		IngestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairymatrix_ingest_runs_total",
				Help: "Ingestion runs by kind and outcome",
			},
			[]string{"kind", "result"},
		),

		IngestRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairymatrix_ingest_rows_total",
				Help: "Rows written by ingestion runs",
			},
			[]string{"kind"},
		),

		IngestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dairymatrix_ingest_duration_seconds",
				Help:    "Ingestion run duration",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.RequestDuration,
		m.IngestRuns,
		m.IngestRows,
		m.IngestDuration,
	)
	return m
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveIngest records one ingestion run
func (m *Metrics) ObserveIngest(kind string, success bool, rows int, elapsed time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.IngestRuns.WithLabelValues(kind, result).Inc()
	m.IngestRows.WithLabelValues(kind).Add(float64(rows))
	m.IngestDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
