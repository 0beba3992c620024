// Package metrics exposes decode and HTTP metrics in the Prometheus text
// format. Every method is safe on a nil *Metrics, which is how callers run
// with metrics disabled.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "edi"

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

var (
	defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	defaultSizeBuckets     = []float64{1 << 10, 16 << 10, 128 << 10, 1 << 20, 8 << 20, 64 << 20}
)

type Metrics struct {
	registry *prometheus.Registry

	FilesProcessed  *prometheus.CounterVec
	RecordsDecoded  *prometheus.CounterVec
	MatchOutcomes   *prometheus.CounterVec
	SideEffectFails *prometheus.CounterVec
	DecodeDuration  *prometheus.HistogramVec
	FileSize        *prometheus.HistogramVec

	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge
}

// New builds a private registry with the decode collectors and, when
// runtime is true, the Go and process collectors.
func New(runtime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Interchange files processed, by transaction set and outcome.",
		}, []string{"kind", "status"}),
		RecordsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_decoded_total",
			Help:      "Claims and claim payments decoded.",
		}, []string{"kind"}),
		MatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_outcomes_total",
			Help:      "Claim payments by match strategy.",
		}, []string{"strategy"}),
		SideEffectFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Archive, publish and load failures.",
		}, []string{"stage"}),
		DecodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent tokenizing and extracting one file.",
			Buckets:   defaultDurationBuckets,
		}, []string{"kind"}),
		FileSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_size_bytes",
			Help:      "Size of decoded interchange files.",
			Buckets:   defaultSizeBuckets,
		}, []string{"kind"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route", "status"}),
		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		m.FilesProcessed,
		m.RecordsDecoded,
		m.MatchOutcomes,
		m.SideEffectFails,
		m.DecodeDuration,
		m.FileSize,
		m.RequestDuration,
		m.ActiveRequests,
	)
	if runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFile records one processed file.
func (m *Metrics) ObserveFile(kind, status string, records int, size int64, d time.Duration) {
	if m == nil {
		return
	}
	m.FilesProcessed.WithLabelValues(kind, status).Inc()
	if status != StatusOK {
		return
	}
	m.RecordsDecoded.WithLabelValues(kind).Add(float64(records))
	m.DecodeDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.FileSize.WithLabelValues(kind).Observe(float64(size))
}

func (m *Metrics) ObserveMatches(counts map[string]int) {
	if m == nil {
		return
	}
	for strategy, n := range counts {
		m.MatchOutcomes.WithLabelValues(strategy).Add(float64(n))
	}
}

func (m *Metrics) ObserveSideEffectFailure(stage string) {
	if m == nil {
		return
	}
	m.SideEffectFails.WithLabelValues(stage).Inc()
}

// Middleware records request latency labelled by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			m.ActiveRequests.Inc()
			defer m.ActiveRequests.Dec()

			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			m.RequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	if m == nil {
		return func(c echo.Context) error {
			return c.NoContent(404)
		}
	}
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
