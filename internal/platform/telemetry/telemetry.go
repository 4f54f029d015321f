// Package telemetry exposes queue and HTTP metrics in Prometheus format on a
// private registry.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "queue"

// Metrics implements the recorder interfaces of the triage, visit and
// check-in packages.
type Metrics struct {
	registry *prometheus.Registry

	checkins             *prometheus.CounterVec
	completions          *prometheus.CounterVec
	completionRejections *prometheus.CounterVec
	fallbacks            *prometheus.CounterVec
	queueDepth           *prometheus.GaugeVec
	panics               *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checkins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Visits created at the kiosk, by assigned tier and risk level.",
		}, []string{"tier", "risk_level"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visit_completions_total",
			Help:      "Visits completed by doctors, by tier.",
		}, []string{"tier"}),
		completionRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visit_completion_rejections_total",
			Help:      "Completion attempts that were refused, by reason.",
		}, []string{"reason"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_fallbacks_total",
			Help:      "Calls answered by the local fallback because a remote collaborator failed.",
		}, []string{"collaborator"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Waiting visits per tier at the last observation.",
		}, []string{"tier"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Handler panics recovered by the server, by route.",
		}, []string{"route"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.checkins,
		m.completions,
		m.completionRejections,
		m.fallbacks,
		m.queueDepth,
		m.panics,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) CheckIn(tier, level string) {
	m.checkins.WithLabelValues(tier, level).Inc()
}

func (m *Metrics) VisitCompleted(tier string) {
	m.completions.WithLabelValues(tier).Inc()
}

func (m *Metrics) CompletionRejected(reason string) {
	m.completionRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) CollaboratorFallback(collaborator string) {
	m.fallbacks.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) QueueDepth(tier string, depth int) {
	m.queueDepth.WithLabelValues(tier).Set(float64(depth))
}

// PoolStats reports connection pool occupancy at scrape time.
type PoolStats func() (total, idle, acquired int32)

func (m *Metrics) HandlerPanicked(route string) {
	m.panics.WithLabelValues(route).Inc()
}

func (m *Metrics) ObservePool(stats PoolStats) {
	for _, state := range []string{"total", "idle", "acquired"} {
		state := state
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "db_pool_connections",
			Help:        "Database pool connections by state.",
			ConstLabels: prometheus.Labels{"state": state},
		}, func() float64 {
			total, idle, acquired := stats()
			switch state {
			case "idle":
				return float64(idle)
			case "acquired":
				return float64(acquired)
			default:
				return float64(total)
			}
		}))
	}
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency by route pattern, so
// /visits/1 and /visits/2 share a series.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
