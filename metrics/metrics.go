package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PageViewsTotal       prometheus.Counter
	ArchiveFlushedTotal  prometheus.Counter
	ArchiveDroppedTotal  prometheus.Counter
	ArchiveFailuresTotal prometheus.Counter
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PageViewsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_page_views_total",
			Help: "Page views recorded by the analytics store",
		}),
		ArchiveFlushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_archive_flushed_total",
			Help: "Page views written to the archive",
		}),
		ArchiveDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_archive_dropped_total",
			Help: "Page views dropped because the archive queue was full",
		}),
		ArchiveFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_archive_failures_total",
			Help: "Failed archive batch inserts",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PageViewsTotal,
		m.ArchiveFlushedTotal,
		m.ArchiveDroppedTotal,
		m.ArchiveFailuresTotal,
	)
	return m
}

func (m *Metrics) PageViewRecorded() {
	if m != nil {
		m.PageViewsTotal.Inc()
	}
}

func (m *Metrics) ArchiveFlushed(n int) {
	if m != nil {
		m.ArchiveFlushedTotal.Add(float64(n))
	}
}

func (m *Metrics) ArchiveDropped() {
	if m != nil {
		m.ArchiveDroppedTotal.Inc()
	}
}

func (m *Metrics) ArchiveFailed() {
	if m != nil {
		m.ArchiveFailuresTotal.Inc()
	}
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
