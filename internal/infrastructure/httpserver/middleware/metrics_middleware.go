package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
)

// Context keys under which feed handlers record where a served payload
// came from, so the metrics middleware can label the observation.
const (
	FeedOriginContextKey = "feed_origin"
	FeedDomainContextKey = "feed_domain"
)

// MetricsMiddleware holds the Prometheus metrics
type MetricsMiddleware struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	feedResultsTotal *prometheus.CounterVec
}

// NewMetricsMiddleware creates a new metrics middleware instance
func NewMetricsMiddleware(requestsTotal *prometheus.CounterVec, requestDuration *prometheus.HistogramVec, feedResultsTotal *prometheus.CounterVec) *MetricsMiddleware {
	return &MetricsMiddleware{
		requestsTotal:    requestsTotal,
		requestDuration:  requestDuration,
		feedResultsTotal: feedResultsTotal,
	}
}

// CollectHTTPMetrics creates middleware that collects request metrics
// and, for feed routes, the payload origin (live, cache, stale) the
// handler recorded. The per-domain cache/stale ratio is the main
// signal for upstream flakiness.
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return echo.MiddlewareFunc(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			method := c.Request().Method
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			status := strconv.Itoa(c.Response().Status)

			m.requestsTotal.WithLabelValues(method, path, status).Inc()
			m.requestDuration.WithLabelValues(method, path).Observe(duration)

			if origin, ok := c.Get(FeedOriginContextKey).(feed.Origin); ok && m.feedResultsTotal != nil {
				domain, _ := c.Get(FeedDomainContextKey).(string)
				if domain == "" {
					domain = c.Param("domain")
				}
				m.feedResultsTotal.WithLabelValues(domain, origin.String()).Inc()
			}

			return err
		}
	})
}
