package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limiter decisions by action and outcome",
		},
		[]string{"action", "decision"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status transition attempts by target status and result",
		},
		[]string{"to", "result"},
	)

	auditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_audit_write_failures_total",
			Help: "Status changes persisted without an audit event",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(rateLimitDecisions)
	prometheus.MustRegister(orderTransitions)
	prometheus.MustRegister(auditWriteFailures)
}

func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Rate limiter decision labels.
const (
	DecisionAllowed    = "allowed"
	DecisionBlocked    = "blocked"
	DecisionFailOpen   = "fail_open"
	DecisionFailClosed = "fail_closed"
)

// RecordRateLimit counts a limiter outcome. decision is one of
// allowed, blocked, fail_open (store error, non-strict) or fail_closed
// (store error, strict).
func RecordRateLimit(action, decision string) {
	rateLimitDecisions.WithLabelValues(action, decision).Inc()
}

func RecordTransition(to, result string) {
	orderTransitions.WithLabelValues(to, result).Inc()
}

func RecordAuditWriteFailure() {
	auditWriteFailures.Inc()
}
