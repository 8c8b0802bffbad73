// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "aslp"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// AjaxOutcomes counts dispatched actions by result ("ok" or an error kind).
	AjaxOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_ajax_actions_total",
			Help: "Total number of AJAX actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	WalletMovements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_wallet_movements_total",
			Help: "Affiliate wallet credits and debits",
		},
		[]string{"direction", "reason"},
	)

	AIRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_ai_request_duration_seconds",
			Help:    "Duration of AI provider calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// Middleware records request count and latency per route.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}
		HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

func RecordAjax(action, outcome string) {
	AjaxOutcomes.WithLabelValues(action, outcome).Inc()
}

func RecordWallet(direction, reason string, amount float64) {
	WalletMovements.WithLabelValues(direction, reason).Add(amount)
}

// TrackAI returns a func that observes the elapsed time of an AI call.
func TrackAI() func() {
	start := time.Now()
	return func() { AIRequestDuration.Observe(time.Since(start).Seconds()) }
}
