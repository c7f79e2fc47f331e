package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniksnak_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sniksnak_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniksnak_scans_total",
			Help: "Total number of content scans by kind and result.",
		},
		[]string{"kind", "result"},
	)
	findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniksnak_findings_total",
			Help: "Total number of positive classifications by category.",
		},
		[]string{"category"},
	)
	relayOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniksnak_relay_outcomes_total",
			Help: "Total number of advisory relay attempts by outcome.",
		},
		[]string{"outcome"},
	)
	consentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniksnak_consent_transitions_total",
			Help: "Total number of consent workflow transitions.",
		},
		[]string{"status"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sniksnak_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		scansTotal,
		findingsTotal,
		relayOutcomesTotal,
		consentTransitionsTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncScan(kind, result string) {
	scansTotal.WithLabelValues(kind, result).Inc()
}

func IncFinding(category string) {
	findingsTotal.WithLabelValues(category).Inc()
}

func IncRelayOutcome(outcome string) {
	relayOutcomesTotal.WithLabelValues(outcome).Inc()
}

func IncConsentTransition(status string) {
	consentTransitionsTotal.WithLabelValues(status).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
