package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	TicketsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_tickets_created_total",
			Help: "Total number of support tickets created",
		},
		[]string{"category"},
	)

	// resolver 标签区分自动应答(agent)与人工(admin)
	TicketsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_tickets_resolved_total",
			Help: "Total number of support tickets resolved",
		},
		[]string{"resolver"},
	)

	ResolverFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "support_resolver_failures_total",
			Help: "Failed or timed out calls to the automated resolver",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(TicketsCreated)
	prometheus.MustRegister(TicketsResolved)
	prometheus.MustRegister(ResolverFailures)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
