package monitoring

import (
	"strconv"
	"sync"
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
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 45},
		},
		[]string{"method", "endpoint"},
	)

	TasksSourcedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worksheet_tasks_sourced_total",
			Help: "Tasks placed into worksheets, by origin",
		},
		[]string{"origin"},
	)

	RelaxationLevelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worksheet_relaxation_level_total",
			Help: "Content store queries issued per relaxation level",
		},
		[]string{"level"},
	)

	GenerationShortfallTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worksheet_generation_shortfall_total",
			Help: "Generation calls that returned fewer tasks than requested",
		},
	)

	SourcingFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worksheet_sourcing_failures_total",
			Help: "Sourcing failures by reason",
		},
		[]string{"reason"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			TasksSourcedTotal,
			RelaxationLevelTotal,
			GenerationShortfallTotal,
			SourcingFailuresTotal,
		)
	})
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
