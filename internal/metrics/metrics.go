// Package metrics provides Prometheus metrics collection for the
// directory service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// CacheOperationsTotal tracks cache operations by operation and result.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)

	// CacheSize tracks the current number of cached entries.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Current number of cache entries",
		},
	)

	// CacheHitRatio tracks the rolling cache hit ratio.
	CacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Rolling cache hit ratio since process start",
		},
	)

	// CacheMemoryBytes tracks store-reported cache memory usage.
	CacheMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_memory_bytes",
			Help: "Cache store memory usage in bytes",
		},
	)

	// ReviewMutationsTotal tracks review writes by operation and result.
	ReviewMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_mutations_total",
			Help: "Total number of review mutations",
		},
		[]string{"operation", "result"},
	)

	// CacheWarmingRunsTotal tracks warming runs by result.
	CacheWarmingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_warming_runs_total",
			Help: "Total number of cache warming runs",
		},
		[]string{"result"},
	)

	// CacheAlertsActive tracks currently active alerts by severity.
	CacheAlertsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_alerts_active",
			Help: "Currently active cache alerts",
		},
		[]string{"severity"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordCacheOperation records metrics for a cache operation.
func RecordCacheOperation(operation, result string) {
	CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordReviewMutation records metrics for a review mutation.
func RecordReviewMutation(operation, result string) {
	ReviewMutationsTotal.WithLabelValues(operation, result).Inc()
}

// UpdateCacheGauges refreshes the cache size, hit ratio, and memory gauges.
func UpdateCacheGauges(size int, hitRatio float64, memoryBytes int64) {
	CacheSize.Set(float64(size))
	CacheHitRatio.Set(hitRatio)
	CacheMemoryBytes.Set(float64(memoryBytes))
}

// RecordWarmingRun records the outcome of a warming run.
func RecordWarmingRun(result string) {
	CacheWarmingRunsTotal.WithLabelValues(result).Inc()
}

// SetActiveAlerts updates the active-alert gauge for a severity.
func SetActiveAlerts(severity string, count int) {
	CacheAlertsActive.WithLabelValues(severity).Set(float64(count))
}
