package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursemarket_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coursemarket_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	storageBackend = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coursemarket_storage_backend",
		Help: "Storage backend serving this process (1 for the active one)",
	}, []string{"backend"})

	cascadeDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursemarket_cascade_deletes_total",
		Help: "Cascading deletions by entity and result",
	}, []string{"entity", "result"})

	cronRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursemarket_cron_runs_total",
		Help: "Scheduled job runs by job and result",
	}, []string{"job", "result"})

	enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursemarket_enrollments_total",
		Help: "Enrollment outcomes by payment status",
	}, []string{"status"})
)

// ObserveHTTPRequest records an HTTP request metric. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// SetStorageBackend marks backend as the active one
func SetStorageBackend(backend string) {
	storageBackend.Reset()
	storageBackend.WithLabelValues(backend).Set(1)
}

// ObserveCascadeDelete counts a user or course deletion with its cascade
func ObserveCascadeDelete(entity string, err error) {
	cascadeDeletes.WithLabelValues(entity, result(err)).Inc()
}

// ObserveCronRun counts a scheduled job run
func ObserveCronRun(job string, err error) {
	cronRuns.WithLabelValues(job, result(err)).Inc()
}

// ObserveEnrollment counts an enrollment reaching status
func ObserveEnrollment(status string) {
	enrollments.WithLabelValues(status).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
