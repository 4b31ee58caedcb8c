package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Alerts published by the reminder scheduler, by kind (warning / due_now).
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_alerts_fired_total",
			Help: "Total number of reminder alerts delivered",
		},
		[]string{"kind"},
	)

	// Alerts the scheduler decided to raise but could not deliver.
	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_alerts_suppressed_total",
			Help: "Total number of reminder alerts suppressed or failed to deliver",
		},
		[]string{"kind", "reason"}, // reason: permission_denied, publish_error, deduped
	)

	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_tick_duration_seconds",
			Help:    "Duration of a full scheduler evaluation pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	SchedulerTasksEvaluated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_tasks_evaluated",
			Help: "Number of tasks evaluated in the last scheduler pass",
		},
	)

	ImportedTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_import_total",
			Help: "Total number of bulk-imported task records",
		},
		[]string{"status"}, // status: success, failed
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordDBQuery records the duration of a single database operation.
func RecordDBQuery(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequest records the duration of a handled HTTP request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

var SlowQueries = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "db_slow_queries_total",
		Help: "Total number of database queries exceeding the slow-query threshold",
	},
)
