package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fase_http_requests_total",
			Help: "Total number of HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fase_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ActivityLogsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fase_activity_logs_written_total",
			Help: "Audit entries written by action and entity type",
		},
		[]string{"action", "entity_type"},
	)

	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fase_points_awarded_total",
			Help: "Gamification points awarded by event kind",
		},
		[]string{"event"},
	)

	MedalsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fase_medals_awarded_total",
			Help: "Medals awarded by code",
		},
		[]string{"code"},
	)

	SupervisorAssignmentsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fase_supervisor_cycles_rejected_total",
			Help: "Supervisor assignments rejected by the cycle check",
		},
	)
)
