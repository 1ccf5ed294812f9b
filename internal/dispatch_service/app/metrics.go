package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsReceivedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "jobs_received_total",
			Help:      "Total number of dispatch jobs received from NATS.",
		},
	)

	jobsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "jobs_processed_total",
			Help:      "Total number of dispatch jobs processed.",
		},
		[]string{"outcome"}, // completed, fatal, cancelled, invalid
	)

	jobDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "job_duration_seconds",
			Help:      "Duration of dispatch job processing.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"channel_type"},
	)

	candidateOutcomesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "candidate_outcomes_total",
			Help:      "Per-candidate dispatch outcomes by provider and detail code.",
		},
		[]string{"provider_id", "detail"},
	)

	auditEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "audit_events_total",
			Help:      "Execution details recorded, by detail code and status.",
		},
		[]string{"detail", "status"},
	)

	auditWriteErrorsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "audit_write_errors_total",
			Help:      "Execution detail writes that failed.",
		},
		[]string{"path"}, // success, error
	)
)
