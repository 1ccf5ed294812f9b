package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider send calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_id"},
	)

	providerRequestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "provider_requests_total",
			Help:      "Total provider send calls by outcome.",
		},
		[]string{"provider_id", "outcome"},
	)
)
