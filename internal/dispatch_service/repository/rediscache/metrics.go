package rediscache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_integration_cache_lookups_total",
		Help: "Integration cache lookups by result.",
	},
	[]string{"result"}, // hit, miss
)
