package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatches_total",
			Help: "Total number of notification dispatch requests by mode and status.",
		},
		[]string{"mode", "status"},
	)

	effectsFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_effects_failures_total",
			Help: "Total number of secondary effect failures by effect.",
		},
		[]string{"effect"},
	)

	pushDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Total number of push delivery attempts by result.",
		},
		[]string{"result"},
	)

	tokensDeactivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "push_tokens_deactivated_total",
		Help: "Total number of device tokens deactivated after gateway rejection.",
	})
)
