// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatches_total",
			Help: "Total number of dispatch calls by event type and outcome",
		},
		[]string{"event", "outcome"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_notifications_created_total",
			Help: "Total number of notification rows created per event type",
		},
		[]string{"event"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_deliveries_total",
			Help: "Total number of delivery outcomes by channel and status",
		},
		[]string{"channel", "status"},
	)

	RecipientsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_recipients_suppressed_total",
			Help: "Recipients dropped before delivery, by reason (gate, dedup)",
		},
		[]string{"reason"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notifier_dispatch_duration_seconds",
			Help: "Duration of full dispatch calls in seconds",
		},
		[]string{"event"},
	)
)
