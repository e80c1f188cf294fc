package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_notifications_processed_total",
		Help: "Terminal delivery attempts by channel and resulting status.",
	}, []string{"channel", "status"})

	retriedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_notifications_retried_total",
		Help: "Failed attempts re-enqueued with backoff, by channel.",
	}, []string{"channel"})

	inflightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_processing_inflight",
		Help: "Notifications currently being processed by workers.",
	})
)
