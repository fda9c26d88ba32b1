package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthsync",
		Name:      "syncs_total",
		Help:      "Sync attempts by source and outcome.",
	}, []string{"source", "status"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthsync",
		Name:      "notifications_total",
		Help:      "Notifications raised by category.",
	}, []string{"category"})

	syncLogEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "healthsync",
		Name:      "sync_log_evictions_total",
		Help:      "Sync log entries dropped by the capacity bound.",
	})

	autoSyncTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "healthsync",
		Name:      "autosync_tasks",
		Help:      "Auto-sync tasks currently scheduled.",
	})
)
