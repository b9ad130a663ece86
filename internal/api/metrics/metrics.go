// Package metrics defines and registers all custom Prometheus metrics for
// the task manager API. It is the single source of truth for metric names,
// labels, and help strings. Registration happens at import time through
// promauto; the HTTP request metrics themselves come from the
// echoprometheus middleware configured in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskmanager"

// ── Task metrics ──────────────────────────────────────────────────────────────

// TasksCreatedTotal counts newly created tasks.
// Label:
//   - priority: "low", "medium", or "high"
var TasksCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created, by priority.",
	},
	[]string{"priority"},
)

// TaskMutationsTotal counts task mutations by operation.
// Label:
//   - operation: "update", "delete", or "toggle"
var TaskMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_mutations_total",
		Help:      "Total number of task mutations, by operation.",
	},
	[]string{"operation"},
)

// ── Activity metrics ──────────────────────────────────────────────────────────

// ActivityDeliveredTotal counts activity events delivered to a subscriber.
// Label:
//   - type: the activity type (e.g. "task-created")
var ActivityDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_delivered_total",
		Help:      "Total number of activity events delivered to subscribers.",
	},
	[]string{"type"},
)

// ActivityErrorsTotal counts activity events a subscriber failed to handle.
// Label:
//   - type: the activity type
var ActivityErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_errors_total",
		Help:      "Total number of activity events that failed delivery.",
	},
	[]string{"type"},
)

// ActivityQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ActivityQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_queue_depth",
		Help:      "Current number of activity events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthLoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var AuthLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
