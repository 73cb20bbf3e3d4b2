// Package metrics provides Prometheus metrics for the escalation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "escalator"
)

// Engine metrics
var (
	// RulesEvaluated counts rule evaluations against incidents.
	RulesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rules_evaluated_total",
			Help:      "Total rule evaluations against incident snapshots",
		},
	)

	// RulesMatched counts rules that matched an incident.
	RulesMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rules_matched_total",
			Help:      "Total rules that matched an incident",
		},
	)

	// ActionsExecuted counts executed escalation actions by type.
	ActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "actions_executed_total",
			Help:      "Total escalation actions executed",
		},
		[]string{"type"},
	)

	// ActionFailures counts failed escalation actions by type.
	ActionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "action_failures_total",
			Help:      "Total escalation actions that failed",
		},
		[]string{"type"},
	)

	// UnknownActions counts actions skipped because of an unknown type.
	UnknownActions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "unknown_actions_total",
			Help:      "Total actions skipped due to unknown action type",
		},
	)

	// ManualEscalations counts manual escalation triggers.
	ManualEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "manual_escalations_total",
			Help:      "Total manually triggered escalations",
		},
	)

	// HistoryWriteFailures counts failed history sink writes.
	HistoryWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "history_write_failures_total",
			Help:      "Total escalation history writes that failed",
		},
	)

	// EventsPublished counts published domain events by type.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_published_total",
			Help:      "Total domain events published",
		},
		[]string{"type"},
	)

	// EventsDropped counts domain events dropped due to a full buffer.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_dropped_total",
			Help:      "Total domain events dropped due to a full buffer",
		},
	)
)

// Scanner metrics
var (
	// ScannerRuns counts overdue scan sweeps.
	ScannerRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "runs_total",
			Help:      "Total overdue scan sweeps",
		},
	)

	// ScannerOverdueFound counts overdue incidents found, by reason.
	ScannerOverdueFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "overdue_found_total",
			Help:      "Total overdue incidents found by the scanner",
		},
		[]string{"reason"},
	)
)

// Notification metrics
var (
	// NotificationsSent counts successful channel sends.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total notifications delivered per channel",
		},
		[]string{"channel"},
	)

	// NotificationFailures counts failed channel sends.
	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total notification delivery failures per channel",
		},
		[]string{"channel"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)
