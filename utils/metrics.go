package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModerationActions counts committed moderator actions by type.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaforum",
		Name:      "moderation_actions_total",
		Help:      "Moderator actions committed, by action type.",
	}, []string{"action"})

	// ReportsResolved counts reports moved to a terminal state.
	ReportsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaforum",
		Name:      "reports_resolved_total",
		Help:      "Reports moved to RESOLVED or REJECTED.",
	}, []string{"status"})

	// ReportsCreated counts new reports by target type.
	ReportsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaforum",
		Name:      "reports_created_total",
		Help:      "Reports raised by users.",
	}, []string{"target_type"})

	// VotesCast counts vote state transitions.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaforum",
		Name:      "vote_transitions_total",
		Help:      "Vote transitions by target type and outcome (created, toggled_off, switched, removed).",
	}, []string{"target_type", "outcome"})

	// MaintenanceRejections counts requests turned away by the maintenance gate.
	MaintenanceRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qaforum",
		Name:      "maintenance_rejections_total",
		Help:      "Requests rejected while maintenance mode was on.",
	})
)
