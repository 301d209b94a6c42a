package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions with appropriate labels. State and action labels are
// bounded by the attached definitions.
var (
	// transitionsTotal counts completed transitions by outcome (success or error).
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of state transitions by machine, from_state, to_state, and outcome",
	}, []string{"machine", "from_state", "to_state", "outcome"})

	// hookDuration tracks how long lifecycle hooks take to signal completion.
	hookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_hook_duration_seconds",
		Help:    "Duration of init, enter and exit hooks by machine, state, hook, and outcome",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"machine", "state", "hook", "outcome"})

	// actionsTotal counts completed actions.
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_actions_total",
		Help: "Total number of completed actions by machine, state, action, and outcome",
	}, []string{"machine", "state", "action", "outcome"})

	// restoresTotal counts snapshot restores, including rejected snapshots.
	restoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_restores_total",
		Help: "Total number of snapshot restores by machine and outcome (success, error or rejected)",
	}, []string{"machine", "outcome"})
)

func sanitizeState(state string) string {
	if state == Unset {
		return "none"
	}

	return state
}
