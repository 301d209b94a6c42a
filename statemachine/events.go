package statemachine

import "time"

// EventKind identifies what an Event reports.
type EventKind string

const (
	// EventHook is emitted when an init, exit or enter hook completes.
	EventHook EventKind = "hook"
	// EventSwap is emitted right after the current state and data change.
	EventSwap EventKind = "swap"
	// EventTransition is emitted when a transition's completion fires.
	EventTransition EventKind = "transition"
	// EventAction is emitted when an invoked action completes.
	EventAction EventKind = "action"
)

// Event describes one step of engine execution. Observers receive events in
// the order the steps happen.
type Event struct {
	Kind   EventKind
	From   string
	To     string
	State  string
	Action string
	Hook   HookName
	Err    error
	At     time.Time
}

// Observer receives engine events. Observers run synchronously on the
// goroutine that completed the step and must not block.
type Observer func(event Event)

// StateTransition records a completed state swap.
type StateTransition struct {
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to"   yaml:"to"`
	Timestamp time.Time `json:"at"   yaml:"at"`
}
