// Package runstate derives the canonical lifecycle state of a run from its
// ordered event sequence. Resolution is a pure reducer over the whole log:
// deterministic, replay-safe, and testable in isolation from any I/O.
package runstate

import "github.com/meridian-labs/lookout/internal/event"

// State is the derived lifecycle state of a run.
type State string

const (
	// StateUnknown is the state before any recognized lifecycle event has
	// been observed. It is distinct from StateActive: callers must not
	// assume a run is active (or offer controls) until a run_started or
	// equivalent event arrives.
	StateUnknown State = "unknown"

	StateActive        State = "active"
	StatePaused        State = "paused"
	StateAwaitingInput State = "awaiting_input"
	StateCancelled     State = "cancelled"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCancelled, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// Next applies a single event kind to the current state and returns the
// resulting state. Terminal states absorb everything; unrecognized kinds
// leave the state unchanged (the event itself stays in the log, it just
// does not participate in the projection).
func Next(current State, kind string) State {
	if current.Terminal() {
		return current
	}

	switch kind {
	case event.KindRunStarted:
		return StateActive
	case event.KindRunPaused:
		return StatePaused
	case event.KindRequestInput:
		return StateAwaitingInput
	case event.KindInputReceived, event.KindResume:
		// Only a paused or input-waiting run resumes; for any other
		// non-terminal state these kinds are informational.
		if current == StatePaused || current == StateAwaitingInput {
			return StateActive
		}
		return current
	case event.KindRunCompleted:
		return StateCompleted
	case event.KindRunFailed:
		return StateFailed
	case event.KindRunCancelled:
		return StateCancelled
	default:
		return current
	}
}

// Resolve folds the event sequence, in arrival order, into a State.
// Arrival order is the causal order the backend emitted the events in, so
// no timestamp sorting happens here. Resolving the same sequence twice, or
// a sequence extended with already-applied terminal-following events,
// always yields the same result.
func Resolve(events []event.Event) State {
	state := StateUnknown
	for i := range events {
		state = Next(state, events[i].Kind)
	}
	return state
}

// FromStatus maps a backend status string onto a State, for snapshots and
// summaries whose status was computed backend-side. Unrecognized status
// strings map to StateUnknown.
func FromStatus(status string) State {
	switch State(status) {
	case StateActive, StatePaused, StateAwaitingInput,
		StateCancelled, StateCompleted, StateFailed:
		return State(status)
	default:
		return StateUnknown
	}
}
