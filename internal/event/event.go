// Package event defines the value types that flow through the console:
// run events, run summaries, and agent directory entries. Events arrive
// from two independent sources (the live WebSocket feed and the per-run
// history poll) and are merged into a single timeline keyed by event ID.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event kind constants. The kind set is open: the backend may emit kinds
// this console has never seen, and those must still be displayed. Only the
// kinds below participate in run state derivation.
const (
	KindRunStarted    = "run_started"
	KindRunPaused     = "run_paused"
	KindRequestInput  = "request_input"
	KindInputReceived = "input_received"
	KindResume        = "resume"
	KindRunCompleted  = "run_completed"
	KindRunFailed     = "run_failed"
	KindRunCancelled  = "run_cancelled"
)

// Validation errors
var (
	ErrEmptyID    = errors.New("event ID cannot be empty")
	ErrEmptyRunID = errors.New("run ID cannot be empty")
	ErrEmptyKind  = errors.New("event kind cannot be empty")
)

// Event is the atomic unit flowing through both the push and pull paths.
// Instances are immutable value objects; they are never mutated after
// being parsed off the wire or out of a snapshot.
type Event struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	AgentID   string          `json:"agent_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Validate checks that the event carries the fields every event must have.
// The kind is not checked against a known set: unrecognized kinds are legal.
func (e *Event) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.RunID == "" {
		return ErrEmptyRunID
	}
	if e.Kind == "" {
		return ErrEmptyKind
	}
	return nil
}

// Key returns the identity of the event within the whole system. Event IDs
// are only unique per run, so the run ID participates in the key.
func (e *Event) Key() string {
	return e.RunID + "/" + e.ID
}

// Parse decodes a single wire message into an Event and validates it.
// The stream delivers one self-contained JSON event per message.
func Parse(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}
	return ev, nil
}

// RunSummary is a backend-computed snapshot of one run as returned by the
// run list endpoint. The status string is the backend's own word for the
// run state; it is displayed as-is, not re-derived here.
type RunSummary struct {
	RunID      string `json:"run_id"`
	EventCount int    `json:"event_count"`
	Status     string `json:"status"`
}

// Agent is a directory entry describing an agent that can be triggered.
// The trigger spec is opaque to the console.
type Agent struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Trigger     json.RawMessage `json:"trigger,omitempty"`
}
