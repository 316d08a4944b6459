package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meridian-labs/lookout/internal/logger"
	"github.com/meridian-labs/lookout/internal/runstate"
)

// ErrNotAwaitingInput is returned when input is submitted for a run whose
// resolved state is not awaiting_input. The command is rejected locally
// and never reaches the backend.
var ErrNotAwaitingInput = errors.New("run is not awaiting input")

// ControlBackend is the command surface of the backend client.
type ControlBackend interface {
	CancelRun(ctx context.Context, runID string) error
	SubmitInput(ctx context.Context, runID, input string) error
}

// StateFunc reports the current resolved state of a run. The control
// channel consults it to gate commands; Controller.RunState satisfies it.
type StateFunc func(runID string) runstate.State

// ControlChannel issues cancel and submit-input commands. Commands never
// change displayed state directly: confirmation comes back through the
// event or poll paths. The only local effect is the optimistic clearing
// of the awaiting-input prompt, which is restored if the backend rejects
// the submission.
type ControlChannel struct {
	mu      sync.Mutex
	backend ControlBackend
	state   StateFunc
	cleared map[string]bool
	log     *logger.Logger
}

// NewControlChannel creates a control channel gated by the given state
// function.
func NewControlChannel(backend ControlBackend, state StateFunc) *ControlChannel {
	return &ControlChannel{
		backend: backend,
		state:   state,
		cleared: make(map[string]bool),
		log:     logger.WithField("component", "control"),
	}
}

// Cancel requests cancellation of a run. Cancelling a run already in a
// terminal state is a no-op; a duplicate cancel of a still-active run is
// a harmless duplicate on the backend side.
func (cc *ControlChannel) Cancel(ctx context.Context, runID string) error {
	if cc.state(runID).Terminal() {
		cc.log.WithField("run_id", runID).Debug("Run already terminal, cancel skipped")
		return nil
	}

	if err := cc.backend.CancelRun(ctx, runID); err != nil {
		return fmt.Errorf("cancel failed for run %s: %w", runID, err)
	}

	cc.log.WithField("run_id", runID).Info("Cancel requested")
	return nil
}

// SubmitInput sends operator input to a run waiting on it. It is rejected
// locally unless the resolved state is awaiting_input. On success the
// prompt is cleared optimistically pending confirmation; on backend
// rejection the prompt is restored and the failure surfaced.
func (cc *ControlChannel) SubmitInput(ctx context.Context, runID, value string) error {
	if cc.state(runID) != runstate.StateAwaitingInput {
		return ErrNotAwaitingInput
	}

	cc.setCleared(runID, true)

	if err := cc.backend.SubmitInput(ctx, runID, value); err != nil {
		cc.setCleared(runID, false)
		return fmt.Errorf("input rejected for run %s: %w", runID, err)
	}

	cc.log.WithField("run_id", runID).Info("Input submitted")
	return nil
}

// PromptPending reports whether the awaiting-input prompt should be shown
// for a run: the resolved state is awaiting_input and no submission is
// pending confirmation. Once the run leaves awaiting_input the cleared
// mark is dropped, so a later input request prompts again.
func (cc *ControlChannel) PromptPending(runID string) bool {
	if cc.state(runID) != runstate.StateAwaitingInput {
		cc.setCleared(runID, false)
		return false
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	return !cc.cleared[runID]
}

func (cc *ControlChannel) setCleared(runID string, cleared bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cleared {
		cc.cleared[runID] = true
	} else {
		delete(cc.cleared, runID)
	}
}
