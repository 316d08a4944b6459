// Package view arbitrates between the console's two event sources. A
// controller owns run selection and exactly one sourcing mode at a time:
// live (the push stream's buffer) or history (a per-run snapshot poller).
// It is the sole authority for starting and stopping the poller, and it
// guarantees that a stale poll response for a previously selected run can
// never overwrite the current view.
package view

import (
	"sync"

	"github.com/meridian-labs/lookout/internal/event"
	"github.com/meridian-labs/lookout/internal/logger"
	"github.com/meridian-labs/lookout/internal/poller"
	"github.com/meridian-labs/lookout/internal/runstate"
)

// Mode identifies which source drives the visible feed.
type Mode string

const (
	// ModeLive sources solely from the stream client's buffer.
	ModeLive Mode = "live"
	// ModeHistory sources solely from the history poller for one run.
	ModeHistory Mode = "history"
)

// LiveSource is the read surface the controller needs from the stream
// client. It is an interface so tests can substitute scripted feeds.
type LiveSource interface {
	Events() []event.Event
	Connected() bool
}

// PollerFactory starts a history poller scoped to one run. The controller
// calls it on selection and stops the returned poller on switch.
type PollerFactory func(runID string) *poller.Poller

// Controller is the top-level arbiter of the console view.
type Controller struct {
	mu          sync.Mutex
	mode        Mode
	selected    string
	live        LiveSource
	startPoller PollerFactory
	poller      *poller.Poller
	timelines   map[string]*event.Timeline
	log         *logger.Logger
}

// NewController creates a controller in live mode.
func NewController(live LiveSource, startPoller PollerFactory) *Controller {
	return &Controller{
		mode:        ModeLive,
		live:        live,
		startPoller: startPoller,
		timelines:   make(map[string]*event.Timeline),
		log:         logger.WithField("component", "view"),
	}
}

// Mode returns the current sourcing mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SelectedRun returns the run selected in history mode, or "" in live mode.
func (c *Controller) SelectedRun() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Connected reports the live stream's connectivity flag.
func (c *Controller) Connected() bool {
	return c.live.Connected()
}

// SelectRun switches to history mode for runID. Any poller for a
// previously selected run is stopped first; the switch is synchronous
// from the caller's perspective even though the old poller's in-flight
// fetch winds down asynchronously. Selecting the current run is a no-op.
func (c *Controller) SelectRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeHistory && c.selected == runID {
		return
	}

	c.stopPollerLocked()
	c.mode = ModeHistory
	c.selected = runID
	c.poller = c.startPoller(runID)

	c.log.WithField("run_id", runID).Debug("Switched to history mode")
}

// ShowLive switches back to live mode, releasing the history poller.
func (c *Controller) ShowLive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeLive {
		return
	}

	c.stopPollerLocked()
	c.mode = ModeLive
	c.selected = ""

	c.log.Debug("Switched to live mode")
}

// Close releases every resource the controller owns. Safe to call from
// view teardown in any mode, any number of times.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollerLocked()
}

// stopPollerLocked requires c.mu to be held.
func (c *Controller) stopPollerLocked() {
	if c.poller != nil {
		c.poller.Stop()
		c.poller = nil
	}
}

// Feed returns the events the view should display: the live buffer in
// live mode, or the selected run's merged timeline in history mode.
func (c *Controller) Feed() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeLive {
		return c.live.Events()
	}
	return c.runTimelineLocked(c.selected)
}

// RunState derives the canonical state of a run from its merged timeline.
// Both sources feed the same timeline, so live and history views can
// never disagree about the same run.
func (c *Controller) RunState(runID string) runstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return runstate.Resolve(c.runTimelineLocked(runID))
}

// runTimelineLocked folds both sources into the run's canonical timeline.
// The poll snapshot's full log is authoritative for order: the timeline is
// rebased onto it, so a live suffix that arrived before the first poll
// (connecting mid-run) is reordered into the snapshot's causal position.
// Only a poller scoped to this exact run contributes; a poller for any
// other run is stale by definition. Live buffer events for the run are
// appended after, deduplicated by event ID. Requires c.mu to be held.
func (c *Controller) runTimelineLocked(runID string) []event.Event {
	tl, ok := c.timelines[runID]
	if !ok {
		tl = event.NewTimeline()
		c.timelines[runID] = tl
	}

	if c.poller != nil && c.poller.RunID() == runID {
		if snap, ok := c.poller.Snapshot(); ok {
			tl.Rebase(snap.Events)
		}
	}

	for _, ev := range c.live.Events() {
		if ev.RunID == runID {
			tl.Append(ev)
		}
	}

	return tl.Events()
}
