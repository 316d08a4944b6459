package view

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/lookout/internal/backend"
	"github.com/meridian-labs/lookout/internal/event"
	"github.com/meridian-labs/lookout/internal/poller"
	"github.com/meridian-labs/lookout/internal/runstate"
)

// fakeLive is a scripted stand-in for the stream client.
type fakeLive struct {
	mu        sync.Mutex
	events    []event.Event
	connected bool
}

func (f *fakeLive) Events() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeLive) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeLive) push(events ...event.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
}

func ev(id, runID, kind string) event.Event {
	return event.Event{ID: id, RunID: runID, Kind: kind}
}

// immediateFactory builds pollers backed by an instant fake fetch.
func immediateFactory(t *testing.T, snapshots map[string]backend.RunSnapshot) (PollerFactory, *atomic.Int64) {
	t.Helper()
	var started atomic.Int64
	factory := func(runID string) *poller.Poller {
		started.Add(1)
		return poller.Start(context.Background(), runID, 10*time.Millisecond,
			func(ctx context.Context, runID string) (backend.RunSnapshot, error) {
				return snapshots[runID], nil
			})
	}
	return factory, &started
}

func TestControllerStartsInLiveMode(t *testing.T) {
	live := &fakeLive{connected: true}
	factory, started := immediateFactory(t, nil)
	c := NewController(live, factory)
	defer c.Close()

	assert.Equal(t, ModeLive, c.Mode())
	assert.Empty(t, c.SelectedRun())
	assert.True(t, c.Connected())
	assert.Equal(t, int64(0), started.Load())

	live.push(ev("e1", "r1", "run_started"), ev("e1", "r2", "run_started"))
	assert.Len(t, c.Feed(), 2)
}

func TestControllerSelectRunSwitchesToHistory(t *testing.T) {
	live := &fakeLive{connected: true}
	factory, started := immediateFactory(t, map[string]backend.RunSnapshot{
		"r1": {Events: []event.Event{ev("e1", "r1", "run_started"), ev("e2", "r1", "run_paused")}, Status: "paused"},
	})
	c := NewController(live, factory)
	defer c.Close()

	c.SelectRun("r1")
	assert.Equal(t, ModeHistory, c.Mode())
	assert.Equal(t, "r1", c.SelectedRun())
	assert.Equal(t, int64(1), started.Load())

	require.Eventually(t, func() bool {
		return len(c.Feed()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, runstate.StatePaused, c.RunState("r1"))
}

func TestControllerSelectSameRunIsNoOp(t *testing.T) {
	factory, started := immediateFactory(t, map[string]backend.RunSnapshot{"r1": {}})
	c := NewController(&fakeLive{}, factory)
	defer c.Close()

	c.SelectRun("r1")
	c.SelectRun("r1")
	assert.Equal(t, int64(1), started.Load(), "reselecting the current run must not restart the poller")
}

func TestControllerShowLiveReleasesPoller(t *testing.T) {
	var fetches atomic.Int64
	factory := func(runID string) *poller.Poller {
		return poller.Start(context.Background(), runID, 10*time.Millisecond,
			func(ctx context.Context, runID string) (backend.RunSnapshot, error) {
				fetches.Add(1)
				return backend.RunSnapshot{}, nil
			})
	}

	c := NewController(&fakeLive{}, factory)
	c.SelectRun("r1")

	require.Eventually(t, func() bool {
		return fetches.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	c.ShowLive()
	assert.Equal(t, ModeLive, c.Mode())
	assert.Empty(t, c.SelectedRun())

	// Polling must stop once history mode is left.
	settled := fetches.Load()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, fetches.Load(), settled+1, "poller kept fetching after ShowLive")
}

func TestControllerStaleResponseDoesNotOverwriteView(t *testing.T) {
	releaseA := make(chan struct{})

	factory := func(runID string) *poller.Poller {
		return poller.Start(context.Background(), runID, time.Hour,
			func(ctx context.Context, runID string) (backend.RunSnapshot, error) {
				if runID == "run-a" {
					// Deliberately delayed: completes only after the view
					// has moved on to run-b.
					<-releaseA
					return backend.RunSnapshot{
						Events: []event.Event{ev("a1", "run-a", "run_started")},
						Status: "active",
					}, nil
				}
				return backend.RunSnapshot{
					Events: []event.Event{ev("b1", "run-b", "run_started"), ev("b2", "run-b", "run_completed")},
					Status: "completed",
				}, nil
			})
	}

	c := NewController(&fakeLive{}, factory)
	defer c.Close()

	c.SelectRun("run-a")
	c.SelectRun("run-b")

	require.Eventually(t, func() bool {
		return len(c.Feed()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Let run-a's fetch complete late.
	close(releaseA)
	time.Sleep(50 * time.Millisecond)

	feed := c.Feed()
	require.Len(t, feed, 2, "late run-a response leaked into run-b's view")
	assert.Equal(t, "run-b", feed[0].RunID)
	assert.Equal(t, "run-b", feed[1].RunID)
	assert.Equal(t, runstate.StateCompleted, c.RunState("run-b"))
}

func TestControllerHealsOrderWhenConnectingMidRun(t *testing.T) {
	release := make(chan struct{})
	live := &fakeLive{connected: true}
	// Connected mid-run: only a causal suffix of the run is in the buffer.
	live.push(ev("e3", "r1", "request_input"))

	factory := func(runID string) *poller.Poller {
		return poller.Start(context.Background(), runID, time.Hour,
			func(ctx context.Context, runID string) (backend.RunSnapshot, error) {
				<-release
				return backend.RunSnapshot{
					Events: []event.Event{
						ev("e1", "r1", "run_started"),
						ev("e2", "r1", "run_paused"),
						ev("e3", "r1", "request_input"),
					},
					Status: "awaiting_input",
				}, nil
			})
	}

	c := NewController(live, factory)
	defer c.Close()
	c.SelectRun("r1")

	// The view renders from the live suffix before the first poll lands,
	// seeding the run's timeline with e3 alone.
	require.Len(t, c.Feed(), 1)

	close(release)
	require.Eventually(t, func() bool {
		return len(c.Feed()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	feed := c.Feed()
	assert.Equal(t, "e1", feed[0].ID)
	assert.Equal(t, "e2", feed[1].ID)
	assert.Equal(t, "e3", feed[2].ID, "snapshot order is authoritative once it lands")
	assert.Equal(t, runstate.StateAwaitingInput, c.RunState("r1"))
}

func TestControllerMergesStreamAndPollWithoutDuplicates(t *testing.T) {
	live := &fakeLive{connected: true}
	// The stream already delivered e1 and e3; the poll snapshot holds the
	// full log e1..e3. The merged timeline must contain each once.
	live.push(ev("e1", "r1", "run_started"), ev("e3", "r1", "request_input"))

	factory, _ := immediateFactory(t, map[string]backend.RunSnapshot{
		"r1": {Events: []event.Event{
			ev("e1", "r1", "run_started"),
			ev("e2", "r1", "action_taken"),
			ev("e3", "r1", "request_input"),
		}, Status: "awaiting_input"},
	})

	c := NewController(live, factory)
	defer c.Close()
	c.SelectRun("r1")

	require.Eventually(t, func() bool {
		return len(c.Feed()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, runstate.StateAwaitingInput, c.RunState("r1"))
}

func TestControllerRunStateFromLiveBufferOnly(t *testing.T) {
	live := &fakeLive{connected: true}
	live.push(
		ev("e1", "r1", "run_started"),
		ev("e1", "r2", "run_started"),
		ev("e2", "r2", "run_cancelled"),
	)

	factory, started := immediateFactory(t, nil)
	c := NewController(live, factory)
	defer c.Close()

	// No poller involved in live mode; state derives per run from the buffer.
	assert.Equal(t, runstate.StateActive, c.RunState("r1"))
	assert.Equal(t, runstate.StateCancelled, c.RunState("r2"))
	assert.Equal(t, runstate.StateUnknown, c.RunState("r3"))
	assert.Equal(t, int64(0), started.Load())
}

func TestControllerCloseIsSafeInAnyMode(t *testing.T) {
	factory, _ := immediateFactory(t, map[string]backend.RunSnapshot{"r1": {}})
	c := NewController(&fakeLive{}, factory)

	c.Close()
	c.SelectRun("r1")
	c.Close()
	c.Close()
}
