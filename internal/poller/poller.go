// Package poller implements the pull side of the console: a fixed-cadence
// fetch of one run's full snapshot while that run is selected. Each
// successful fetch replaces the previous snapshot wholesale; there is no
// incremental merge with earlier polls or with concurrent stream data.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-labs/lookout/internal/backend"
	"github.com/meridian-labs/lookout/internal/logger"
)

// DefaultInterval is the default polling cadence.
const DefaultInterval = 2 * time.Second

// FetchFunc fetches the full snapshot for a run. Production code uses
// backend.Client.RunSnapshot; tests substitute fakes, including
// deliberately delayed ones.
type FetchFunc func(ctx context.Context, runID string) (backend.RunSnapshot, error)

// Poller periodically fetches one run's snapshot until stopped. It is a
// scoped resource: Stop must be called before switching run selection or
// leaving history mode, and is guaranteed safe on every exit path.
type Poller struct {
	runID    string
	interval time.Duration
	fetch    FetchFunc
	log      *logger.Logger

	cancel   context.CancelFunc
	stopOnce sync.Once
	updates  chan struct{}

	mu      sync.Mutex
	stopped bool
	snap    *backend.RunSnapshot
}

// Start creates a poller for runID and begins fetching immediately, then
// on every interval tick. A non-positive interval uses DefaultInterval.
func Start(ctx context.Context, runID string, interval time.Duration, fetch FetchFunc) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{
		runID:    runID,
		interval: interval,
		fetch:    fetch,
		cancel:   cancel,
		updates:  make(chan struct{}, 1),
		log: logger.WithFields(map[string]interface{}{
			"component": "poller",
			"run_id":    runID,
		}),
	}

	go p.loop(ctx)

	p.log.WithField("interval", interval.String()).Debug("History poller started")
	return p
}

// loop drives the fetch cadence. A result arriving after Stop is
// discarded before it can touch the snapshot, so a late completion never
// mutates state the view no longer owns.
func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll performs one fetch. Failures are logged and leave the previous
// snapshot in place: stale but available.
func (p *Poller) poll(ctx context.Context) {
	snap, err := p.fetch(ctx, p.runID)

	if err != nil {
		if ctx.Err() == nil {
			p.log.WithError(err).Warn("History fetch failed, keeping previous snapshot")
		}
		return
	}

	p.mu.Lock()
	// The fetch may have completed after Stop, or after the parent context
	// was cancelled; either way the result is stale and must not overwrite
	// anything. The stopped flag is set under the same lock by Stop, so
	// once Stop returns no store can slip through.
	if !p.stopped && ctx.Err() == nil {
		p.snap = &snap
	}
	p.mu.Unlock()
	p.notify()
}

func (p *Poller) notify() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// RunID returns the run this poller is scoped to.
func (p *Poller) RunID() string {
	return p.runID
}

// Snapshot returns the most recent snapshot and whether one exists yet.
func (p *Poller) Snapshot() (backend.RunSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.snap == nil {
		return backend.RunSnapshot{}, false
	}
	return *p.snap, true
}

// Updates signals when a new snapshot has been stored. Signals are
// coalesced.
func (p *Poller) Updates() <-chan struct{} {
	return p.updates
}

// Stop halts polling. It is idempotent and returns immediately; any fetch
// still in flight is discarded when it completes.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		p.cancel()
		p.log.Debug("History poller stopped")
	})
}
