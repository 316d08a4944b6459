package event

import "sync"

// Timeline is the canonical, deduplicated event sequence for the console.
// Both the live stream and the history poll feed it; an event already seen
// (same run ID + event ID) is dropped. Appends preserve first-arrival
// order; when a full snapshot log is available, Rebase reorders the
// timeline to the log's causal order so a live suffix received before the
// first poll cannot misorder state derivation. State derivation always
// runs over a timeline, never over whichever source happened to answer
// last.
type Timeline struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Event
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[string]struct{})}
}

// Append adds the event to the timeline if it has not been seen before.
// It reports whether the event was actually appended.
func (t *Timeline) Append(ev Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.append(ev)
}

// AppendAll adds every not-yet-seen event from the slice, preserving the
// slice's order, and returns the number appended.
func (t *Timeline) AppendAll(events []Event) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	appended := 0
	for _, ev := range events {
		if t.append(ev) {
			appended++
		}
	}
	return appended
}

// append requires t.mu to be held.
func (t *Timeline) append(ev Event) bool {
	key := ev.Key()
	if _, dup := t.seen[key]; dup {
		return false
	}
	t.seen[key] = struct{}{}
	t.events = append(t.events, ev)
	return true
}

// Rebase reorders the timeline around an authoritative full log: the
// log's events come first, in log order, followed by any previously seen
// events the log does not contain, in their prior relative order. Events
// new to the timeline are adopted from the log; nothing already seen is
// dropped. The live stream can deliver a causal suffix of a run before
// the first poll snapshot lands; rebasing on the snapshot heals that
// order instead of freezing it.
func (t *Timeline) Rebase(log []Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inLog := make(map[string]struct{}, len(log))
	rebased := make([]Event, 0, len(t.events)+len(log))
	for _, ev := range log {
		key := ev.Key()
		if _, dup := inLog[key]; dup {
			continue
		}
		inLog[key] = struct{}{}
		t.seen[key] = struct{}{}
		rebased = append(rebased, ev)
	}
	for _, ev := range t.events {
		if _, ok := inLog[ev.Key()]; !ok {
			rebased = append(rebased, ev)
		}
	}
	t.events = rebased
}

// Events returns a copy of the timeline in first-arrival order.
func (t *Timeline) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Run returns the timeline filtered to a single run, in first-arrival order.
func (t *Timeline) Run(runID string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Event
	for _, ev := range t.events {
		if ev.RunID == runID {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of distinct events seen so far.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}
