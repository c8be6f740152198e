package coordinator

import "time"

// DefaultDebounce is the quiet period applied to filter and sort edits.
const DefaultDebounce = 250 * time.Millisecond

// Pending is a scheduled trigger. The scheduler fires Gen after Delay.
type Pending struct {
	Gen   uint64
	Delay time.Duration
}

// Trigger collapses bursts of edits into one call. The first schedule fires
// immediately; every later schedule waits Delay and supersedes any pending
// generation. Timers cannot always be stopped once armed, so a superseded
// generation that still fires is rejected by Fire.
type Trigger struct {
	Delay time.Duration

	gen     uint64
	started bool
}

// NewTrigger creates a trigger with the given quiet period.
// A non-positive delay selects DefaultDebounce.
func NewTrigger(delay time.Duration) *Trigger {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Trigger{Delay: delay}
}

// Schedule supersedes any pending generation and returns the new one.
func (t *Trigger) Schedule() Pending {
	t.gen++
	if !t.started {
		return Pending{Gen: t.gen, Delay: 0}
	}
	return Pending{Gen: t.gen, Delay: t.Delay}
}

// Fire reports whether gen is the latest scheduled generation. The first
// accepted fire ends the immediate first-load window.
func (t *Trigger) Fire(gen uint64) bool {
	if gen != t.gen {
		return false
	}
	t.started = true
	return true
}

// Started reports whether the first scheduled call has fired.
func (t *Trigger) Started() bool {
	return t.started
}
