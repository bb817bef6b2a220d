package watching

import (
	"log/slog"
	"sync"
	"time"
)

// Flush is emitted once per burst of events, after the quiet period has
// elapsed with no further activity.
type Flush struct {
	Events int
	At     time.Time
}

// Debouncer coalesces bursts of change events into single flush signals.
// The window is sliding: every observed event resets the timer, so a flush
// only fires once the watched tree has been quiet for the full period. This
// avoids kicking off a migration in the middle of an edit burst.
type Debouncer struct {
	quiet   time.Duration
	flushes chan Flush

	mu      sync.Mutex
	timer   *time.Timer
	pending int
	stopped bool
}

// NewDebouncer creates a new Debouncer with the given quiet period.
func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{
		quiet:   quiet,
		flushes: make(chan Flush, 1),
	}
}

// Flushes returns the channel on which flush signals are delivered.
func (d *Debouncer) Flushes() <-chan Flush {
	return d.flushes
}

// Observe records an event and starts or resets the quiet-period timer.
func (d *Debouncer) Observe(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.flush)

	slog.Debug("Debounce window reset", "path", ev.Path, "kind", ev.Kind, "pending", d.pending)
}

// flush emits a single flush signal for the completed group.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || d.pending == 0 {
		d.mu.Unlock()
		return
	}
	f := Flush{Events: d.pending, At: time.Now()}
	d.pending = 0
	d.timer = nil
	d.mu.Unlock()

	select {
	case d.flushes <- f:
		slog.Debug("Debounce flush emitted", "events", f.Events)
	default:
		// A previous flush has not been consumed yet. Fold this group back
		// into the pending count so the next flush still accounts for it.
		d.mu.Lock()
		d.pending += f.Events
		if d.timer == nil && !d.stopped {
			d.timer = time.AfterFunc(d.quiet, d.flush)
		}
		d.mu.Unlock()
		slog.Warn("Flush channel full, coalescing into next window", "events", f.Events)
	}
}

// Stop cancels any pending window. No flushes are emitted after Stop returns.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = 0
}
