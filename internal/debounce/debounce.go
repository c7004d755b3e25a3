// Package debounce collapses bursts of triggers into a single callback fired
// after a quiet period.
package debounce

import (
	"sync"
	"time"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
)

// Debouncer runs fn once no Trigger has happened for the configured wait.
// It keeps a single timer handle: every Trigger cancels and reschedules it.
type Debouncer struct {
	clock clock.Clock
	wait  time.Duration
	fn    func()

	mu    sync.Mutex
	timer clock.Timer
	gen   uint64
}

// New creates a Debouncer. A nil clock means the real clock.
func New(c clock.Clock, wait time.Duration, fn func()) *Debouncer {
	if c == nil {
		c = clock.Real()
	}
	return &Debouncer{clock: c, wait: wait, fn: fn}
}

// Trigger (re)starts the quiet period. It reports whether a period was
// already pending, i.e. false means this is the first trigger of a burst.
func (d *Debouncer) Trigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := d.stopLocked()
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.wait, func() {
		d.mu.Lock()
		if d.gen != gen || d.timer == nil {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
	return pending
}

// Cancel drops a pending callback. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	return d.stopLocked()
}

// Flush fires a pending callback immediately.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	pending := d.stopLocked()
	d.gen++
	d.mu.Unlock()
	if pending {
		d.fn()
	}
	return pending
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}
