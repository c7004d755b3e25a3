// Package navigation drives "jump to the replied message" and the way back.
package navigation

import (
	"sync"
	"time"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/thread"
)

// State is the controller's mode.
type State string

const (
	StateIdle     State = "idle"
	StateFocusing State = "focusing"
)

// Snapshot is the externally visible navigation state.
type Snapshot struct {
	State       State  `json:"state"`
	TargetID    string `json:"target_id,omitempty"`
	Offset      int    `json:"offset"`
	SavedOffset int    `json:"saved_offset"`
	Highlighted bool   `json:"highlighted"`
	CanJumpBack bool   `json:"can_jump_back"`
}

// Options configures a Controller.
type Options struct {
	Clock             clock.Clock
	HighlightDuration time.Duration
	JumpBackTTL       time.Duration

	// OnChange observes every state change, including timer-driven ones
	OnChange func(Snapshot)
}

// Controller is a two-state machine: Idle, or Focusing on a jump target with
// a saved offset to come back to. Only one level of jump-back is kept.
type Controller struct {
	clock     clock.Clock
	highlight time.Duration
	ttl       time.Duration
	onChange  func(Snapshot)

	mu             sync.Mutex
	state          State
	target         string
	offset         int
	saved          int
	highlighted    bool
	canBack        bool
	gen            uint64
	highlightTimer clock.Timer
	expiryTimer    clock.Timer
}

// New creates an idle Controller.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Controller{
		clock:     opts.Clock,
		highlight: opts.HighlightDuration,
		ttl:       opts.JumpBackTTL,
		onChange:  opts.OnChange,
		state:     StateIdle,
	}
}

// Focus scrolls to pos, highlights it and remembers currentOffset for
// JumpBack. A second Focus while focusing replaces the saved offset.
func (c *Controller) Focus(pos thread.Position, currentOffset int) Snapshot {
	c.mu.Lock()
	c.stopTimersLocked()
	c.gen++
	gen := c.gen

	c.state = StateFocusing
	c.target = pos.MessageID
	c.saved = currentOffset
	c.offset = pos.Row
	c.highlighted = true
	c.canBack = true

	c.highlightTimer = c.clock.AfterFunc(c.highlight, func() {
		c.expire(gen, func() { c.highlighted = false })
	})
	c.expiryTimer = c.clock.AfterFunc(c.ttl, func() {
		c.expire(gen, func() { c.canBack = false })
	})
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return snap
}

// JumpBack restores the offset saved by the last Focus. It reports false
// when there is nothing to go back to.
func (c *Controller) JumpBack() (int, bool) {
	c.mu.Lock()
	if !c.canBack {
		c.mu.Unlock()
		return 0, false
	}
	saved := c.saved
	c.stopTimersLocked()
	c.gen++
	c.toIdleLocked()
	c.offset = saved
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return saved, true
}

// Reset drops any pending focus without notifying.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimersLocked()
	c.gen++
	c.toIdleLocked()
	c.offset = 0
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// expire applies a timer-driven change unless a newer Focus, JumpBack or
// Reset has superseded the timer's generation.
func (c *Controller) expire(gen uint64, apply func()) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	apply()
	if !c.highlighted && !c.canBack {
		c.toIdleLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller) toIdleLocked() {
	c.state = StateIdle
	c.target = ""
	c.saved = 0
	c.highlighted = false
	c.canBack = false
	c.highlightTimer = nil
	c.expiryTimer = nil
}

func (c *Controller) stopTimersLocked() {
	if c.highlightTimer != nil {
		c.highlightTimer.Stop()
		c.highlightTimer = nil
	}
	if c.expiryTimer != nil {
		c.expiryTimer.Stop()
		c.expiryTimer = nil
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.state,
		TargetID:    c.target,
		Offset:      c.offset,
		SavedOffset: c.saved,
		Highlighted: c.highlighted,
		CanJumpBack: c.canBack,
	}
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
