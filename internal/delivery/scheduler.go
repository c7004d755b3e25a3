// Package delivery simulates the sent → delivered → read lifecycle of
// locally sent messages. It is cosmetic: transitions are best effort.
package delivery

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/metrics"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

// Target is the store a transition is applied to.
type Target interface {
	UpdateStatus(messageID string, status models.DeliveryStatus) bool
}

// TransitionFunc observes applied transitions.
type TransitionFunc func(conversationID, messageID string, status models.DeliveryStatus)

// Options configures a Scheduler.
type Options struct {
	Clock          clock.Clock
	DeliveredDelay time.Duration
	ReadDelay      time.Duration
	Metrics        *metrics.Metrics
	OnTransition   TransitionFunc
}

// Scheduler owns the delivery timers of every conversation in a session.
type Scheduler struct {
	clock          clock.Clock
	deliveredDelay time.Duration
	readDelay      time.Duration
	metrics        *metrics.Metrics
	onTransition   TransitionFunc
	log            zerolog.Logger

	mu      sync.Mutex
	handles map[string]*handle
	stopped bool
}

// handle groups the timers of one conversation so they die together.
type handle struct {
	mu        sync.Mutex
	next      uint64
	timers    map[uint64]clock.Timer
	cancelled bool
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Scheduler{
		clock:          opts.Clock,
		deliveredDelay: opts.DeliveredDelay,
		readDelay:      opts.ReadDelay,
		metrics:        opts.Metrics,
		onTransition:   opts.OnTransition,
		log:            logging.Component("delivery"),
		handles:        make(map[string]*handle),
	}
}

// Track schedules both transitions for a freshly sent message.
func (s *Scheduler) Track(conversationID string, target Target, messageID string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	h := s.handles[conversationID]
	if h == nil {
		h = &handle{timers: make(map[uint64]clock.Timer)}
		s.handles[conversationID] = h
	}
	s.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return
	}
	h.arm(s.clock, s.deliveredDelay, s.fire(conversationID, target, messageID, models.StatusDelivered))
	h.arm(s.clock, s.readDelay, s.fire(conversationID, target, messageID, models.StatusRead))
}

// arm registers a timer under the handle. Caller holds h.mu; the callback
// takes it again, so it can't observe the map before the timer is recorded.
func (h *handle) arm(c clock.Clock, d time.Duration, f func()) {
	h.next++
	key := h.next
	h.timers[key] = c.AfterFunc(d, func() {
		h.mu.Lock()
		_, live := h.timers[key]
		delete(h.timers, key)
		h.mu.Unlock()
		if live {
			f()
		}
	})
}

func (s *Scheduler) fire(conversationID string, target Target, messageID string, status models.DeliveryStatus) func() {
	return func() {
		if !target.UpdateStatus(messageID, status) {
			s.metrics.TransitionDropped()
			s.log.Debug().
				Str("conversation_id", conversationID).
				Str("message_id", messageID).
				Str("status", string(status)).
				Msg("stale delivery transition dropped")
			return
		}

		s.metrics.TransitionApplied(string(status))
		if s.onTransition != nil {
			s.onTransition(conversationID, messageID, status)
		}
	}
}

// Cancel stops every pending timer of a conversation. Callbacks already
// running finish, later ones become no-ops.
func (s *Scheduler) Cancel(conversationID string) {
	s.mu.Lock()
	h := s.handles[conversationID]
	delete(s.handles, conversationID)
	s.mu.Unlock()

	if h != nil {
		h.cancel()
	}
}

// Pending returns the number of timers of a conversation that have neither
// fired nor been cancelled.
func (s *Scheduler) Pending(conversationID string) int {
	s.mu.Lock()
	h := s.handles[conversationID]
	s.mu.Unlock()
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.timers)
}

// Stop cancels every conversation and refuses new work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	handles := s.handles
	s.handles = make(map[string]*handle)
	s.stopped = true
	s.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	if len(handles) > 0 {
		s.log.Debug().Int("conversations", len(handles)).Msg("delivery timers cancelled")
	}
}

func (h *handle) cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = true
	for key, t := range h.timers {
		t.Stop()
		delete(h.timers, key)
	}
}
