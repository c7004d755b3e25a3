package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/logging"
)

// CleanupService closes sessions that have been idle too long.
// It runs as a background goroutine and periodically checks for stale sessions.
type CleanupService struct {
	sessions *SessionService
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	log      zerolog.Logger
}

// NewCleanupService creates a new cleanup service.
// - interval: how often to check for idle sessions (e.g., 1 minute)
// - timeout: how long a session can be idle before it is closed (e.g., 30 minutes)
func NewCleanupService(sessions *SessionService, c clock.Clock, interval, timeout time.Duration) *CleanupService {
	if c == nil {
		c = clock.Real()
	}
	return &CleanupService{
		sessions: sessions,
		clock:    c,
		interval: interval,
		timeout:  timeout,
		stopChan: make(chan struct{}),
		log:      logging.Component("cleanup"),
	}
}

// Start begins the background cleanup worker.
// This method runs in its own goroutine and should be called with 'go'.
func (s *CleanupService) Start() {
	s.log.Info().Dur("interval", s.interval).Dur("timeout", s.timeout).Msg("cleanup service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(context.Background())
		case <-s.stopChan:
			s.log.Info().Msg("cleanup service stopped")
			return
		}
	}
}

// Stop gracefully shuts down the cleanup service.
func (s *CleanupService) Stop() {
	close(s.stopChan)
}

// cleanup closes every session idle past the timeout. Closing saves the
// session and cancels its delivery timers as a unit.
func (s *CleanupService) cleanup(ctx context.Context) int {
	threshold := s.clock.Now().Add(-s.timeout)
	ids := s.sessions.InactiveSessions(threshold)
	if len(ids) == 0 {
		return 0
	}

	s.log.Info().Int("sessions", len(ids)).Msg("cleaning up idle sessions")

	closed := 0
	for _, id := range ids {
		if err := s.sessions.CloseSession(ctx, id); err != nil {
			s.log.Error().Err(err).Str("session_id", id).Msg("failed to close idle session")
			continue
		}
		closed++
	}
	return closed
}
