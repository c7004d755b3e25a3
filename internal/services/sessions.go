package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

// ErrSessionNotFound is returned for unknown or already closed session ids.
var ErrSessionNotFound = errors.New("session not found")

// Repository is where conversations come from and go back to.
type Repository interface {
	LoadConversations(ctx context.Context) ([]models.Conversation, error)
	SaveConversations(ctx context.Context, convs []models.Conversation) error
}

// SessionService handles the lifecycle of sessions.
// It acts as an intermediary between HTTP handlers and the repository.
type SessionService struct {
	repo     Repository
	opts     Options
	notifier Notifier
	log      zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(repo Repository, opts Options, notifier Notifier) *SessionService {
	return &SessionService{
		repo:     repo,
		opts:     opts,
		notifier: notifier,
		log:      logging.Component("sessions"),
		sessions: make(map[string]*Session),
	}
}

// CreateSession opens a session with a short, URL-friendly id and loads the
// conversations from the repository into it.
func (s *SessionService) CreateSession(ctx context.Context) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	convs, err := s.repo.LoadConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	sess := NewSession(sessionID, s.opts, s.notifier)
	if _, err := sess.LoadConversations(convs); err != nil {
		sess.Close()
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	s.log.Info().Str("session_id", sessionID).Int("conversations", len(convs)).Msg("session created")
	return sess, nil
}

// GetSession returns an open session.
func (s *SessionService) GetSession(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// CloseSession stops the session's timers and saves its conversations. The
// session stays registered until the save succeeds, so a failed close can
// be retried.
func (s *SessionService) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sess.Close()
	if err := s.repo.SaveConversations(ctx, sess.Export()); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("save failed, keeping session")
		return fmt.Errorf("failed to save conversations: %w", err)
	}

	s.mu.Lock()
	if s.sessions[sessionID] == sess {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	return nil
}

// InactiveSessions lists sessions unused since threshold.
func (s *SessionService) InactiveSessions(threshold time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, sess := range s.sessions {
		if sess.LastActive().Before(threshold) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of open sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every session, saving each one.
func (s *SessionService) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := s.CloseSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// generateSessionID creates a short, URL-friendly session identifier.
// Uses cryptographically secure random bytes encoded as hex.
func generateSessionID() (string, error) {
	bytes := make([]byte, 4) // 4 bytes = 8 hex characters
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
