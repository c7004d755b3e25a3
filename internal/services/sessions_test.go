package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

type memoryRepo struct {
	mu      sync.Mutex
	convs   []models.Conversation
	saved   int
	loadErr error
	saveErr error
}

func (r *memoryRepo) LoadConversations(context.Context) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make([]models.Conversation, len(r.convs))
	for i := range r.convs {
		out[i] = r.convs[i].Clone()
	}
	return out, nil
}

func (r *memoryRepo) SaveConversations(_ context.Context, convs []models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.convs = convs
	r.saved++
	return nil
}

func TestSessionService_CreateAndClose(t *testing.T) {
	repo := &memoryRepo{convs: seed()}
	clk := clock.NewManual(start)
	svc := NewSessionService(repo, testOptions(clk), nil)

	sess, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	require.Len(t, sess.ID(), 8)
	require.Equal(t, 1, svc.Count())

	got, err := svc.GetSession(sess.ID())
	require.NoError(t, err)
	require.Same(t, sess, got)

	require.NoError(t, sess.SelectConversation("c1"))
	_, err = sess.Receive("c2", "saved on close", nil)
	require.NoError(t, err)

	require.NoError(t, svc.CloseSession(context.Background(), sess.ID()))
	require.Equal(t, 1, repo.saved)
	require.Equal(t, 0, repo.convs[0].Unread)
	require.Len(t, repo.convs[1].Messages, 1)

	_, err = svc.GetSession(sess.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, svc.CloseSession(context.Background(), sess.ID()), ErrSessionNotFound)
}

func TestSessionService_FailedSaveKeepsSession(t *testing.T) {
	repo := &memoryRepo{convs: seed(), saveErr: errors.New("disk full")}
	svc := NewSessionService(repo, testOptions(clock.NewManual(start)), nil)

	sess, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	_, err = sess.Receive("c2", "keep me", nil)
	require.NoError(t, err)

	require.Error(t, svc.CloseSession(context.Background(), sess.ID()))
	require.Equal(t, 1, svc.Count())

	repo.mu.Lock()
	repo.saveErr = nil
	repo.mu.Unlock()

	require.NoError(t, svc.CloseSession(context.Background(), sess.ID()))
	require.Zero(t, svc.Count())
	require.Equal(t, 1, repo.saved)
	require.Len(t, repo.convs[1].Messages, 1)
	require.Equal(t, "keep me", repo.convs[1].Messages[0].Text)
}

func TestSessionService_LoadFailure(t *testing.T) {
	repo := &memoryRepo{loadErr: errors.New("disk on fire")}
	svc := NewSessionService(repo, testOptions(clock.NewManual(start)), nil)

	_, err := svc.CreateSession(context.Background())
	require.Error(t, err)
	require.Zero(t, svc.Count())
}

func TestCleanupService_ClosesIdleSessions(t *testing.T) {
	repo := &memoryRepo{convs: seed()}
	clk := clock.NewManual(start)
	svc := NewSessionService(repo, testOptions(clk), nil)

	idle, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	clk.Advance(20 * time.Minute)
	busy, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	clk.Advance(15 * time.Minute)

	cleanup := NewCleanupService(svc, clk, time.Minute, 30*time.Minute)
	require.Equal(t, 1, cleanup.cleanup(context.Background()))

	_, err = svc.GetSession(idle.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.GetSession(busy.ID())
	require.NoError(t, err)
	require.NoError(t, svc.Shutdown(context.Background()))
	require.Zero(t, svc.Count())
}
