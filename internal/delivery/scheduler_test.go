package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/store"
)

var start = time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

type transition struct {
	conversationID string
	messageID      string
	status         models.DeliveryStatus
}

func setup(t *testing.T) (*clock.Manual, *Scheduler, *store.Conversation, *[]transition) {
	t.Helper()
	clk := clock.NewManual(start)
	var seen []transition
	s := New(Options{
		Clock:          clk,
		DeliveredDelay: time.Second,
		ReadDelay:      3 * time.Second,
		OnTransition: func(conversationID, messageID string, status models.DeliveryStatus) {
			seen = append(seen, transition{conversationID, messageID, status})
		},
	})
	conv := store.New(models.Conversation{ID: "c1"}, nil)
	return clk, s, conv, &seen
}

func status(t *testing.T, conv *store.Conversation, id string) models.DeliveryStatus {
	t.Helper()
	msg, ok := conv.Get(id)
	require.True(t, ok)
	return msg.Status
}

func TestScheduler_AdvancesSentDeliveredRead(t *testing.T) {
	clk, s, conv, seen := setup(t)
	conv.Append(models.Message{ID: "m1", Direction: models.DirectionSent, CreatedAt: start})
	s.Track("c1", conv, "m1")
	require.Equal(t, 2, s.Pending("c1"))

	clk.Advance(999 * time.Millisecond)
	require.Equal(t, models.StatusSent, status(t, conv, "m1"))

	clk.Advance(time.Millisecond)
	require.Equal(t, models.StatusDelivered, status(t, conv, "m1"))

	clk.Advance(2 * time.Second)
	require.Equal(t, models.StatusRead, status(t, conv, "m1"))
	require.Zero(t, s.Pending("c1"))

	require.Equal(t, []transition{
		{"c1", "m1", models.StatusDelivered},
		{"c1", "m1", models.StatusRead},
	}, *seen)
}

func TestScheduler_ReverseFiringNeverRegresses(t *testing.T) {
	clk := clock.NewManual(start)
	// Misconfigured delays make "read" fire before "delivered".
	s := New(Options{Clock: clk, DeliveredDelay: 3 * time.Second, ReadDelay: time.Second})
	conv := store.New(models.Conversation{ID: "c1"}, nil)
	conv.Append(models.Message{ID: "m1", Direction: models.DirectionSent, CreatedAt: start})
	s.Track("c1", conv, "m1")

	clk.Advance(time.Second)
	require.Equal(t, models.StatusSent, status(t, conv, "m1"))

	clk.Advance(2 * time.Second)
	require.Equal(t, models.StatusDelivered, status(t, conv, "m1"))

	// Once read has been applied, a late delivered can't pull it back.
	require.True(t, conv.UpdateStatus("m1", models.StatusRead))
	require.False(t, conv.UpdateStatus("m1", models.StatusDelivered))
	require.Equal(t, models.StatusRead, status(t, conv, "m1"))
}

func TestScheduler_CancelStopsConversationTimers(t *testing.T) {
	clk, s, conv, seen := setup(t)
	other := store.New(models.Conversation{ID: "c2"}, nil)
	conv.Append(models.Message{ID: "m1", Direction: models.DirectionSent, CreatedAt: start})
	other.Append(models.Message{ID: "m2", Direction: models.DirectionSent, CreatedAt: start})
	s.Track("c1", conv, "m1")
	s.Track("c2", other, "m2")

	s.Cancel("c1")
	require.Zero(t, s.Pending("c1"))

	clk.Advance(5 * time.Second)
	require.Equal(t, models.StatusSent, status(t, conv, "m1"))
	m2, _ := other.Get("m2")
	require.Equal(t, models.StatusRead, m2.Status)
	require.Len(t, *seen, 2)
}

func TestScheduler_DropsTransitionForRemovedMessage(t *testing.T) {
	clk, s, conv, seen := setup(t)
	conv.Append(models.Message{ID: "m1", Direction: models.DirectionSent, CreatedAt: start})
	s.Track("c1", conv, "m1")
	conv.Remove("m1")

	require.NotPanics(t, func() { clk.Advance(5 * time.Second) })
	require.Empty(t, *seen)
}

func TestScheduler_StopRefusesNewWork(t *testing.T) {
	clk, s, conv, seen := setup(t)
	conv.Append(models.Message{ID: "m1", Direction: models.DirectionSent, CreatedAt: start})
	s.Track("c1", conv, "m1")
	s.Stop()
	s.Track("c1", conv, "m1")

	clk.Advance(10 * time.Second)
	require.Zero(t, clk.Pending())
	require.Empty(t, *seen)
	require.Equal(t, models.StatusSent, status(t, conv, "m1"))
}
