package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "talkie.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 9, 8, 0, 0, 123, time.UTC)

	convs := []models.Conversation{
		{
			ID:          "c2",
			Participant: models.Participant{ID: "p2", Name: "Linus", Avatar: "linus.png"},
			Unread:      1,
			Messages: []models.Message{
				{ID: "m2", Direction: models.DirectionReceived, Text: "second", CreatedAt: at.Add(time.Minute)},
				{
					ID: "m1", Direction: models.DirectionSent, CreatedAt: at, Status: models.StatusDelivered,
					Attachments: []models.Attachment{{ID: "a1", Kind: models.KindImage, Name: "x.png", Size: 3, MIMEType: "image/png", URL: "data:image/png;base64,AAAA"}},
					ReplyTo:     &models.ReplyContext{MessageID: "m0", Username: "Linus", Content: "hey"},
				},
			},
		},
		{ID: "c1", Participant: models.Participant{ID: "p1", Name: "Ada"}},
	}
	require.NoError(t, s.SaveConversations(ctx, convs))

	loaded, err := s.LoadConversations(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "c2", loaded[0].ID)
	require.Equal(t, "linus.png", loaded[0].Participant.Avatar)
	require.Equal(t, []string{"m2", "m1"}, []string{loaded[0].Messages[0].ID, loaded[0].Messages[1].ID})

	m1 := loaded[0].Messages[1]
	require.True(t, at.Equal(m1.CreatedAt))
	require.Equal(t, models.StatusDelivered, m1.Status)
	require.Equal(t, convs[0].Messages[1].Attachments, m1.Attachments)
	require.Equal(t, "hey", m1.ReplyTo.Content)
	require.Nil(t, loaded[0].Messages[0].ReplyTo)
	require.Empty(t, loaded[1].Messages)
}

func TestStore_SaveReplacesPrunedMessages(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

	conv := models.Conversation{
		ID:          "c1",
		Participant: models.Participant{ID: "p1", Name: "Ada"},
		Messages: []models.Message{
			{ID: "m1", Direction: models.DirectionReceived, Text: "a", CreatedAt: at},
			{ID: "m2", Direction: models.DirectionReceived, Text: "b", CreatedAt: at},
		},
	}
	require.NoError(t, s.SaveConversations(ctx, []models.Conversation{conv}))

	conv.Messages = conv.Messages[1:]
	conv.Unread = 4
	require.NoError(t, s.SaveConversations(ctx, []models.Conversation{conv}))

	loaded, err := s.LoadConversations(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, 4, loaded[0].Unread)
	require.Len(t, loaded[0].Messages, 1)
	require.Equal(t, "m2", loaded[0].Messages[0].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
