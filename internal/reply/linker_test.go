package reply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/store"
	"github.com/adi-253/Talkie/chatcore/internal/thread"
)

var start = time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

func TestBeginReply_SnapshotSurvivesOriginalChanges(t *testing.T) {
	conv := store.New(models.Conversation{ID: "c1", Participant: models.Participant{Name: "Ada"}}, nil)
	conv.Append(models.Message{ID: "orig", Direction: models.DirectionReceived, Text: "see you at noon", CreatedAt: start})

	l := NewLinker(40, "Ada")
	rc, err := l.BeginReply(conv.All(), "orig")
	require.NoError(t, err)
	require.Equal(t, &models.ReplyContext{MessageID: "orig", Username: "Ada", Content: "see you at noon"}, rc)

	conv.Append(models.Message{
		ID: "reply", Direction: models.DirectionSent, Text: "ok", CreatedAt: start.Add(time.Minute), ReplyTo: rc,
	})

	// Re-delivery with new text, then pruning: the quote keeps the original.
	conv.Append(models.Message{ID: "orig", Direction: models.DirectionReceived, Text: "changed", CreatedAt: start})
	require.True(t, conv.Remove("orig"))

	stored, ok := conv.Get("reply")
	require.True(t, ok)
	require.Equal(t, "see you at noon", stored.ReplyTo.Content)
	require.Equal(t, "Ada", stored.ReplyTo.Username)

	// Mutating the returned copy doesn't reach the store either.
	stored.ReplyTo.Content = "tampered"
	again, _ := conv.Get("reply")
	require.Equal(t, "see you at noon", again.ReplyTo.Content)
}

func TestBeginReply_UnknownMessage(t *testing.T) {
	_, err := NewLinker(40, "Ada").BeginReply(nil, "nope")
	require.ErrorIs(t, err, ErrUnknownMessage)
}

func TestSnapshot_AttachmentsAndAuthor(t *testing.T) {
	l := NewLinker(10, "Ada")

	img := l.Snapshot(models.Message{
		ID:        "m1",
		Direction: models.DirectionSent,
		Attachments: []models.Attachment{
			{Kind: models.KindImage, URL: "data:image/png;base64,AA=="},
			{Kind: models.KindFile, URL: "data:application/pdf;base64,AA=="},
		},
	})
	require.Equal(t, SelfName, img.Username)
	require.Equal(t, models.KindImage, img.AttachmentKind)
	require.Equal(t, "data:image/png;base64,AA==", img.ThumbnailURL)

	doc := l.Snapshot(models.Message{
		ID:          "m2",
		Direction:   models.DirectionReceived,
		Text:        "the quarterly report is attached",
		Attachments: []models.Attachment{{Kind: models.KindFile, URL: "data:application/pdf;base64,AA=="}},
	})
	require.Equal(t, "Ada", doc.Username)
	require.Equal(t, models.KindFile, doc.AttachmentKind)
	require.Empty(t, doc.ThumbnailURL)
	require.Equal(t, "the quart…", doc.Content)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello world", Truncate("  hello\n\tworld ", 40))
	require.Equal(t, "hello world", Truncate("hello world", 0))
	// Wide runes count two cells each.
	require.Equal(t, "日本…", Truncate("日本語のテキスト", 6))
}

func TestResolveJump(t *testing.T) {
	a := thread.NewAssembler(time.UTC, clock.NewManual(start))
	plan := a.Assemble([]models.Message{
		{ID: "a", CreatedAt: start},
		{ID: "b", CreatedAt: start.Add(time.Minute)},
	})
	l := NewLinker(40, "Ada")

	pos, err := l.ResolveJump(plan, "b")
	require.NoError(t, err)
	require.Equal(t, 2, pos.Row)

	_, err = l.ResolveJump(plan, "gone")
	require.ErrorIs(t, err, ErrUnknownMessage)
}
