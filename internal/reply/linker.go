// Package reply captures reply snapshots and resolves jump targets.
package reply

import (
	"errors"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/thread"
)

// ErrUnknownMessage is returned when the referenced message is not (or no
// longer) part of the conversation.
var ErrUnknownMessage = errors.New("unknown message")

// SelfName is the author shown when quoting a locally sent message.
const SelfName = "You"

const ellipsis = "…"

// Linker builds reply snapshots and resolves them back to thread positions.
type Linker struct {
	snippetWidth int
	peerName     string
}

// NewLinker creates a Linker. peerName is the author of received messages.
// A non-positive width disables truncation.
func NewLinker(snippetWidth int, peerName string) *Linker {
	return &Linker{snippetWidth: snippetWidth, peerName: peerName}
}

// BeginReply copies what the reply preview needs out of the target message.
// The snapshot is independent of the store: later changes to the original
// don't reach it.
func (l *Linker) BeginReply(messages []models.Message, messageID string) (*models.ReplyContext, error) {
	for _, msg := range messages {
		if msg.ID != messageID {
			continue
		}
		return l.Snapshot(msg), nil
	}
	return nil, ErrUnknownMessage
}

// Snapshot builds the reply context of a single message.
func (l *Linker) Snapshot(msg models.Message) *models.ReplyContext {
	rc := &models.ReplyContext{
		MessageID: msg.ID,
		Username:  l.peerName,
		Content:   l.Truncate(msg.Text),
	}
	if msg.Direction == models.DirectionSent {
		rc.Username = SelfName
	}
	if len(msg.Attachments) > 0 {
		first := msg.Attachments[0]
		rc.AttachmentKind = first.Kind
		if first.IsImage() {
			rc.ThumbnailURL = first.URL
		}
	}
	return rc
}

// ResolveJump locates the replied-to message in the current plan.
func (l *Linker) ResolveJump(plan thread.Plan, messageID string) (thread.Position, error) {
	pos, ok := plan.Locate(messageID)
	if !ok {
		return thread.Position{}, ErrUnknownMessage
	}
	return pos, nil
}

// Truncate collapses whitespace and cuts text to the snippet width in
// display cells.
func (l *Linker) Truncate(text string) string {
	return Truncate(text, l.snippetWidth)
}

// Truncate collapses runs of whitespace and cuts text to width display cells.
func Truncate(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width <= 0 {
		return text
	}
	return runewidth.Truncate(text, width, ellipsis)
}
