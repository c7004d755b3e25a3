// Package conversations keeps the ordered conversation list and the active
// selection.
package conversations

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adi-253/Talkie/chatcore/internal/metrics"
	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/reply"
	"github.com/adi-253/Talkie/chatcore/internal/store"
)

// ErrNotFound is returned for unknown conversation ids.
var ErrNotFound = errors.New("conversation not found")

// Preview is one row of the conversation list.
type Preview struct {
	ConversationID string    `json:"conversation_id"`
	Name           string    `json:"name"`
	Avatar         string    `json:"avatar,omitempty"`
	Snippet        string    `json:"snippet"`
	Time           string    `json:"time,omitempty"`
	LastAt         time.Time `json:"last_at,omitempty"`
	Unread         int       `json:"unread"`
	Active         bool      `json:"active"`
}

// Options configures a List.
type Options struct {
	SnippetWidth int
	Location     *time.Location
	Metrics      *metrics.Metrics
}

// List owns one store per conversation, in the order they were loaded.
type List struct {
	snippetWidth int
	loc          *time.Location
	metrics      *metrics.Metrics

	mu     sync.RWMutex
	order  []string
	stores map[string]*store.Conversation
	active string
}

// New creates an empty List.
func New(opts Options) *List {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &List{
		snippetWidth: opts.SnippetWidth,
		loc:          opts.Location,
		metrics:      opts.Metrics,
		stores:       make(map[string]*store.Conversation),
	}
}

// Load replaces the list with convs, keeping their order. Duplicate and
// blank ids are skipped. The active selection is cleared.
func (l *List) Load(convs []models.Conversation) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.order = l.order[:0]
	l.stores = make(map[string]*store.Conversation, len(convs))
	l.active = ""
	for _, conv := range convs {
		if conv.ID == "" {
			continue
		}
		if _, dup := l.stores[conv.ID]; dup {
			continue
		}
		l.order = append(l.order, conv.ID)
		l.stores[conv.ID] = store.New(conv, l.metrics)
	}
	return len(l.order)
}

// Select makes id the active conversation and resets its unread counter to
// zero. It returns the store and the previously active id.
func (l *List) Select(id string) (*store.Conversation, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	conv, ok := l.stores[id]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := l.active
	l.active = id
	conv.ResetUnread()
	return conv, prev, nil
}

// Active returns the active conversation, or nil when none is selected.
func (l *List) Active() *store.Conversation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.active == "" {
		return nil
	}
	return l.stores[l.active]
}

// ActiveID returns the id of the active conversation.
func (l *List) ActiveID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Get returns the store of one conversation.
func (l *List) Get(id string) (*store.Conversation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	conv, ok := l.stores[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return conv, nil
}

// All returns every store in list order.
func (l *List) All() []*store.Conversation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*store.Conversation, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.stores[id])
	}
	return out
}

// Len returns the number of conversations.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Previews renders the list rows from the current store contents.
func (l *List) Previews() []Preview {
	l.mu.RLock()
	active := l.active
	stores := make([]*store.Conversation, 0, len(l.order))
	for _, id := range l.order {
		stores = append(stores, l.stores[id])
	}
	l.mu.RUnlock()

	out := make([]Preview, 0, len(stores))
	for _, conv := range stores {
		p := l.preview(conv)
		p.Active = conv.ID() == active
		out = append(out, p)
	}
	return out
}

func (l *List) preview(conv *store.Conversation) Preview {
	participant := conv.Participant()
	p := Preview{
		ConversationID: conv.ID(),
		Name:           participant.Name,
		Avatar:         participant.Avatar,
		Unread:         conv.Unread(),
	}
	last, ok := conv.Last()
	if !ok {
		return p
	}
	p.Snippet = Snippet(last, l.snippetWidth)
	p.LastAt = last.CreatedAt
	p.Time = last.CreatedAt.In(l.loc).Format("15:04")
	return p
}

// Snippet is the list preview text of a message: its text, or a count of
// attachments when it has none.
func Snippet(msg models.Message, width int) string {
	if text := reply.Truncate(msg.Text, width); text != "" {
		return text
	}
	switch n := len(msg.Attachments); n {
	case 0:
		return ""
	case 1:
		return "Attachment"
	default:
		return fmt.Sprintf("%d attachments", n)
	}
}
