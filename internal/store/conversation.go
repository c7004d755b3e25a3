// Package store holds the message store owned by a single conversation.
package store

import (
	"sync"
	"time"

	"github.com/adi-253/Talkie/chatcore/internal/metrics"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

// Conversation owns the messages of one conversation.
// Every mutation bumps the version and is visible to the next read.
type Conversation struct {
	mu sync.RWMutex

	id          string
	participant models.Participant
	messages    []models.Message
	index       map[string]int
	unread      int
	version     uint64
	metrics     *metrics.Metrics

	// lastLocal is the newest CreatedAt of a locally sent message
	lastLocal time.Time
}

// New creates a store seeded from a loaded conversation. The input is copied.
func New(conv models.Conversation, m *metrics.Metrics) *Conversation {
	c := &Conversation{
		id:          conv.ID,
		participant: conv.Participant,
		messages:    make([]models.Message, 0, len(conv.Messages)),
		index:       make(map[string]int, len(conv.Messages)),
		unread:      conv.Unread,
		metrics:     m,
	}
	if c.unread < 0 {
		c.unread = 0
	}
	for _, msg := range conv.Messages {
		if msg.ID == "" {
			continue
		}
		if _, dup := c.index[msg.ID]; dup {
			continue
		}
		msg = msg.Clone()
		msg.ConversationID = c.id
		normalize(&msg)
		c.index[msg.ID] = len(c.messages)
		c.messages = append(c.messages, msg)
		c.trackLocal(msg)
	}
	return c
}

// ID returns the conversation id.
func (c *Conversation) ID() string {
	return c.id
}

// Participant returns the peer of this conversation.
func (c *Conversation) Participant() models.Participant {
	return c.participant
}

// Append adds a message and returns the new store version.
//
// Sent messages start at StatusSent, reset unread, and never carry a
// CreatedAt older than the previous local message. Received messages
// increment unread and carry no status.
//
// A known id replaces the stored content in place but keeps its direction,
// CreatedAt and the further of the two statuses; unread is left alone.
func (c *Conversation) Append(msg models.Message) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg = msg.Clone()
	msg.ConversationID = c.id

	if i, exists := c.index[msg.ID]; exists {
		stored := c.messages[i]
		msg.Direction = stored.Direction
		normalize(&msg)
		msg.CreatedAt = stored.CreatedAt
		if stored.Status.Rank() > msg.Status.Rank() {
			msg.Status = stored.Status
		}
		c.messages[i] = msg
		c.version++
		return c.version
	}

	normalize(&msg)
	if msg.Direction == models.DirectionSent {
		if msg.CreatedAt.Before(c.lastLocal) {
			msg.CreatedAt = c.lastLocal
		}
		c.unread = 0
	} else {
		c.unread++
	}

	c.index[msg.ID] = len(c.messages)
	c.messages = append(c.messages, msg)
	c.trackLocal(msg)
	c.version++
	c.metrics.MessageAppended(string(msg.Direction))
	return c.version
}

// UpdateStatus moves a sent message one step along sent → delivered → read.
// It returns false and changes nothing for unknown ids, received messages,
// repeated, skipped or backwards transitions.
func (c *Conversation) UpdateStatus(messageID string, status models.DeliveryStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[messageID]
	if !ok {
		return false
	}
	msg := &c.messages[i]
	if msg.Direction != models.DirectionSent {
		return false
	}
	if msg.Status.Next() != status || status == "" {
		return false
	}
	msg.Status = status
	c.version++
	return true
}

// Remove prunes a message. Replies that quoted it keep their snapshot.
func (c *Conversation) Remove(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[messageID]
	if !ok {
		return false
	}
	c.messages = append(c.messages[:i], c.messages[i+1:]...)
	delete(c.index, messageID)
	for j := i; j < len(c.messages); j++ {
		c.index[c.messages[j].ID] = j
	}
	c.version++
	return true
}

// Get returns a copy of one message.
func (c *Conversation) Get(messageID string) (models.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[messageID]
	if !ok {
		return models.Message{}, false
	}
	return c.messages[i].Clone(), true
}

// All returns a copy of every message in insertion order.
func (c *Conversation) All() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Message, len(c.messages))
	for i := range c.messages {
		out[i] = c.messages[i].Clone()
	}
	return out
}

// Last returns the message with the newest CreatedAt. Ties go to the later insertion.
func (c *Conversation) Last() (models.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return models.Message{}, false
	}
	best := 0
	for i := 1; i < len(c.messages); i++ {
		if !c.messages[i].CreatedAt.Before(c.messages[best].CreatedAt) {
			best = i
		}
	}
	return c.messages[best].Clone(), true
}

// Len returns the number of stored messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Unread returns the unread counter.
func (c *Conversation) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread
}

// ResetUnread sets the unread counter to zero and reports whether it changed.
func (c *Conversation) ResetUnread() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unread == 0 {
		return false
	}
	c.unread = 0
	c.version++
	return true
}

// Version returns the current store version.
func (c *Conversation) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot exports the conversation in its load shape.
func (c *Conversation) Snapshot() models.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conv := models.Conversation{
		ID:          c.id,
		Participant: c.participant,
		Messages:    make([]models.Message, len(c.messages)),
		Unread:      c.unread,
	}
	for i := range c.messages {
		conv.Messages[i] = c.messages[i].Clone()
	}
	return conv
}

// normalize gives sent messages a lifecycle status and strips it from
// everything else, which is treated as received.
func normalize(msg *models.Message) {
	if msg.Direction == models.DirectionSent {
		if msg.Status.Rank() == 0 {
			msg.Status = models.StatusSent
		}
		return
	}
	msg.Direction = models.DirectionReceived
	msg.Status = ""
}

func (c *Conversation) trackLocal(msg models.Message) {
	if msg.Direction != models.DirectionSent {
		return
	}
	if msg.CreatedAt.After(c.lastLocal) {
		c.lastLocal = msg.CreatedAt
	}
}
