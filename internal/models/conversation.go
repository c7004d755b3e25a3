package models

// Participant is the peer on the other side of a conversation.
type Participant struct {
	// ID is the unique identifier of the peer
	ID string `json:"id"`

	// Name is the display name shown in the conversation list and reply quotes
	Name string `json:"name"`

	// Avatar is an optional avatar identifier/URL
	Avatar string `json:"avatar,omitempty"`
}

// Conversation is the load/export shape handed between the engine and its host.
// Messages are in insertion order; display order is always derived from CreatedAt.
type Conversation struct {
	ID          string      `json:"id"`
	Participant Participant `json:"participant"`
	Messages    []Message   `json:"messages"`
	Unread      int         `json:"unread"`
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i := range c.Messages {
		out.Messages[i] = c.Messages[i].Clone()
	}
	return out
}
