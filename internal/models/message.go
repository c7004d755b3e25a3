package models

import (
	"errors"
	"time"
)

// ErrInvalidMessage is returned for messages with neither text nor attachments.
var ErrInvalidMessage = errors.New("invalid message")

// Direction tells whether a message was authored locally or by the peer.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// DeliveryStatus is the simulated delivery state of a sent message.
// Received messages carry no status.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// Rank orders statuses along the delivery lifecycle. Unknown values rank 0.
func (s DeliveryStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Next returns the status that follows s, or "" when s is terminal or unknown.
func (s DeliveryStatus) Next() DeliveryStatus {
	switch s {
	case StatusSent:
		return StatusDelivered
	case StatusDelivered:
		return StatusRead
	default:
		return ""
	}
}

// Message is a single entry in a conversation.
type Message struct {
	// ID is the unique identifier for this message
	ID string `json:"id"`

	// ConversationID is the conversation this message belongs to
	ConversationID string `json:"conversation_id"`

	// Direction is "sent" for local messages and "received" for peer messages
	Direction Direction `json:"direction"`

	// Text is the optional body
	Text string `json:"text,omitempty"`

	// Attachments are kept in the order the user picked them
	Attachments []Attachment `json:"attachments,omitempty"`

	// CreatedAt is the authoritative ordering key. Display strings are derived from it.
	CreatedAt time.Time `json:"created_at"`

	// Status is only meaningful for sent messages
	Status DeliveryStatus `json:"status,omitempty"`

	// ReplyTo is a copy of the replied-to message taken when the reply was composed
	ReplyTo *ReplyContext `json:"reply_to,omitempty"`
}

// ReplyContext holds information about a message being replied to.
// It is a snapshot, not a pointer: pruning or changing the original leaves it untouched.
type ReplyContext struct {
	MessageID      string         `json:"message_id"`
	Username       string         `json:"username"`
	Content        string         `json:"content"` // Truncated content for preview
	ThumbnailURL   string         `json:"thumbnail_url,omitempty"`
	AttachmentKind AttachmentKind `json:"attachment_kind,omitempty"`
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (m Message) Clone() Message {
	out := m
	if m.Attachments != nil {
		out.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	if m.ReplyTo != nil {
		rc := *m.ReplyTo
		out.ReplyTo = &rc
	}
	return out
}

// HasContent reports whether the message has a body or at least one attachment.
func (m Message) HasContent() bool {
	return m.Text != "" || len(m.Attachments) > 0
}
