package models

// EventType names the kind of state change pushed to connected clients.
type EventType string

const (
	EventMessage    EventType = "message"
	EventStatus     EventType = "status"
	EventTyping     EventType = "typing"
	EventUnread     EventType = "unread"
	EventNavigation EventType = "navigation"
)

// Event is pushed over the websocket whenever session state changes outside a request.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Payload        any       `json:"payload,omitempty"`
}

// StatusPayload accompanies EventStatus
type StatusPayload struct {
	MessageID string         `json:"message_id"`
	Status    DeliveryStatus `json:"status"`
}

// TypingPayload accompanies EventTyping
type TypingPayload struct {
	Typing bool `json:"typing"`
}

// UnreadPayload accompanies EventUnread
type UnreadPayload struct {
	Unread int `json:"unread"`
}
