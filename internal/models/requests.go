package models

// CreateSessionResponse is the response after opening a session
type CreateSessionResponse struct {
	SessionID     string `json:"session_id"`
	Conversations int    `json:"conversations"`
}

// DraftRequest is the request body for draft updates
type DraftRequest struct {
	Text string `json:"text"`
}

// ReplyRequest is the request body for starting a reply
type ReplyRequest struct {
	MessageID string `json:"message_id"`
}

// JumpRequest asks to scroll to a replied-to message.
// Offset is the client's current scroll position, restored by jump-back.
type JumpRequest struct {
	MessageID string `json:"message_id"`
	Offset    int    `json:"offset"`
}

// JumpBackResponse carries the offset to restore
type JumpBackResponse struct {
	Offset int `json:"offset"`
}

// IncomingMessageRequest simulates a message from the peer
type IncomingMessageRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is the JSON body for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}
