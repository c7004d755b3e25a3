package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

// Hub maintains the set of active clients and pushes session events to them.
// It handles client registration, unregistration, and broadcasting per session.
type Hub struct {
	// sessions maps sessionID to a set of clients watching that session
	sessions map[string]map[*Client]bool

	// register requests from clients
	register chan *Client

	// unregister requests from clients
	unregister chan *Client

	// broadcast sends an encoded event to all clients of a session
	broadcast chan *BroadcastMessage

	// done is closed by Stop
	done chan struct{}
	stop sync.Once

	// mutex for thread-safe session operations
	mu sync.RWMutex

	log zerolog.Logger
}

// BroadcastMessage contains an encoded event for a specific session
type BroadcastMessage struct {
	SessionID string
	Message   []byte
}

// WebSocketMessage is the expected format of messages from clients
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DraftPayload is the payload for the draft type
type DraftPayload struct {
	Text string `json:"text"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 64),
		done:       make(chan struct{}),
		log:        logging.Component("websocket"),
	}
}

// Run starts the hub's main event loop
// This should be called in a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToSession(msg)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends the event loop and disconnects every client.
func (h *Hub) Stop() {
	h.stop.Do(func() { close(h.done) })
}

// Publish encodes event and queues it for the clients of sessionID.
// It never blocks once the hub has stopped.
func (h *Hub) Publish(sessionID string, event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(event.Type)).Msg("failed to encode event")
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{SessionID: sessionID, Message: data}:
	case <-h.done:
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Create the session's client set if it doesn't exist
	if h.sessions[client.SessionID] == nil {
		h.sessions[client.SessionID] = make(map[*Client]bool)
	}

	h.sessions[client.SessionID][client] = true
	h.log.Debug().
		Str("session_id", client.SessionID).
		Int("total", len(h.sessions[client.SessionID])).
		Msg("client joined")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.SessionID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)

	h.log.Debug().
		Str("session_id", client.SessionID).
		Int("remaining", len(clients)).
		Msg("client left")

	// Clean up empty sessions
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}
}

// broadcastToSession sends a message to all clients of a session
func (h *Hub) broadcastToSession(msg *BroadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sessions[msg.SessionID]))
	for client := range h.sessions[msg.SessionID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msg.Message:
		default:
			// Client's buffer is full, remove them
			h.log.Warn().Str("session_id", msg.SessionID).Msg("client too slow, dropping")
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.sessions {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// ClientCount returns the number of connected clients of a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
