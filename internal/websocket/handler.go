package websocket

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/adi-253/Talkie/chatcore/internal/services"
)

// upgrader upgrades HTTP connections to WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow connections from any origin (CORS handled by middleware)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	sessions *services.SessionService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, sessions *services.SessionService) *Handler {
	return &Handler{hub: hub, sessions: sessions}
}

// ServeWS handles WebSocket upgrade requests at /ws/sessions/{sid}
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sid")
	sess, err := h.sessions.GetSession(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	h.hub.log.Info().Str("session_id", sessionID).Msg("new connection")

	// Create client and register with hub
	client := NewClient(h.hub, conn, sessionID, sess.OnDraftTextChange)
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	// Start read/write pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump()
}
