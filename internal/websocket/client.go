package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16 * 1024
)

// DraftFunc applies a draft update received from the client.
type DraftFunc func(text string) error

// Client represents a single WebSocket connection watching one session
type Client struct {
	hub *Hub

	// WebSocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Session this client belongs to
	SessionID string

	onDraft DraftFunc
}

// NewClient creates a new Client instance
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, onDraft DraftFunc) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		SessionID: sessionID,
		onDraft:   onDraft,
	}
}

// ReadPump pumps messages from the WebSocket connection into the session
// This runs in its own goroutine per client
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("session_id", c.SessionID).Msg("read error")
			}
			break
		}
		c.handle(message)
	}
}

// handle applies one inbound frame. Unknown types are ignored.
func (c *Client) handle(message []byte) {
	var wsMsg WebSocketMessage
	if err := json.Unmarshal(message, &wsMsg); err != nil {
		c.hub.log.Debug().Err(err).Str("session_id", c.SessionID).Msg("failed to parse client message")
		return
	}

	switch wsMsg.Type {
	case "draft":
		var payload DraftPayload
		if err := json.Unmarshal(wsMsg.Payload, &payload); err != nil {
			c.hub.log.Debug().Err(err).Msg("failed to parse draft payload")
			return
		}
		if c.onDraft == nil {
			return
		}
		if err := c.onDraft(payload.Text); err != nil {
			c.hub.log.Debug().Err(err).Str("session_id", c.SessionID).Msg("draft rejected")
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
// This runs in its own goroutine per client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Send each message as a separate WebSocket frame
			// (concatenating with newlines would break JSON parsing on the frontend)
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Send any queued messages as separate frames
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
