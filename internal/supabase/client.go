package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adi-253/Talkie/chatcore/internal/config"
	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

// Client is a wrapper around the Supabase REST API.
// It uses the service role key for backend operations with elevated privileges.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Supabase client with the given configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.SupabaseURL, "/"),
		apiKey:  cfg.SupabaseKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: logging.Component("supabase"),
	}
}

// conversationRow is the shape of the conversations table.
type conversationRow struct {
	ID                string `json:"id"`
	Position          int    `json:"position"`
	ParticipantID     string `json:"participant_id"`
	ParticipantName   string `json:"participant_name"`
	ParticipantAvatar string `json:"participant_avatar"`
	Unread            int    `json:"unread"`
}

// messageRow is the shape of the messages table. Attachments and the reply
// snapshot live in jsonb columns.
type messageRow struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversation_id"`
	Position       int                  `json:"position"`
	Direction      models.Direction     `json:"direction"`
	Text           string               `json:"text"`
	Attachments    []models.Attachment  `json:"attachments"`
	Status         string               `json:"status"`
	ReplyTo        *models.ReplyContext `json:"reply_to"`
	CreatedAt      time.Time            `json:"created_at"`
}

// doRequest executes an HTTP request to the Supabase REST API.
// It automatically adds authentication headers and handles the response.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, prefer string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add Supabase authentication headers
	c.authorize(req)
	if prefer == "" {
		prefer = "return=representation"
	}
	req.Header.Set("Prefer", prefer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("supabase error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")
}

// LoadConversations retrieves every conversation with its messages.
func (c *Client) LoadConversations(ctx context.Context) ([]models.Conversation, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "conversations?select=*&order=position.asc", nil, "")
	if err != nil {
		return nil, err
	}
	var convRows []conversationRow
	if err := json.Unmarshal(respBody, &convRows); err != nil {
		return nil, fmt.Errorf("failed to parse conversations: %w", err)
	}

	respBody, err = c.doRequest(ctx, http.MethodGet, "messages?select=*&order=conversation_id.asc,position.asc", nil, "")
	if err != nil {
		return nil, err
	}
	var msgRows []messageRow
	if err := json.Unmarshal(respBody, &msgRows); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}

	convs := make([]models.Conversation, len(convRows))
	index := make(map[string]int, len(convRows))
	for i, row := range convRows {
		convs[i] = models.Conversation{
			ID: row.ID,
			Participant: models.Participant{
				ID:     row.ParticipantID,
				Name:   row.ParticipantName,
				Avatar: row.ParticipantAvatar,
			},
			Messages: []models.Message{},
			Unread:   row.Unread,
		}
		index[row.ID] = i
	}
	for _, row := range msgRows {
		i, ok := index[row.ConversationID]
		if !ok {
			continue
		}
		convs[i].Messages = append(convs[i].Messages, models.Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			Direction:      row.Direction,
			Text:           row.Text,
			Attachments:    row.Attachments,
			CreatedAt:      row.CreatedAt.UTC(),
			Status:         models.DeliveryStatus(row.Status),
			ReplyTo:        row.ReplyTo,
		})
	}
	return convs, nil
}

// SaveConversations upserts the conversations and replaces their messages.
func (c *Client) SaveConversations(ctx context.Context, convs []models.Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	convRows := make([]conversationRow, 0, len(convs))
	var msgRows []messageRow
	ids := make([]string, 0, len(convs))
	for pos, conv := range convs {
		convRows = append(convRows, conversationRow{
			ID:                conv.ID,
			Position:          pos,
			ParticipantID:     conv.Participant.ID,
			ParticipantName:   conv.Participant.Name,
			ParticipantAvatar: conv.Participant.Avatar,
			Unread:            conv.Unread,
		})
		ids = append(ids, conv.ID)
		for mpos, msg := range conv.Messages {
			atts := msg.Attachments
			if atts == nil {
				atts = []models.Attachment{}
			}
			msgRows = append(msgRows, messageRow{
				ID:             msg.ID,
				ConversationID: conv.ID,
				Position:       mpos,
				Direction:      msg.Direction,
				Text:           msg.Text,
				Attachments:    atts,
				Status:         string(msg.Status),
				ReplyTo:        msg.ReplyTo,
				CreatedAt:      msg.CreatedAt.UTC(),
			})
		}
	}

	const upsert = "resolution=merge-duplicates,return=minimal"
	if _, err := c.doRequest(ctx, http.MethodPost, "conversations?on_conflict=id", convRows, upsert); err != nil {
		return fmt.Errorf("failed to save conversations: %w", err)
	}

	filter := url.QueryEscape(fmt.Sprintf("in.(%s)", strings.Join(ids, ",")))
	if _, err := c.doRequest(ctx, http.MethodDelete, "messages?conversation_id="+filter, nil, "return=minimal"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if len(msgRows) == 0 {
		return nil
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "messages?on_conflict=id", msgRows, upsert); err != nil {
		return fmt.Errorf("failed to save messages: %w", err)
	}
	return nil
}

// Publish forwards a session event to Supabase Realtime Broadcast on the
// "session:<id>" topic. It runs in the background; failures are logged.
func (c *Client) Publish(sessionID string, event models.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		defer cancel()
		if err := c.BroadcastSessionEvent(ctx, sessionID, event); err != nil {
			c.log.Warn().Err(err).Str("session_id", sessionID).Str("type", string(event.Type)).Msg("broadcast failed")
		}
	}()
}

// BroadcastSessionEvent sends a Supabase Realtime Broadcast event to notify
// connected clients about a change in a session.
// This uses the Supabase Realtime REST API so no WebSocket connection is needed.
func (c *Client) BroadcastSessionEvent(ctx context.Context, sessionID string, event models.Event) error {
	payload := map[string]interface{}{
		"messages": []map[string]interface{}{
			{
				"topic":   fmt.Sprintf("session:%s", sessionID),
				"event":   string(event.Type),
				"payload": event,
			},
		},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	url := fmt.Sprintf("%s/realtime/v1/api/broadcast", c.baseURL)
	c.log.Debug().Str("session_id", sessionID).Str("type", string(event.Type)).Msg("broadcast")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create broadcast request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("broadcast request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("broadcast error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
