// Package sqlite persists conversations in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adi-253/Talkie/chatcore/internal/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		participant_id TEXT NOT NULL,
		participant_name TEXT NOT NULL,
		participant_avatar TEXT NOT NULL DEFAULT '',
		unread INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		direction TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		attachments TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT '',
		reply_to TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, position);
`

// Store loads and saves conversations. Timestamps are stored as unix
// nanoseconds; attachments and reply snapshots as JSON.
type Store struct {
	db *sql.DB
}

// NewStore opens (and creates if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadConversations returns every conversation in saved order, messages in
// insertion order.
func (s *Store) LoadConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, participant_name, participant_avatar, unread
		FROM conversations
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	var convs []models.Conversation
	index := make(map[string]int)
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Participant.ID, &c.Participant.Name, &c.Participant.Avatar, &c.Unread); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.Messages = []models.Message{}
		index[c.ID] = len(convs)
		convs = append(convs, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	msgRows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, direction, text, attachments, status, reply_to, created_at
		FROM messages
		ORDER BY conversation_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		msg, err := scanMessage(msgRows)
		if err != nil {
			return nil, err
		}
		i, ok := index[msg.ConversationID]
		if !ok {
			continue
		}
		convs[i].Messages = append(convs[i].Messages, msg)
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return convs, nil
}

func scanMessage(rows *sql.Rows) (models.Message, error) {
	var (
		msg         models.Message
		direction   string
		status      string
		attachments string
		replyTo     sql.NullString
		createdAt   int64
	)
	if err := rows.Scan(&msg.ID, &msg.ConversationID, &direction, &msg.Text, &attachments, &status, &replyTo, &createdAt); err != nil {
		return models.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.Direction = models.Direction(direction)
	msg.Status = models.DeliveryStatus(status)
	msg.CreatedAt = time.Unix(0, createdAt).UTC()

	if err := json.Unmarshal([]byte(attachments), &msg.Attachments); err != nil {
		return models.Message{}, fmt.Errorf("failed to decode attachments of %s: %w", msg.ID, err)
	}
	if len(msg.Attachments) == 0 {
		msg.Attachments = nil
	}
	if replyTo.Valid && replyTo.String != "" {
		var rc models.ReplyContext
		if err := json.Unmarshal([]byte(replyTo.String), &rc); err != nil {
			return models.Message{}, fmt.Errorf("failed to decode reply of %s: %w", msg.ID, err)
		}
		msg.ReplyTo = &rc
	}
	return msg, nil
}

// SaveConversations writes convs in one transaction. Each saved
// conversation's messages are replaced, so pruned messages disappear.
// Conversations not in convs are left alone.
func (s *Store) SaveConversations(ctx context.Context, convs []models.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	nowUnix := time.Now().Unix()
	for pos, c := range convs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, position, participant_id, participant_name, participant_avatar, unread, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				position = excluded.position,
				participant_id = excluded.participant_id,
				participant_name = excluded.participant_name,
				participant_avatar = excluded.participant_avatar,
				unread = excluded.unread,
				updated_at = excluded.updated_at
		`, c.ID, pos, c.Participant.ID, c.Participant.Name, c.Participant.Avatar, c.Unread, nowUnix)
		if err != nil {
			return fmt.Errorf("failed to save conversation %s: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, c.ID); err != nil {
			return fmt.Errorf("failed to clear messages of %s: %w", c.ID, err)
		}
		for mpos, msg := range c.Messages {
			if err := insertMessage(ctx, tx, c.ID, mpos, msg); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, conversationID string, pos int, msg models.Message) error {
	atts := msg.Attachments
	if atts == nil {
		atts = []models.Attachment{}
	}
	attJSON, err := json.Marshal(atts)
	if err != nil {
		return fmt.Errorf("failed to encode attachments of %s: %w", msg.ID, err)
	}

	var replyTo sql.NullString
	if msg.ReplyTo != nil {
		b, err := json.Marshal(msg.ReplyTo)
		if err != nil {
			return fmt.Errorf("failed to encode reply of %s: %w", msg.ID, err)
		}
		replyTo = sql.NullString{String: string(b), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (id, conversation_id, position, direction, text, attachments, status, reply_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, conversationID, pos, string(msg.Direction), msg.Text, string(attJSON), string(msg.Status), replyTo, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
	}
	return nil
}

// Count returns the number of stored conversations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return n, nil
}
