package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/adi-253/Talkie/chatcore/internal/models"
)

// Seed writes the conversations encoded in r to repo, but only when repo is
// empty. It returns how many conversations were written.
func Seed(ctx context.Context, repo Repository, r io.Reader) (int, error) {
	existing, err := repo.LoadConversations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to check repository: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	var convs []models.Conversation
	if err := json.NewDecoder(r).Decode(&convs); err != nil {
		return 0, fmt.Errorf("failed to decode seed: %w", err)
	}
	for i := range convs {
		if convs[i].ID == "" {
			return 0, fmt.Errorf("seed conversation %d has no id", i)
		}
		for j := range convs[i].Messages {
			convs[i].Messages[j].ConversationID = convs[i].ID
		}
	}
	if err := repo.SaveConversations(ctx, convs); err != nil {
		return 0, fmt.Errorf("failed to save seed: %w", err)
	}
	return len(convs), nil
}

// Notifiers fans an event out to several notifiers.
type Notifiers []Notifier

// Publish forwards event to every notifier in order.
func (n Notifiers) Publish(sessionID string, event models.Event) {
	for _, notifier := range n {
		notifier.Publish(sessionID, event)
	}
}
