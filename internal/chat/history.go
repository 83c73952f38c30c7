// Package chat persists the assistant's message history. The matching
// heuristic and model call live client-side; only the storage contract is
// implemented here.
package chat

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/kvstore"
	"storefront-service/internal/models"
)

// Service stores chat history under the chat-history key, capped to the
// most recent maxMessages entries.
type Service struct {
	store       kvstore.Store
	maxMessages int
}

// NewService creates a chat history service.
func NewService(store kvstore.Store, maxMessages int) *Service {
	if maxMessages < 1 {
		maxMessages = 100
	}
	return &Service{store: store, maxMessages: maxMessages}
}

// History returns the stored messages for a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var history []models.ChatMessage
	err := kvstore.GetJSON(ctx, s.store, kvstore.ChatHistoryKey(sessionID), &history)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []models.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

// Append adds a message and persists the capped history.
func (s *Service) Append(ctx context.Context, sessionID string, msg models.ChatMessage) ([]models.ChatMessage, error) {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	history = append(history, msg)
	if len(history) > s.maxMessages {
		history = history[len(history)-s.maxMessages:]
	}

	if err := kvstore.SetJSON(ctx, s.store, kvstore.ChatHistoryKey(sessionID), history, 0); err != nil {
		return nil, err
	}
	return history, nil
}
