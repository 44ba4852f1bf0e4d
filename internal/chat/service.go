// Package chat carries buyer/seller conversations about an order.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"homecheff/internal/repository"
)

const (
	MaxBodyLen   = 2000
	DefaultLimit = 50
	MaxLimit     = 200
)

var (
	ErrNotParticipant = errors.New("chat: not a participant of this conversation")
	ErrEmptyMessage   = errors.New("chat: message body is empty")
	ErrMessageTooLong = errors.New("chat: message body is too long")
)

type Store interface {
	ConversationByID(ctx context.Context, id string) (repository.Conversation, error)
	CreateMessage(ctx context.Context, m repository.Message) (repository.Message, error)
	MessagesAfter(ctx context.Context, conversationID string, afterID int64, limit int) ([]repository.Message, error)
}

type Publisher interface {
	Publish(ctx context.Context, m repository.Message) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
}

func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

// Authorize loads the conversation and checks that userID takes part in it.
func (s *Service) Authorize(ctx context.Context, conversationID, userID string) (repository.Conversation, error) {
	c, err := s.store.ConversationByID(ctx, conversationID)
	if err != nil {
		return repository.Conversation{}, err
	}
	if !c.Has(userID) {
		return repository.Conversation{}, ErrNotParticipant
	}
	return c, nil
}

// Post stores the message first and then publishes it. A publish failure is
// logged only; readers still see the message through History.
func (s *Service) Post(ctx context.Context, conversationID, senderID, body string) (repository.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return repository.Message{}, ErrEmptyMessage
	}
	if len([]rune(body)) > MaxBodyLen {
		return repository.Message{}, ErrMessageTooLong
	}
	if _, err := s.Authorize(ctx, conversationID, senderID); err != nil {
		return repository.Message{}, err
	}

	m, err := s.store.CreateMessage(ctx, repository.Message{ConversationID: conversationID, SenderID: senderID, Body: body})
	if err != nil {
		s.logger.Error("Failed to store chat message", zap.String("conversationID", conversationID), zap.Error(err))
		return repository.Message{}, fmt.Errorf("failed to store message: %w", err)
	}
	if err := s.publisher.Publish(ctx, m); err != nil {
		s.logger.Warn("Failed to publish chat message", zap.Int64("messageID", m.ID), zap.Error(err))
	}
	return m, nil
}

// History returns messages newer than afterID, oldest first.
func (s *Service) History(ctx context.Context, conversationID, userID string, afterID int64, limit int) ([]repository.Message, error) {
	if _, err := s.Authorize(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	msgs, err := s.store.MessagesAfter(ctx, conversationID, afterID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []repository.Message{}
	}
	return msgs, nil
}
