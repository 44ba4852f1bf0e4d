package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homecheff/internal/repository"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ConversationByID(ctx context.Context, id string) (repository.Conversation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Conversation), args.Error(1)
}

func (m *MockStore) CreateMessage(ctx context.Context, msg repository.Message) (repository.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(repository.Message), args.Error(1)
}

func (m *MockStore) MessagesAfter(ctx context.Context, conversationID string, afterID int64, limit int) ([]repository.Message, error) {
	args := m.Called(ctx, conversationID, afterID, limit)
	msgs, _ := args.Get(0).([]repository.Message)
	return msgs, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg repository.Message) error {
	return m.Called(ctx, msg).Error(0)
}

var conv = repository.Conversation{ID: "conv-1", BuyerID: "buyer", SellerID: "seller"}

func TestPost(t *testing.T) {
	ctx := context.Background()

	t.Run("stores then publishes", func(t *testing.T) {
		store, pub := new(MockStore), new(MockPublisher)
		svc := NewService(store, pub, zap.NewNop())
		in := repository.Message{ConversationID: "conv-1", SenderID: "buyer", Body: "is it vegan?"}
		stored := in
		stored.ID = 7

		store.On("ConversationByID", ctx, "conv-1").Return(conv, nil)
		store.On("CreateMessage", ctx, in).Return(stored, nil)
		pub.On("Publish", ctx, stored).Return(errors.New("redis down"))

		got, err := svc.Post(ctx, "conv-1", "buyer", "  is it vegan?  ")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
		pub.AssertExpectations(t)
	})

	t.Run("outsider is rejected", func(t *testing.T) {
		store, pub := new(MockStore), new(MockPublisher)
		svc := NewService(store, pub, zap.NewNop())
		store.On("ConversationByID", ctx, "conv-1").Return(conv, nil)

		_, err := svc.Post(ctx, "conv-1", "courier", "hello")
		assert.ErrorIs(t, err, ErrNotParticipant)
		store.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})

	t.Run("body validation", func(t *testing.T) {
		svc := NewService(new(MockStore), new(MockPublisher), zap.NewNop())
		_, err := svc.Post(ctx, "conv-1", "buyer", "   ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
		_, err = svc.Post(ctx, "conv-1", "buyer", strings.Repeat("a", MaxBodyLen+1))
		assert.ErrorIs(t, err, ErrMessageTooLong)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	svc := NewService(store, new(MockPublisher), zap.NewNop())

	store.On("ConversationByID", ctx, "conv-1").Return(conv, nil)
	store.On("MessagesAfter", ctx, "conv-1", int64(3), MaxLimit).Return(nil, nil)
	store.On("MessagesAfter", ctx, "conv-1", int64(0), DefaultLimit).Return([]repository.Message{{ID: 1}, {ID: 2}}, nil)

	got, err := svc.History(ctx, "conv-1", "seller", 3, 10000)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = svc.History(ctx, "conv-1", "buyer", 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.History(ctx, "conv-1", "stranger", 0, 0)
	assert.ErrorIs(t, err, ErrNotParticipant)
}
