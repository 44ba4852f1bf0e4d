package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"homecheff/internal/repository"
)

// Broker fans chat messages out to every open socket through Redis pub/sub,
// so any API instance can serve any participant.
type Broker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewBroker(client *redis.Client, logger *zap.Logger) *Broker {
	return &Broker{client: client, logger: logger}
}

func channel(conversationID string) string {
	return fmt.Sprintf("chat:conversation:%s", conversationID)
}

func (b *Broker) Publish(ctx context.Context, m repository.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel(m.ConversationID), data).Err()
}

// Subscribe streams new messages of a conversation until ctx is done or the
// returned close func is called.
func (b *Broker) Subscribe(ctx context.Context, conversationID string) (<-chan repository.Message, func() error, error) {
	sub := b.client.Subscribe(ctx, channel(conversationID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan repository.Message)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var m repository.Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				b.logger.Warn("Dropping malformed chat message", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close, nil
}
