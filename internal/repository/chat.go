package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

func (r *Repository) ConversationByID(ctx context.Context, id string) (Conversation, error) {
	var c Conversation
	err := r.pool.QueryRow(ctx,
		`SELECT id, order_id, buyer_id, seller_id FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.OrderID, &c.BuyerID, &c.SellerID)
	if err != nil {
		return Conversation{}, mapErr(err)
	}
	return c, nil
}

func (r *Repository) CreateMessage(ctx context.Context, m Message) (Message, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, body) VALUES ($1, $2, $3) RETURNING id, created_at`,
		m.ConversationID, m.SenderID, m.Body,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, mapErr(err)
	}
	return m, nil
}

// MessagesAfter pages through a conversation by message id, oldest first.
func (r *Repository) MessagesAfter(ctx context.Context, conversationID string, afterID int64, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, sender_id, body, created_at FROM messages
		 WHERE conversation_id = $1 AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		conversationID, afterID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt)
		return m, err
	})
	return out, mapErr(err)
}
