package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/notify/internal/channel"
)

// InboxRepository persists in-app inbox messages. It backs the in_app
// channel provider.
type InboxRepository struct {
	pool *pgxpool.Pool
}

// NewInboxRepository creates a repository over the connection pool.
func NewInboxRepository(pool *pgxpool.Pool) *InboxRepository {
	return &InboxRepository{pool: pool}
}

// CreateInboxMessage implements channel.InboxStore.
func (r *InboxRepository) CreateInboxMessage(ctx context.Context, msg channel.InboxMessage) error {
	const query = `
		INSERT INTO inapp_inbox (id, recipient_id, title, body, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.RecipientID, msg.Title, msg.Body, msg.Metadata, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inbox message %s: %w", msg.ID, err)
	}
	return nil
}
