package contact

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/notify/internal/notification"
	"github.com/medicore/notify/pkg/pg"
)

// PGResolver resolves contact addresses from the recipient_contacts table.
type PGResolver struct {
	pool *pgxpool.Pool
}

// NewPGResolver creates a resolver over the record store's connection pool.
func NewPGResolver(pool *pgxpool.Pool) *PGResolver {
	return &PGResolver{pool: pool}
}

// Resolve implements Resolver.
func (r *PGResolver) Resolve(ctx context.Context, recipientID uuid.UUID, kind notification.RecipientKind, ch notification.Channel) (notification.Recipient, error) {
	const query = `
		SELECT address, display_name
		FROM recipient_contacts
		WHERE recipient_id = $1 AND recipient_kind = $2 AND channel = $3`

	var rcpt notification.Recipient
	rcpt.ID = recipientID
	rcpt.Kind = kind

	err := r.pool.QueryRow(ctx, query, recipientID, string(kind), string(ch)).
		Scan(&rcpt.Address, &rcpt.DisplayName)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return notification.Recipient{}, ErrContactNotFound
		}
		return notification.Recipient{}, fmt.Errorf("failed to resolve contact for %s over %s: %w", recipientID, ch, err)
	}
	return rcpt, nil
}
