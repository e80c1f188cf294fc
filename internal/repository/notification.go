package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/notify/internal/notification"
	"github.com/medicore/notify/internal/queue"
	"github.com/medicore/notify/pkg/pg"
)

// ErrInvalidTransition is returned when a status change violates the
// state machine, e.g. cancelling an already sent notification.
var ErrInvalidTransition = errors.New("illegal notification status transition")

// NotificationRepository is the pgx-backed record store for notification
// rows and their delivery log. Every status change writes the row and the
// log entry in one transaction.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a repository over the connection pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `
	id, recipient_id, recipient_kind, channel, priority, status,
	title, body, metadata,
	scheduled_at, sent_at, delivered_at, failed_at,
	failed_reason, retry_count, max_retries, external_message_id,
	created_at, updated_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.RecipientKind, &n.Channel, &n.Priority, &n.Status,
		&n.Title, &n.Body, &n.Metadata,
		&n.ScheduledAt, &n.SentAt, &n.DeliveredAt, &n.FailedAt,
		&n.FailedReason, &n.RetryCount, &n.MaxRetries, &n.ExternalMessageID,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, queue.ErrRecordNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Create inserts a new PENDING notification row. Producers call this before
// enqueueing the id.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	const query = `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.RecipientID, n.RecipientKind, n.Channel, n.Priority, n.Status,
		n.Title, n.Body, n.Metadata,
		n.ScheduledAt, n.SentAt, n.DeliveredAt, n.FailedAt,
		n.FailedReason, n.RetryCount, n.MaxRetries, n.ExternalMessageID,
		n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification %s: %w", n.ID, err)
	}
	return nil
}

// GetByID loads one notification row.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	return scanNotification(r.pool.QueryRow(ctx, query, id))
}

// MarkSent records a successful handoff to the channel provider.
func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, externalMessageID string, entry notification.DeliveryLogEntry) error {
	const query = `
		UPDATE notifications
		SET status = $2, sent_at = $3, external_message_id = NULLIF($4, ''), updated_at = now()
		WHERE id = $1`
	return r.updateWithLog(ctx, id, entry, query, notification.StatusSent, entry.AttemptedAt, externalMessageID)
}

// MarkDelivered records a synchronously confirmed delivery.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID, externalMessageID string, entry notification.DeliveryLogEntry) error {
	const query = `
		UPDATE notifications
		SET status = $2, sent_at = $3, delivered_at = $3, external_message_id = NULLIF($4, ''), updated_at = now()
		WHERE id = $1`
	return r.updateWithLog(ctx, id, entry, query, notification.StatusDelivered, entry.AttemptedAt, externalMessageID)
}

// MarkPendingRetry records a failed attempt with retry budget remaining:
// the retry count increments and the row returns to PENDING so a future
// queue item can claim it.
func (r *NotificationRepository) MarkPendingRetry(ctx context.Context, id uuid.UUID, reason string, nextAttemptAt time.Time, entry notification.DeliveryLogEntry) error {
	const query = `
		UPDATE notifications
		SET status = $2, retry_count = retry_count + 1, failed_reason = $3,
		    scheduled_at = $4, updated_at = now()
		WHERE id = $1`
	return r.updateWithLog(ctx, id, entry, query, notification.StatusPending, reason, nextAttemptAt)
}

// MarkFailed records a terminal failure: budget exhausted or a
// non-retriable processing error.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, countAttempt bool, entry notification.DeliveryLogEntry) error {
	increment := 0
	if countAttempt {
		increment = 1
	}
	const query = `
		UPDATE notifications
		SET status = $2, failed_at = $3, failed_reason = $4,
		    retry_count = retry_count + $5, updated_at = now()
		WHERE id = $1`
	return r.updateWithLog(ctx, id, entry, query, notification.StatusFailed, entry.AttemptedAt, reason, increment)
}

// Cancel moves a PENDING notification to CANCELLED. Used by out-of-band
// cancellation; any queue item left behind becomes a stale pointer the
// worker no-ops on.
func (r *NotificationRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE notifications
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, id, notification.StatusCancelled, notification.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or it already progressed past PENDING.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// AppendLogEntry writes one delivery log entry outside a status change.
func (r *NotificationRepository) AppendLogEntry(ctx context.Context, entry notification.DeliveryLogEntry) error {
	if err := appendLog(ctx, r.pool, entry); err != nil {
		return fmt.Errorf("failed to append delivery log for %s: %w", entry.NotificationID, err)
	}
	return nil
}

// ListStuckPending returns ids of PENDING notifications whose scheduled
// time passed more than olderThan ago. The janitor re-enqueues them in case
// the queue item was lost between row insert and enqueue.
func (r *NotificationRepository) ListStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]StuckNotification, error) {
	const query = `
		SELECT id, priority FROM notifications
		WHERE status = $1 AND scheduled_at < $2
		ORDER BY scheduled_at
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, notification.StatusPending, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck pending notifications: %w", err)
	}
	defer rows.Close()

	var out []StuckNotification
	for rows.Next() {
		var s StuckNotification
		if err := rows.Scan(&s.ID, &s.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan stuck notification: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StuckNotification identifies a PENDING row overdue for dispatch.
type StuckNotification struct {
	ID       uuid.UUID
	Priority notification.Priority
}

// updateWithLog runs the row update and the log insert in one transaction.
func (r *NotificationRepository) updateWithLog(ctx context.Context, id uuid.UUID, entry notification.DeliveryLogEntry, query string, args ...any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrRecordNotFound
	}

	if err := appendLog(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to append delivery log for %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit update for %s: %w", id, err)
	}
	return nil
}

// execer covers both pool and transaction for log inserts.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func appendLog(ctx context.Context, db execer, entry notification.DeliveryLogEntry) error {
	const query = `
		INSERT INTO notification_delivery_log
			(id, notification_id, attempted_at, status, outcome, provider_response)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := db.Exec(ctx, query,
		entry.ID, entry.NotificationID, entry.AttemptedAt,
		entry.Status, entry.Outcome, entry.ProviderResponse,
	)
	return err
}
