package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medicore/notify/internal/notification"
)

// Queue is the store-facing surface the processor consumes. All mutation
// goes through the store's atomic primitives, so callers never need
// application-level locks for queue membership.
type Queue interface {
	// Enqueue adds id to the priority's sorted set with score dueAt.
	// Re-adding an existing id updates its score rather than duplicating it.
	Enqueue(ctx context.Context, id uuid.UUID, priority notification.Priority, dueAt time.Time) error

	// DequeueDue atomically removes and returns up to max ids whose due time
	// is at or before now. Items due in the future are never returned.
	DequeueDue(ctx context.Context, priority notification.Priority, max int, now time.Time) ([]uuid.UUID, error)

	// Depth returns the current cardinality of the priority's set.
	Depth(ctx context.Context, priority notification.Priority) (int64, error)

	// Remove deletes id from the priority's set, for out-of-band cancels.
	Remove(ctx context.Context, id uuid.UUID, priority notification.Priority) error

	// RecordFailure writes a processing-infrastructure failure to the
	// diagnostic failed-queue map. Distinct from an ordinary channel-send
	// failure, which is recorded on the notification row.
	RecordFailure(ctx context.Context, id uuid.UUID, failure ProcessingFailure) error

	// FailureCount returns the size of the failed-queue map.
	FailureCount(ctx context.Context) (int64, error)
}

// ProcessingFailure is one failed-queue diagnostic record.
type ProcessingFailure struct {
	FailedAt time.Time `json:"failed_at"`
	Error    string    `json:"error"`
}

const (
	queueKeyPrefix = "notifications:queue:"
	failedQueueKey = "notifications:failed"
)

// dequeueDueScript pops at most ARGV[2] members with score <= ARGV[1]
// atomically. A plain ZPOPMIN would hand out retries before their backoff
// elapses, so the range is bounded by "now" before removal.
var dequeueDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #due > 0 then
	redis.call('ZREM', KEYS[1], unpack(due))
end
return due
`)

// Client implements Queue over a Redis-compatible sorted-set store.
// Scores are unix milliseconds.
type Client struct {
	rdb redis.UniversalClient
}

// NewClient creates a queue client over an established store connection.
func NewClient(rdb redis.UniversalClient) (*Client, error) {
	if rdb == nil {
		return nil, ErrQueueNil
	}
	return &Client{rdb: rdb}, nil
}

func queueKey(priority notification.Priority) string {
	return queueKeyPrefix + string(priority)
}

// Enqueue implements Queue.
func (c *Client) Enqueue(ctx context.Context, id uuid.UUID, priority notification.Priority, dueAt time.Time) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	err := c.rdb.ZAdd(ctx, queueKey(priority), redis.Z{
		Score:  float64(dueAt.UnixMilli()),
		Member: id.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue notification %s to %s tier: %w", id, priority, err)
	}
	return nil
}

// DequeueDue implements Queue.
func (c *Client) DequeueDue(ctx context.Context, priority notification.Priority, max int, now time.Time) ([]uuid.UUID, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	if max <= 0 {
		return nil, nil
	}

	raw, err := dequeueDueScript.Run(ctx, c.rdb,
		[]string{queueKey(priority)},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.Itoa(max),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue from %s tier: %w", priority, err)
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, member := range raw {
		id, err := uuid.Parse(member)
		if err != nil {
			// Malformed member can only come from out-of-band writes; it is
			// already removed from the set, so just skip it.
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Depth implements Queue.
func (c *Client) Depth(ctx context.Context, priority notification.Priority) (int64, error) {
	if !priority.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	n, err := c.rdb.ZCard(ctx, queueKey(priority)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s tier depth: %w", priority, err)
	}
	return n, nil
}

// Remove implements Queue.
func (c *Client) Remove(ctx context.Context, id uuid.UUID, priority notification.Priority) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	if err := c.rdb.ZRem(ctx, queueKey(priority), id.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove notification %s from %s tier: %w", id, priority, err)
	}
	return nil
}

// RecordFailure implements Queue.
func (c *Client) RecordFailure(ctx context.Context, id uuid.UUID, failure ProcessingFailure) error {
	payload, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record for %s: %w", id, err)
	}
	if err := c.rdb.HSet(ctx, failedQueueKey, id.String(), payload).Err(); err != nil {
		return fmt.Errorf("failed to record processing failure for %s: %w", id, err)
	}
	return nil
}

// FailureCount implements Queue.
func (c *Client) FailureCount(ctx context.Context) (int64, error) {
	n, err := c.rdb.HLen(ctx, failedQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read failed-queue size: %w", err)
	}
	return n, nil
}
