// Package queue is the core of the notification delivery engine: a durable
// priority-ordered queue over a Redis-compatible sorted-set store and the
// worker pool that drains it.
//
// The package is organised around three pieces:
//
//   - Client     — enqueue/dequeue primitives over the store's atomic
//     sorted-set operations (ZADD / due-bounded pop / ZCARD), plus the
//     failed-queue diagnostic hash
//   - Processor  — worker lifecycle (Start/Stop), the producer-facing
//     Enqueue, and queue depth statistics
//   - BackoffTable — the per-tier monotone step function applied between
//     retry attempts
//
// Ordering guarantees: every worker cycle scans tiers in strict
// urgent -> high -> normal -> low order, so no lower-tier item is dispatched
// while higher-tier work is due and capacity remains. Within a tier the
// earliest due time wins. There is no global FIFO across tiers.
//
// Items whose due time lies in the future are never dequeued; retries are
// re-added with a future score and sit untouched until their backoff
// elapses.
//
// Delivery is at-least-once: the atomic dequeue hands each item to exactly
// one worker, and a stale queue item whose row already progressed past
// PENDING is skipped without a state change or log entry.
package queue
