package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/notify/internal/notification"
)

// MemoryQueue implements Queue in process memory for tests and local
// development. It mirrors the sorted-set semantics of the real store:
// re-adding a member updates its score, and DequeueDue only returns members
// whose due time has passed.
type MemoryQueue struct {
	mu       sync.Mutex
	tiers    map[notification.Priority]map[uuid.UUID]time.Time
	failures map[uuid.UUID]ProcessingFailure
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	tiers := make(map[notification.Priority]map[uuid.UUID]time.Time)
	for _, p := range notification.Tiers() {
		tiers[p] = make(map[uuid.UUID]time.Time)
	}
	return &MemoryQueue{
		tiers:    tiers,
		failures: make(map[uuid.UUID]ProcessingFailure),
	}
}

// Enqueue implements Queue.
func (m *MemoryQueue) Enqueue(ctx context.Context, id uuid.UUID, priority notification.Priority, dueAt time.Time) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers[priority][id] = dueAt
	return nil
}

// DequeueDue implements Queue.
func (m *MemoryQueue) DequeueDue(ctx context.Context, priority notification.Priority, max int, now time.Time) ([]uuid.UUID, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	if max <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	type entry struct {
		id  uuid.UUID
		due time.Time
	}
	var due []entry
	for id, at := range m.tiers[priority] {
		if !at.After(now) {
			due = append(due, entry{id: id, due: at})
		}
	}

	// Lowest score first, matching ZRANGEBYSCORE ordering.
	sort.Slice(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	if len(due) > max {
		due = due[:max]
	}

	ids := make([]uuid.UUID, 0, len(due))
	for _, e := range due {
		delete(m.tiers[priority], e.id)
		ids = append(ids, e.id)
	}
	return ids, nil
}

// Depth implements Queue.
func (m *MemoryQueue) Depth(ctx context.Context, priority notification.Priority) (int64, error) {
	if !priority.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tiers[priority])), nil
}

// Remove implements Queue.
func (m *MemoryQueue) Remove(ctx context.Context, id uuid.UUID, priority notification.Priority) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tiers[priority], id)
	return nil
}

// RecordFailure implements Queue.
func (m *MemoryQueue) RecordFailure(ctx context.Context, id uuid.UUID, failure ProcessingFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = failure
	return nil
}

// FailureCount implements Queue.
func (m *MemoryQueue) FailureCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.failures)), nil
}

// Failure returns the recorded diagnostic for id, if any.
func (m *MemoryQueue) Failure(id uuid.UUID) (ProcessingFailure, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.failures[id]
	return f, ok
}
