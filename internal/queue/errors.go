package queue

import "errors"

var (
	// ErrQueueNil is returned when a nil queue is provided.
	ErrQueueNil = errors.New("queue cannot be nil")

	// ErrRecordStoreNil is returned when a nil record store is provided.
	ErrRecordStoreNil = errors.New("record store cannot be nil")

	// ErrRegistryNil is returned when a nil provider registry is provided.
	ErrRegistryNil = errors.New("provider registry cannot be nil")

	// ErrResolverNil is returned when a nil contact resolver is provided.
	ErrResolverNil = errors.New("contact resolver cannot be nil")

	// ErrInvalidPriority is returned when a priority tier is unknown.
	ErrInvalidPriority = errors.New("unknown priority tier")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("processor already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("processor not started")

	// ErrShutdownTimeout is returned when workers do not quiesce within the
	// shutdown grace window.
	ErrShutdownTimeout = errors.New("workers did not quiesce within the shutdown grace window")

	// ErrItemTimeout marks a delivery attempt abandoned because it exceeded
	// the per-item processing budget.
	ErrItemTimeout = errors.New("processing exceeded the per-item time budget")

	// ErrBackoffTableEmpty is returned when a backoff policy has no steps.
	ErrBackoffTableEmpty = errors.New("backoff policy must have at least one step")

	// ErrBackoffNotMonotone is returned when backoff steps decrease.
	ErrBackoffNotMonotone = errors.New("backoff steps must be non-decreasing")
)
