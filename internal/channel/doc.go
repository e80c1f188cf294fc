// Package channel holds the delivery backends, one per notification
// channel, behind a single Provider interface resolved through a Registry
// keyed by channel. The queue core is channel-agnostic and works against
// any Provider implementation.
//
// Providers retry transient transport errors internally; the engine's
// retry/backoff state machine handles everything beyond one attempt. The
// WithBreaker decorator adds a circuit breaker for backends that go hard
// down.
package channel
