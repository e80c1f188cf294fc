package notification

// Status is the delivery state of a notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible. FAILED is
// terminal only once the retry budget is exhausted, which callers check via
// RetriesExhausted; at the pure state level FAILED may still return to
// PENDING for a retry.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// transitions encodes the state machine:
//
//	PENDING -> SENT | FAILED | CANCELLED
//	SENT    -> DELIVERED
//	FAILED  -> PENDING   (retry, bounded by budget)
var transitions = map[Status][]Status{
	StatusPending: {StatusSent, StatusDelivered, StatusFailed, StatusCancelled},
	StatusSent:    {StatusDelivered},
	StatusFailed:  {StatusPending},
}

// CanTransitionTo reports whether moving from s to next is legal.
// PENDING -> DELIVERED is allowed for channels that confirm receipt
// synchronously during the send.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
