package notification

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryLogEntry is one append-only audit record per delivery attempt.
// Entries are never mutated or deleted.
type DeliveryLogEntry struct {
	ID               uuid.UUID `json:"id"`
	NotificationID   uuid.UUID `json:"notification_id"`
	AttemptedAt      time.Time `json:"attempted_at"`
	Status           Status    `json:"status"`
	Outcome          string    `json:"outcome"`
	ProviderResponse string    `json:"provider_response,omitempty"`
}
