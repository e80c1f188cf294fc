package notification

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies the delivery backend for a notification.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelPush     Channel = "push"
	ChannelInApp    Channel = "in_app"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether the channel is one of the supported backends.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp, ChannelWhatsApp:
		return true
	}
	return false
}

// Priority is the tier a notification is queued under. Tiers are scanned
// urgent first on every worker cycle.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Tiers lists all priorities in scan order, highest first.
func Tiers() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}
}

// Valid reports whether the priority is a known tier.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// RecipientKind classifies who a notification targets. Opaque to the queue;
// only the contact resolver interprets it.
type RecipientKind string

const (
	RecipientPatient RecipientKind = "patient"
	RecipientDoctor  RecipientKind = "doctor"
	RecipientStaff   RecipientKind = "staff"
)

// Notification is the authoritative record of one message to one recipient
// over one channel. The queue holds only pointers to it; the row in the
// record store is the source of truth.
type Notification struct {
	ID            uuid.UUID         `json:"id"`
	RecipientID   uuid.UUID         `json:"recipient_id"`
	RecipientKind RecipientKind     `json:"recipient_kind"`
	Channel       Channel           `json:"channel"`
	Priority      Priority          `json:"priority"`
	Status        Status            `json:"status"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Metadata      map[string]string `json:"metadata,omitempty"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	FailedReason      *string `json:"failed_reason,omitempty"`
	RetryCount        int     `json:"retry_count"`
	MaxRetries        int     `json:"max_retries"`
	ExternalMessageID *string `json:"external_message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RetriesExhausted reports whether the retry budget is spent. Together with
// StatusFailed it distinguishes a never-attempted failure from one that
// burned through its budget.
func (n *Notification) RetriesExhausted() bool {
	return n.RetryCount >= n.MaxRetries
}
