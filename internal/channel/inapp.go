package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/notify/internal/notification"
)

// InboxMessage is one entry in a recipient's in-app inbox.
type InboxMessage struct {
	ID          uuid.UUID         `json:"id"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// InboxStore persists in-app inbox messages.
type InboxStore interface {
	CreateInboxMessage(ctx context.Context, msg InboxMessage) error
}

// InAppProvider delivers notifications by writing to the recipient's inbox.
// The write is confirmed synchronously, so successful sends report
// DeliveryDelivered.
type InAppProvider struct {
	store InboxStore
}

// NewInAppProvider creates an in-app provider over an inbox store.
func NewInAppProvider(store InboxStore) (*InAppProvider, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: inbox store is required", ErrInvalidConfig)
	}
	return &InAppProvider{store: store}, nil
}

// Channel implements Provider.
func (p *InAppProvider) Channel() notification.Channel {
	return notification.ChannelInApp
}

// Send implements Provider.
func (p *InAppProvider) Send(ctx context.Context, rcpt notification.Recipient, subject, body string, metadata map[string]string) (DeliveryResult, error) {
	msg := InboxMessage{
		ID:          uuid.New(),
		RecipientID: rcpt.ID,
		Title:       subject,
		Body:        body,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}

	if err := p.store.CreateInboxMessage(ctx, msg); err != nil {
		return failureResult(fmt.Errorf("%w: %v", ErrSendFailed, err), ""), nil
	}

	return DeliveryResult{
		Success:           true,
		Status:            DeliveryDelivered,
		ProviderMessageID: msg.ID.String(),
	}, nil
}
