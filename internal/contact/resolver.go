package contact

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medicore/notify/internal/notification"
)

var (
	// ErrContactNotFound is returned when no address exists for the
	// recipient and channel. Treated as a non-retriable delivery failure.
	ErrContactNotFound = errors.New("no contact address for recipient and channel")
)

// Resolver maps a recipient id to the delivery address for one channel.
type Resolver interface {
	Resolve(ctx context.Context, recipientID uuid.UUID, kind notification.RecipientKind, ch notification.Channel) (notification.Recipient, error)
}

// StaticResolver serves addresses from a fixed map, for tests and local
// development.
type StaticResolver struct {
	contacts map[uuid.UUID]map[notification.Channel]string
}

// NewStaticResolver creates an empty static resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{contacts: make(map[uuid.UUID]map[notification.Channel]string)}
}

// Add registers an address for a recipient and channel.
func (r *StaticResolver) Add(recipientID uuid.UUID, ch notification.Channel, address string) {
	if r.contacts[recipientID] == nil {
		r.contacts[recipientID] = make(map[notification.Channel]string)
	}
	r.contacts[recipientID][ch] = address
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(ctx context.Context, recipientID uuid.UUID, kind notification.RecipientKind, ch notification.Channel) (notification.Recipient, error) {
	address, ok := r.contacts[recipientID][ch]
	if !ok {
		return notification.Recipient{}, ErrContactNotFound
	}
	return notification.Recipient{
		ID:      recipientID,
		Kind:    kind,
		Address: address,
	}, nil
}
