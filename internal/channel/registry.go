package channel

import (
	"fmt"
	"sync"

	"github.com/medicore/notify/internal/notification"
)

// Registry resolves the delivery provider for a channel. Providers are
// registered at startup; lookups are safe for concurrent workers.
type Registry struct {
	mu        sync.RWMutex
	providers map[notification.Channel]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[notification.Channel]Provider)}
}

// Register binds a provider to its channel, replacing any previous binding.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return ErrProviderNil
	}
	if !p.Channel().Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, p.Channel())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Channel()] = p
	return nil
}

// Resolve returns the provider serving the given channel.
func (r *Registry) Resolve(ch notification.Channel) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, ch)
	}
	return p, nil
}

// Channels lists the channels with a registered provider.
func (r *Registry) Channels() []notification.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notification.Channel, 0, len(r.providers))
	for ch := range r.providers {
		out = append(out, ch)
	}
	return out
}
