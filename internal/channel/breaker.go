package channel

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/medicore/notify/internal/notification"
)

// BreakerProvider wraps a provider with a circuit breaker so a hard-down
// backend fails fast instead of burning a worker's per-item budget on every
// attempt. A tripped breaker still reports an ordinary failed result, which
// feeds the normal retry state machine.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps p with a circuit breaker. The breaker opens after five
// consecutive failures and probes again after the cool-down.
func WithBreaker(p Provider, coolDown time.Duration) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:    string(p.Channel()) + "-provider",
		Timeout: coolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerProvider{
		inner:   p,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Channel implements Provider.
func (b *BreakerProvider) Channel() notification.Channel {
	return b.inner.Channel()
}

// Send implements Provider. A result with Success=false counts as a breaker
// failure even though the inner provider returned no error.
func (b *BreakerProvider) Send(ctx context.Context, rcpt notification.Recipient, subject, body string, metadata map[string]string) (DeliveryResult, error) {
	out, err := b.breaker.Execute(func() (any, error) {
		result, err := b.inner.Send(ctx, rcpt, subject, body, metadata)
		if err != nil {
			return result, err
		}
		if !result.Success {
			return result, resultError{result}
		}
		return result, nil
	})

	if err != nil {
		var re resultError
		if errors.As(err, &re) {
			return re.result, nil
		}
		// Breaker open or inner error without a usable result.
		return failureResult(err, ""), nil
	}
	return out.(DeliveryResult), nil
}

// resultError smuggles a failed DeliveryResult through the breaker's error
// path so failures trip it.
type resultError struct {
	result DeliveryResult
}

func (e resultError) Error() string { return e.result.ErrorMessage }
