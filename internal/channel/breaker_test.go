package channel_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/notify/internal/channel"
	"github.com/medicore/notify/internal/notification"
)

// countingProvider fails or succeeds on demand and counts inner calls.
type countingProvider struct {
	calls   atomic.Int32
	failing atomic.Bool
}

func (p *countingProvider) Channel() notification.Channel { return notification.ChannelSMS }

func (p *countingProvider) Send(context.Context, notification.Recipient, string, string, map[string]string) (channel.DeliveryResult, error) {
	p.calls.Add(1)
	if p.failing.Load() {
		return channel.DeliveryResult{Status: channel.DeliveryFailed, ErrorMessage: "gateway down"}, nil
	}
	return channel.DeliveryResult{Success: true, Status: channel.DeliverySent, ProviderMessageID: "ok"}, nil
}

func TestBreakerProvider(t *testing.T) {
	t.Parallel()

	send := func(p channel.Provider) channel.DeliveryResult {
		result, err := p.Send(context.Background(), notification.Recipient{ID: uuid.New()}, "s", "b", nil)
		require.NoError(t, err)
		return result
	}

	t.Run("passes results through while closed", func(t *testing.T) {
		t.Parallel()

		inner := &countingProvider{}
		p := channel.WithBreaker(inner, time.Minute)
		assert.Equal(t, notification.ChannelSMS, p.Channel())

		result := send(p)
		assert.True(t, result.Success)
		assert.Equal(t, "ok", result.ProviderMessageID)
	})

	t.Run("failed results surface unchanged and count against the breaker", func(t *testing.T) {
		t.Parallel()

		inner := &countingProvider{}
		inner.failing.Store(true)
		p := channel.WithBreaker(inner, time.Minute)

		result := send(p)
		assert.False(t, result.Success)
		assert.Equal(t, "gateway down", result.ErrorMessage)
	})

	t.Run("opens after five consecutive failures", func(t *testing.T) {
		t.Parallel()

		inner := &countingProvider{}
		inner.failing.Store(true)
		p := channel.WithBreaker(inner, time.Minute)

		for i := 0; i < 5; i++ {
			result := send(p)
			assert.False(t, result.Success)
		}
		assert.EqualValues(t, 5, inner.calls.Load())

		// Open breaker fails fast without touching the backend.
		result := send(p)
		assert.False(t, result.Success)
		assert.EqualValues(t, 5, inner.calls.Load())
		assert.NotEmpty(t, result.ErrorMessage)
	})

	t.Run("probes again after the cool-down", func(t *testing.T) {
		t.Parallel()

		inner := &countingProvider{}
		inner.failing.Store(true)
		p := channel.WithBreaker(inner, 50*time.Millisecond)

		for i := 0; i < 5; i++ {
			send(p)
		}
		require.EqualValues(t, 5, inner.calls.Load())

		inner.failing.Store(false)
		time.Sleep(80 * time.Millisecond)

		result := send(p)
		assert.True(t, result.Success)
		assert.EqualValues(t, 6, inner.calls.Load())
	})

	t.Run("success resets the consecutive-failure count", func(t *testing.T) {
		t.Parallel()

		inner := &countingProvider{}
		p := channel.WithBreaker(inner, time.Minute)

		inner.failing.Store(true)
		for i := 0; i < 4; i++ {
			send(p)
		}
		inner.failing.Store(false)
		send(p)

		// Four more failures stay under the trip threshold.
		inner.failing.Store(true)
		for i := 0; i < 4; i++ {
			result := send(p)
			assert.False(t, result.Success)
		}
		assert.EqualValues(t, 9, inner.calls.Load())
	})
}
