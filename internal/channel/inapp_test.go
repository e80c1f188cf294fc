package channel_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/notify/internal/channel"
	"github.com/medicore/notify/internal/notification"
)

type memInbox struct {
	mu       sync.Mutex
	messages []channel.InboxMessage
	err      error
}

func (s *memInbox) CreateInboxMessage(_ context.Context, msg channel.InboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func TestInAppProvider(t *testing.T) {
	t.Parallel()

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()

		_, err := channel.NewInAppProvider(nil)
		assert.ErrorIs(t, err, channel.ErrInvalidConfig)
	})

	t.Run("write confirms delivery synchronously", func(t *testing.T) {
		t.Parallel()

		inbox := &memInbox{}
		p, err := channel.NewInAppProvider(inbox)
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelInApp, p.Channel())

		rcpt := notification.Recipient{ID: uuid.New(), Kind: notification.RecipientDoctor}
		result, err := p.Send(context.Background(), rcpt, "Shift change", "You are on call tonight", map[string]string{"ward": "ICU"})
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, channel.DeliveryDelivered, result.Status)
		require.Len(t, inbox.messages, 1)

		msg := inbox.messages[0]
		assert.Equal(t, rcpt.ID, msg.RecipientID)
		assert.Equal(t, "Shift change", msg.Title)
		assert.Equal(t, "You are on call tonight", msg.Body)
		assert.Equal(t, msg.ID.String(), result.ProviderMessageID)
	})

	t.Run("store failure reports a failed result", func(t *testing.T) {
		t.Parallel()

		inbox := &memInbox{err: assert.AnError}
		p, err := channel.NewInAppProvider(inbox)
		require.NoError(t, err)

		result, err := p.Send(context.Background(), notification.Recipient{ID: uuid.New()}, "t", "b", nil)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, channel.DeliveryFailed, result.Status)
		assert.NotEmpty(t, result.ErrorMessage)
	})
}
