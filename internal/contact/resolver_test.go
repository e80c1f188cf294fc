package contact_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/notify/internal/contact"
	"github.com/medicore/notify/internal/notification"
)

func TestStaticResolver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resolves registered address", func(t *testing.T) {
		t.Parallel()

		r := contact.NewStaticResolver()
		id := uuid.New()
		r.Add(id, notification.ChannelEmail, "doctor@hospital.example")

		rcpt, err := r.Resolve(ctx, id, notification.RecipientDoctor, notification.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, id, rcpt.ID)
		assert.Equal(t, notification.RecipientDoctor, rcpt.Kind)
		assert.Equal(t, "doctor@hospital.example", rcpt.Address)
	})

	t.Run("per-channel addresses", func(t *testing.T) {
		t.Parallel()

		r := contact.NewStaticResolver()
		id := uuid.New()
		r.Add(id, notification.ChannelEmail, "patient@example.com")
		r.Add(id, notification.ChannelSMS, "+15550001111")

		rcpt, err := r.Resolve(ctx, id, notification.RecipientPatient, notification.ChannelSMS)
		require.NoError(t, err)
		assert.Equal(t, "+15550001111", rcpt.Address)
	})

	t.Run("missing contact", func(t *testing.T) {
		t.Parallel()

		r := contact.NewStaticResolver()
		id := uuid.New()
		r.Add(id, notification.ChannelEmail, "patient@example.com")

		_, err := r.Resolve(ctx, id, notification.RecipientPatient, notification.ChannelPush)
		assert.ErrorIs(t, err, contact.ErrContactNotFound)

		_, err = r.Resolve(ctx, uuid.New(), notification.RecipientPatient, notification.ChannelEmail)
		assert.ErrorIs(t, err, contact.ErrContactNotFound)
	})
}
