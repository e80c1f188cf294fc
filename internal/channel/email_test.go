package channel

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/notify/internal/notification"
)

type stubPostmark struct {
	lastEmail postmark.Email
	resp      postmark.EmailResponse
	err       error
}

func (s *stubPostmark) SendEmail(_ context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	s.lastEmail = email
	return s.resp, s.err
}

func TestNewEmailProvider(t *testing.T) {
	t.Parallel()

	_, err := NewEmailProvider(EmailConfig{SenderEmail: "noreply@hospital.example"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewEmailProvider(EmailConfig{ServerToken: "token"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := NewEmailProvider(EmailConfig{ServerToken: "token", SenderEmail: "noreply@hospital.example"})
	require.NoError(t, err)
	assert.Equal(t, notification.ChannelEmail, p.Channel())
}

func TestEmailProvider_Send(t *testing.T) {
	t.Parallel()

	rcpt := notification.Recipient{
		ID:      uuid.New(),
		Kind:    notification.RecipientPatient,
		Address: "patient@example.com",
	}
	cfg := EmailConfig{
		ServerToken: "token",
		SenderEmail: "noreply@hospital.example",
		MessageTag:  "hospital-notify",
	}

	t.Run("accepted by postmark", func(t *testing.T) {
		t.Parallel()

		stub := &stubPostmark{resp: postmark.EmailResponse{MessageID: "pm-abc"}}
		p := &EmailProvider{client: stub, cfg: cfg}

		result, err := p.Send(context.Background(), rcpt, "Appointment", "Tomorrow at 9", nil)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, DeliverySent, result.Status)
		assert.Equal(t, "pm-abc", result.ProviderMessageID)
		assert.Equal(t, "patient@example.com", stub.lastEmail.To)
		assert.Equal(t, "noreply@hospital.example", stub.lastEmail.From)
		assert.Equal(t, "Appointment", stub.lastEmail.Subject)
		assert.Equal(t, "hospital-notify", stub.lastEmail.Tag)
	})

	t.Run("postmark api error", func(t *testing.T) {
		t.Parallel()

		stub := &stubPostmark{resp: postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}}
		p := &EmailProvider{client: stub, cfg: cfg}

		result, err := p.Send(context.Background(), rcpt, "s", "b", nil)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, DeliveryFailed, result.Status)
		assert.Contains(t, result.ErrorMessage, "inactive recipient")
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		stub := &stubPostmark{err: assert.AnError}
		p := &EmailProvider{client: stub, cfg: cfg}

		result, err := p.Send(context.Background(), rcpt, "s", "b", nil)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, DeliveryFailed, result.Status)
	})
}
