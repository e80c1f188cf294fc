package channel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/notify/internal/channel"
	"github.com/medicore/notify/internal/notification"
)

func smsRecipient() notification.Recipient {
	return notification.Recipient{
		ID:      uuid.New(),
		Kind:    notification.RecipientPatient,
		Address: "+15550001111",
	}
}

func TestSMSProvider_ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := channel.NewSMSProvider(channel.SMSConfig{APIKey: "key"})
	assert.ErrorIs(t, err, channel.ErrInvalidConfig)

	_, err = channel.NewSMSProvider(channel.SMSConfig{BaseURL: "http://gw"})
	assert.ErrorIs(t, err, channel.ErrInvalidConfig)
}

func TestSMSProvider_Send(t *testing.T) {
	t.Parallel()

	t.Run("successful send", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.Equal(t, "/v1/messages", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "sms-42", "status": "queued"})
		}))
		defer srv.Close()

		p, err := channel.NewSMSProvider(channel.SMSConfig{
			BaseURL:  srv.URL,
			APIKey:   "secret",
			SenderID: "HOSPITAL",
			Timeout:  5 * time.Second,
		})
		require.NoError(t, err)

		result, err := p.Send(context.Background(), smsRecipient(), "Reminder", "See you at 9:00", nil)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, channel.DeliverySent, result.Status)
		assert.Equal(t, "sms-42", result.ProviderMessageID)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "HOSPITAL", gotBody["from"])
		assert.Equal(t, "+15550001111", gotBody["to"])
		assert.Equal(t, "Reminder: See you at 9:00", gotBody["text"])
	})

	t.Run("client error is final for the attempt", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid number"}`))
		}))
		defer srv.Close()

		p, err := channel.NewSMSProvider(channel.SMSConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
		require.NoError(t, err)

		result, err := p.Send(context.Background(), smsRecipient(), "", "hello", nil)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, channel.DeliveryFailed, result.Status)
		assert.Contains(t, result.ErrorMessage, "400")
		// 4xx responses are not retried inside the attempt.
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("rate limit retried within the attempt", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "sms-7", "status": "queued"})
		}))
		defer srv.Close()

		p, err := channel.NewSMSProvider(channel.SMSConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
		require.NoError(t, err)

		result, err := p.Send(context.Background(), smsRecipient(), "", "hello", nil)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, "sms-7", result.ProviderMessageID)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("persistent server errors exhaust transport tries", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		p, err := channel.NewSMSProvider(channel.SMSConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
		require.NoError(t, err)

		result, err := p.Send(context.Background(), smsRecipient(), "", "hello", nil)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Contains(t, result.ErrorMessage, "502")
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("gateway-level error in envelope", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "sender not provisioned"})
		}))
		defer srv.Close()

		p, err := channel.NewSMSProvider(channel.SMSConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
		require.NoError(t, err)

		result, err := p.Send(context.Background(), smsRecipient(), "", "hello", nil)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Contains(t, result.ErrorMessage, "sender not provisioned")
	})
}

func TestPushProvider_Send(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/push", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "push-1", "status": "queued"})
	}))
	defer srv.Close()

	p, err := channel.NewPushProvider(channel.PushConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, notification.ChannelPush, p.Channel())

	rcpt := notification.Recipient{ID: uuid.New(), Address: "device-token-abc"}
	result, err := p.Send(context.Background(), rcpt, "Lab results", "Your results are ready", map[string]string{"lab_order_id": "L-19"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, channel.DeliverySent, result.Status)
	assert.Equal(t, "device-token-abc", gotBody["device_token"])
	assert.Equal(t, map[string]any{"lab_order_id": "L-19"}, gotBody["data"])
}

func TestWhatsAppProvider_Send(t *testing.T) {
	t.Parallel()

	t.Run("synchronous delivery confirmation", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/whatsapp/messages", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "wa-1", "status": "delivered"})
		}))
		defer srv.Close()

		p, err := channel.NewWhatsAppProvider(channel.WhatsAppConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelWhatsApp, p.Channel())

		result, err := p.Send(context.Background(), smsRecipient(), "Visit", "Tomorrow at 9", nil)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, channel.DeliveryDelivered, result.Status)
		assert.Equal(t, "wa-1", result.ProviderMessageID)
	})

	t.Run("accepted without confirmation reports sent", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "wa-2", "status": "queued"})
		}))
		defer srv.Close()

		p, err := channel.NewWhatsAppProvider(channel.WhatsAppConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
		require.NoError(t, err)

		result, err := p.Send(context.Background(), smsRecipient(), "", "hello", nil)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, channel.DeliverySent, result.Status)
	})
}
