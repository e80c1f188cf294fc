package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/medicore/notify/internal/notification"
)

// SMSConfig configures the SMS gateway provider.
type SMSConfig struct {
	BaseURL  string        `env:"SMS_GATEWAY_URL"`
	APIKey   string        `env:"SMS_GATEWAY_API_KEY"`
	SenderID string        `env:"SMS_SENDER_ID" envDefault:"HOSPITAL"`
	Timeout  time.Duration `env:"SMS_GATEWAY_TIMEOUT" envDefault:"15s"`
}

// SMSProvider delivers notifications through a JSON SMS gateway.
type SMSProvider struct {
	gateway  gatewayClient
	senderID string
}

// NewSMSProvider creates an SMS provider.
func NewSMSProvider(cfg SMSConfig) (*SMSProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: SMS_GATEWAY_URL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: SMS_GATEWAY_API_KEY is required", ErrInvalidConfig)
	}

	return &SMSProvider{
		gateway:  newGatewayClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		senderID: cfg.SenderID,
	}, nil
}

// Channel implements Provider.
func (p *SMSProvider) Channel() notification.Channel {
	return notification.ChannelSMS
}

// Send implements Provider. SMS has no subject; title and body are joined
// into one message.
func (p *SMSProvider) Send(ctx context.Context, rcpt notification.Recipient, subject, body string, metadata map[string]string) (DeliveryResult, error) {
	text := body
	if subject != "" {
		text = subject + ": " + body
	}

	resp, raw, err := p.gateway.post(ctx, "/v1/messages", map[string]any{
		"from": p.senderID,
		"to":   rcpt.Address,
		"text": text,
	})
	if err != nil {
		return failureResult(fmt.Errorf("%w: %v", ErrSendFailed, err), raw), nil
	}

	return DeliveryResult{
		Success:           true,
		Status:            DeliverySent,
		ProviderMessageID: resp.MessageID,
		RawResponse:       raw,
	}, nil
}
