package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/medicore/notify/internal/notification"
)

// WhatsAppConfig configures the WhatsApp Business gateway provider.
type WhatsAppConfig struct {
	BaseURL string        `env:"WHATSAPP_GATEWAY_URL"`
	APIKey  string        `env:"WHATSAPP_GATEWAY_API_KEY"`
	Timeout time.Duration `env:"WHATSAPP_GATEWAY_TIMEOUT" envDefault:"15s"`
}

// WhatsAppProvider delivers notifications through a WhatsApp Business API
// gateway. The recipient address is the phone number.
type WhatsAppProvider struct {
	gateway gatewayClient
}

// NewWhatsAppProvider creates a WhatsApp provider.
func NewWhatsAppProvider(cfg WhatsAppConfig) (*WhatsAppProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: WHATSAPP_GATEWAY_URL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: WHATSAPP_GATEWAY_API_KEY is required", ErrInvalidConfig)
	}

	return &WhatsAppProvider{gateway: newGatewayClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)}, nil
}

// Channel implements Provider.
func (p *WhatsAppProvider) Channel() notification.Channel {
	return notification.ChannelWhatsApp
}

// Send implements Provider. The gateway reports "delivered" synchronously
// when the recipient's device acknowledged during the request window; that
// is surfaced as DeliveryDelivered.
func (p *WhatsAppProvider) Send(ctx context.Context, rcpt notification.Recipient, subject, body string, metadata map[string]string) (DeliveryResult, error) {
	text := body
	if subject != "" {
		text = "*" + subject + "*\n" + body
	}

	resp, raw, err := p.gateway.post(ctx, "/v1/whatsapp/messages", map[string]any{
		"to":   rcpt.Address,
		"text": text,
	})
	if err != nil {
		return failureResult(fmt.Errorf("%w: %v", ErrSendFailed, err), raw), nil
	}

	status := DeliverySent
	if resp.Status == "delivered" {
		status = DeliveryDelivered
	}

	return DeliveryResult{
		Success:           true,
		Status:            status,
		ProviderMessageID: resp.MessageID,
		RawResponse:       raw,
	}, nil
}
