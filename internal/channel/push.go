package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/medicore/notify/internal/notification"
)

// PushConfig configures the push-notification gateway provider.
type PushConfig struct {
	BaseURL string        `env:"PUSH_GATEWAY_URL"`
	APIKey  string        `env:"PUSH_GATEWAY_API_KEY"`
	Timeout time.Duration `env:"PUSH_GATEWAY_TIMEOUT" envDefault:"15s"`
}

// PushProvider delivers notifications through a mobile push gateway. The
// recipient address is the device token.
type PushProvider struct {
	gateway gatewayClient
}

// NewPushProvider creates a push provider.
func NewPushProvider(cfg PushConfig) (*PushProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: PUSH_GATEWAY_URL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: PUSH_GATEWAY_API_KEY is required", ErrInvalidConfig)
	}

	return &PushProvider{gateway: newGatewayClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)}, nil
}

// Channel implements Provider.
func (p *PushProvider) Channel() notification.Channel {
	return notification.ChannelPush
}

// Send implements Provider. Metadata rides along as the data payload so the
// app can deep-link (e.g. to an appointment or lab result).
func (p *PushProvider) Send(ctx context.Context, rcpt notification.Recipient, subject, body string, metadata map[string]string) (DeliveryResult, error) {
	resp, raw, err := p.gateway.post(ctx, "/v1/push", map[string]any{
		"device_token": rcpt.Address,
		"title":        subject,
		"body":         body,
		"data":         metadata,
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
