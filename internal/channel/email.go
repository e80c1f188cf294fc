package channel

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/medicore/notify/internal/notification"
)

// EmailConfig configures the Postmark-backed email provider.
type EmailConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"POSTMARK_SENDER_EMAIL"`
	MessageTag   string `env:"POSTMARK_MESSAGE_TAG" envDefault:"hospital-notify"`
}

// postmarkSender is the subset of the Postmark client the provider uses,
// extracted for testing.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailProvider delivers notifications over transactional email.
type EmailProvider struct {
	client postmarkSender
	cfg    EmailConfig
}

// NewEmailProvider creates a Postmark-backed email provider. Tokens are
// required up front so a misconfigured service fails at startup, not on the
// first urgent notification.
func NewEmailProvider(cfg EmailConfig) (*EmailProvider, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SENDER_EMAIL is required", ErrInvalidConfig)
	}

	return &EmailProvider{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

// Channel implements Provider.
func (p *EmailProvider) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send implements Provider.
func (p *EmailProvider) Send(ctx context.Context, rcpt notification.Recipient, subject, body string, metadata map[string]string) (DeliveryResult, error) {
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.cfg.SenderEmail,
		To:       rcpt.Address,
		Subject:  subject,
		TextBody: body,
		Tag:      p.cfg.MessageTag,
	})
	if err != nil {
		return failureResult(fmt.Errorf("%w: %v", ErrSendFailed, err), ""), nil
	}
	if resp.ErrorCode > 0 {
		return failureResult(
			fmt.Errorf("%w: postmark error %d: %s", ErrSendFailed, resp.ErrorCode, resp.Message),
			resp.Message,
		), nil
	}

	return DeliveryResult{
		Success:           true,
		Status:            DeliverySent,
		ProviderMessageID: resp.MessageID,
		RawResponse:       resp.Message,
	}, nil
}
