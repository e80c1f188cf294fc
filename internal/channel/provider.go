package channel

import (
	"context"
	"errors"

	"github.com/medicore/notify/internal/notification"
)

var (
	// ErrProviderNil is returned when registering a nil provider.
	ErrProviderNil = errors.New("provider cannot be nil")

	// ErrInvalidChannel is returned when registering under an unknown channel.
	ErrInvalidChannel = errors.New("unknown notification channel")

	// ErrProviderNotFound is returned when no provider serves a channel.
	ErrProviderNotFound = errors.New("no provider registered for channel")

	// ErrInvalidConfig is returned when a provider config is incomplete.
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrSendFailed wraps transport errors from a provider backend.
	ErrSendFailed = errors.New("provider send failed")
)

// DeliveryStatus is the outcome a provider reports for one send.
type DeliveryStatus string

const (
	// DeliverySent means the backend accepted the message for delivery.
	DeliverySent DeliveryStatus = "sent"
	// DeliveryDelivered means the backend confirmed receipt synchronously.
	DeliveryDelivered DeliveryStatus = "delivered"
	// DeliveryFailed means the attempt failed; the engine decides on retry.
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryResult describes the outcome of one send attempt.
type DeliveryResult struct {
	Success           bool
	Status            DeliveryStatus
	ProviderMessageID string
	ErrorMessage      string
	RawResponse       string
}

// Provider is one delivery backend. Implementations retry transient
// transport errors internally and report the final attempt outcome; they
// return an error only for failures the result cannot express (programming
// errors, canceled contexts).
type Provider interface {
	// Channel reports which notification channel this provider serves.
	Channel() notification.Channel

	// Send dispatches one message to the recipient's resolved address.
	Send(ctx context.Context, rcpt notification.Recipient, subject, body string, metadata map[string]string) (DeliveryResult, error)
}

// failureResult builds a failed DeliveryResult from an error.
func failureResult(err error, raw string) DeliveryResult {
	return DeliveryResult{
		Success:      false,
		Status:       DeliveryFailed,
		ErrorMessage: err.Error(),
		RawResponse:  raw,
	}
}
