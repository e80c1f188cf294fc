package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// gatewayClient posts JSON to a vendor HTTP gateway (SMS, push, WhatsApp).
// Transient transport errors (network failures, 429, 5xx) are retried a
// bounded number of times inside one delivery attempt; anything else is
// final for the attempt and left to the engine's retry state machine.
type gatewayClient struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	transportTries int
	retryWait      time.Duration
}

// gatewayResponse is the common response envelope the vendor gateways return.
type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func newGatewayClient(baseURL, apiKey string, timeout time.Duration) gatewayClient {
	return gatewayClient{
		baseURL:        baseURL,
		apiKey:         apiKey,
		httpClient:     &http.Client{Timeout: timeout},
		transportTries: 3,
		retryWait:      time.Second,
	}
}

// post sends one JSON payload, retrying transient failures.
func (g gatewayClient) post(ctx context.Context, path string, payload any) (gatewayResponse, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gatewayResponse{}, "", fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < g.transportTries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return gatewayResponse{}, "", ctx.Err()
			case <-time.After(g.retryWait):
			}
		}

		resp, raw, err := g.doOnce(ctx, path, body)
		if err == nil {
			return resp, raw, nil
		}
		lastErr = err

		if !isTransient(err) {
			break
		}
	}
	return gatewayResponse{}, "", lastErr
}

func (g gatewayClient) doOnce(ctx context.Context, path string, body []byte) (gatewayResponse, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return gatewayResponse{}, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return gatewayResponse{}, "", transientError{err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 64<<10))
	if err != nil {
		return gatewayResponse{}, "", transientError{err}
	}

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		return gatewayResponse{}, string(raw), transientError{fmt.Errorf("gateway returned %d: %s", httpResp.StatusCode, raw)}
	}
	if httpResp.StatusCode >= 400 {
		return gatewayResponse{}, string(raw), fmt.Errorf("gateway rejected request with %d: %s", httpResp.StatusCode, raw)
	}

	var resp gatewayResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return gatewayResponse{}, string(raw), fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if resp.Error != "" {
		return gatewayResponse{}, string(raw), fmt.Errorf("gateway error: %s", resp.Error)
	}
	return resp, string(raw), nil
}

// transientError marks failures worth an in-attempt retry.
type transientError struct{ err error }

func (t transientError) Error() string { return t.err.Error() }
func (t transientError) Unwrap() error { return t.err }

func isTransient(err error) bool {
	_, ok := err.(transientError)
	return ok
}
