// Package notify relays per-company notifications to the downstream consumer.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

// ErrDownstreamStatus is returned when the consumer answers with a non-2xx status.
var ErrDownstreamStatus = errors.New("downstream returned non-success status")

// DefaultTimeout bounds a single notification round trip.
const DefaultTimeout = 120 * time.Second

const maxResponseBytes = 1 << 20

// WebhookConfig configures the downstream endpoint.
type WebhookConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// Webhook posts notifications as JSON to a fixed endpoint.
type Webhook struct {
	endpoint string
	client   *http.Client
}

// NewWebhook constructs a Webhook. A nil client gets one with the configured
// timeout.
func NewWebhook(cfg WebhookConfig, client *http.Client) (*Webhook, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("notify endpoint is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Webhook{endpoint: cfg.Endpoint, client: client}, nil
}

// Notify sends one notification and decodes the consumer's reply. The raw
// body is kept so it can be forwarded unchanged; a 2xx reply that is not a
// JSON object still counts as delivered, with an empty Message.
func (w *Webhook) Notify(ctx context.Context, n harvest.Notification) (harvest.NotificationResponse, error) {
	if n.Emails == nil {
		n.Emails = []string{}
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return harvest.NotificationResponse{}, fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(payload))
	if err != nil {
		return harvest.NotificationResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return harvest.NotificationResponse{}, fmt.Errorf("post notification: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return harvest.NotificationResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return harvest.NotificationResponse{Raw: raw}, fmt.Errorf("%w: %d", ErrDownstreamStatus, resp.StatusCode)
	}

	var decoded harvest.NotificationResponse
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &decoded) == nil {
		return harvest.NotificationResponse{Message: decoded.Message, Raw: raw}, nil
	}
	return harvest.NotificationResponse{Raw: raw}, nil
}
