package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/alerting"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// WebhookConfig holds generic webhook configuration.
type WebhookConfig struct {
	URL string `json:"url"`
	// Headers are extra request headers, e.g. an Authorization token.
	Headers map[string]string `json:"headers,omitempty"`
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("webhook URL must be HTTP(S)")
	}
	return nil
}

// WebhookNotifier POSTs the alert event as JSON to a configured URL.
type WebhookNotifier struct {
	id         string
	name       string
	config     WebhookConfig
	httpClient *http.Client
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(id, name string, config WebhookConfig) (*WebhookNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}

	return &WebhookNotifier{
		id:     id,
		name:   name,
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// ID returns the channel ID.
func (w *WebhookNotifier) ID() string {
	return w.id
}

// Name returns the channel display name.
func (w *WebhookNotifier) Name() string {
	return w.name
}

// Type returns the channel type.
func (w *WebhookNotifier) Type() string {
	return string(models.ChannelWebhook)
}

// Send POSTs the event to the configured URL.
func (w *WebhookNotifier) Send(ctx context.Context, event *alerting.Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op for the webhook notifier.
func (w *WebhookNotifier) Close() error {
	return nil
}
