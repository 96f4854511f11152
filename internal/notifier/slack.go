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

// SlackConfig holds Slack webhook configuration.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// Validate validates the Slack configuration.
func (c *SlackConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must use HTTPS")
	}
	return nil
}

// SlackNotifier sends alert events to Slack via incoming webhook.
type SlackNotifier struct {
	id         string
	name       string
	config     SlackConfig
	httpClient *http.Client
}

// NewSlackNotifier creates a new Slack notifier.
func NewSlackNotifier(id, name string, config SlackConfig) (*SlackNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}

	return &SlackNotifier{
		id:     id,
		name:   name,
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// ID returns the channel ID.
func (s *SlackNotifier) ID() string {
	return s.id
}

// Name returns the channel display name.
func (s *SlackNotifier) Name() string {
	return s.name
}

// Type returns the channel type.
func (s *SlackNotifier) Type() string {
	return string(models.ChannelSlack)
}

// Send sends an event to Slack.
func (s *SlackNotifier) Send(ctx context.Context, event *alerting.Event) error {
	payload := s.buildPayload(event)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op for the Slack notifier.
func (s *SlackNotifier) Close() error {
	return nil
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (s *SlackNotifier) buildPayload(event *alerting.Event) slackPayload {
	return slackPayload{
		Attachments: []slackAttachment{
			{
				Color: severityColor(event.Severity),
				Title: fmt.Sprintf("[%s] %s", strings.ToUpper(string(event.Severity)), event.RuleName),
				Text:  event.Message,
				Fields: []slackField{
					{Title: "Severity", Value: string(event.Severity), Short: true},
					{Title: "Value", Value: fmt.Sprintf("%.1f", event.Value), Short: true},
				},
				Ts: event.Timestamp.Unix(),
			},
		},
	}
}

func severityColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "#d32f2f"
	case models.SeverityWarning:
		return "#f9a825"
	default:
		return "#1976d2"
	}
}
