package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/alerting"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host       string   `json:"host"`
	Port       int      `json:"port"` // 587 for STARTTLS
	Username   string   `json:"username,omitempty"`
	Password   string   `json:"password,omitempty"`
	From       string   `json:"from"`
	Recipients []string `json:"recipients"`
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	return nil
}

// EmailNotifier sends alert events via SMTP.
type EmailNotifier struct {
	id     string
	name   string
	config EmailConfig
}

// NewEmailNotifier creates a new email notifier.
func NewEmailNotifier(id, name string, config EmailConfig) (*EmailNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}

	return &EmailNotifier{id: id, name: name, config: config}, nil
}

// ID returns the channel ID.
func (e *EmailNotifier) ID() string {
	return e.id
}

// Name returns the channel display name.
func (e *EmailNotifier) Name() string {
	return e.name
}

// Type returns the channel type.
func (e *EmailNotifier) Type() string {
	return string(models.ChannelEmail)
}

// Send sends an event to all configured recipients.
func (e *EmailNotifier) Send(ctx context.Context, event *alerting.Event) error {
	subject := fmt.Sprintf("[%s] Pulseboard Alert: %s",
		strings.ToUpper(string(event.Severity)), event.RuleName)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.config.Recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Rule: %s\r\n", event.RuleName))
	msg.WriteString(fmt.Sprintf("Severity: %s\r\n", event.Severity))
	msg.WriteString(fmt.Sprintf("Time: %s\r\n", event.Timestamp.Format(time.RFC3339)))
	msg.WriteString(fmt.Sprintf("Value: %.1f\r\n", event.Value))
	msg.WriteString("\r\n")
	msg.WriteString(event.Message)
	msg.WriteString("\r\n")

	return e.sendMail(ctx, []byte(msg.String()))
}

// Close is a no-op for the email notifier.
func (e *EmailNotifier) Close() error {
	return nil
}

// sendMail delivers the message, honoring context cancellation by
// running the blocking SMTP exchange in a goroutine.
func (e *EmailNotifier) sendMail(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(e.config.Host, strconv.Itoa(e.config.Port))

	var auth smtp.Auth
	if e.config.Username != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, e.config.From, e.config.Recipients, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	}
}
