package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/alerting"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

type mockNotifier struct {
	id      string
	sent    []*alerting.Event
	sendErr error
	closed  bool
}

func (m *mockNotifier) ID() string   { return m.id }
func (m *mockNotifier) Name() string { return "mock " + m.id }
func (m *mockNotifier) Type() string { return "webhook" }
func (m *mockNotifier) Send(ctx context.Context, event *alerting.Event) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, event)
	return nil
}
func (m *mockNotifier) Close() error {
	m.closed = true
	return nil
}

func testEvent(channelIDs []string) *alerting.Event {
	return &alerting.Event{
		RuleID:     "rule-1",
		RuleName:   "cpu high",
		Severity:   models.SeverityWarning,
		Message:    "cpu above 80% for 3 minutes",
		Value:      91,
		Timestamp:  time.Now(),
		ChannelIDs: channelIDs,
	}
}

func TestDispatchToNamedChannels(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	a := &mockNotifier{id: "ch-a"}
	b := &mockNotifier{id: "ch-b"}
	d.Register(a)
	d.Register(b)

	if err := d.Dispatch(context.Background(), testEvent([]string{"ch-a"})); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(a.sent) != 1 {
		t.Errorf("ch-a received %d events, want 1", len(a.sent))
	}
	if len(b.sent) != 0 {
		t.Errorf("ch-b received %d events, want 0", len(b.sent))
	}
}

// An empty channel set means "all channels".
func TestDispatchEmptySetSendsToAll(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	a := &mockNotifier{id: "ch-a"}
	b := &mockNotifier{id: "ch-b"}
	d.Register(a)
	d.Register(b)

	if err := d.Dispatch(context.Background(), testEvent(nil)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("sent counts = %d, %d, want 1, 1", len(a.sent), len(b.sent))
	}
}

func TestDispatchUnknownChannelSkipped(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	a := &mockNotifier{id: "ch-a"}
	d.Register(a)

	if err := d.Dispatch(context.Background(), testEvent([]string{"ch-missing", "ch-a"})); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(a.sent) != 1 {
		t.Errorf("ch-a received %d events, want 1", len(a.sent))
	}
}

func TestDispatchRateLimited(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{MaxPerWindow: 1, Window: time.Minute, Enabled: true})
	a := &mockNotifier{id: "ch-a"}
	d.Register(a)

	if err := d.Dispatch(context.Background(), testEvent(nil)); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := d.Dispatch(context.Background(), testEvent(nil)); err != ErrRateLimited {
		t.Fatalf("second dispatch err = %v, want ErrRateLimited", err)
	}
	if len(a.sent) != 1 {
		t.Errorf("ch-a received %d events, want 1", len(a.sent))
	}
}

func TestUnregister(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	a := &mockNotifier{id: "ch-a"}
	d.Register(a)
	d.Unregister("ch-a")

	if err := d.Dispatch(context.Background(), testEvent(nil)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(a.sent) != 0 {
		t.Errorf("unregistered channel received %d events", len(a.sent))
	}
}

func TestCloseAll(t *testing.T) {
	d := NewDispatcher()
	a := &mockNotifier{id: "ch-a"}
	b := &mockNotifier{id: "ch-b"}
	d.Register(a)
	d.Register(b)

	if err := d.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("notifiers not closed")
	}
	if registered, _ := d.Stats(); registered != 0 {
		t.Errorf("registered = %d after CloseAll", registered)
	}
}

func TestFromChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel *models.Channel
		wantErr bool
	}{
		{
			name: "slack",
			channel: &models.Channel{
				ID: "ch-1", Name: "ops", Type: models.ChannelSlack,
				Settings: `{"webhook_url":"https://hooks.slack.com/services/T/B/x"}`,
			},
		},
		{
			name: "slack non-https",
			channel: &models.Channel{
				ID: "ch-2", Type: models.ChannelSlack,
				Settings: `{"webhook_url":"http://hooks.slack.com/x"}`,
			},
			wantErr: true,
		},
		{
			name: "webhook",
			channel: &models.Channel{
				ID: "ch-3", Type: models.ChannelWebhook,
				Settings: `{"url":"https://example.com/hook"}`,
			},
		},
		{
			name: "email",
			channel: &models.Channel{
				ID: "ch-4", Type: models.ChannelEmail,
				Settings: `{"host":"smtp.example.com","port":587,"from":"alerts@example.com","recipients":["ops@example.com"]}`,
			},
		},
		{
			name: "email missing recipients",
			channel: &models.Channel{
				ID: "ch-5", Type: models.ChannelEmail,
				Settings: `{"host":"smtp.example.com","port":587,"from":"alerts@example.com"}`,
			},
			wantErr: true,
		},
		{
			name:    "unknown type",
			channel: &models.Channel{ID: "ch-6", Type: "pager", Settings: `{}`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := FromChannel(tt.channel)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromChannel: %v", err)
			}
			if n.ID() != tt.channel.ID {
				t.Errorf("ID = %q, want %q", n.ID(), tt.channel.ID)
			}
		})
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxPerWindow: 2, Window: time.Minute, Enabled: true})
	base := time.Now()

	if !rl.AllowAt(base) || !rl.AllowAt(base.Add(time.Second)) {
		t.Fatal("first two should be allowed")
	}
	if rl.AllowAt(base.Add(2 * time.Second)) {
		t.Fatal("third within window should be dropped")
	}
	if rl.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", rl.Dropped())
	}
	if !rl.AllowAt(base.Add(2 * time.Minute)) {
		t.Fatal("allow after window slides")
	}
}
