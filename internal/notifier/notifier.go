// Package notifier provides notification dispatching for alert events.
package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/good-yellow-bee/pulseboard/internal/alerting"
	"github.com/good-yellow-bee/pulseboard/internal/metrics"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// Notifier is the interface for a single notification channel.
type Notifier interface {
	// ID returns the channel's stable identifier.
	ID() string
	// Name returns the channel's display name.
	Name() string
	// Type returns the channel type (slack, email, webhook).
	Type() string
	// Send sends an alert event.
	Send(ctx context.Context, event *alerting.Event) error
	// Close releases any resources.
	Close() error
}

// ErrRateLimited is returned when a notification is dropped due to rate limiting.
var ErrRateLimited = fmt.Errorf("notification rate limited")

// Dispatcher routes events to notification channels. An event with an
// empty channel set is sent to every registered channel.
type Dispatcher struct {
	mu          sync.RWMutex
	notifiers   map[string]Notifier
	rateLimiter *RateLimiter
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher() *Dispatcher {
	return NewDispatcherWithRateLimit(DefaultRateLimitConfig())
}

// NewDispatcherWithRateLimit creates a dispatcher with a custom rate limit.
func NewDispatcherWithRateLimit(config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifiers:   make(map[string]Notifier),
		rateLimiter: NewRateLimiter(config),
	}
}

// Register adds a notifier, replacing any with the same ID.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.ID()] = n
}

// Unregister removes a notifier by ID.
func (d *Dispatcher) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifiers, id)
}

// Get returns a notifier by ID.
func (d *Dispatcher) Get(id string) (Notifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifiers[id]
	return n, ok
}

// Dispatch sends an event to the channels it references, or to all
// registered channels when its channel set is empty. Returns
// ErrRateLimited if the event is dropped by the rate limiter.
func (d *Dispatcher) Dispatch(ctx context.Context, event *alerting.Event) error {
	if d.rateLimiter != nil && !d.rateLimiter.Allow() {
		metrics.NotificationsDroppedTotal.Inc()
		return ErrRateLimited
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	if len(event.ChannelIDs) == 0 {
		for id, n := range d.notifiers {
			if err := d.send(ctx, n, event); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
			}
		}
	} else {
		for _, id := range event.ChannelIDs {
			n, ok := d.notifiers[id]
			if !ok {
				continue
			}
			if err := d.send(ctx, n, event); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, n Notifier, event *alerting.Event) error {
	if err := n.Send(ctx, event); err != nil {
		metrics.NotificationErrors.WithLabelValues(n.Type()).Inc()
		return err
	}
	metrics.NotificationsSentTotal.WithLabelValues(n.Type()).Inc()
	return nil
}

// CloseAll closes every registered notifier.
func (d *Dispatcher) CloseAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for id, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	d.notifiers = make(map[string]Notifier)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Stats returns dispatcher statistics.
func (d *Dispatcher) Stats() (registered int, dropped int64) {
	d.mu.RLock()
	registered = len(d.notifiers)
	d.mu.RUnlock()
	if d.rateLimiter != nil {
		dropped = d.rateLimiter.Dropped()
	}
	return registered, dropped
}

// FromChannel constructs a notifier from a stored channel definition.
func FromChannel(ch *models.Channel) (Notifier, error) {
	switch ch.Type {
	case models.ChannelSlack:
		var cfg SlackConfig
		if err := ch.GetSettings(&cfg); err != nil {
			return nil, fmt.Errorf("channel %s settings: %w", ch.ID, err)
		}
		return NewSlackNotifier(ch.ID, ch.Name, cfg)
	case models.ChannelEmail:
		var cfg EmailConfig
		if err := ch.GetSettings(&cfg); err != nil {
			return nil, fmt.Errorf("channel %s settings: %w", ch.ID, err)
		}
		return NewEmailNotifier(ch.ID, ch.Name, cfg)
	case models.ChannelWebhook:
		var cfg WebhookConfig
		if err := ch.GetSettings(&cfg); err != nil {
			return nil, fmt.Errorf("channel %s settings: %w", ch.ID, err)
		}
		return NewWebhookNotifier(ch.ID, ch.Name, cfg)
	default:
		return nil, fmt.Errorf("unknown channel type %q", ch.Type)
	}
}
