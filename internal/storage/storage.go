// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Rules() RuleRepository
	Channels() ChannelRepository
	Services() ServiceRepository
	Notifications() NotificationRepository
	ReadMarks() ReadMarkRepository
}

// RuleRepository defines operations for alert rule management.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.AlertRule) error
	GetByID(ctx context.Context, id string) (*models.AlertRule, error)
	Update(ctx context.Context, rule *models.AlertRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.AlertRule, error)
	ListEnabled(ctx context.Context) ([]*models.AlertRule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

// ChannelRepository defines operations for notification channel management.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	Update(ctx context.Context, channel *models.Channel) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Channel, error)
}

// ServiceRepository defines operations for monitored service management.
type ServiceRepository interface {
	Create(ctx context.Context, service *models.Service) error
	GetByID(ctx context.Context, id string) (*models.Service, error)
	Update(ctx context.Context, service *models.Service) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Service, error)
	UpdateStatus(ctx context.Context, id string, status models.ServiceStatus, checkedAt time.Time) error
}

// NotificationRepository defines operations for the notification feed.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, limit, offset int) ([]*models.Notification, int64, error)
	ListByRule(ctx context.Context, ruleID string, limit, offset int) ([]*models.Notification, int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ReadMarkRepository persists the ordered set of read notification IDs.
// Load returns IDs oldest-first; Save replaces the stored list.
type ReadMarkRepository interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}
