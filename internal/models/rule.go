// Package models defines domain models for Pulseboard.
package models

import "time"

// Category is the top-level rule classification. It determines which
// metric set applies to the rule.
type Category string

const (
	// CategoryResource covers host resource metrics (cpu, memory, disk).
	CategoryResource Category = "resource"
	// CategoryEndpoint covers service endpoint metrics (http_status, response_time).
	CategoryEndpoint Category = "endpoint"
)

// Metric identifies the measured quantity a rule evaluates.
type Metric string

const (
	MetricCPU          Metric = "cpu"
	MetricMemory       Metric = "memory"
	MetricDisk         Metric = "disk"
	MetricHTTPStatus   Metric = "http_status"
	MetricResponseTime Metric = "response_time"
)

// MetricsFor returns the valid metrics for a category.
func MetricsFor(category Category) []Metric {
	if category == CategoryEndpoint {
		return []Metric{MetricHTTPStatus, MetricResponseTime}
	}
	return []Metric{MetricCPU, MetricMemory, MetricDisk}
}

// ValidMetric reports whether metric belongs to category.
func ValidMetric(category Category, metric Metric) bool {
	for _, m := range MetricsFor(category) {
		if m == metric {
			return true
		}
	}
	return false
}

// Operator is a threshold comparison operator.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpEQ  Operator = "eq"
)

// ParseOperator converts a string to Operator. Unknown strings
// default to OpGT.
func ParseOperator(s string) Operator {
	switch s {
	case "gt", ">":
		return OpGT
	case "gte", ">=":
		return OpGTE
	case "lt", "<":
		return OpLT
	case "lte", "<=":
		return OpLTE
	case "eq", "==":
		return OpEQ
	default:
		return OpGT
	}
}

// Severity represents alert severity level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "warning":
		return SeverityWarning
	case "info":
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// Cooldown bounds in seconds, enforced at the API boundary.
const (
	CooldownMinSeconds = 60
	CooldownMaxSeconds = 86400
)

// AlertRule is the normalized, persisted form of an alert rule.
//
// Threshold units are implied by the metric: percent for resource
// metrics, raw status code or milliseconds for endpoint metrics.
// Duration units are implied by the category: minutes for resource
// rules, consecutive failing checks for endpoint rules.
type AlertRule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Metric    Metric    `json:"metric"`
	ServiceID string    `json:"service_id,omitempty"`
	Operator  Operator  `json:"operator"`
	Threshold float64   `json:"threshold"`
	Duration  int       `json:"duration"`
	Severity  Severity  `json:"severity"`
	Cooldown  int       `json:"cooldown"` // seconds
	// ChannelIDs references notification channels. Empty means all channels.
	ChannelIDs []string `json:"channel_ids"`
	// Schedule is the optional check schedule as a cron expression.
	Schedule  string    `json:"schedule,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAlertRule creates an AlertRule with initialized timestamps.
func NewAlertRule(name string, category Category) *AlertRule {
	now := time.Now()
	return &AlertRule{
		Name:       name,
		Category:   category,
		Severity:   SeverityWarning,
		Cooldown:   300,
		ChannelIDs: []string{},
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Compare applies the rule's operator to a measured value.
// Equality is strict, matching the preset detection contract.
func (r *AlertRule) Compare(value float64) bool {
	switch r.Operator {
	case OpGT:
		return value > r.Threshold
	case OpGTE:
		return value >= r.Threshold
	case OpLT:
		return value < r.Threshold
	case OpLTE:
		return value <= r.Threshold
	case OpEQ:
		return value == r.Threshold
	default:
		return false
	}
}
