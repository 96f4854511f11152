package models

import "time"

// ServiceStatus is the last observed health of a monitored service.
type ServiceStatus string

const (
	StatusUnknown  ServiceStatus = "unknown"
	StatusUp       ServiceStatus = "up"
	StatusDegraded ServiceStatus = "degraded"
	StatusDown     ServiceStatus = "down"
)

// Service is a monitored HTTP endpoint.
type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	// ExpectedStatus is the HTTP status treated as healthy (default 200).
	ExpectedStatus int           `json:"expected_status"`
	TimeoutSec     int           `json:"timeout_sec"`
	Status         ServiceStatus `json:"status"`
	LastCheckedAt  *time.Time    `json:"last_checked_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// CheckResult is a single recorded health-check observation.
type CheckResult struct {
	ServiceID    string        `json:"service_id"`
	Timestamp    time.Time     `json:"timestamp"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	OK           bool          `json:"ok"`
	Error        string        `json:"error,omitempty"`
}

// MetricSample is a host resource measurement.
type MetricSample struct {
	HostID    string    `json:"host_id"`
	Metric    Metric    `json:"metric"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
