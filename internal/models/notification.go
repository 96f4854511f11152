package models

import "time"

// Notification records a triggered alert delivered to the dashboard feed.
type Notification struct {
	ID         string    `json:"id"`
	RuleID     string    `json:"rule_id"`
	RuleName   string    `json:"rule_name"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Value      float64   `json:"value"`
	NotifiedAt time.Time `json:"notified_at"`
	CreatedAt  time.Time `json:"created_at"`
}
