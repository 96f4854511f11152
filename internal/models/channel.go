package models

import (
	"encoding/json"
	"time"
)

// ChannelType identifies the notification transport.
type ChannelType string

const (
	ChannelSlack   ChannelType = "slack"
	ChannelEmail   ChannelType = "email"
	ChannelWebhook ChannelType = "webhook"
)

// Channel is a configured notification destination.
type Channel struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      ChannelType `json:"type"`
	// Settings is a JSON-encoded, type-specific configuration blob
	// (webhook URL, SMTP recipients, etc).
	Settings  string    `json:"settings"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetSettings sets the settings blob from a structured value.
func (c *Channel) SetSettings(settings interface{}) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	c.Settings = string(data)
	return nil
}

// GetSettings unmarshals the settings blob into the provided target.
func (c *Channel) GetSettings(target interface{}) error {
	return json.Unmarshal([]byte(c.Settings), target)
}
