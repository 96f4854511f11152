package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/schedule"
)

// SeedRule is the YAML form of an alert rule used to bootstrap a
// fresh installation with a default rule set.
type SeedRule struct {
	Name      string   `yaml:"name"`
	Category  string   `yaml:"category"`
	Metric    string   `yaml:"metric,omitempty"`
	ServiceID string   `yaml:"service_id,omitempty"`
	Operator  string   `yaml:"operator,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty"`
	Duration  *int     `yaml:"duration,omitempty"`
	Severity  string   `yaml:"severity,omitempty"`
	Cooldown  *int     `yaml:"cooldown,omitempty"`
	Channels  []string `yaml:"channels,omitempty"`
	Schedule  string   `yaml:"schedule,omitempty"`
	Enabled   *bool    `yaml:"enabled,omitempty"`
}

// SeedConfig is the top-level YAML document.
type SeedConfig struct {
	Rules []*SeedRule `yaml:"rules"`
}

// ToRule converts a validated seed rule into the normalized model.
// Fields the seed omits take the category/metric defaults.
func (s *SeedRule) ToRule() *models.AlertRule {
	category := models.Category(s.Category)
	rule := models.NewAlertRule(s.Name, category)

	d := CategoryDefaults(category)
	if s.Metric != "" {
		d = MetricDefaults(models.Metric(s.Metric))
	}
	rule.Metric = d.Metric
	rule.Operator = d.Operator
	rule.Threshold = d.Threshold
	rule.Duration = d.Duration

	if s.Operator != "" {
		rule.Operator = models.ParseOperator(s.Operator)
	}
	if s.Threshold != nil {
		rule.Threshold = *s.Threshold
	}
	if s.Duration != nil {
		rule.Duration = *s.Duration
	}
	if s.Severity != "" {
		rule.Severity = models.ParseSeverity(s.Severity)
	}
	if s.Cooldown != nil {
		rule.Cooldown = *s.Cooldown
	}
	if s.Channels != nil {
		rule.ChannelIDs = s.Channels
	}
	rule.ServiceID = s.ServiceID
	rule.Schedule = s.Schedule
	if s.Enabled != nil {
		rule.Enabled = *s.Enabled
	}
	return rule
}

// Validate checks a seed rule for structural errors.
func (s *SeedRule) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("rule name is required")
	}

	category := models.Category(s.Category)
	if category != models.CategoryResource && category != models.CategoryEndpoint {
		return fmt.Errorf("invalid category %q for rule %q", s.Category, s.Name)
	}

	if s.Metric != "" && !models.ValidMetric(category, models.Metric(s.Metric)) {
		return fmt.Errorf("metric %q is not valid for category %q in rule %q",
			s.Metric, s.Category, s.Name)
	}

	if s.Duration != nil && *s.Duration <= 0 {
		return fmt.Errorf("duration must be positive for rule %q", s.Name)
	}

	if s.Cooldown != nil {
		if *s.Cooldown < models.CooldownMinSeconds || *s.Cooldown > models.CooldownMaxSeconds {
			return fmt.Errorf("cooldown must be between %d and %d seconds for rule %q",
				models.CooldownMinSeconds, models.CooldownMaxSeconds, s.Name)
		}
	}

	if s.Schedule != "" && !schedule.Recognized(s.Schedule) {
		return fmt.Errorf("unrecognized schedule %q for rule %q", s.Schedule, s.Name)
	}

	return nil
}

// LoadSeedFile loads seed rules from a YAML file.
func LoadSeedFile(path string) ([]*models.AlertRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed rules file: %w", err)
	}
	defer f.Close()

	return LoadSeed(f)
}

// LoadSeed loads seed rules from a reader.
func LoadSeed(r io.Reader) ([]*models.AlertRule, error) {
	var config SeedConfig
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("parse seed rules YAML: %w", err)
	}

	rules := make([]*models.AlertRule, 0, len(config.Rules))
	for i, seed := range config.Rules {
		if err := seed.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
		rules = append(rules, seed.ToRule())
	}

	return rules, nil
}
