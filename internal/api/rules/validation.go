package rules

import (
	"fmt"
	"strings"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

const maxNameLength = 200

// ValidateName checks rule name requirements.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidateCategory maps the wire type to a category. The API accepts
// "service" and "resource"; internally "service" is the endpoint category.
func ValidateCategory(wireType string) (models.Category, error) {
	switch wireType {
	case "service":
		return models.CategoryEndpoint, nil
	case "resource":
		return models.CategoryResource, nil
	default:
		return "", fmt.Errorf("type must be \"service\" or \"resource\"")
	}
}

// WireType maps a category back to its wire representation.
func WireType(category models.Category) string {
	if category == models.CategoryEndpoint {
		return "service"
	}
	return "resource"
}

// ValidateMetric checks that a metric belongs to the category.
func ValidateMetric(category models.Category, metric string) (models.Metric, error) {
	m := models.Metric(metric)
	if !models.ValidMetric(category, m) {
		return "", fmt.Errorf("metric %q is not valid for type %q", metric, WireType(category))
	}
	return m, nil
}

// ValidateOperator parses and checks an operator. ParseOperator itself
// never fails, so the wire value is checked before parsing.
func ValidateOperator(s string) (models.Operator, error) {
	switch s {
	case "gt", "gte", "lt", "lte", "eq":
		return models.ParseOperator(s), nil
	default:
		return "", fmt.Errorf("operator must be one of gt, gte, lt, lte, eq")
	}
}

// ValidateSeverity parses and checks a severity.
func ValidateSeverity(s string) (models.Severity, error) {
	switch s {
	case "critical", "warning", "info":
		return models.ParseSeverity(s), nil
	default:
		return "", fmt.Errorf("severity must be one of critical, warning, info")
	}
}

// ValidateDuration checks the duration in minutes (endpoint: consecutive
// checks; resource: sustained minutes).
func ValidateDuration(duration int) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be greater than zero")
	}
	return nil
}

// ValidateCooldown checks the cooldown bounds in seconds.
func ValidateCooldown(cooldown int) error {
	if cooldown < models.CooldownMinSeconds || cooldown > models.CooldownMaxSeconds {
		return fmt.Errorf("cooldown must be between %d and %d seconds",
			models.CooldownMinSeconds, models.CooldownMaxSeconds)
	}
	return nil
}
