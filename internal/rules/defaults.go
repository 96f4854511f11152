package rules

import "github.com/good-yellow-bee/pulseboard/internal/models"

// Defaults is the initial (metric, operator, threshold, duration)
// branch state for a category or metric.
type Defaults struct {
	Metric    models.Metric
	Operator  models.Operator
	Threshold float64
	Duration  int
}

// CategoryDefaults returns the default branch state entered when a
// rule's category changes. Switching category is a total replacement
// of the dependent fields, never a partial merge, so stale
// operator/threshold combinations from the previous branch cannot
// survive the switch.
func CategoryDefaults(category models.Category) Defaults {
	if category == models.CategoryEndpoint {
		return Defaults{
			Metric:    models.MetricHTTPStatus,
			Operator:  models.OpGTE,
			Threshold: 400,
			Duration:  3, // consecutive failing checks
		}
	}
	return Defaults{
		Metric:    models.MetricCPU,
		Operator:  models.OpGT,
		Threshold: 80,
		Duration:  3, // minutes
	}
}

// MetricDefaults returns the default (operator, threshold, duration)
// entered when the metric changes within a category.
func MetricDefaults(metric models.Metric) Defaults {
	switch metric {
	case models.MetricHTTPStatus:
		return Defaults{Metric: metric, Operator: models.OpGTE, Threshold: 400, Duration: 3}
	case models.MetricResponseTime:
		return Defaults{Metric: metric, Operator: models.OpGT, Threshold: 3000, Duration: 3}
	default:
		return Defaults{Metric: metric, Operator: models.OpGT, Threshold: 80, Duration: 3}
	}
}

// ResetCategory returns a copy of the rule moved to the given category
// with all dependent fields replaced by that category's defaults.
func ResetCategory(rule models.AlertRule, category models.Category) models.AlertRule {
	d := CategoryDefaults(category)
	rule.Category = category
	rule.Metric = d.Metric
	rule.Operator = d.Operator
	rule.Threshold = d.Threshold
	rule.Duration = d.Duration
	if category != models.CategoryEndpoint {
		rule.ServiceID = ""
	}
	return rule
}

// ResetMetric returns a copy of the rule moved to the given metric
// with operator, threshold and duration replaced by that metric's
// defaults. The metric must already belong to the rule's category;
// callers validate that separately.
func ResetMetric(rule models.AlertRule, metric models.Metric) models.AlertRule {
	d := MetricDefaults(metric)
	rule.Metric = metric
	rule.Operator = d.Operator
	rule.Threshold = d.Threshold
	rule.Duration = d.Duration
	return rule
}
