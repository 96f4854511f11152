package rules

import (
	"testing"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

func TestCategoryDefaults(t *testing.T) {
	resource := CategoryDefaults(models.CategoryResource)
	if resource.Metric != models.MetricCPU || resource.Operator != models.OpGT ||
		resource.Threshold != 80 || resource.Duration != 3 {
		t.Errorf("resource defaults = %+v, want cpu/gt/80/3", resource)
	}

	endpoint := CategoryDefaults(models.CategoryEndpoint)
	if endpoint.Metric != models.MetricHTTPStatus || endpoint.Operator != models.OpGTE ||
		endpoint.Threshold != 400 || endpoint.Duration != 3 {
		t.Errorf("endpoint defaults = %+v, want http_status/gte/400/3", endpoint)
	}
}

// Switching category must fully replace the dependent fields, no
// matter what the prior branch held.
func TestResetCategoryTotalReplacement(t *testing.T) {
	rule := models.AlertRule{
		ID:        "r1",
		Category:  models.CategoryEndpoint,
		Metric:    models.MetricResponseTime,
		ServiceID: "svc-1",
		Operator:  models.OpLTE,
		Threshold: 437,
		Duration:  9,
		Severity:  models.SeverityCritical,
		Cooldown:  900,
		Enabled:   true,
	}

	got := ResetCategory(rule, models.CategoryResource)

	if got.Metric != models.MetricCPU || got.Operator != models.OpGT ||
		got.Threshold != 80 || got.Duration != 3 {
		t.Errorf("ResetCategory = %s/%s/%v/%d, want cpu/gt/80/3",
			got.Metric, got.Operator, got.Threshold, got.Duration)
	}
	if got.ServiceID != "" {
		t.Errorf("ServiceID = %q, want cleared on resource switch", got.ServiceID)
	}

	// Fields independent of the branch survive.
	if got.ID != "r1" || got.Severity != models.SeverityCritical || got.Cooldown != 900 || !got.Enabled {
		t.Errorf("independent fields changed: %+v", got)
	}

	// Input rule is not mutated.
	if rule.Metric != models.MetricResponseTime || rule.Threshold != 437 {
		t.Errorf("input rule mutated: %+v", rule)
	}
}

func TestResetMetric(t *testing.T) {
	rule := models.AlertRule{
		Category:  models.CategoryEndpoint,
		Metric:    models.MetricHTTPStatus,
		Operator:  models.OpGTE,
		Threshold: 500,
		Duration:  5,
	}

	got := ResetMetric(rule, models.MetricResponseTime)
	if got.Metric != models.MetricResponseTime || got.Operator != models.OpGT ||
		got.Threshold != 3000 || got.Duration != 3 {
		t.Errorf("ResetMetric(response_time) = %s/%s/%v/%d, want response_time/gt/3000/3",
			got.Metric, got.Operator, got.Threshold, got.Duration)
	}

	back := ResetMetric(got, models.MetricHTTPStatus)
	if back.Operator != models.OpGTE || back.Threshold != 400 || back.Duration != 3 {
		t.Errorf("ResetMetric(http_status) = %s/%v/%d, want gte/400/3",
			back.Operator, back.Threshold, back.Duration)
	}
}
