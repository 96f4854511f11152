package rules

import (
	"testing"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		family    Family
		operator  models.Operator
		threshold float64
		want      string
	}{
		{"http 2xx", FamilyHTTPStatus, models.OpLTE, 299, "2xx"},
		{"http 4xx", FamilyHTTPStatus, models.OpGTE, 400, "4xx"},
		{"http 5xx", FamilyHTTPStatus, models.OpGTE, 500, "5xx"},
		{"http 4xx wrong operator", FamilyHTTPStatus, models.OpGT, 400, "custom"},
		{"http off by one", FamilyHTTPStatus, models.OpGTE, 401, "custom"},
		{"http float exact", FamilyHTTPStatus, models.OpGTE, 400.0, "4xx"},
		{"http float drift", FamilyHTTPStatus, models.OpGTE, 400.0000001, "custom"},
		{"response 1s", FamilyResponseTime, models.OpGT, 1000, "1s"},
		{"response 3s", FamilyResponseTime, models.OpGT, 3000, "3s"},
		{"response 10s", FamilyResponseTime, models.OpGT, 10000, "10s"},
		{"response unnamed", FamilyResponseTime, models.OpGT, 2500, "custom"},
		{"response wrong operator", FamilyResponseTime, models.OpGTE, 3000, "custom"},
		{"resource 70", FamilyResourceThreshold, models.OpGT, 70, "70"},
		{"resource 95", FamilyResourceThreshold, models.OpGT, 95, "95"},
		{"resource wrong operator", FamilyResourceThreshold, models.OpLT, 80, "custom"},
		{"resource unnamed", FamilyResourceThreshold, models.OpGT, 85, "custom"},
		{"unknown family", Family("bogus"), models.OpGT, 80, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.family, tt.operator, tt.threshold)
			if got != tt.want {
				t.Errorf("Detect(%s, %s, %v) = %q, want %q",
					tt.family, tt.operator, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestDetectValue(t *testing.T) {
	tests := []struct {
		name   string
		family Family
		value  int
		want   string
	}{
		{"endpoint duration 1", FamilyEndpointDuration, 1, "1"},
		{"endpoint duration 3", FamilyEndpointDuration, 3, "3"},
		{"endpoint duration 10 not a bucket", FamilyEndpointDuration, 10, "custom"},
		{"resource duration 10", FamilyResourceDuration, 10, "10"},
		{"resource duration 7", FamilyResourceDuration, 7, "custom"},
		{"cooldown 5min", FamilyCooldown, 300, "5min"},
		{"cooldown 30min", FamilyCooldown, 1800, "30min"},
		{"cooldown 1h", FamilyCooldown, 3600, "1h"},
		{"cooldown 20min not a bucket", FamilyCooldown, 1200, "custom"},
		{"cooldown zero", FamilyCooldown, 0, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectValue(tt.family, tt.value)
			if got != tt.want {
				t.Errorf("DetectValue(%s, %d) = %q, want %q", tt.family, tt.value, got, tt.want)
			}
		})
	}
}

// Every non-custom preset must survive an apply/detect round-trip.
func TestApplyDetectRoundTrip(t *testing.T) {
	for family, table := range presetTables {
		for _, p := range table {
			patch, ok := Apply(family, p.Name)
			if !ok {
				t.Errorf("Apply(%s, %q) returned false", family, p.Name)
				continue
			}
			got := Detect(family, patch.Operator, patch.Threshold)
			if got != p.Name {
				t.Errorf("Detect(%s, Apply(%s, %q)) = %q, want %q",
					family, family, p.Name, got, p.Name)
			}
		}
	}
}

func TestApplyCustom(t *testing.T) {
	for _, family := range []Family{
		FamilyHTTPStatus, FamilyResponseTime, FamilyResourceThreshold,
		FamilyEndpointDuration, FamilyResourceDuration, FamilyCooldown,
	} {
		patch, ok := Apply(family, PresetCustom)
		if ok {
			t.Errorf("Apply(%s, custom) returned true", family)
		}
		if patch != (Patch{}) {
			t.Errorf("Apply(%s, custom) = %+v, want empty patch", family, patch)
		}

		if _, ok := Apply(family, "no-such-preset"); ok {
			t.Errorf("Apply(%s, unknown) returned true", family)
		}
	}
}

func TestApplyValue(t *testing.T) {
	value, ok := ApplyValue(FamilyCooldown, "15min")
	if !ok || value != 900 {
		t.Errorf("ApplyValue(cooldown, 15min) = %d, %v, want 900, true", value, ok)
	}
	if _, ok := ApplyValue(FamilyCooldown, "custom"); ok {
		t.Error("ApplyValue(cooldown, custom) returned true")
	}
}

func TestFamilyFor(t *testing.T) {
	tests := []struct {
		metric models.Metric
		want   Family
	}{
		{models.MetricHTTPStatus, FamilyHTTPStatus},
		{models.MetricResponseTime, FamilyResponseTime},
		{models.MetricCPU, FamilyResourceThreshold},
		{models.MetricMemory, FamilyResourceThreshold},
		{models.MetricDisk, FamilyResourceThreshold},
	}
	for _, tt := range tests {
		if got := FamilyFor(tt.metric); got != tt.want {
			t.Errorf("FamilyFor(%s) = %s, want %s", tt.metric, got, tt.want)
		}
	}

	if got := DurationFamilyFor(models.CategoryEndpoint); got != FamilyEndpointDuration {
		t.Errorf("DurationFamilyFor(endpoint) = %s", got)
	}
	if got := DurationFamilyFor(models.CategoryResource); got != FamilyResourceDuration {
		t.Errorf("DurationFamilyFor(resource) = %s", got)
	}
}
