// Package rules provides the alert rule preset codec for Pulseboard.
// It maps between raw (operator, threshold) rule fields and the closed
// set of named presets the dashboard offers per metric family, with a
// "custom" sentinel for values no preset names.
package rules

import (
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// Family identifies a preset family.
type Family string

const (
	// FamilyHTTPStatus buckets HTTP status thresholds (2xx/4xx/5xx).
	FamilyHTTPStatus Family = "http_status"
	// FamilyResponseTime buckets response time thresholds in milliseconds.
	FamilyResponseTime Family = "response_time"
	// FamilyResourceThreshold buckets resource usage percentages.
	FamilyResourceThreshold Family = "resource_threshold"
	// FamilyEndpointDuration buckets consecutive-failure counts.
	FamilyEndpointDuration Family = "endpoint_duration"
	// FamilyResourceDuration buckets sustained minutes.
	FamilyResourceDuration Family = "resource_duration"
	// FamilyCooldown buckets cooldown seconds.
	FamilyCooldown Family = "cooldown"
)

// PresetCustom is returned by Detect when no preset matches. It is a
// view-state signal, not an error: user-entered raw values are valid
// rule states even though no preset names them.
const PresetCustom = "custom"

// Preset is a named shortcut for one exact field combination.
// Operator is empty for the bare-value families (durations, cooldown),
// which match on threshold alone.
type Preset struct {
	Name      string
	Operator  models.Operator
	Threshold float64
}

// Patch is the field update produced by applying a preset.
type Patch struct {
	Operator  models.Operator
	Threshold float64
}

var presetTables = map[Family][]Preset{
	FamilyHTTPStatus: {
		{Name: "2xx", Operator: models.OpLTE, Threshold: 299},
		{Name: "4xx", Operator: models.OpGTE, Threshold: 400},
		{Name: "5xx", Operator: models.OpGTE, Threshold: 500},
	},
	FamilyResponseTime: {
		{Name: "1s", Operator: models.OpGT, Threshold: 1000},
		{Name: "3s", Operator: models.OpGT, Threshold: 3000},
		{Name: "5s", Operator: models.OpGT, Threshold: 5000},
		{Name: "10s", Operator: models.OpGT, Threshold: 10000},
	},
	FamilyResourceThreshold: {
		{Name: "70", Operator: models.OpGT, Threshold: 70},
		{Name: "80", Operator: models.OpGT, Threshold: 80},
		{Name: "90", Operator: models.OpGT, Threshold: 90},
		{Name: "95", Operator: models.OpGT, Threshold: 95},
	},
	FamilyEndpointDuration: {
		{Name: "1", Threshold: 1},
		{Name: "3", Threshold: 3},
		{Name: "5", Threshold: 5},
	},
	FamilyResourceDuration: {
		{Name: "1", Threshold: 1},
		{Name: "3", Threshold: 3},
		{Name: "5", Threshold: 5},
		{Name: "10", Threshold: 10},
	},
	FamilyCooldown: {
		{Name: "5min", Threshold: 300},
		{Name: "15min", Threshold: 900},
		{Name: "30min", Threshold: 1800},
		{Name: "1h", Threshold: 3600},
	},
}

// FamilyFor returns the threshold preset family for a metric.
func FamilyFor(metric models.Metric) Family {
	switch metric {
	case models.MetricHTTPStatus:
		return FamilyHTTPStatus
	case models.MetricResponseTime:
		return FamilyResponseTime
	default:
		return FamilyResourceThreshold
	}
}

// DurationFamilyFor returns the duration preset family for a category.
func DurationFamilyFor(category models.Category) Family {
	if category == models.CategoryEndpoint {
		return FamilyEndpointDuration
	}
	return FamilyResourceDuration
}

// Presets returns the presets of a family in display order.
// Unknown families return nil.
func Presets(family Family) []Preset {
	table := presetTables[family]
	out := make([]Preset, len(table))
	copy(out, table)
	return out
}

// Detect returns the name of the preset matching (operator, threshold)
// exactly, or PresetCustom when none matches. Equality is strict: a
// threshold of 400.0 matches "4xx" but 401 does not. Bare-value
// families (durations, cooldown) ignore the operator and match on the
// threshold alone. Detect never fails; unknown families yield
// PresetCustom.
func Detect(family Family, operator models.Operator, threshold float64) string {
	for _, p := range presetTables[family] {
		if p.Operator != "" && p.Operator != operator {
			continue
		}
		if p.Threshold == threshold {
			return p.Name
		}
	}
	return PresetCustom
}

// DetectValue detects a preset for the bare-value families.
func DetectValue(family Family, value int) string {
	return Detect(family, "", float64(value))
}

// Apply returns the field patch for a named preset. Selecting
// PresetCustom (or any unknown name) returns an empty patch and false:
// it changes which UI affordance is shown, never the rule's fields.
func Apply(family Family, name string) (Patch, bool) {
	if name == PresetCustom {
		return Patch{}, false
	}
	for _, p := range presetTables[family] {
		if p.Name == name {
			return Patch{Operator: p.Operator, Threshold: p.Threshold}, true
		}
	}
	return Patch{}, false
}

// ApplyValue returns the bare value for a named preset in a value
// family (duration or cooldown buckets).
func ApplyValue(family Family, name string) (int, bool) {
	patch, ok := Apply(family, name)
	if !ok {
		return 0, false
	}
	return int(patch.Threshold), true
}
