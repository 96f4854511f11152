package rules

import (
	"strings"
	"testing"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

func TestLoadSeed(t *testing.T) {
	yaml := `
rules:
  - name: cpu-high
    category: resource
    metric: cpu
    operator: gt
    threshold: 90
    duration: 5
    severity: critical
    cooldown: 900
    channels: [ops-slack]
  - name: checkout-errors
    category: endpoint
    metric: http_status
    service_id: svc-checkout
    schedule: "0 9 * * *"
  - name: slow-api
    category: endpoint
    metric: response_time
    enabled: false
`
	rules, err := LoadSeed(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}

	cpu := rules[0]
	if cpu.Metric != models.MetricCPU || cpu.Operator != models.OpGT ||
		cpu.Threshold != 90 || cpu.Duration != 5 {
		t.Errorf("cpu rule = %s/%s/%v/%d", cpu.Metric, cpu.Operator, cpu.Threshold, cpu.Duration)
	}
	if cpu.Severity != models.SeverityCritical || cpu.Cooldown != 900 {
		t.Errorf("cpu rule severity/cooldown = %s/%d", cpu.Severity, cpu.Cooldown)
	}
	if len(cpu.ChannelIDs) != 1 || cpu.ChannelIDs[0] != "ops-slack" {
		t.Errorf("cpu rule channels = %v", cpu.ChannelIDs)
	}

	// Omitted fields take the metric defaults.
	checkout := rules[1]
	if checkout.Operator != models.OpGTE || checkout.Threshold != 400 || checkout.Duration != 3 {
		t.Errorf("checkout defaults = %s/%v/%d, want gte/400/3",
			checkout.Operator, checkout.Threshold, checkout.Duration)
	}
	if checkout.ServiceID != "svc-checkout" || checkout.Schedule != "0 9 * * *" {
		t.Errorf("checkout service/schedule = %q/%q", checkout.ServiceID, checkout.Schedule)
	}
	if !checkout.Enabled {
		t.Error("checkout should default to enabled")
	}

	slow := rules[2]
	if slow.Operator != models.OpGT || slow.Threshold != 3000 {
		t.Errorf("response_time defaults = %s/%v, want gt/3000", slow.Operator, slow.Threshold)
	}
	if slow.Enabled {
		t.Error("slow-api should be disabled")
	}
}

func TestLoadSeedValidation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "missing name",
			yaml:   "rules:\n  - category: resource\n",
			errMsg: "name is required",
		},
		{
			name:   "invalid category",
			yaml:   "rules:\n  - name: r\n    category: hosts\n",
			errMsg: "invalid category",
		},
		{
			name:   "metric outside category",
			yaml:   "rules:\n  - name: r\n    category: resource\n    metric: http_status\n",
			errMsg: "not valid for category",
		},
		{
			name:   "zero duration",
			yaml:   "rules:\n  - name: r\n    category: resource\n    duration: 0\n",
			errMsg: "duration must be positive",
		},
		{
			name:   "cooldown below bound",
			yaml:   "rules:\n  - name: r\n    category: resource\n    cooldown: 30\n",
			errMsg: "cooldown must be between",
		},
		{
			name:   "cooldown above bound",
			yaml:   "rules:\n  - name: r\n    category: resource\n    cooldown: 90000\n",
			errMsg: "cooldown must be between",
		},
		{
			name:   "legacy schedule",
			yaml:   "rules:\n  - name: r\n    category: endpoint\n    schedule: '*/15 * * * *'\n",
			errMsg: "unrecognized schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSeed(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want substring %q", err, tt.errMsg)
			}
		})
	}
}
