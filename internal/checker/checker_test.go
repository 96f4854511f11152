package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/alerting"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

type mockStore struct {
	mu       sync.Mutex
	services []*models.Service
	statuses map[string]models.ServiceStatus
}

func newMockStore(services ...*models.Service) *mockStore {
	return &mockStore{services: services, statuses: make(map[string]models.ServiceStatus)}
}

func (m *mockStore) ListServices(ctx context.Context) ([]*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Service, len(m.services))
	copy(out, m.services)
	return out, nil
}

func (m *mockStore) UpdateServiceStatus(ctx context.Context, id string, status models.ServiceStatus, checkedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	return nil
}

func (m *mockStore) statusOf(id string) models.ServiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[id]
}

type mockSink struct {
	mu      sync.Mutex
	results []*models.CheckResult
}

func (m *mockSink) RecordCheck(ctx context.Context, result *models.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

type mockEvaluator struct {
	mu      sync.Mutex
	results []*models.CheckResult
}

func (m *mockEvaluator) EvaluateCheck(result *models.CheckResult) []*alerting.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func TestProbeHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChecker(Config{}, newMockStore(), nil, nil)
	svc := &models.Service{ID: "svc-1", URL: srv.URL}

	result := c.Probe(context.Background(), svc)

	if !result.OK {
		t.Errorf("OK = false, want true")
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if result.ResponseTime <= 0 {
		t.Error("ResponseTime not measured")
	}
}

func TestProbeWrongStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewChecker(Config{}, newMockStore(), nil, nil)
	result := c.Probe(context.Background(), &models.Service{ID: "svc-1", URL: srv.URL})

	if result.OK {
		t.Error("OK = true for 502 response")
	}
	if result.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", result.StatusCode)
	}
}

func TestProbeExpectedStatusOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewChecker(Config{}, newMockStore(), nil, nil)
	result := c.Probe(context.Background(), &models.Service{ID: "svc-1", URL: srv.URL, ExpectedStatus: http.StatusNoContent})

	if !result.OK {
		t.Error("OK = false with matching expected status")
	}
}

func TestProbeConnectionError(t *testing.T) {
	c := NewChecker(Config{Timeout: time.Second}, newMockStore(), nil, nil)
	result := c.Probe(context.Background(), &models.Service{ID: "svc-1", URL: "http://127.0.0.1:1"})

	if result.OK {
		t.Error("OK = true for unreachable service")
	}
	if result.Error == "" {
		t.Error("Error not recorded")
	}
	if result.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", result.StatusCode)
	}
}

func TestSweepRecordsAndUpdatesStatus(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	degraded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer degraded.Close()

	store := newMockStore(
		&models.Service{ID: "svc-up", URL: up.URL},
		&models.Service{ID: "svc-degraded", URL: degraded.URL},
		&models.Service{ID: "svc-down", URL: "http://127.0.0.1:1", TimeoutSec: 1},
	)
	sink := &mockSink{}
	eval := &mockEvaluator{}
	c := NewChecker(Config{}, store, sink, eval)

	c.Sweep(context.Background())

	if got := store.statusOf("svc-up"); got != models.StatusUp {
		t.Errorf("svc-up status = %q, want up", got)
	}
	if got := store.statusOf("svc-degraded"); got != models.StatusDegraded {
		t.Errorf("svc-degraded status = %q, want degraded", got)
	}
	if got := store.statusOf("svc-down"); got != models.StatusDown {
		t.Errorf("svc-down status = %q, want down", got)
	}
	if sink.count() != 3 {
		t.Errorf("recorded %d results, want 3", sink.count())
	}
	eval.mu.Lock()
	evaluated := len(eval.results)
	eval.mu.Unlock()
	if evaluated != 3 {
		t.Errorf("evaluated %d results, want 3", evaluated)
	}
}

func TestReloadRulesReplacesEntries(t *testing.T) {
	c := NewChecker(Config{}, newMockStore(), nil, nil)
	ctx := context.Background()

	ruleA := &models.AlertRule{ID: "rule-a", Category: models.CategoryEndpoint, Schedule: "0 9 * * *", Enabled: true}
	ruleB := &models.AlertRule{ID: "rule-b", Category: models.CategoryEndpoint, Schedule: "30 8 * * 1", Enabled: true}

	c.ReloadRules(ctx, []*models.AlertRule{ruleA, ruleB})
	if got := len(c.ScheduledRules()); got != 2 {
		t.Fatalf("scheduled %d rules, want 2", got)
	}

	// Updating a rule replaces its entry rather than adding a second one.
	ruleA2 := &models.AlertRule{ID: "rule-a", Category: models.CategoryEndpoint, Schedule: "15 10 * * *", Enabled: true}
	c.ReloadRules(ctx, []*models.AlertRule{ruleA2, ruleB})
	if got := len(c.ScheduledRules()); got != 2 {
		t.Fatalf("scheduled %d rules after update, want 2", got)
	}

	// Removed and disabled rules lose their entries.
	ruleB.Enabled = false
	c.ReloadRules(ctx, []*models.AlertRule{ruleB})
	if got := len(c.ScheduledRules()); got != 0 {
		t.Fatalf("scheduled %d rules after disable, want 0", got)
	}
}

func TestReloadRulesSkipsResourceRules(t *testing.T) {
	c := NewChecker(Config{}, newMockStore(), nil, nil)

	rules := []*models.AlertRule{
		{ID: "rule-r", Category: models.CategoryResource, Schedule: "0 9 * * *", Enabled: true},
		{ID: "rule-bad", Category: models.CategoryEndpoint, Schedule: "not a schedule", Enabled: true},
	}
	c.ReloadRules(context.Background(), rules)

	if got := len(c.ScheduledRules()); got != 0 {
		t.Fatalf("scheduled %d rules, want 0", got)
	}
}
