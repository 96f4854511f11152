package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/readstate"
	"github.com/good-yellow-bee/pulseboard/internal/storage"
)

type stubRuleRepo struct {
	list []*models.AlertRule
}

func (s *stubRuleRepo) Create(ctx context.Context, rule *models.AlertRule) error { return nil }
func (s *stubRuleRepo) GetByID(ctx context.Context, id string) (*models.AlertRule, error) {
	return nil, nil
}
func (s *stubRuleRepo) Update(ctx context.Context, rule *models.AlertRule) error { return nil }
func (s *stubRuleRepo) Delete(ctx context.Context, id string) error              { return nil }
func (s *stubRuleRepo) List(ctx context.Context) ([]*models.AlertRule, error)    { return s.list, nil }
func (s *stubRuleRepo) ListEnabled(ctx context.Context) ([]*models.AlertRule, error) {
	return s.list, nil
}
func (s *stubRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) error { return nil }

type stubStorage struct {
	rules *stubRuleRepo
}

func (s *stubStorage) Open() error    { return nil }
func (s *stubStorage) Close() error   { return nil }
func (s *stubStorage) Migrate() error { return nil }

func (s *stubStorage) Rules() storage.RuleRepository                 { return s.rules }
func (s *stubStorage) Channels() storage.ChannelRepository           { return nil }
func (s *stubStorage) Services() storage.ServiceRepository           { return nil }
func (s *stubStorage) Notifications() storage.NotificationRepository { return nil }
func (s *stubStorage) ReadMarks() storage.ReadMarkRepository         { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := &stubStorage{rules: &stubRuleRepo{}}
	srv, err := New(&Config{Address: ":0"}, store, Options{
		Reads: readstate.NewTracker(10),
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv
}

func TestNewRequiresStorage(t *testing.T) {
	if _, err := New(&Config{}, nil, Options{}); err == nil {
		t.Error("expected error for nil storage")
	}
	if _, err := New(nil, &stubStorage{}, Options{}); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Address != ":8080" {
		t.Errorf("expected default address :8080, got %q", cfg.Address)
	}
	if cfg.RateLimitPerIP != 120 {
		t.Errorf("expected default rate limit 120, got %d", cfg.RateLimitPerIP)
	}
	if cfg.QueryTimeout != 10*time.Second {
		t.Errorf("expected default query timeout 10s, got %v", cfg.QueryTimeout)
	}
}

func TestRouterHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterVersion(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	srv.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Version string `json:"version"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Version == "" {
		t.Error("expected version in response")
	}
}

func TestRouterRulesList(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	srv.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	srv.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND error body, got %+v", resp.Error)
	}
}
