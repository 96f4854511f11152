package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/storage"
)

type mockChannelRepo struct {
	channels map[string]*models.Channel
}

func newMockChannelRepo() *mockChannelRepo {
	return &mockChannelRepo{channels: make(map[string]*models.Channel)}
}

func (m *mockChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	cp := *channel
	m.channels[channel.ID] = &cp
	return nil
}

func (m *mockChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	channel, ok := m.channels[id]
	if !ok {
		return nil, nil
	}
	cp := *channel
	return &cp, nil
}

func (m *mockChannelRepo) Update(ctx context.Context, channel *models.Channel) error {
	if _, ok := m.channels[channel.ID]; !ok {
		return fmt.Errorf("channel not found: %s", channel.ID)
	}
	cp := *channel
	m.channels[channel.ID] = &cp
	return nil
}

func (m *mockChannelRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.channels[id]; !ok {
		return fmt.Errorf("channel not found: %s", id)
	}
	delete(m.channels, id)
	return nil
}

func (m *mockChannelRepo) List(ctx context.Context) ([]*models.Channel, error) {
	out := make([]*models.Channel, 0, len(m.channels))
	for _, channel := range m.channels {
		cp := *channel
		out = append(out, &cp)
	}
	return out, nil
}

type mockStorage struct {
	channels *mockChannelRepo
}

func newMockStorage() *mockStorage {
	return &mockStorage{channels: newMockChannelRepo()}
}

func (m *mockStorage) Open() error    { return nil }
func (m *mockStorage) Close() error   { return nil }
func (m *mockStorage) Migrate() error { return nil }

func (m *mockStorage) Rules() storage.RuleRepository                 { return nil }
func (m *mockStorage) Channels() storage.ChannelRepository           { return m.channels }
func (m *mockStorage) Services() storage.ServiceRepository           { return nil }
func (m *mockStorage) Notifications() storage.NotificationRepository { return nil }
func (m *mockStorage) ReadMarks() storage.ReadMarkRepository         { return nil }

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/channels", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
	return r
}

func seedChannel(store *mockStorage) *models.Channel {
	now := time.Now()
	channel := &models.Channel{
		ID:        "ch-1",
		Name:      "ops slack",
		Type:      models.ChannelSlack,
		Settings:  `{"webhook_url":"https://hooks.example.com/T0/B0/x"}`,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.channels.channels[channel.ID] = channel
	return channel
}

func TestCreateChannel(t *testing.T) {
	store := newMockStorage()
	changed := 0
	h := NewHandler(store, func(ctx context.Context) { changed++ })
	router := newTestRouter(h)

	body := `{
		"name": "oncall webhook",
		"type": "webhook",
		"settings": {"url": "https://alerts.example.com/hook", "headers": {"Authorization": "Bearer t"}},
		"enabled": true
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/channels", bytes.NewBufferString(body))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data ChannelResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Type != "webhook" {
		t.Errorf("expected type webhook, got %q", resp.Data.Type)
	}

	stored, _ := store.channels.GetByID(context.Background(), resp.Data.ID)
	if stored == nil {
		t.Fatal("channel not persisted")
	}
	var settings struct {
		URL string `json:"url"`
	}
	if err := stored.GetSettings(&settings); err != nil {
		t.Fatalf("settings blob: %v", err)
	}
	if settings.URL != "https://alerts.example.com/hook" {
		t.Errorf("unexpected stored url: %q", settings.URL)
	}
	if changed != 1 {
		t.Errorf("expected 1 change callback, got %d", changed)
	}
}

func TestCreateChannelValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "unknown type",
			body: `{"name": "c", "type": "pager", "settings": {}}`,
		},
		{
			name: "empty name",
			body: `{"name": " ", "type": "webhook", "settings": {"url": "https://x.example.com"}}`,
		},
		{
			name: "slack requires https",
			body: `{"name": "c", "type": "slack", "settings": {"webhook_url": "http://hooks.example.com/x"}}`,
		},
		{
			name: "webhook missing url",
			body: `{"name": "c", "type": "webhook", "settings": {}}`,
		},
		{
			name: "email missing recipients",
			body: `{"name": "c", "type": "email", "settings": {"host": "smtp.example.com", "port": 587, "from": "alerts@example.com"}}`,
		},
	}

	store := newMockStorage()
	h := NewHandler(store, nil)
	router := newTestRouter(h)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/channels", bytes.NewBufferString(tt.body))
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if len(store.channels.channels) != 0 {
				t.Error("invalid channel was persisted")
			}
		})
	}
}

func TestUpdateChannelSettings(t *testing.T) {
	store := newMockStorage()
	h := NewHandler(store, nil)
	router := newTestRouter(h)
	seedChannel(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/channels/ch-1",
		bytes.NewBufferString(`{"settings": {"webhook_url": "https://hooks.example.com/T0/B1/y"}, "enabled": false}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := store.channels.GetByID(context.Background(), "ch-1")
	if stored.Enabled {
		t.Error("expected channel disabled")
	}
	var settings struct {
		WebhookURL string `json:"webhook_url"`
	}
	if err := stored.GetSettings(&settings); err != nil {
		t.Fatalf("settings blob: %v", err)
	}
	if settings.WebhookURL != "https://hooks.example.com/T0/B1/y" {
		t.Errorf("unexpected stored webhook url: %q", settings.WebhookURL)
	}
}

func TestUpdateChannelRejectsBadSettings(t *testing.T) {
	store := newMockStorage()
	h := NewHandler(store, nil)
	router := newTestRouter(h)
	original := seedChannel(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/channels/ch-1",
		bytes.NewBufferString(`{"settings": {"webhook_url": ""}}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := store.channels.GetByID(context.Background(), "ch-1")
	if stored.Settings != original.Settings {
		t.Error("invalid settings were persisted")
	}
}

func TestDeleteChannel(t *testing.T) {
	store := newMockStorage()
	changed := 0
	h := NewHandler(store, func(ctx context.Context) { changed++ })
	router := newTestRouter(h)
	seedChannel(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/channels/ch-1", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(store.channels.channels) != 0 {
		t.Error("channel not deleted")
	}
	if changed != 1 {
		t.Errorf("expected 1 change callback, got %d", changed)
	}
}

func TestGetChannelNotFound(t *testing.T) {
	store := newMockStorage()
	h := NewHandler(store, nil)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/channels/missing", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
