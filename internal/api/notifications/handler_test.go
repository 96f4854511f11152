package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/readstate"
	"github.com/good-yellow-bee/pulseboard/internal/storage"
)

// mockNotificationRepo serves a fixed newest-first feed.
type mockNotificationRepo struct {
	feed []*models.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.feed = append([]*models.Notification{n}, m.feed...)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, limit, offset int) ([]*models.Notification, int64, error) {
	total := int64(len(m.feed))
	if offset >= len(m.feed) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(m.feed) {
		end = len(m.feed)
	}
	return m.feed[offset:end], total, nil
}

func (m *mockNotificationRepo) ListByRule(ctx context.Context, ruleID string, limit, offset int) ([]*models.Notification, int64, error) {
	var matched []*models.Notification
	for _, n := range m.feed {
		if n.RuleID == ruleID {
			matched = append(matched, n)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockNotificationRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type mockReadMarkRepo struct {
	saved [][]string
}

func (m *mockReadMarkRepo) Load(ctx context.Context) ([]string, error) { return nil, nil }

func (m *mockReadMarkRepo) Save(ctx context.Context, ids []string) error {
	cp := make([]string, len(ids))
	copy(cp, ids)
	m.saved = append(m.saved, cp)
	return nil
}

type mockStorage struct {
	notifications *mockNotificationRepo
	readMarks     *mockReadMarkRepo
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		notifications: &mockNotificationRepo{},
		readMarks:     &mockReadMarkRepo{},
	}
}

func (m *mockStorage) Open() error    { return nil }
func (m *mockStorage) Close() error   { return nil }
func (m *mockStorage) Migrate() error { return nil }

func (m *mockStorage) Rules() storage.RuleRepository                 { return nil }
func (m *mockStorage) Channels() storage.ChannelRepository           { return nil }
func (m *mockStorage) Services() storage.ServiceRepository           { return nil }
func (m *mockStorage) Notifications() storage.NotificationRepository { return m.notifications }
func (m *mockStorage) ReadMarks() storage.ReadMarkRepository         { return m.readMarks }

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/unread", h.Unread)
		r.Post("/read-all", h.MarkAllRead)
		r.Post("/{id}/read", h.MarkRead)
	})
	return r
}

func seedFeed(store *mockStorage, count int) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// Newest first, matching repository ordering.
	for i := count - 1; i >= 0; i-- {
		store.notifications.feed = append(store.notifications.feed, &models.Notification{
			ID:         fmt.Sprintf("n-%d", i),
			RuleID:     "rule-1",
			RuleName:   "api 5xx",
			Severity:   models.SeverityWarning,
			Message:    fmt.Sprintf("threshold exceeded (%d)", i),
			Value:      float64(500 + i),
			NotifiedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestListNotifications(t *testing.T) {
	store := newMockStorage()
	seedFeed(store, 5)
	reads := readstate.NewTracker(10)
	reads.MarkRead("n-4")
	h := NewHandler(store, reads)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications?page=1&perPage=3", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data FeedResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Total != 5 {
		t.Errorf("expected total 5, got %d", resp.Data.Total)
	}
	if resp.Data.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", resp.Data.TotalPages)
	}
	if len(resp.Data.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(resp.Data.Items))
	}
	if resp.Data.Items[0].ID != "n-4" {
		t.Errorf("expected newest first, got %q", resp.Data.Items[0].ID)
	}
	if !resp.Data.Items[0].Read {
		t.Error("expected n-4 marked read")
	}
	if resp.Data.Items[1].Read {
		t.Error("expected n-3 unread")
	}
}

func TestListNotificationsSecondPage(t *testing.T) {
	store := newMockStorage()
	seedFeed(store, 5)
	h := NewHandler(store, readstate.NewTracker(10))
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications?page=2&perPage=3", nil)
	router.ServeHTTP(rec, req)

	var resp struct {
		Data FeedResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data.Items) != 2 {
		t.Fatalf("expected 2 items on page 2, got %d", len(resp.Data.Items))
	}
	if resp.Data.Items[0].ID != "n-1" {
		t.Errorf("expected n-1 first on page 2, got %q", resp.Data.Items[0].ID)
	}
}

func TestListNotificationsBadParams(t *testing.T) {
	store := newMockStorage()
	h := NewHandler(store, readstate.NewTracker(10))
	router := newTestRouter(h)

	for _, q := range []string{"page=0", "page=x", "perPage=0", "perPage=500"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/notifications?"+q, nil)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestMarkReadPersists(t *testing.T) {
	store := newMockStorage()
	seedFeed(store, 3)
	reads := readstate.NewTracker(10)
	h := NewHandler(store, reads)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/n-1/read", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !reads.IsRead("n-1") {
		t.Error("notification not marked read")
	}
	if len(store.readMarks.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.readMarks.saved))
	}
	if got := store.readMarks.saved[0]; len(got) != 1 || got[0] != "n-1" {
		t.Errorf("unexpected persisted marks: %v", got)
	}
}

func TestMarkReadEvictsOldest(t *testing.T) {
	store := newMockStorage()
	reads := readstate.NewTracker(2)
	reads.Load([]string{"n-0", "n-1"})
	h := NewHandler(store, reads)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/n-2/read", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if reads.IsRead("n-0") {
		t.Error("oldest mark should have been evicted")
	}
	if got := store.readMarks.saved[0]; len(got) != 2 || got[0] != "n-1" || got[1] != "n-2" {
		t.Errorf("unexpected persisted marks: %v", got)
	}
}

func TestMarkAllRead(t *testing.T) {
	store := newMockStorage()
	seedFeed(store, 4)
	reads := readstate.NewTracker(10)
	h := NewHandler(store, reads)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	for i := 0; i < 4; i++ {
		if !reads.IsRead(fmt.Sprintf("n-%d", i)) {
			t.Errorf("n-%d not marked read", i)
		}
	}
	// Oldest mark first so the newest survives eviction longest.
	if got := reads.IDs(); got[0] != "n-0" || got[3] != "n-3" {
		t.Errorf("unexpected mark order: %v", got)
	}
}

func TestUnreadCount(t *testing.T) {
	store := newMockStorage()
	seedFeed(store, 5)
	reads := readstate.NewTracker(10)
	reads.MarkRead("n-4")
	reads.MarkRead("n-3")
	h := NewHandler(store, reads)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications/unread", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data UnreadResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Total != 5 {
		t.Errorf("expected total 5, got %d", resp.Data.Total)
	}
	if resp.Data.Unread != 3 {
		t.Errorf("expected 3 unread, got %d", resp.Data.Unread)
	}
}
