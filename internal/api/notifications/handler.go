// Package notifications provides the alert notification feed endpoints.
// Read state is tracked server-side in an ordered, capacity-bounded set
// and persisted so it survives restarts.
package notifications

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/readstate"
	"github.com/good-yellow-bee/pulseboard/internal/storage"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// NotificationResponse is the wire form of a feed entry.
type NotificationResponse struct {
	ID         string  `json:"id"`
	RuleID     string  `json:"ruleId"`
	RuleName   string  `json:"ruleName"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	Value      float64 `json:"value"`
	Read       bool    `json:"read"`
	NotifiedAt string  `json:"notifiedAt"`
}

// FeedResponse is a page of the notification feed.
type FeedResponse struct {
	Items      []*NotificationResponse `json:"items"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PerPage    int                     `json:"perPage"`
	TotalPages int64                   `json:"totalPages"`
}

// Handler handles notification feed endpoints.
type Handler struct {
	storage storage.Storage
	reads   *readstate.Tracker
}

// NewHandler creates a notification handler backed by the given read
// tracker. The tracker must already be loaded from storage.
func NewHandler(store storage.Storage, reads *readstate.Tracker) *Handler {
	return &Handler{storage: store, reads: reads}
}

// List returns a page of the feed, newest first. Query parameters:
// page (1-based), perPage, ruleId.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}
	perPage := defaultPerPage
	if v := q.Get("perPage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPerPage {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "perPage must be 1..200")
			return
		}
		perPage = n
	}

	ctx := r.Context()
	offset := (page - 1) * perPage

	var (
		list  []*models.Notification
		total int64
		err   error
	)
	if ruleID := q.Get("ruleId"); ruleID != "" {
		list, total, err = h.storage.Notifications().ListByRule(ctx, ruleID, perPage, offset)
	} else {
		list, total, err = h.storage.Notifications().List(ctx, perPage, offset)
	}
	if err != nil {
		log.Printf("list notifications error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	items := make([]*NotificationResponse, len(list))
	for i, n := range list {
		items[i] = h.notificationToResponse(n)
	}

	totalPages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		totalPages++
	}

	jsonOK(w, &FeedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	})
}

// UnreadResponse reports unread counts for the feed badge.
type UnreadResponse struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}

// Unread returns the total and unread notification counts. The unread
// count scans the newest page of the feed only; older unread entries
// beyond the read tracker's capacity are counted as read.
func (h *Handler) Unread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, total, err := h.storage.Notifications().List(ctx, readstate.DefaultCapacity, 0)
	if err != nil {
		log.Printf("count notifications error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	var unread int64
	for _, n := range list {
		if !h.reads.IsRead(n.ID) {
			unread++
		}
	}
	jsonOK(w, &UnreadResponse{Total: total, Unread: unread})
}

// MarkRead marks a notification read and persists the updated mark
// list. Re-marking an already read notification refreshes its position
// so it survives future evictions.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "notification id required")
		return
	}

	ctx := r.Context()
	evicted := h.reads.MarkRead(id)
	if len(evicted) > 0 {
		log.Printf("read marks evicted: %d", len(evicted))
	}

	if err := h.storage.ReadMarks().Save(ctx, h.reads.IDs()); err != nil {
		log.Printf("save read marks error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonNoContent(w)
}

// MarkAllRead marks the newest page of the feed read.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, _, err := h.storage.Notifications().List(ctx, readstate.DefaultCapacity, 0)
	if err != nil {
		log.Printf("list notifications error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	// Feed is newest-first; mark oldest-first so newer reads outlive
	// older ones under eviction.
	for i := len(list) - 1; i >= 0; i-- {
		h.reads.MarkRead(list[i].ID)
	}

	if err := h.storage.ReadMarks().Save(ctx, h.reads.IDs()); err != nil {
		log.Printf("save read marks error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonNoContent(w)
}

func (h *Handler) notificationToResponse(n *models.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:         n.ID,
		RuleID:     n.RuleID,
		RuleName:   n.RuleName,
		Severity:   string(n.Severity),
		Message:    n.Message,
		Value:      n.Value,
		Read:       h.reads.IsRead(n.ID),
		NotifiedAt: n.NotifiedAt.Format(time.RFC3339),
	}
}
