// Package channels provides the notification channel API endpoints.
package channels

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/notifier"
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
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternalError    = "INTERNAL_ERROR"
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

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ChannelResponse is the wire form of a notification channel.
type ChannelResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Settings  json.RawMessage `json:"settings"`
	Enabled   bool            `json:"enabled"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

type CreateRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Settings json.RawMessage `json:"settings"`
	Enabled  bool            `json:"enabled"`
}

type UpdateRequest struct {
	Name     string          `json:"name,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`
}

// Handler handles notification channel endpoints.
type Handler struct {
	storage  storage.Storage
	onChange func(ctx context.Context)
}

// NewHandler creates a channel handler. onChange is invoked after any
// mutation so the dispatcher can reload; it may be nil.
func NewHandler(store storage.Storage, onChange func(ctx context.Context)) *Handler {
	return &Handler{storage: store, onChange: onChange}
}

// List returns all channels.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.storage.Channels().List(ctx)
	if err != nil {
		log.Printf("list channels error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*ChannelResponse, len(list))
	for i, ch := range list {
		resp[i] = channelToResponse(ch)
	}
	jsonOK(w, resp)
}

// Create creates a new channel. The settings blob is validated by
// constructing the transport it describes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "name is required")
		return
	}

	switch models.ChannelType(req.Type) {
	case models.ChannelSlack, models.ChannelEmail, models.ChannelWebhook:
	default:
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "type must be one of slack, email, webhook")
		return
	}

	now := time.Now()
	channel := &models.Channel{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      models.ChannelType(req.Type),
		Settings:  settingsBlob(req.Settings),
		Enabled:   req.Enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := notifier.FromChannel(channel); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	if err := h.storage.Channels().Create(ctx, channel); err != nil {
		log.Printf("create channel error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("channel created: %s (%s, %s)", channel.Name, channel.ID, channel.Type)
	h.notifyChange(ctx)
	jsonCreated(w, channelToResponse(channel))
}

// GetByID returns a channel by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "channel id required")
		return
	}

	ctx := r.Context()
	channel, err := h.storage.Channels().GetByID(ctx, id)
	if err != nil {
		log.Printf("get channel error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if channel == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "channel not found")
		return
	}

	jsonOK(w, channelToResponse(channel))
}

// Update updates a channel. The channel type is immutable; changing
// transports means creating a new channel.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "channel id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	channel, err := h.storage.Channels().GetByID(ctx, id)
	if err != nil {
		log.Printf("update channel error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if channel == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "channel not found")
		return
	}

	if req.Name != "" {
		channel.Name = strings.TrimSpace(req.Name)
	}
	if req.Settings != nil {
		channel.Settings = settingsBlob(req.Settings)
		if _, err := notifier.FromChannel(channel); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	if req.Enabled != nil {
		channel.Enabled = *req.Enabled
	}
	channel.UpdatedAt = time.Now()

	if err := h.storage.Channels().Update(ctx, channel); err != nil {
		log.Printf("update channel error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("channel updated: %s (%s)", channel.Name, channel.ID)
	h.notifyChange(ctx)
	jsonOK(w, channelToResponse(channel))
}

// Delete deletes a channel. Rules keep stale channel IDs; dispatch
// skips IDs with no registered transport.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "channel id required")
		return
	}

	ctx := r.Context()
	channel, err := h.storage.Channels().GetByID(ctx, id)
	if err != nil {
		log.Printf("delete channel error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if channel == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "channel not found")
		return
	}

	if err := h.storage.Channels().Delete(ctx, id); err != nil {
		log.Printf("delete channel error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("channel deleted: %s (%s)", channel.Name, channel.ID)
	h.notifyChange(ctx)
	jsonNoContent(w)
}

func (h *Handler) notifyChange(ctx context.Context) {
	if h.onChange != nil {
		h.onChange(ctx)
	}
}

func settingsBlob(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func channelToResponse(ch *models.Channel) *ChannelResponse {
	settings := ch.Settings
	if settings == "" {
		settings = "{}"
	}
	return &ChannelResponse{
		ID:        ch.ID,
		Name:      ch.Name,
		Type:      string(ch.Type),
		Settings:  json.RawMessage(settings),
		Enabled:   ch.Enabled,
		CreatedAt: ch.CreatedAt.Format(time.RFC3339),
		UpdatedAt: ch.UpdatedAt.Format(time.RFC3339),
	}
}
