// Package services provides the monitored service API endpoints,
// including per-service check history backed by the telemetry store.
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulseboard/internal/models"
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

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
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

// ServiceResponse is the wire form of a monitored service.
type ServiceResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	ExpectedStatus int    `json:"expectedStatus"`
	TimeoutSec     int    `json:"timeoutSec"`
	Status         string `json:"status"`
	LastCheckedAt  string `json:"lastCheckedAt,omitempty"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// CheckResponse is one check history entry.
type CheckResponse struct {
	Timestamp      string  `json:"timestamp"`
	StatusCode     int     `json:"statusCode"`
	ResponseTimeMs float64 `json:"responseTimeMs"`
	OK             bool    `json:"ok"`
	Error          string  `json:"error,omitempty"`
}

type CreateRequest struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	ExpectedStatus int    `json:"expectedStatus"`
	TimeoutSec     int    `json:"timeoutSec"`
}

type UpdateRequest struct {
	Name           string `json:"name,omitempty"`
	URL            string `json:"url,omitempty"`
	ExpectedStatus *int   `json:"expectedStatus,omitempty"`
	TimeoutSec     *int   `json:"timeoutSec,omitempty"`
}

// Handler handles monitored service endpoints.
type Handler struct {
	storage   storage.Storage
	telemetry storage.TelemetryStorage
}

// NewHandler creates a service handler. telemetry may be nil, in which
// case the history endpoint reports an empty list.
func NewHandler(store storage.Storage, telemetry storage.TelemetryStorage) *Handler {
	return &Handler{storage: store, telemetry: telemetry}
}

// List returns all services.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.storage.Services().List(ctx)
	if err != nil {
		log.Printf("list services error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*ServiceResponse, len(list))
	for i, svc := range list {
		resp[i] = serviceToResponse(svc)
	}
	jsonOK(w, resp)
}

// Create registers a new monitored service.
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
	if err := validateURL(req.URL); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if req.ExpectedStatus != 0 && (req.ExpectedStatus < 100 || req.ExpectedStatus > 599) {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "expectedStatus must be a valid HTTP status code")
		return
	}
	if req.TimeoutSec < 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "timeoutSec must not be negative")
		return
	}

	now := time.Now()
	service := &models.Service{
		ID:             uuid.New().String(),
		Name:           name,
		URL:            req.URL,
		ExpectedStatus: req.ExpectedStatus,
		TimeoutSec:     req.TimeoutSec,
		Status:         models.StatusUnknown,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ctx := r.Context()
	if err := h.storage.Services().Create(ctx, service); err != nil {
		log.Printf("create service error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("service created: %s (%s)", service.Name, service.ID)
	jsonCreated(w, serviceToResponse(service))
}

// GetByID returns a service by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	service, ok := h.loadService(w, r)
	if !ok {
		return
	}
	jsonOK(w, serviceToResponse(service))
}

// Update updates a service.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	service, ok := h.loadService(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		service.Name = strings.TrimSpace(req.Name)
	}
	if req.URL != "" {
		if err := validateURL(req.URL); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		service.URL = req.URL
	}
	if req.ExpectedStatus != nil {
		if *req.ExpectedStatus != 0 && (*req.ExpectedStatus < 100 || *req.ExpectedStatus > 599) {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "expectedStatus must be a valid HTTP status code")
			return
		}
		service.ExpectedStatus = *req.ExpectedStatus
	}
	if req.TimeoutSec != nil {
		if *req.TimeoutSec < 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "timeoutSec must not be negative")
			return
		}
		service.TimeoutSec = *req.TimeoutSec
	}
	service.UpdatedAt = time.Now()

	ctx := r.Context()
	if err := h.storage.Services().Update(ctx, service); err != nil {
		log.Printf("update service error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("service updated: %s (%s)", service.Name, service.ID)
	jsonOK(w, serviceToResponse(service))
}

// Delete removes a service.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	service, ok := h.loadService(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.storage.Services().Delete(ctx, service.ID); err != nil {
		log.Printf("delete service error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("service deleted: %s (%s)", service.Name, service.ID)
	jsonNoContent(w)
}

// History returns recent check results for a service, newest first.
// Query parameters: start, end (RFC 3339), onlyFails, limit, offset.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	service, ok := h.loadService(w, r)
	if !ok {
		return
	}
	if h.telemetry == nil {
		jsonOK(w, []*CheckResponse{})
		return
	}

	filter := &storage.CheckFilter{
		ServiceID: service.ID,
		Limit:     defaultHistoryLimit,
	}

	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "start must be RFC 3339")
			return
		}
		filter.StartTime = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "end must be RFC 3339")
			return
		}
		filter.EndTime = t
	}
	if v := q.Get("onlyFails"); v == "true" {
		filter.OnlyFails = true
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "limit must be 1..1000")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "offset must not be negative")
			return
		}
		filter.Offset = n
	}

	ctx := r.Context()
	results, err := h.telemetry.QueryChecks(ctx, filter)
	if err != nil {
		log.Printf("query checks error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*CheckResponse, len(results))
	for i, result := range results {
		resp[i] = &CheckResponse{
			Timestamp:      result.Timestamp.Format(time.RFC3339Nano),
			StatusCode:     result.StatusCode,
			ResponseTimeMs: float64(result.ResponseTime) / float64(time.Millisecond),
			OK:             result.OK,
			Error:          result.Error,
		}
	}
	jsonOK(w, resp)
}

func (h *Handler) loadService(w http.ResponseWriter, r *http.Request) (*models.Service, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "service id required")
		return nil, false
	}

	service, err := h.storage.Services().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get service error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if service == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "service not found")
		return nil, false
	}
	return service, true
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("url must be a valid http(s) URL")
	}
	return nil
}

func serviceToResponse(svc *models.Service) *ServiceResponse {
	resp := &ServiceResponse{
		ID:             svc.ID,
		Name:           svc.Name,
		URL:            svc.URL,
		ExpectedStatus: svc.ExpectedStatus,
		TimeoutSec:     svc.TimeoutSec,
		Status:         string(svc.Status),
		CreatedAt:      svc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      svc.UpdatedAt.Format(time.RFC3339),
	}
	if svc.LastCheckedAt != nil {
		resp.LastCheckedAt = svc.LastCheckedAt.Format(time.RFC3339)
	}
	return resp
}
