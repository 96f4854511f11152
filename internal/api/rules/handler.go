// Package rules provides the alert rule API endpoints. Wire payloads use
// the dashboard's field names: `type` carries "service" or "resource" and
// is mapped to the internal category at this boundary, and schedules
// travel as structured objects while only their cron encoding is stored.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/rules"
	"github.com/good-yellow-bee/pulseboard/internal/schedule"
	"github.com/good-yellow-bee/pulseboard/internal/storage"
)

// Response helpers
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

// ScheduleBody is the structured wire form of a schedule.
type ScheduleBody struct {
	Type    string `json:"type"` // daily or weekly
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	Weekday int    `json:"weekday"`
}

// RuleResponse is the wire form of an alert rule.
type RuleResponse struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"` // service or resource
	Metric     string        `json:"metric"`
	ServiceID  string        `json:"serviceId,omitempty"`
	Operator   string        `json:"operator"`
	Threshold  float64       `json:"threshold"`
	Duration   int           `json:"duration"`
	Severity   string        `json:"severity"`
	Cooldown   int           `json:"cooldown"`
	ChannelIDs []string      `json:"channelIds"`
	Schedule   *ScheduleBody `json:"schedule,omitempty"`
	Cron       string        `json:"cron,omitempty"`
	// Preset is the detected threshold preset, or "custom" when the
	// operator/threshold pair matches no table entry.
	Preset    string `json:"preset"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Handler handles alert rule endpoints.
type Handler struct {
	storage  storage.Storage
	onChange func(ctx context.Context)
}

// NewHandler creates a rule handler. onChange is invoked after any
// mutation so the evaluator and checker can reload; it may be nil.
func NewHandler(store storage.Storage, onChange func(ctx context.Context)) *Handler {
	return &Handler{storage: store, onChange: onChange}
}

// Request types
type CreateRequest struct {
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Metric     string        `json:"metric"`
	ServiceID  string        `json:"serviceId"`
	Operator   string        `json:"operator"`
	Threshold  float64       `json:"threshold"`
	Duration   int           `json:"duration"`
	Severity   string        `json:"severity"`
	Cooldown   int           `json:"cooldown"`
	ChannelIDs []string      `json:"channelIds"`
	Schedule   *ScheduleBody `json:"schedule"`
	Enabled    bool          `json:"enabled"`
}

type UpdateRequest struct {
	Name       string        `json:"name,omitempty"`
	Type       string        `json:"type,omitempty"`
	Metric     string        `json:"metric,omitempty"`
	ServiceID  *string       `json:"serviceId,omitempty"`
	Operator   string        `json:"operator,omitempty"`
	Threshold  *float64      `json:"threshold,omitempty"`
	Duration   *int          `json:"duration,omitempty"`
	Severity   string        `json:"severity,omitempty"`
	Cooldown   *int          `json:"cooldown,omitempty"`
	ChannelIDs []string      `json:"channelIds,omitempty"`
	Schedule   *ScheduleBody `json:"schedule,omitempty"`
	Enabled    *bool         `json:"enabled,omitempty"`
}

// List returns all rules.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.storage.Rules().List(ctx)
	if err != nil {
		log.Printf("list rules error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*RuleResponse, len(list))
	for i, rule := range list {
		resp[i] = ruleToResponse(rule)
	}
	jsonOK(w, resp)
}

// Create creates a new rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	category, err := ValidateCategory(req.Type)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	metric, err := ValidateMetric(category, req.Metric)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	operator, err := ValidateOperator(req.Operator)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	severity, err := ValidateSeverity(req.Severity)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateDuration(req.Duration); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateCooldown(req.Cooldown); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	cron, err := encodeScheduleBody(req.Schedule)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	now := time.Now()
	rule := &models.AlertRule{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(req.Name),
		Category:   category,
		Metric:     metric,
		ServiceID:  req.ServiceID,
		Operator:   operator,
		Threshold:  req.Threshold,
		Duration:   req.Duration,
		Severity:   severity,
		Cooldown:   req.Cooldown,
		ChannelIDs: req.ChannelIDs,
		Schedule:   cron,
		Enabled:    req.Enabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if rule.ChannelIDs == nil {
		rule.ChannelIDs = []string{}
	}

	if err := h.storage.Rules().Create(ctx, rule); err != nil {
		log.Printf("create rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("rule created: %s (%s)", rule.Name, rule.ID)
	h.notifyChange(ctx)
	jsonCreated(w, ruleToResponse(rule))
}

// GetByID returns a rule by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "rule id required")
		return
	}

	ctx := r.Context()
	rule, err := h.storage.Rules().GetByID(ctx, id)
	if err != nil {
		log.Printf("get rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if rule == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "rule not found")
		return
	}

	jsonOK(w, ruleToResponse(rule))
}

// Update updates a rule. Changing the wire type replaces the dependent
// fields with the new category's defaults before other overrides apply,
// so no operator/threshold combination survives from the old branch.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "rule id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	rule, err := h.storage.Rules().GetByID(ctx, id)
	if err != nil {
		log.Printf("update rule error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if rule == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "rule not found")
		return
	}

	if req.Type != "" {
		category, err := ValidateCategory(req.Type)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		if category != rule.Category {
			reset := rules.ResetCategory(*rule, category)
			rule = &reset
		}
	}
	if req.Name != "" {
		if err := ValidateName(req.Name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		rule.Name = strings.TrimSpace(req.Name)
	}
	if req.Metric != "" {
		metric, err := ValidateMetric(rule.Category, req.Metric)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		if metric != rule.Metric {
			reset := rules.ResetMetric(*rule, metric)
			rule = &reset
		}
	}
	if req.Operator != "" {
		operator, err := ValidateOperator(req.Operator)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		rule.Operator = operator
	}
	if req.Threshold != nil {
		rule.Threshold = *req.Threshold
	}
	if req.Duration != nil {
		if err := ValidateDuration(*req.Duration); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		rule.Duration = *req.Duration
	}
	if req.Severity != "" {
		severity, err := ValidateSeverity(req.Severity)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		rule.Severity = severity
	}
	if req.Cooldown != nil {
		if err := ValidateCooldown(*req.Cooldown); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		rule.Cooldown = *req.Cooldown
	}
	if req.ServiceID != nil {
		rule.ServiceID = *req.ServiceID
	}
	if req.ChannelIDs != nil {
		rule.ChannelIDs = req.ChannelIDs
	}
	if req.Schedule != nil {
		cron, err := encodeScheduleBody(req.Schedule)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		rule.Schedule = cron
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	rule.UpdatedAt = time.Now()

	if err := h.storage.Rules().Update(ctx, rule); err != nil {
		log.Printf("update rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("rule updated: %s (%s)", rule.Name, rule.ID)
	h.notifyChange(ctx)
	jsonOK(w, ruleToResponse(rule))
}

// Delete deletes a rule.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "rule id required")
		return
	}

	ctx := r.Context()
	rule, err := h.storage.Rules().GetByID(ctx, id)
	if err != nil {
		log.Printf("delete rule error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if rule == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "rule not found")
		return
	}

	if err := h.storage.Rules().Delete(ctx, id); err != nil {
		log.Printf("delete rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("rule deleted: %s (%s)", rule.Name, rule.ID)
	h.notifyChange(ctx)
	jsonNoContent(w)
}

// SetEnabled enables or disables a rule.
func (h *Handler) SetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "rule id required")
			return
		}

		ctx := r.Context()
		if err := h.storage.Rules().SetEnabled(ctx, id, enabled); err != nil {
			if strings.Contains(err.Error(), "not found") {
				jsonError(w, http.StatusNotFound, errCodeNotFound, "rule not found")
				return
			}
			log.Printf("set rule enabled error: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}

		h.notifyChange(ctx)
		jsonNoContent(w)
	}
}

// PresetResponse is one entry of a preset family table.
type PresetResponse struct {
	Name      string  `json:"name"`
	Operator  string  `json:"operator,omitempty"`
	Threshold float64 `json:"threshold"`
}

// Presets returns the preset table for a family.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	family := rules.Family(r.URL.Query().Get("family"))
	table := rules.Presets(family)
	if len(table) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "unknown preset family")
		return
	}

	resp := make([]PresetResponse, len(table))
	for i, p := range table {
		resp[i] = PresetResponse{
			Name:      p.Name,
			Operator:  string(p.Operator),
			Threshold: p.Threshold,
		}
	}
	jsonOK(w, resp)
}

func (h *Handler) notifyChange(ctx context.Context) {
	if h.onChange != nil {
		h.onChange(ctx)
	}
}

func encodeScheduleBody(body *ScheduleBody) (string, error) {
	if body == nil {
		return "", nil
	}
	if body.Hour < 0 || body.Hour > 23 {
		return "", fmt.Errorf("schedule hour must be 0..23")
	}
	if body.Minute < 0 || body.Minute > 59 {
		return "", fmt.Errorf("schedule minute must be 0..59")
	}
	switch schedule.Type(body.Type) {
	case schedule.Daily:
		return schedule.Encode(schedule.NewDaily(body.Hour, body.Minute)), nil
	case schedule.Weekly:
		if body.Weekday < 0 || body.Weekday > 6 {
			return "", fmt.Errorf("schedule weekday must be 0..6")
		}
		return schedule.Encode(schedule.NewWeekly(body.Hour, body.Minute, body.Weekday)), nil
	default:
		return "", fmt.Errorf("schedule type must be \"daily\" or \"weekly\"")
	}
}

func ruleToResponse(rule *models.AlertRule) *RuleResponse {
	resp := &RuleResponse{
		ID:         rule.ID,
		Name:       rule.Name,
		Type:       WireType(rule.Category),
		Metric:     string(rule.Metric),
		ServiceID:  rule.ServiceID,
		Operator:   string(rule.Operator),
		Threshold:  rule.Threshold,
		Duration:   rule.Duration,
		Severity:   string(rule.Severity),
		Cooldown:   rule.Cooldown,
		ChannelIDs: rule.ChannelIDs,
		Cron:       rule.Schedule,
		Preset:     rules.Detect(rules.FamilyFor(rule.Metric), rule.Operator, rule.Threshold),
		Enabled:    rule.Enabled,
		CreatedAt:  rule.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  rule.UpdatedAt.Format(time.RFC3339),
	}
	if resp.ChannelIDs == nil {
		resp.ChannelIDs = []string{}
	}
	if rule.Schedule != "" {
		s := schedule.Decode(rule.Schedule)
		resp.Schedule = &ScheduleBody{
			Type:    string(s.Type),
			Hour:    s.Hour,
			Minute:  s.Minute,
			Weekday: s.Weekday,
		}
	}
	return resp
}
