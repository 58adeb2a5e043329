// Package api exposes the HTTP command surface the chat gateway calls.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"example.com/attendance/internal/auth"
	"example.com/attendance/internal/domain"
	"example.com/attendance/internal/observability"
)

// Handler coordinates HTTP requests with the attendance engine.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/attendance/clock-in", h.clockIn).Methods(http.MethodPost)
	v1.HandleFunc("/attendance/clock-out", h.clockOut).Methods(http.MethodPost)
	v1.HandleFunc("/attendance/summary", h.summary).Methods(http.MethodGet)
	v1.HandleFunc("/attendance/week", h.weekHistory).Methods(http.MethodGet)
	v1.HandleFunc("/attendance-types", h.createType).Methods(http.MethodPost)
	v1.HandleFunc("/attendance-types", h.listTypes).Methods(http.MethodGet)
	v1.HandleFunc("/attendance-types/{name}/deactivate", h.deactivateType).Methods(http.MethodPost)

	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	return r
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeAttendanceWrite) {
		return
	}

	var req ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.ClockIn(r.Context(), req.ExternalUserID, req.DisplayName, req.AttendanceType, req.Notes)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	observability.RecordClockEvent(string(domain.RecordClockIn))
	writeJSON(w, http.StatusCreated, ClockInResponse{
		Record:   toRecordView(result.Record, result.TypeName),
		TypeName: result.TypeName,
	})
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeAttendanceWrite) {
		return
	}

	var req ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.ClockOut(r.Context(), req.ExternalUserID, req.DisplayName, req.Notes)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	observability.RecordClockEvent(string(domain.RecordClockOut))
	writeJSON(w, http.StatusCreated, ClockOutResponse{
		Record:         toRecordView(result.Record, ""),
		ElapsedSeconds: result.Elapsed.Seconds(),
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeAttendanceRead, auth.ScopeAttendanceWrite) {
		return
	}

	externalID := strings.TrimSpace(r.URL.Query().Get("external_user_id"))
	if externalID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing external_user_id parameter")
		return
	}
	displayName := strings.TrimSpace(r.URL.Query().Get("display_name"))
	if displayName == "" {
		displayName = externalID
	}

	summary, err := h.service.Summary(r.Context(), externalID, displayName)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

func (h *Handler) weekHistory(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeAttendanceRead, auth.ScopeAttendanceWrite) {
		return
	}

	externalID := strings.TrimSpace(r.URL.Query().Get("external_user_id"))
	if externalID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing external_user_id parameter")
		return
	}
	displayName := strings.TrimSpace(r.URL.Query().Get("display_name"))
	if displayName == "" {
		displayName = externalID
	}

	offset := 0
	if raw := r.URL.Query().Get("week_offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid week_offset")
			return
		}
		offset = parsed
	}

	report, err := h.service.WeekHistory(r.Context(), externalID, displayName, offset)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toWeekView(report))
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeAttendanceWrite) {
		return
	}

	var req CreateTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	at, err := h.service.AddAttendanceType(r.Context(), req.Name, req.Description)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTypeView(*at))
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeAttendanceRead, auth.ScopeAttendanceWrite) {
		return
	}

	list, err := h.service.ListAttendanceTypes(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := TypeListResponse{
		Active:   make([]AttendanceTypeView, 0, len(list.Active)),
		Inactive: make([]AttendanceTypeView, 0, len(list.Inactive)),
		Total:    list.Total(),
	}
	for _, at := range list.Active {
		resp.Active = append(resp.Active, toTypeView(at))
	}
	for _, at := range list.Inactive {
		resp.Inactive = append(resp.Inactive, toTypeView(at))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deactivateType(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeAttendanceWrite) {
		return
	}

	name := mux.Vars(r)["name"]
	if err := h.service.DeactivateAttendanceType(r.Context(), name); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireScope enforces authentication and at least one of the listed
// scopes, writing the error response itself when the check fails.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return false
}

// writeEngineError translates engine errors into the gateway-facing
// status and error type.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		observability.RecordRejection("validation")
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrAlreadyClockedIn):
		observability.RecordRejection("already_clocked_in")
		writeError(w, http.StatusConflict, "already_clocked_in", "already clocked in, clock out first")
	case errors.Is(err, domain.ErrNotClockedIn):
		observability.RecordRejection("not_clocked_in")
		writeError(w, http.StatusConflict, "not_clocked_in", "no open clock-in found, clock in first")
	case errors.Is(err, domain.ErrUnknownAttendanceType):
		observability.RecordRejection("unknown_attendance_type")
		writeError(w, http.StatusNotFound, "unknown_attendance_type", "attendance type not found or inactive")
	case errors.Is(err, domain.ErrTypeNotFound):
		observability.RecordRejection("type_not_found")
		writeError(w, http.StatusNotFound, "not_found", "attendance type not found")
	case errors.Is(err, domain.ErrDuplicateTypeName):
		observability.RecordRejection("duplicate_type_name")
		writeError(w, http.StatusConflict, "duplicate_name", "attendance type name already exists")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
