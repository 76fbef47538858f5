// Package http exposes the user-facing alert endpoints.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
	"github.com/dangdich07/fire-alert/internal/auth"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
)

// Handler provides /alerts and subroutes.
type Handler struct {
	service *alertapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *alertapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /alerts and /alerts/{id}/ack.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/alerts":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/alerts/"):
		h.handleAck(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	list, err := h.service.ListAlerts(r.Context(), userID, activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list})
}

type createRequest struct {
	DeviceID int64  `json:"device_id"`
	Code     string `json:"code"`
	Type     string `json:"type"`
	Level    int    `json:"level"`
	Message  string `json:"message"`
	SyncKey  string `json:"syncKey"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.DeviceID == 0 && req.Code == "" {
		writeError(w, http.StatusBadRequest, "device_id or code is required")
		return
	}
	if !alerts.ValidType(req.Type) {
		writeError(w, http.StatusBadRequest, "type must be fire or smoke")
		return
	}
	if req.Level < 0 || req.Level > 100 {
		writeError(w, http.StatusBadRequest, "level must be between 0 and 100")
		return
	}

	alert, err := h.service.CreateManual(r.Context(), userID, req.DeviceID, req.Code, req.Type, req.Level, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, devices.ErrNotFound):
			writeError(w, http.StatusNotFound, "device not found")
		case errors.Is(err, alertapp.ErrNotAllowed):
			writeError(w, http.StatusForbidden, "device belongs to another user")
		default:
			writeError(w, http.StatusInternalServerError, "create failed")
		}
		return
	}

	// syncKey lets offline-capable clients match the created record to
	// their locally queued copy.
	body := map[string]any{"alert": alert}
	if req.SyncKey != "" {
		body["syncKey"] = req.SyncKey
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *Handler) handleAck(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/alerts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "ack" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	alert, err := h.service.Acknowledge(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "acknowledge failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
