// Package http exposes the user-facing device endpoints. All routes
// require a JWT; the identity middleware has already run.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dangdich07/fire-alert/internal/auth"
	deviceapp "github.com/dangdich07/fire-alert/internal/devices/application"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
)

const (
	codeMinLen     = 3
	codeMaxLen     = 64
	nameMinLen     = 2
	nameMaxLen     = 150
	locationMaxLen = 200
)

// Handler provides /devices and subroutes.
type Handler struct {
	service *deviceapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *deviceapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("devices handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /devices and /devices/{id}/mark-safe.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/devices":
		switch r.Method {
		case http.MethodPost:
			h.handleClaim(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/devices/"):
		h.handleAction(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type claimRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (req claimRequest) validate() string {
	code := strings.TrimSpace(req.Code)
	name := strings.TrimSpace(req.Name)
	switch {
	case len(code) < codeMinLen || len(code) > codeMaxLen:
		return "code must be 3-64 characters"
	case len(name) < nameMinLen || len(name) > nameMaxLen:
		return "name must be 2-150 characters"
	case len(req.Location) > locationMaxLen:
		return "location must be at most 200 characters"
	}
	return ""
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	device, err := h.service.Claim(r.Context(), userID, strings.TrimSpace(req.Code), strings.TrimSpace(req.Name), strings.TrimSpace(req.Location))
	if err != nil {
		if errors.Is(err, devices.ErrAlreadyClaimed) {
			writeError(w, http.StatusConflict, "device already claimed")
			return
		}
		writeError(w, http.StatusInternalServerError, "claim failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"device": device})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if list == nil {
		list = []devices.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": list})
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/devices/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "mark-safe" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	device, err := h.service.MarkSafe(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, devices.ErrNotFound) {
			writeError(w, http.StatusNotFound, "device not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "mark-safe failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device": device})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
