// Package http exposes the device-facing ingestion endpoints. They sit
// behind the shared x-api-key middleware, not user JWTs.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	ingestapp "github.com/dangdich07/fire-alert/internal/ingest/application"

	"github.com/dangdich07/fire-alert/internal/classify"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
)

// Handler provides /iot/event and /iot/heartbeat.
type Handler struct {
	service *ingestapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *ingestapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("ingest handler: nil service")
	}
	return &Handler{service: service}, nil
}

type eventRequest struct {
	Code  string   `json:"code"`
	Gas   *float64 `json:"gas"`
	Flame *float64 `json:"flame"`
}

type heartbeatRequest struct {
	Code string `json:"code"`
}

type eventResponse struct {
	OK            bool                     `json:"ok"`
	AlertID       int64                    `json:"alert_id,omitempty"`
	Suppressed    bool                     `json:"suppressed"`
	Status        string                   `json:"status"`
	Readings      *classify.Classification `json:"readings,omitempty"`
	SuppressUntil *time.Time               `json:"suppress_until,omitempty"`
}

// HandleEvent handles POST /iot/event.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Code == "" || req.Gas == nil || req.Flame == nil {
		writeError(w, http.StatusBadRequest, "code, gas and flame are required")
		return
	}
	if *req.Gas < 0 || *req.Flame < 0 {
		writeError(w, http.StatusBadRequest, "gas and flame must be non-negative")
		return
	}

	result, err := h.service.HandleEvent(r.Context(), req.Code, *req.Gas, *req.Flame)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	resp := eventResponse{
		OK:       true,
		Status:   result.Device.Status,
		Readings: result.Readings,
	}
	if result.Suppressed {
		resp.Suppressed = true
		until := result.Device.SuppressUntil
		resp.SuppressUntil = &until
	}
	switch result.Outcome {
	case devices.OutcomeAlarm:
		resp.AlertID = result.AlertID
		writeJSON(w, http.StatusCreated, resp)
	case devices.OutcomeSuppressed:
		writeJSON(w, http.StatusAccepted, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleHeartbeat handles POST /iot/heartbeat.
func (h *Handler) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	result, err := h.service.HandleHeartbeat(r.Context(), req.Code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "heartbeat failed")
		return
	}

	resp := eventResponse{OK: true, Status: result.Device.Status}
	if result.Suppressed {
		resp.Suppressed = true
		until := result.Device.SuppressUntil
		resp.SuppressUntil = &until
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
