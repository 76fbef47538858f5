package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
	ingestapp "github.com/dangdich07/fire-alert/internal/ingest/application"
)

type stubDeviceStore struct {
	device *devices.Device
}

func (s *stubDeviceStore) EnsureByCode(_ context.Context, code string) (*devices.Device, error) {
	copied := *s.device
	return &copied, nil
}

func (s *stubDeviceStore) SetStatusSeen(_ context.Context, id int64, status string, seenAt time.Time, clearSuppression bool) error {
	return nil
}

type stubAlertStore struct {
	created int64
}

func (s *stubAlertStore) Create(_ context.Context, alert *alerts.Alert) error {
	s.created++
	alert.ID = s.created
	alert.IsActive = true
	return nil
}
func (s *stubAlertStore) GetByID(context.Context, int64) (*alerts.Alert, error) { return nil, nil }
func (s *stubAlertStore) OwnedBy(context.Context, int64, int64) (bool, error)   { return false, nil }
func (s *stubAlertStore) MarkAcknowledged(context.Context, int64, int64, time.Time) error {
	return nil
}
func (s *stubAlertStore) ListByOwner(context.Context, int64, bool) ([]alerts.Alert, error) {
	return nil, nil
}
func (s *stubAlertStore) ResolveActiveForDevice(context.Context, int64, int64, time.Time) error {
	return nil
}

type stubFinder struct{}

func (stubFinder) GetByID(context.Context, int64) (*devices.Device, error)    { return nil, nil }
func (stubFinder) GetByCode(context.Context, string) (*devices.Device, error) { return nil, nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestHandler(t *testing.T, device *devices.Device, opts ...ingestapp.ServiceOption) *Handler {
	t.Helper()
	alertSvc, err := alertapp.NewService(&stubAlertStore{}, stubFinder{})
	require.NoError(t, err)
	svc, err := ingestapp.NewService(&stubDeviceStore{device: device}, alertSvc, opts...)
	require.NoError(t, err)
	handler, err := NewHandler(svc)
	require.NoError(t, err)
	return handler
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestEventValidation(t *testing.T) {
	handler := newTestHandler(t, &devices.Device{ID: 7, Code: "KIT-01", Status: devices.StatusOK})

	rec := postJSON(t, handler.HandleEvent, "/iot/event", `{"gas": 10, "flame": 900}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "required")

	rec = postJSON(t, handler.HandleEvent, "/iot/event", `{"code": "KIT-01", "gas": -1, "flame": 900}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "non-negative")

	rec = postJSON(t, handler.HandleEvent, "/iot/event", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventSafeReadingsReturns200(t *testing.T) {
	handler := newTestHandler(t, &devices.Device{ID: 7, Code: "KIT-01", Status: devices.StatusOK})

	rec := postJSON(t, handler.HandleEvent, "/iot/event", `{"code": "KIT-01", "gas": 10, "flame": 900}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["suppressed"])
	assert.Equal(t, devices.StatusOK, body["status"])
	assert.NotNil(t, body["readings"])
	assert.Nil(t, body["alert_id"])
}

func TestEventDangerReturns201WithAlertID(t *testing.T) {
	handler := newTestHandler(t, &devices.Device{ID: 7, Code: "KIT-01", OwnerUserID: 42, Status: devices.StatusOK})

	rec := postJSON(t, handler.HandleEvent, "/iot/event", `{"code": "KIT-01", "gas": 750, "flame": 600}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["alert_id"])
	assert.Equal(t, devices.StatusAlarm, body["status"])
}

func TestEventSuppressedReturns202(t *testing.T) {
	device := &devices.Device{
		ID:            7,
		Code:          "KIT-01",
		OwnerUserID:   42,
		Status:        devices.StatusSafe,
		SuppressUntil: time.Now().UTC().Add(time.Minute),
	}
	handler := newTestHandler(t, device)

	rec := postJSON(t, handler.HandleEvent, "/iot/event", `{"code": "KIT-01", "gas": 900, "flame": 50}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["suppressed"])
	assert.Equal(t, devices.StatusSafe, body["status"])
	assert.NotNil(t, body["suppress_until"])
	assert.Nil(t, body["alert_id"])
}

func TestEventSafeReadingsDuringSuppressionReports200Suppressed(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	until := now.Add(45 * time.Second)
	device := &devices.Device{
		ID:            7,
		Code:          "KIT-01",
		OwnerUserID:   42,
		Status:        devices.StatusSafe,
		SuppressUntil: until,
	}
	handler := newTestHandler(t, device, ingestapp.WithClock(fixedClock{now: now}))

	rec := postJSON(t, handler.HandleEvent, "/iot/event", `{"code": "KIT-01", "gas": 10, "flame": 900}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["suppressed"])
	assert.Equal(t, devices.StatusSafe, body["status"])
	assert.Equal(t, until.Format(time.RFC3339), body["suppress_until"])
	assert.Nil(t, body["alert_id"])
}

func TestEventRejectsGet(t *testing.T) {
	handler := newTestHandler(t, &devices.Device{ID: 7, Code: "KIT-01", Status: devices.StatusOK})
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, httptest.NewRequest(http.MethodGet, "/iot/event", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHeartbeat(t *testing.T) {
	handler := newTestHandler(t, &devices.Device{ID: 7, Code: "KIT-01", Status: devices.StatusOK})

	rec := postJSON(t, handler.HandleHeartbeat, "/iot/heartbeat", `{"code": "KIT-01"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, devices.StatusOK, body["status"])

	rec = postJSON(t, handler.HandleHeartbeat, "/iot/heartbeat", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHeartbeatSuppressedDevice(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	until := now.Add(time.Minute)
	device := &devices.Device{
		ID:            7,
		Code:          "KIT-01",
		Status:        devices.StatusSafe,
		SuppressUntil: until,
	}
	handler := newTestHandler(t, device, ingestapp.WithClock(fixedClock{now: now}))

	rec := postJSON(t, handler.HandleHeartbeat, "/iot/heartbeat", `{"code": "KIT-01"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["suppressed"])
	assert.Equal(t, devices.StatusSafe, body["status"])
	assert.Equal(t, until.Format(time.RFC3339), body["suppress_until"])
}
