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
	"github.com/dangdich07/fire-alert/internal/auth"
	deviceapp "github.com/dangdich07/fire-alert/internal/devices/application"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
)

type stubDeviceStore struct {
	byCode map[string]*devices.Device
	owned  map[int64]*devices.Device
	list   []devices.Device
}

func newStubDeviceStore() *stubDeviceStore {
	return &stubDeviceStore{byCode: map[string]*devices.Device{}, owned: map[int64]*devices.Device{}}
}

func (s *stubDeviceStore) GetByCode(_ context.Context, code string) (*devices.Device, error) {
	return s.byCode[code], nil
}
func (s *stubDeviceStore) GetByID(_ context.Context, id int64) (*devices.Device, error) {
	return nil, nil
}
func (s *stubDeviceStore) GetOwned(_ context.Context, id, ownerID int64) (*devices.Device, error) {
	return s.owned[id], nil
}
func (s *stubDeviceStore) Insert(_ context.Context, device *devices.Device) error {
	device.ID = 100
	return nil
}
func (s *stubDeviceStore) Claim(_ context.Context, code string, ownerID int64, name, location string) error {
	if device, ok := s.byCode[code]; ok {
		device.OwnerUserID = ownerID
		device.Name = name
		device.Location = location
	}
	return nil
}
func (s *stubDeviceStore) ListByOwner(_ context.Context, ownerID int64) ([]devices.Device, error) {
	return s.list, nil
}
func (s *stubDeviceStore) OpenSuppression(_ context.Context, id int64, until time.Time) error {
	return nil
}

type stubAlertStore struct{}

func (stubAlertStore) Create(context.Context, *alerts.Alert) error           { return nil }
func (stubAlertStore) GetByID(context.Context, int64) (*alerts.Alert, error) { return nil, nil }
func (stubAlertStore) OwnedBy(context.Context, int64, int64) (bool, error)   { return false, nil }
func (stubAlertStore) MarkAcknowledged(context.Context, int64, int64, time.Time) error {
	return nil
}
func (stubAlertStore) ListByOwner(context.Context, int64, bool) ([]alerts.Alert, error) {
	return nil, nil
}
func (stubAlertStore) ResolveActiveForDevice(context.Context, int64, int64, time.Time) error {
	return nil
}

type stubFinder struct{}

func (stubFinder) GetByID(context.Context, int64) (*devices.Device, error)    { return nil, nil }
func (stubFinder) GetByCode(context.Context, string) (*devices.Device, error) { return nil, nil }

func newTestHandler(t *testing.T, store *stubDeviceStore) *Handler {
	t.Helper()
	alertSvc, err := alertapp.NewService(stubAlertStore{}, stubFinder{})
	require.NoError(t, err)
	svc, err := deviceapp.NewService(store, alertSvc)
	require.NoError(t, err)
	handler, err := NewHandler(svc)
	require.NoError(t, err)
	return handler
}

func authedRequest(method, path, body string, userID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if userID != 0 {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID}))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestClaimValidation(t *testing.T) {
	handler := newTestHandler(t, newStubDeviceStore())

	cases := []struct {
		name string
		body string
	}{
		{"short code", `{"code": "ab", "name": "Kitchen"}`},
		{"short name", `{"code": "KIT-01", "name": "x"}`},
		{"long location", `{"code": "KIT-01", "name": "Kitchen", "location": "` + strings.Repeat("a", 201) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/devices", tc.body, 42))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestClaimCreatesDevice(t *testing.T) {
	handler := newTestHandler(t, newStubDeviceStore())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/devices", `{"code": "KIT-01", "name": "Kitchen", "location": "1F"}`, 42))
	assert.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	device, ok := body["device"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "KIT-01", device["code"])
}

func TestClaimConflict(t *testing.T) {
	store := newStubDeviceStore()
	store.byCode["KIT-01"] = &devices.Device{ID: 7, Code: "KIT-01", OwnerUserID: 1, Status: devices.StatusOK}
	handler := newTestHandler(t, store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/devices", `{"code": "KIT-01", "name": "Kitchen"}`, 42))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "claimed")
}

func TestClaimRequiresAuth(t *testing.T) {
	handler := newTestHandler(t, newStubDeviceStore())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/devices", `{"code": "KIT-01", "name": "Kitchen"}`, 0))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListDevices(t *testing.T) {
	store := newStubDeviceStore()
	store.list = []devices.Device{{ID: 7, Code: "KIT-01", Name: "Kitchen", OwnerUserID: 42, Status: devices.StatusOK}}
	handler := newTestHandler(t, store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/devices", "", 42))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	list, ok := body["devices"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestListDevicesEmptyIsArray(t *testing.T) {
	handler := newTestHandler(t, newStubDeviceStore())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/devices", "", 42))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"devices":[]`)
}

func TestMarkSafe(t *testing.T) {
	store := newStubDeviceStore()
	store.owned[7] = &devices.Device{ID: 7, Code: "KIT-01", OwnerUserID: 42, Status: devices.StatusAlarm}
	handler := newTestHandler(t, store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPatch, "/devices/7/mark-safe", "", 42))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	device, ok := body["device"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, devices.StatusSafe, device["status"])
}

func TestMarkSafeUnknownDevice(t *testing.T) {
	handler := newTestHandler(t, newStubDeviceStore())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPatch, "/devices/7/mark-safe", "", 42))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkSafeBadID(t *testing.T) {
	handler := newTestHandler(t, newStubDeviceStore())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPatch, "/devices/abc/mark-safe", "", 42))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSubroute(t *testing.T) {
	handler := newTestHandler(t, newStubDeviceStore())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPatch, "/devices/7/rename", "", 42))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
