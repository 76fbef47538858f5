package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
	"github.com/dangdich07/fire-alert/internal/auth"
)

var streamSecret = []byte("stream-test-secret")

func mintToken(t *testing.T, userID int64) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		Email:  "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(streamSecret)
	require.NoError(t, err)
	return signed
}

type snapshotLister struct {
	alerts []alerts.Alert
}

func (l *snapshotLister) ListAlerts(_ context.Context, userID int64, activeOnly bool) ([]alerts.Alert, error) {
	return l.alerts, nil
}

func (b *Broker) waitForSubscriber(t *testing.T, userID int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		n := len(b.users[userID])
		b.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("subscriber never registered")
}

func TestStreamRejectsMissingToken(t *testing.T) {
	handler := &Handler{Broker: NewBroker(), JWTSecret: streamSecret}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/alerts", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestStreamRejectsNonGet(t *testing.T) {
	handler := &Handler{Broker: NewBroker(), JWTSecret: streamSecret}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stream/alerts", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStreamSnapshotAndLiveEvents(t *testing.T) {
	broker := NewBroker()
	handler := &Handler{
		Broker:    broker,
		Alerts:    &snapshotLister{alerts: []alerts.Alert{{ID: 9, DeviceID: 7, Type: alerts.TypeFire, Level: 100, IsActive: true}}},
		JWTSecret: streamSecret,
		PingEvery: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream/alerts?token="+mintToken(t, 42), nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	broker.waitForSubscriber(t, 42)
	broker.Publish(42, "alert", map[string]any{"id": 10, "level": 100})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.Contains(t, body, ": connected")
	assert.Contains(t, body, "event: snapshot")
	assert.Contains(t, body, `"id":9`)
	assert.Contains(t, body, "event: alert")
	assert.Contains(t, body, `"level":100`)
}

func TestStreamAcceptsBearerHeader(t *testing.T) {
	broker := NewBroker()
	handler := &Handler{Broker: broker, JWTSecret: streamSecret, PingEvery: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream/alerts", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, 7))
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	broker.waitForSubscriber(t, 7)
	cancel()
	<-done

	assert.Contains(t, rec.Body.String(), ": connected")
}
