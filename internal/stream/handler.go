package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
	"github.com/dangdich07/fire-alert/internal/auth"
)

// DefaultPingInterval keeps proxies from idling the connection out.
const DefaultPingInterval = 25 * time.Second

// AlertLister supplies the initial snapshot of active alerts.
type AlertLister interface {
	ListAlerts(ctx context.Context, userID int64, activeOnly bool) ([]alerts.Alert, error)
}

// Handler serves GET /stream/alerts. EventSource cannot set headers, so
// the token may arrive as ?token= instead of a bearer header.
type Handler struct {
	Broker    *Broker
	Alerts    AlertLister
	JWTSecret []byte
	PingEvery time.Duration
}

// ServeHTTP upgrades the request to an SSE stream scoped to the caller.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.Broker == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}

	token := auth.ExtractBearer(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	claims, err := auth.ParseJWT(token, h.JWTSecret)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.Broker.Subscribe(claims.UserID)
	if sub == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	defer h.Broker.Unsubscribe(sub)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	if h.Alerts != nil {
		active, err := h.Alerts.ListAlerts(r.Context(), claims.UserID, true)
		if err != nil {
			log.Printf("stream: snapshot for user %d: %v", claims.UserID, err)
		} else {
			writeFrame(w, "snapshot", active)
			flusher.Flush()
		}
	}

	interval := h.PingEvery
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	ping := time.NewTicker(interval)
	defer ping.Stop()

	done := r.Context().Done()
	for {
		select {
		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			writeFrame(w, msg.Event, msg.Payload)
			flusher.Flush()
		case <-ping.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-done:
			return
		}
	}
}

func writeFrame(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("stream: marshal %s: %v", event, err)
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
