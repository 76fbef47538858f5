package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
)

// DefaultWebhookTimeout bounds one outbound delivery attempt.
const DefaultWebhookTimeout = 5 * time.Second

// WebhookNotifier POSTs alert events to an external URL as JSON. Delivery
// is fire-and-forget on a fresh goroutine so the request path never waits
// on the remote's latency; failures are logged and dropped.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhook builds a webhook notifier. An empty URL yields nil, which
// NewMulti skips.
func NewWebhook(url string, timeout time.Duration) *WebhookNotifier {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

type webhookBody struct {
	Event   string `json:"event"`
	UserID  int64  `json:"user_id"`
	Payload any    `json:"payload"`
}

// Notify serializes the event and posts it asynchronously.
func (w *WebhookNotifier) Notify(_ context.Context, event alertapp.Event) {
	if w == nil {
		return
	}
	body, err := json.Marshal(webhookBody{Event: event.Name, UserID: event.UserID, Payload: event.Payload})
	if err != nil {
		log.Printf("webhook: marshal %s: %v", event.Name, err)
		return
	}
	go w.deliver(event.Name, body)
}

func (w *WebhookNotifier) deliver(name string, body []byte) {
	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("webhook: deliver %s: %v", name, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("webhook: deliver %s: status %d", name, resp.StatusCode)
	}
}
