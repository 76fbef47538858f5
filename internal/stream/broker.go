// Package stream delivers realtime alert and device events to browser
// clients over server-sent events, fanned out per owning user.
package stream

import (
	"context"
	"sync"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
	"github.com/dangdich07/fire-alert/internal/observability/metrics"
)

const subscriberBuffer = 16

// Message is one named SSE frame queued for a subscriber.
type Message struct {
	Event   string
	Payload any
}

// Subscriber is one live SSE connection belonging to a user.
type Subscriber struct {
	UserID int64
	ch     chan Message
}

// Events returns the subscriber's receive channel.
func (s *Subscriber) Events() <-chan Message {
	if s == nil {
		return nil
	}
	return s.ch
}

// Broker fans events out to the subscribers of the addressed user. A
// slow subscriber never blocks publication; its frame is dropped.
type Broker struct {
	mu    sync.Mutex
	users map[int64]map[*Subscriber]struct{}
}

// NewBroker constructs a broker.
func NewBroker() *Broker {
	return &Broker{users: make(map[int64]map[*Subscriber]struct{})}
}

// Subscribe registers a connection for userID.
func (b *Broker) Subscribe(userID int64) *Subscriber {
	if b == nil || userID == 0 {
		return nil
	}
	sub := &Subscriber{
		UserID: userID,
		ch:     make(chan Message, subscriberBuffer),
	}
	b.mu.Lock()
	set, ok := b.users[userID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		b.users[userID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()
	metrics.IncStreamClients()
	return sub
}

// Unsubscribe drops the connection and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if b == nil || sub == nil {
		return
	}
	b.mu.Lock()
	set, ok := b.users[sub.UserID]
	if ok {
		if _, present := set[sub]; !present {
			ok = false
		}
		delete(set, sub)
		if len(set) == 0 {
			delete(b.users, sub.UserID)
		}
	}
	b.mu.Unlock()
	if ok {
		metrics.DecStreamClients()
		close(sub.ch)
	}
}

// Publish queues the event for every subscriber of userID. The sends
// happen under the lock so a racing Unsubscribe cannot close a channel
// mid-publish; select/default keeps the critical section non-blocking.
func (b *Broker) Publish(userID int64, event string, payload any) {
	if b == nil || userID == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.users[userID] {
		select {
		case sub.ch <- Message{Event: event, Payload: payload}:
		default:
			metrics.IncStreamDrop()
		}
	}
}

// Notify implements the alert service's Notifier.
func (b *Broker) Notify(_ context.Context, event alertapp.Event) {
	b.Publish(event.UserID, event.Name, event.Payload)
}
