package stream

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
)

// DefaultBridgeChannel is the Redis pub/sub channel shared by instances.
const DefaultBridgeChannel = "fire-alert:events"

type envelope struct {
	Origin  string          `json:"origin"`
	UserID  int64           `json:"user_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBridge replicates broker events across instances through Redis
// pub/sub. Each instance tags outbound envelopes with its own id and
// skips them on receipt, so local subscribers see each event once.
type RedisBridge struct {
	client     *redis.Client
	broker     *Broker
	channel    string
	instanceID string
}

// NewRedisBridge constructs a bridge over client. A nil client yields
// nil, which NewMulti skips.
func NewRedisBridge(client *redis.Client, broker *Broker, channel string) *RedisBridge {
	if client == nil || broker == nil {
		return nil
	}
	if channel == "" {
		channel = DefaultBridgeChannel
	}
	return &RedisBridge{
		client:     client,
		broker:     broker,
		channel:    channel,
		instanceID: uuid.NewString(),
	}
}

// Notify implements the alert service's Notifier by publishing the event
// to the shared channel for sibling instances.
func (b *RedisBridge) Notify(ctx context.Context, event alertapp.Event) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		log.Printf("stream: bridge marshal %s: %v", event.Name, err)
		return
	}
	body, err := json.Marshal(envelope{
		Origin:  b.instanceID,
		UserID:  event.UserID,
		Event:   event.Name,
		Payload: payload,
	})
	if err != nil {
		return
	}
	if err := b.client.Publish(ctx, b.channel, body).Err(); err != nil {
		log.Printf("stream: bridge publish %s: %v", event.Name, err)
	}
}

// Run subscribes to the shared channel and replays foreign events into
// the local broker until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	if b == nil {
		return nil
	}
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("stream: bridge decode: %v", err)
				continue
			}
			if env.Origin == b.instanceID {
				continue
			}
			b.broker.Publish(env.UserID, env.Event, env.Payload)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
