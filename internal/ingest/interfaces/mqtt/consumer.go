// Package mqtt consumes device traffic from an MQTT broker as an
// alternative to the HTTP ingestion endpoints. Devices publish to
// fire/<code>/event and fire/<code>/heartbeat.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	ingestapp "github.com/dangdich07/fire-alert/internal/ingest/application"
)

const (
	eventTopic     = "fire/+/event"
	heartbeatTopic = "fire/+/heartbeat"
	handleTimeout  = 10 * time.Second
)

// Options configures the broker connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// Consumer subscribes to device topics and feeds the ingest service.
type Consumer struct {
	client  mqtt.Client
	service *ingestapp.Service
}

type eventPayload struct {
	Gas   float64 `json:"gas"`
	Flame float64 `json:"flame"`
}

// NewConsumer connects to the broker and subscribes. Returns an error if
// the initial connection fails; reconnects afterwards are automatic.
func NewConsumer(opts Options, service *ingestapp.Service) (*Consumer, error) {
	if opts.BrokerURL == "" {
		return nil, errors.New("mqtt: broker url required")
	}
	if service == nil {
		return nil, errors.New("mqtt: nil ingest service")
	}
	if opts.ClientID == "" {
		opts.ClientID = "fire-alert-ingest"
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetUsername(opts.Username)
	clientOpts.SetPassword(opts.Password)
	clientOpts.SetKeepAlive(60 * time.Second)
	clientOpts.SetPingTimeout(10 * time.Second)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetMaxReconnectInterval(10 * time.Second)
	clientOpts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("mqtt: connected to %s", opts.BrokerURL)
	})
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	consumer := &Consumer{client: client, service: service}
	if token := client.Subscribe(eventTopic, 1, consumer.onEvent); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, token.Error()
	}
	if token := client.Subscribe(heartbeatTopic, 1, consumer.onHeartbeat); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, token.Error()
	}
	return consumer, nil
}

// Close disconnects from the broker.
func (c *Consumer) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}

func (c *Consumer) onEvent(_ mqtt.Client, msg mqtt.Message) {
	code := codeFromTopic(msg.Topic())
	if code == "" {
		log.Printf("mqtt: unroutable topic %s", msg.Topic())
		return
	}
	var payload eventPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("mqtt: decode event from %s: %v", code, err)
		return
	}
	if payload.Gas < 0 || payload.Flame < 0 {
		log.Printf("mqtt: negative readings from %s dropped", code)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	if _, err := c.service.HandleEvent(ctx, code, payload.Gas, payload.Flame); err != nil {
		log.Printf("mqtt: handle event from %s: %v", code, err)
	}
}

func (c *Consumer) onHeartbeat(_ mqtt.Client, msg mqtt.Message) {
	code := codeFromTopic(msg.Topic())
	if code == "" {
		log.Printf("mqtt: unroutable topic %s", msg.Topic())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	if _, err := c.service.HandleHeartbeat(ctx, code); err != nil {
		log.Printf("mqtt: handle heartbeat from %s: %v", code, err)
	}
}

// codeFromTopic extracts the device code from fire/<code>/<kind>.
func codeFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "fire" || parts[1] == "" {
		return ""
	}
	return parts[1]
}
