// Package pubsub provides the MQTT client the gateway uses to talk to the
// broker shared with the vendor devices and Home Assistant.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessageHandler is invoked for every message received on a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Client is the messaging interface the gateway depends on.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, retain bool, data interface{}) error
	Subscribe(topic string, handler MessageHandler) error
	Close() error
}

// NoopClient is a no-operation implementation of the Client interface.
type NoopClient struct{}

// NewNoopClient creates a new no-operation client.
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// Connect is a no-op for the NoopClient.
func (c *NoopClient) Connect(_ context.Context) error { return nil }

// Publish is a no-op for the NoopClient.
func (c *NoopClient) Publish(_ context.Context, _ string, _ bool, _ interface{}) error { return nil }

// Subscribe is a no-op for the NoopClient.
func (c *NoopClient) Subscribe(_ string, _ MessageHandler) error { return nil }

// Close is a no-op for the NoopClient.
func (c *NoopClient) Close() error { return nil }

// Options configure the MQTT client.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
}

// MQTTClient implements the Client interface on top of paho.
type MQTTClient struct {
	opts      Options
	client    mqtt.Client
	logger    zerolog.Logger
	connected bool

	mu            sync.Mutex
	subscriptions map[string]MessageHandler
}

// NewMQTTClient creates a new MQTT client.
func NewMQTTClient(opts Options) *MQTTClient {
	if opts.ClientID == "" {
		opts.ClientID = fmt.Sprintf("battgw-%d", time.Now().Unix())
	}
	return &MQTTClient{
		opts:          opts,
		logger:        log.With().Str("component", "mqtt").Logger(),
		subscriptions: make(map[string]MessageHandler),
	}
}

// Connect establishes a connection to the MQTT broker and restores any
// subscriptions after a reconnect.
func (c *MQTTClient) Connect(ctx context.Context) error {
	onConnect := func(client mqtt.Client) {
		c.logger.Info().Msg("MQTT connection established")
		c.connected = true
		c.resubscribe()
	}
	onConnectionLost := func(client mqtt.Client, err error) {
		c.connected = false
		c.logger.Warn().Err(err).Msg("MQTT connection lost")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", c.opts.Host, c.opts.Port)).
		SetClientID(c.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetWriteTimeout(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetCleanSession(false).
		SetOnConnectHandler(onConnect).
		SetConnectionLostHandler(onConnectionLost)

	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
		opts.SetPassword(c.opts.Password)
	}

	c.client = mqtt.NewClient(opts)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token := c.client.Connect()
	select {
	case <-connectCtx.Done():
		return fmt.Errorf("failed to connect to MQTT broker: timeout after 10 seconds")
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}
	}

	c.connected = true
	return nil
}

// Publish sends data to the specified topic. Strings and byte slices go out
// verbatim; everything else is marshalled to JSON.
func (c *MQTTClient) Publish(ctx context.Context, topic string, retain bool, data interface{}) error {
	if c.client == nil {
		return fmt.Errorf("publish before connect")
	}

	var payload []byte
	switch v := data.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		jsonData, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal data to JSON: %w", err)
		}
		payload = jsonData
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	token := c.client.Publish(topic, 0, retain, payload)
	select {
	case <-publishCtx.Done():
		return fmt.Errorf("publish timeout after 5 seconds")
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to publish message: %w", token.Error())
		}
	}

	return nil
}

// Subscribe registers a handler for a topic filter. The subscription is
// restored automatically after reconnects.
func (c *MQTTClient) Subscribe(topic string, handler MessageHandler) error {
	if c.client == nil {
		return fmt.Errorf("subscribe before connect")
	}

	c.mu.Lock()
	c.subscriptions[topic] = handler
	c.mu.Unlock()

	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}

	c.logger.Debug().Str("topic", topic).Msg("Subscribed")
	return nil
}

// resubscribe restores subscriptions after a reconnect.
func (c *MQTTClient) resubscribe() {
	c.mu.Lock()
	subs := make(map[string]MessageHandler, len(c.subscriptions))
	for topic, handler := range c.subscriptions {
		subs[topic] = handler
	}
	c.mu.Unlock()

	for topic, handler := range subs {
		h := handler
		token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			h(msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			c.logger.Warn().Err(token.Error()).Str("topic", topic).Msg("Failed to restore subscription")
		}
	}
}

// Close terminates the connection to the MQTT broker.
func (c *MQTTClient) Close() error {
	if c.client != nil && c.connected {
		c.client.Disconnect(250)
		c.connected = false
	}
	return nil
}
