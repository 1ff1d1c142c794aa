// Package mqtt is the paho-backed transport between the bindings and the
// zigbee2mqtt bridge.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/eddielth/z2mgen/config"
	"github.com/eddielth/z2mgen/logger"
)

const (
	connectTimeout   = 10 * time.Second
	operationTimeout = 5 * time.Second
)

var (
	// ErrNotConnected is returned when the broker session is down.
	ErrNotConnected = errors.New("mqtt client is not connected")
	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("mqtt operation timed out")
)

// MessageHandler is the callback function type for handling MQTT messages
type MessageHandler func(topic string, payload []byte)

// Client publishes and subscribes on one broker session. It satisfies
// binding.Transport.
type Client struct {
	client mqtt.Client
	config config.MQTTConfig
}

// NewClient creates a client; call Connect before use.
func NewClient(cfg config.MQTTConfig) (*Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address cannot be empty")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "z2mgen-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	// subscriptions are restored by paho on reconnect
	opts.SetCleanSession(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error("MQTT connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info("trying to reconnect to MQTT broker...")
	})

	return &Client{client: mqtt.NewClient(opts), config: cfg}, nil
}

// Connect connects to the MQTT broker
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: connecting to %s", ErrTimeout, c.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", c.config.Broker, err)
	}

	logger.Info("successfully connected to MQTT broker: %s", c.config.Broker)
	return nil
}

// Publish hands payload to the broker and waits for the client to accept it.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.config.QoS, false, payload)
	if err := wait(ctx, token); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	logger.Debug("published %d bytes to %s", len(payload), topic)
	return nil
}

// Subscribe registers handler for every message matching pattern.
func (c *Client) Subscribe(pattern string, handler func(topic string, payload []byte)) error {
	token := c.client.Subscribe(pattern, c.config.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: subscribing to %s", ErrTimeout, pattern)
	}
	if err := token.Error(); err != nil {
		return err
	}

	logger.Info("successfully subscribed to topic: %s", pattern)
	return nil
}

// FetchRetained subscribes to topic and returns the first message, which is
// the retained one when the broker holds it. It returns nil without error
// when nothing arrives within timeout.
func (c *Client) FetchRetained(topic string, timeout time.Duration) ([]byte, error) {
	received := make(chan []byte, 1)
	token := c.client.Subscribe(topic, c.config.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case received <- msg.Payload():
		default:
		}
	})
	if !token.WaitTimeout(operationTimeout) {
		return nil, fmt.Errorf("%w: subscribing to %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	defer c.client.Unsubscribe(topic)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-received:
		logger.Info("received %d bytes from %s", len(payload), topic)
		return payload, nil
	case <-timer.C:
		logger.Warn("no message on %s within %v", topic, timeout)
		return nil, nil
	}
}

// Disconnect disconnects from the MQTT broker
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
	logger.Info("disconnected from MQTT broker")
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(operationTimeout):
		return ErrTimeout
	}
}

// BridgeDevicesTopic is where the bridge retains its device list.
func BridgeDevicesTopic(namespace string) string {
	return namespace + "/bridge/devices"
}
