// Package mqtt wraps paho.mqtt.golang for publishing retained state messages.
package mqtt

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	zlog "github.com/rs/zerolog/log"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	defaultRetryInterval     = 5 * time.Second
	maxReconnectInterval     = time.Minute
	maxQoS                   = 2
)

// Config holds broker connection settings.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string

	// Will is published retained by the broker when the connection drops
	// unexpectedly. Empty WillTopic disables it.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
}

// Client is a connected MQTT client. It is safe for concurrent use.
type Client struct {
	client pahomqtt.Client

	mu        sync.RWMutex
	connected bool
}

// Connect connects to the broker. Paho reconnects automatically afterwards.
func Connect(cfg Config) (*Client, error) {
	c := &Client{}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.setConnected(true)
		zlog.Info().Msgf("mqtt: connected: broker=%s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		zlog.Warn().Msgf("mqtt: connection lost: broker=%s err=%v", cfg.Broker, err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, errors.Wrapf(ErrConnectionFailed, "timeout after %v", defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(ErrConnectionFailed, "%v", err)
	}

	// The connect handler runs asynchronously.
	c.setConnected(true)
	return c, nil
}

func buildClientOptions(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(defaultRetryInterval)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.WillTopic != "" {
		opts.SetBinaryWill(cfg.WillTopic, cfg.WillPayload, cfg.WillQoS, true)
	}
	return opts
}

// Publish sends payload to topic and waits for the broker acknowledgement.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return errors.Wrapf(ErrPublishFailed, "timeout after %v", defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(ErrPublishFailed, "%v", err)
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// Close disconnects from the broker, letting pending publishes finish.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.mu.Unlock()
}
