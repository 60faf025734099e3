// Package mqtt streams entity states to an MQTT broker as retained messages.
package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jmylchreest/yeelightd/internal/config"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second
	maxReconnectDelay = 2 * time.Minute
	maxQoS            = 2

	statusOnline  = "online"
	statusOffline = "offline"
)

var (
	ErrNotConnected     = errors.New("mqtt: not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrInvalidTopic     = errors.New("mqtt: invalid topic")
	ErrInvalidQoS       = errors.New("mqtt: invalid qos")
)

// Client is the subset of a broker connection the publisher needs
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Close() error
}

// PahoClient is a Client backed by paho.mqtt.golang. It announces the daemon
// on <prefix>/status and leaves "offline" there as its last will.
type PahoClient struct {
	client      pahomqtt.Client
	statusTopic string
	qos         byte
	logger      *slog.Logger

	mu        sync.RWMutex
	connected bool
}

// Connect dials the broker configured in cfg
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (*PahoClient, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("%w: no broker configured", ErrConnectionFailed)
	}
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, cfg.QoS)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &PahoClient{
		statusTopic: StatusTopic(cfg.TopicPrefix),
		qos:         byte(cfg.QoS),
		logger:      logger,
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectDelay)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(c.statusTopic, statusOffline, c.qos, true)
	opts.SetOnConnectHandler(func(pc pahomqtt.Client) {
		c.setConnected(true)
		pc.Publish(c.statusTopic, c.qos, true, statusOnline)
		logger.Info("mqtt: connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt: connection lost", "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.setConnected(true)
	return c, nil
}

// brokerURL adds the tcp scheme to bare host:port addresses
func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

func (c *PahoClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// IsConnected reports the last known connection state
func (c *PahoClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Publish sends payload to topic and waits for the broker to accept it
func (c *PahoClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
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
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close publishes the offline status and disconnects
func (c *PahoClient) Close() error {
	if c.IsConnected() {
		c.client.Publish(c.statusTopic, c.qos, true, statusOffline).WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	c.setConnected(false)
	return nil
}
