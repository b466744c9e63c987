// Package mqtt bridges the hub to the device pub/sub transport: telemetry
// ingestion from the device topics and command publishing back to them.
package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pub/sub topics shared with the device fleet.
const (
	TelemetryTopic  = "pozor-dom/device/+/telemetry"
	commandTopicFmt = "pozor-dom/hub/command/%s"
)

// Client wraps the paho MQTT client. The connection retries in the
// background; a broker outage never takes the hub down, frames published
// while disconnected fail and are logged by the caller.
type Client struct {
	logger *zap.Logger
	client mqtt.Client
}

// NewClient builds a client that subscribes to device telemetry on every
// (re)connection and hands payloads to telemetryHandler.
func NewClient(broker, clientPrefix string, telemetryHandler func(topic string, payload []byte), logger *zap.Logger) *Client {
	c := &Client{logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", broker))
	opts.SetClientID(fmt.Sprintf("%s-%s", clientPrefix, uuid.NewString()[:8]))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", broker))
		if telemetryHandler == nil {
			return
		}
		// Subscribe inside OnConnect so reconnects re-establish it.
		token := client.Subscribe(TelemetryTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			telemetryHandler(msg.Topic(), msg.Payload())
		})
		go func() {
			if token.Wait() && token.Error() != nil {
				logger.Error("Failed to subscribe to telemetry",
					zap.String("topic", TelemetryTopic),
					zap.Error(token.Error()))
				return
			}
			logger.Info("Subscribed to device telemetry", zap.String("topic", TelemetryTopic))
		}()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect starts the background connection. It does not block waiting for
// the broker.
func (c *Client) Connect() {
	c.client.Connect()
}

// PublishCommand relays a command payload to the device-specific topic.
func (c *Client) PublishCommand(deviceID string, payload []byte) error {
	topic := fmt.Sprintf(commandTopicFmt, deviceID)

	token := c.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}

	c.logger.Info("Published command", zap.String("topic", topic))
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT client disconnected")
}
