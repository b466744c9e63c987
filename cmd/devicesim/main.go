package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pozordom/models"
)

var (
	broker   = flag.String("broker", "127.0.0.1:1883", "MQTT broker address (host:port)")
	interval = flag.Duration("interval", 5*time.Second, "Telemetry publish interval")
)

type device struct {
	id      string
	channel string
}

// The emulated fleet: three devices per transport channel plus a few named
// sensors, mirroring a small smart home.
var fleet = []device{
	{"device-wifi-001", "WiFi"},
	{"device-wifi-002", "WiFi"},
	{"device-wifi-003", "WiFi"},
	{"device-ble-001", "BLE"},
	{"device-ble-002", "BLE"},
	{"device-ble-003", "BLE"},
	{"device-zigbee-001", "ZigBee"},
	{"device-zigbee-002", "ZigBee"},
	{"device-zigbee-003", "ZigBee"},
	{"sensor-temp-001", "WiFi"},
	{"sensor-motion-001", "BLE"},
	{"light-bulb-001", "ZigBee"},
	{"thermostat-001", "WiFi"},
	{"door-sensor-001", "BLE"},
	{"smart-plug-001", "ZigBee"},
}

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Pozor-dom device emulator started",
		zap.String("broker", *broker),
		zap.Duration("interval", *interval),
		zap.Int("devices", len(fleet)),
	)
	logger.Info("Press Ctrl+C to stop gracefully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping devices")
		cancel()
	}()

	var wg sync.WaitGroup
	for _, d := range fleet {
		wg.Add(1)
		go func(d device) {
			defer wg.Done()
			runDevice(ctx, d, logger.With(zap.String("device_id", d.id)))
		}(d)
	}
	wg.Wait()

	logger.Info("All devices stopped")
}

func runDevice(ctx context.Context, d device, logger *zap.Logger) {
	commandTopic := fmt.Sprintf("pozor-dom/hub/command/%s", d.id)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", *broker))
	opts.SetClientID(fmt.Sprintf("%s-%s", d.id, uuid.NewString()[:8]))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", *broker))
		token := client.Subscribe(commandTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			logger.Info("Received command",
				zap.String("topic", msg.Topic()),
				zap.ByteString("payload", msg.Payload()))
		})
		if token.Wait() && token.Error() != nil {
			logger.Error("Failed to subscribe to commands", zap.Error(token.Error()))
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	client.Connect()
	defer client.Disconnect(250)

	topic := fmt.Sprintf("pozor-dom/device/%s/telemetry", d.id)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			telemetry := models.DeviceTelemetry{
				DeviceID:       d.id,
				Channel:        d.channel,
				Temperature:    fmt.Sprintf("%.2f", 20.0+rand.Float64()*10.0-5.0),
				Humidity:       fmt.Sprintf("%.2f", 50.0+rand.Float64()*40.0-20.0),
				SignalStrength: -100 + rand.Intn(71),
				Timestamp:      time.Now().Format(time.RFC3339),
			}

			payload, err := json.Marshal(telemetry)
			if err != nil {
				logger.Error("Failed to marshal telemetry", zap.Error(err))
				continue
			}

			token := client.Publish(topic, 1, false, payload)
			if token.Wait() && token.Error() != nil {
				logger.Error("Failed to publish telemetry", zap.Error(token.Error()))
				continue
			}

			logger.Debug("Published telemetry",
				zap.String("temperature", telemetry.Temperature),
				zap.String("humidity", telemetry.Humidity),
				zap.Int("signal_strength", telemetry.SignalStrength))
		}
	}
}
