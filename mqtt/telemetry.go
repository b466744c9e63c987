package mqtt

import (
	"encoding/json"

	"go.uber.org/zap"

	"pozordom/models"
	"pozordom/relay"
)

// deviceSaver is the persistence side of the ingestion path.
type deviceSaver interface {
	SaveDevice(t *models.DeviceTelemetry) error
}

// telemetryRouter fans accepted telemetry out to peers and the cloud.
type telemetryRouter interface {
	HandleTelemetry(payload string)
}

// Bridge is the device-telemetry ingestion path: parse, persist, update the
// in-memory snapshot, then fan out the raw payload. Persistence and live
// relay are deliberately decoupled: a store failure is logged as a
// consistency risk but never withholds live data from peers.
type Bridge struct {
	logger *zap.Logger
	store  deviceSaver
	state  *relay.State
	router telemetryRouter
}

func NewBridge(store deviceSaver, state *relay.State, router telemetryRouter, logger *zap.Logger) *Bridge {
	return &Bridge{
		logger: logger,
		store:  store,
		state:  state,
		router: router,
	}
}

// Handle processes one inbound transport message from the telemetry topic.
// Malformed payloads are logged and discarded, never forwarded as telemetry.
func (b *Bridge) Handle(topic string, payload []byte) {
	var t models.DeviceTelemetry
	if err := json.Unmarshal(payload, &t); err != nil {
		b.logger.Warn("Failed to parse telemetry payload",
			zap.String("topic", topic),
			zap.ByteString("payload", payload),
			zap.Error(err))
		return
	}
	if t.DeviceID == "" {
		b.logger.Warn("Discarding telemetry without device_id",
			zap.String("topic", topic))
		return
	}

	b.logger.Debug("Received telemetry",
		zap.String("device_id", t.DeviceID),
		zap.String("channel", t.Channel),
		zap.String("topic", topic))

	if b.store != nil {
		if err := b.store.SaveDevice(&t); err != nil {
			b.logger.Error("Failed to persist telemetry",
				zap.String("device_id", t.DeviceID),
				zap.Error(err))
		}
	}

	b.state.UpdateDevice(t)
	b.router.HandleTelemetry(string(payload))
}
