package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pozordom/models"
)

// ErrInvalidFormat marks a command frame missing required fields. Non-fatal:
// the triggering peer connection stays open.
var ErrInvalidFormat = errors.New("invalid command format")

// commandPublisher abstracts the transport publish for tests.
type commandPublisher interface {
	PublishCommand(deviceID string, payload []byte) error
}

// Dispatcher parses control commands from interactive peers and relays them
// to the device-specific command topic.
type Dispatcher struct {
	logger    *zap.Logger
	publisher commandPublisher
}

func NewDispatcher(publisher commandPublisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger, publisher: publisher}
}

// Dispatch attempts to consume raw as a control command. Frames that are not
// command JSON at all report handled=false so the caller can relay them
// instead. Commands are consumed exactly once and never relayed to peers.
func (d *Dispatcher) Dispatch(raw []byte) (bool, error) {
	var cmd models.Command
	if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Type != "command" {
		return false, nil
	}

	if cmd.DeviceID == "" || cmd.Channel == "" || cmd.Action == "" {
		return true, fmt.Errorf("%w: device_id, channel and action are required", ErrInvalidFormat)
	}

	if err := d.publisher.PublishCommand(cmd.DeviceID, raw); err != nil {
		return true, fmt.Errorf("failed to relay command for %s: %w", cmd.DeviceID, err)
	}

	d.logger.Info("Relayed command to device",
		zap.String("device_id", cmd.DeviceID),
		zap.String("channel", cmd.Channel),
		zap.String("action", cmd.Action))
	return true, nil
}
