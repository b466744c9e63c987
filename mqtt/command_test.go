package mqtt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublisher struct {
	deviceID string
	payload  []byte
	err      error
	calls    int
}

func (f *fakePublisher) PublishCommand(deviceID string, payload []byte) error {
	f.calls++
	f.deviceID = deviceID
	f.payload = payload
	return f.err
}

func TestDispatchIgnoresNonCommandFrames(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, zap.NewNop())

	for _, raw := range []string{
		"hello house",
		`{"type":"telemetry","device_id":"dev-1"}`,
		`{"device_id":"dev-1"}`,
		"{not json",
	} {
		handled, err := d.Dispatch([]byte(raw))
		assert.False(t, handled, "frame %q should fall through to the relay", raw)
		assert.NoError(t, err)
	}
	assert.Zero(t, pub.calls)
}

func TestDispatchRejectsIncompleteCommand(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, zap.NewNop())

	handled, err := d.Dispatch([]byte(`{"type":"command","device_id":"light-bulb-001"}`))

	assert.True(t, handled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Zero(t, pub.calls)
}

func TestDispatchPublishesRawPayload(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, zap.NewNop())

	raw := []byte(`{"type":"command","device_id":"light-bulb-001","channel":"ZigBee","action":"on"}`)
	handled, err := d.Dispatch(raw)

	assert.True(t, handled)
	assert.NoError(t, err)
	require.Equal(t, 1, pub.calls)
	assert.Equal(t, "light-bulb-001", pub.deviceID)
	assert.Equal(t, raw, pub.payload)
}

func TestDispatchReportsPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	d := NewDispatcher(pub, zap.NewNop())

	handled, err := d.Dispatch([]byte(`{"type":"command","device_id":"smart-plug-001","channel":"WiFi","action":"off"}`))

	// Consumed even on failure so the frame is never relayed as chat.
	assert.True(t, handled)
	assert.ErrorContains(t, err, "broker unavailable")
}
