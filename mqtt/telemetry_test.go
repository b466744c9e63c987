package mqtt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pozordom/models"
	"pozordom/relay"
)

type fakeDeviceSaver struct {
	saved []models.DeviceTelemetry
	err   error
}

func (f *fakeDeviceSaver) SaveDevice(t *models.DeviceTelemetry) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *t)
	return nil
}

type fakeTelemetryRouter struct {
	payloads []string
}

func (f *fakeTelemetryRouter) HandleTelemetry(payload string) {
	f.payloads = append(f.payloads, payload)
}

func TestBridgeAcceptsTelemetry(t *testing.T) {
	store := &fakeDeviceSaver{}
	state := relay.NewState("Hub")
	router := &fakeTelemetryRouter{}
	b := NewBridge(store, state, router, zap.NewNop())

	payload := `{"device_id":"sensor-temp-001","channel":"WiFi","temperature":"21.35","humidity":"48.20","signal_strength":-62,"timestamp":"2024-01-01T00:00:00Z"}`
	b.Handle("pozor-dom/device/sensor-temp-001/telemetry", []byte(payload))

	require.Len(t, store.saved, 1)
	assert.Equal(t, "sensor-temp-001", store.saved[0].DeviceID)

	devices := state.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, "21.35", devices[0].Temperature)

	// Raw payload forwarded verbatim, not a re-marshaled copy.
	assert.Equal(t, []string{payload}, router.payloads)
}

func TestBridgeDiscardsMalformedPayload(t *testing.T) {
	store := &fakeDeviceSaver{}
	state := relay.NewState("Hub")
	router := &fakeTelemetryRouter{}
	b := NewBridge(store, state, router, zap.NewNop())

	b.Handle("pozor-dom/device/x/telemetry", []byte("{not json"))
	b.Handle("pozor-dom/device/x/telemetry", []byte(`{"channel":"WiFi"}`))

	assert.Empty(t, store.saved)
	assert.Empty(t, state.Devices())
	assert.Empty(t, router.payloads)
}

func TestBridgeStoreFailureDoesNotBlockRelay(t *testing.T) {
	store := &fakeDeviceSaver{err: errors.New("disk full")}
	state := relay.NewState("Hub")
	router := &fakeTelemetryRouter{}
	b := NewBridge(store, state, router, zap.NewNop())

	payload := `{"device_id":"dev-1","channel":"BLE","temperature":"20.00"}`
	b.Handle("pozor-dom/device/dev-1/telemetry", []byte(payload))

	// Live path is unaffected by the persistence failure.
	assert.Len(t, state.Devices(), 1)
	assert.Equal(t, []string{payload}, router.payloads)
}
