// Package relay implements the hub's relay core: the peer registry, the
// broadcast router, the in-memory service state, the websocket peer server,
// and the supervised uplink to the cloud mirror.
package relay

import (
	"sort"
	"sync"

	"pozordom/models"
)

// MaxMessages bounds the rolling log of relayed frames kept for display.
const MaxMessages = 100

// State is the in-memory snapshot backing the dashboard API: latest telemetry
// per device, the rolling message log, and the cloud toggle. It always
// reflects the latest accepted telemetry regardless of persistence outcome.
type State struct {
	mu           sync.RWMutex
	serviceName  string
	devices      map[string]models.DeviceTelemetry
	messages     []string
	cloudEnabled bool
}

func NewState(serviceName string) *State {
	return &State{
		serviceName: serviceName,
		devices:     make(map[string]models.DeviceTelemetry),
	}
}

func (s *State) ServiceName() string {
	return s.serviceName
}

// UpdateDevice replaces the stored telemetry for the device. Last write wins.
func (s *State) UpdateDevice(t models.DeviceTelemetry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[t.DeviceID] = t
}

// Devices returns the snapshot sorted by device_id for stable API output.
func (s *State) Devices() []models.DeviceTelemetry {
	s.mu.RLock()
	devices := make([]models.DeviceTelemetry, 0, len(s.devices))
	for _, t := range s.devices {
		devices = append(devices, t)
	}
	s.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].DeviceID < devices[j].DeviceID
	})
	return devices
}

// AddMessage appends to the rolling log, evicting the oldest entry beyond
// capacity. Insertion order is preserved for display.
func (s *State) AddMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > MaxMessages {
		s.messages = s.messages[len(s.messages)-MaxMessages:]
	}
}

// Messages returns a copy of the rolling log, oldest first.
func (s *State) Messages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *State) CloudEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloudEnabled
}

func (s *State) SetCloudEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cloudEnabled = enabled
}

// ToggleCloud flips the cloud flag and returns the new value.
func (s *State) ToggleCloud() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cloudEnabled = !s.cloudEnabled
	return s.cloudEnabled
}
