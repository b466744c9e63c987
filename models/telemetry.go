package models

// DeviceTelemetry is the JSON payload devices publish on
// pozor-dom/device/<id>/telemetry. Temperature and humidity are kept as the
// display-formatted strings the device sends; the hub never recomputes them.
type DeviceTelemetry struct {
	DeviceID       string `json:"device_id"`
	Channel        string `json:"channel"`
	Temperature    string `json:"temperature"`
	Humidity       string `json:"humidity"`
	SignalStrength int    `json:"signal_strength"`
	Timestamp      string `json:"timestamp"`
}

// Command is a control message from an interactive peer, relayed to
// pozor-dom/hub/command/<device_id>. Never persisted.
type Command struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	Channel   string `json:"channel"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp,omitempty"`
}
