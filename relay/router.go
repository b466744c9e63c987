package relay

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"pozordom/models"
	"pozordom/protocol"
)

// Role selects the routing policy. The hub forwards peer traffic to the cloud
// uplink wrapped in the hub-relay tag; the cloud never forwards upward and
// applies the telemetry-aware branch to tagged frames instead.
type Role int

const (
	RoleHub Role = iota
	RoleCloud
)

// Uplink pushes frames toward the cloud mirror. Forward must not block; a
// disconnected uplink drops the frame.
type Uplink interface {
	Forward(text string)
}

// messageSaver is the durable side of the relayed-frame log.
type messageSaver interface {
	SaveMessage(content string) error
}

// Router is the shared fan-out bus between the telemetry bridge, the peer
// registry, and the cloud uplink. It applies echo prevention and the one-hop
// relay rule.
type Router struct {
	logger   *zap.Logger
	role     Role
	registry *Registry
	state    *State
	messages messageSaver
	uplink   Uplink
}

func NewRouter(role Role, registry *Registry, state *State, logger *zap.Logger) *Router {
	return &Router{
		logger:   logger,
		role:     role,
		registry: registry,
		state:    state,
	}
}

// SetUplink attaches the cloud link supervisor. Called after construction
// because the supervisor also needs the router for inbound cloud frames.
func (r *Router) SetUplink(u Uplink) {
	r.uplink = u
}

// SetMessageStore attaches the durable message log.
func (r *Router) SetMessageStore(m messageSaver) {
	r.messages = m
}

// HandleTelemetry fans a telemetry payload out verbatim: to every local peer
// and, on the hub, to the cloud uplink. Telemetry carries no relay tag;
// devices never read it back, so it is exempt from echo prevention.
func (r *Router) HandleTelemetry(payload string) {
	r.registry.Broadcast("", payload)
	if r.role == RoleHub && r.uplink != nil {
		r.uplink.Forward(payload)
	}
}

// HandlePeerFrame routes a text frame received from a local peer.
func (r *Router) HandlePeerFrame(peerID, text string) {
	env := protocol.Classify(text)

	if env.Kind == protocol.KindHubRelay {
		// Tagged content is forwarded exactly one hop: strip, relay locally,
		// never re-tag toward the cloud.
		r.relayTagged(env.Content)
		return
	}

	labeled := fmt.Sprintf("[%s] %s", peerID, text)
	r.registry.Broadcast(peerID, labeled)
	r.recordMessage(labeled)

	if r.role == RoleHub && r.uplink != nil {
		r.uplink.Forward(protocol.TagHubRelay(text))
	}

	// Acknowledge the sender only. Echo responses are never echoed again.
	if env.Kind != protocol.KindEchoResponse {
		r.registry.Send(peerID, protocol.Echo(r.state.ServiceName(), text))
	}
}

// HandleCloudFrame routes hub-relay content received over the cloud link,
// already stripped of its tag. It is re-broadcast once under the cloud label
// and never forwarded back toward the cloud.
func (r *Router) HandleCloudFrame(content string) {
	labeled := protocol.Label(protocol.CloudLabel, content)
	r.registry.Broadcast("", labeled)
	r.recordMessage(labeled)
}

// relayTagged handles stripped hub-relay content arriving from a peer. On the
// cloud this is the hub's uplink traffic: telemetry updates the device
// snapshot, anything else is re-broadcast once under the hub label.
func (r *Router) relayTagged(content string) {
	if r.role == RoleCloud {
		var t models.DeviceTelemetry
		if err := json.Unmarshal([]byte(content), &t); err == nil && t.DeviceID != "" {
			r.logger.Debug("Parsed relayed telemetry", zap.String("device_id", t.DeviceID))
			r.state.UpdateDevice(t)
			return
		}
	}

	labeled := protocol.Label(protocol.HubLabel, content)
	r.registry.Broadcast("", labeled)
	r.recordMessage(labeled)
}

// recordMessage appends a relayed frame to the rolling log and, when a store
// is attached, to the durable log. A store failure is logged and does not
// affect the in-memory log.
func (r *Router) recordMessage(msg string) {
	r.state.AddMessage(msg)
	if r.messages != nil {
		if err := r.messages.SaveMessage(msg); err != nil {
			r.logger.Error("Failed to persist relayed message", zap.Error(err))
		}
	}
}
