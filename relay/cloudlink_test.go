package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pozordom/protocol"
)

func TestLinkStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
}

func TestForwardDroppedWhileDisconnected(t *testing.T) {
	s := NewSupervisor("ws://127.0.0.1:1/ws", zap.NewNop())

	s.Forward("never sent")

	assert.Empty(t, s.outbound)
}

func TestInboundFramesFilteredByTag(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	state := NewState("Hub")
	router := NewRouter(RoleHub, registry, state, zap.NewNop())
	s := NewSupervisor("ws://127.0.0.1:1/ws", zap.NewNop())
	s.SetRouter(router)
	router.SetUplink(s)
	peer := registry.Register("peer")

	// Untagged cloud traffic is dropped to keep it off the loop.
	s.handleInbound("Welcome to Pozor-dom Cloud!")
	s.handleInbound("Cloud received: hi")
	assert.Empty(t, drain(peer))

	s.handleInbound(protocol.TagHubRelay("hello from cloud"))
	assert.Equal(t, []string{"[CLOUD] hello from cloud"}, drain(peer))
}

func TestSupervisorBridgesLink(t *testing.T) {
	received := make(chan string, 8)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(protocol.TagHubRelay("news from above")))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(data)
		}
	}))
	defer ts.Close()

	registry := NewRegistry(zap.NewNop())
	state := NewState("Hub")
	router := NewRouter(RoleHub, registry, state, zap.NewNop())
	s := NewSupervisor("ws"+strings.TrimPrefix(ts.URL, "http"), zap.NewNop())
	s.retryDelay = 10 * time.Millisecond
	s.SetRouter(router)
	router.SetUplink(s)
	peer := registry.Register("peer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Connect()
	require.Eventually(t, func() bool {
		return s.State() == Connected
	}, 2*time.Second, 10*time.Millisecond)

	s.Forward("going up")
	select {
	case got := <-received:
		assert.Equal(t, "going up", got)
	case <-time.After(2 * time.Second):
		t.Fatal("frame never reached the cloud side")
	}

	require.Eventually(t, func() bool {
		for _, msg := range drain(peer) {
			if msg == "[CLOUD] news from above" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	s.Disconnect()
	require.Eventually(t, func() bool {
		return s.State() == Disconnected
	}, 2*time.Second, 10*time.Millisecond)
}
