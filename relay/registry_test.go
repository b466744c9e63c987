package relay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func drain(ch <-chan string) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	channels := make(map[string]<-chan string)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("peer-%d", i)
		channels[id] = r.Register(id)
	}

	r.Broadcast("peer-0", "hello")

	assert.Empty(t, drain(channels["peer-0"]))
	for i := 1; i < 5; i++ {
		id := fmt.Sprintf("peer-%d", i)
		assert.Equal(t, []string{"hello"}, drain(channels[id]), "peer %s", id)
	}
}

func TestBroadcastNoExclusionReachesEveryone(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	a := r.Register("a")
	b := r.Register("b")

	r.Broadcast("", "telemetry")

	assert.Equal(t, []string{"telemetry"}, drain(a))
	assert.Equal(t, []string{"telemetry"}, drain(b))
}

func TestSendToSinglePeer(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	a := r.Register("a")
	b := r.Register("b")

	require.True(t, r.Send("a", "just for you"))
	assert.Equal(t, []string{"just for you"}, drain(a))
	assert.Empty(t, drain(b))

	assert.False(t, r.Send("missing", "nobody home"))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	r.Register("a")
	require.Equal(t, 1, r.Count())

	r.Unregister("a")
	r.Unregister("a")
	assert.Equal(t, 0, r.Count())
}

func TestRegisterReplacesStaleEntry(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	stale := r.Register("a")
	fresh := r.Register("a")
	require.Equal(t, 1, r.Count())

	r.Broadcast("", "after replacement")
	assert.Empty(t, drain(stale))
	assert.Equal(t, []string{"after replacement"}, drain(fresh))
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	ch := r.Register("slow")
	for i := 0; i < peerBufferSize; i++ {
		require.True(t, r.Send("slow", "fill"))
	}

	// Full queue: the frame is dropped, the peer stays registered.
	assert.False(t, r.Send("slow", "overflow"))
	r.Broadcast("", "still dropped")
	assert.Len(t, drain(ch), peerBufferSize)
	assert.Equal(t, 1, r.Count())
}
