package relay

import (
	"sync"

	"go.uber.org/zap"
)

// peerBufferSize bounds each peer's outbound queue. A full queue counts as a
// send failure: the frame is dropped for that peer and logged, the peer stays
// registered.
const peerBufferSize = 64

// Registry maps connection identities (remote addresses) to outbound delivery
// channels. It is the sole owner of the channels' send side; the per-peer
// write pump drains the receive side. At most one live entry per identity.
type Registry struct {
	mu     sync.Mutex
	logger *zap.Logger
	peers  map[string]chan string
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
		peers:  make(map[string]chan string),
	}
}

// Register creates a delivery channel for id, replacing any stale prior
// entry. The stale channel is not closed; its write pump exits when its
// connection dies.
func (r *Registry) Register(id string) <-chan string {
	ch := make(chan string, peerBufferSize)

	r.mu.Lock()
	if _, ok := r.peers[id]; ok {
		r.logger.Warn("Replacing stale peer registration", zap.String("peer", id))
	}
	r.peers[id] = ch
	r.mu.Unlock()

	return ch
}

// Unregister removes the entry for id. Idempotent.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.peers, id)
	r.mu.Unlock()
}

// Send delivers a frame to a single peer. Returns false if the peer is not
// registered or its queue is full.
func (r *Registry) Send(id, text string) bool {
	r.mu.Lock()
	ch, ok := r.peers[id]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- text:
		return true
	default:
		r.logger.Warn("Peer queue full, dropping frame", zap.String("peer", id))
		return false
	}
}

// Broadcast delivers a frame to every registered peer except excluding
// (empty string excludes nobody). The recipient list is snapshotted under the
// lock; sends happen outside it so a slow peer cannot stall registration. A
// failed send is logged and skipped, it does not unregister the peer.
func (r *Registry) Broadcast(excluding, text string) {
	type recipient struct {
		id string
		ch chan string
	}

	r.mu.Lock()
	recipients := make([]recipient, 0, len(r.peers))
	for id, ch := range r.peers {
		if id == excluding {
			continue
		}
		recipients = append(recipients, recipient{id: id, ch: ch})
	}
	r.mu.Unlock()

	for _, rec := range recipients {
		select {
		case rec.ch <- text:
		default:
			r.logger.Warn("Peer queue full, dropping broadcast frame",
				zap.String("peer", rec.id))
		}
	}
}

// Count returns the number of registered peers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}
