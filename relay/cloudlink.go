package relay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pozordom/protocol"
)

// LinkState is the cloud link lifecycle. Transitions are driven only by
// Connect/Disconnect commands and by link failure.
type LinkState int32

const (
	Disconnected LinkState = iota
	Connecting
	Connected
)

func (s LinkState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type linkCommand int

const (
	cmdConnect linkCommand = iota
	cmdDisconnect
)

const (
	defaultRetryDelay  = 5 * time.Second
	outboundBufferSize = 100
	commandBufferSize  = 8
)

// Supervisor owns the single outbound link to the cloud mirror. It is
// command-driven: Connect opens the link and holds it, retrying at a fixed
// interval on failure; Disconnect cancels the link task abruptly, abandoning
// in-flight frames without a drain.
type Supervisor struct {
	logger     *zap.Logger
	url        string
	retryDelay time.Duration
	router     *Router
	commands   chan linkCommand
	outbound   chan string
	state      atomic.Int32
}

func NewSupervisor(url string, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		logger:     logger,
		url:        url,
		retryDelay: defaultRetryDelay,
		commands:   make(chan linkCommand, commandBufferSize),
		outbound:   make(chan string, outboundBufferSize),
	}
}

// SetRouter attaches the broadcast router for inbound cloud frames. Called
// after construction because the router holds the supervisor as its uplink.
func (s *Supervisor) SetRouter(r *Router) {
	s.router = r
}

// State returns the current link state.
func (s *Supervisor) State() LinkState {
	return LinkState(s.state.Load())
}

// Connect requests the link be opened. Ignored while already connecting or
// connected.
func (s *Supervisor) Connect() {
	s.commands <- cmdConnect
}

// Disconnect cancels the active link task. No automatic reconnect happens
// until the next Connect.
func (s *Supervisor) Disconnect() {
	s.commands <- cmdDisconnect
}

// Forward queues a frame for delivery to the cloud. Dropped silently while
// the link is down; dropped with a warning when the outbound queue is full.
func (s *Supervisor) Forward(text string) {
	if s.State() != Connected {
		return
	}
	select {
	case s.outbound <- text:
	default:
		s.logger.Warn("Cloud outbound queue full, dropping frame")
	}
}

// Run processes Connect/Disconnect commands until ctx is done. One link task
// exists at a time.
func (s *Supervisor) Run(ctx context.Context) {
	var cancelLink context.CancelFunc

	for {
		select {
		case <-ctx.Done():
			if cancelLink != nil {
				cancelLink()
			}
			return

		case cmd := <-s.commands:
			switch cmd {
			case cmdConnect:
				if cancelLink != nil {
					// Already connecting or connected.
					continue
				}
				s.logger.Info("Connecting to cloud", zap.String("url", s.url))
				linkCtx, cancel := context.WithCancel(ctx)
				cancelLink = cancel
				go s.runLink(linkCtx)

			case cmdDisconnect:
				if cancelLink != nil {
					cancelLink()
					cancelLink = nil
					s.state.Store(int32(Disconnected))
					s.logger.Info("Disconnected from cloud")
				}
			}
		}
	}
}

// runLink dials and pumps the link, retrying at the fixed interval until the
// context is canceled.
func (s *Supervisor) runLink(ctx context.Context) {
	defer s.state.Store(int32(Disconnected))

	operation := func() error {
		err := s.pump(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		s.logger.Error("Cloud link failed, retrying",
			zap.Error(err),
			zap.Duration("retry_in", s.retryDelay))
		return err
	}

	_ = backoff.Retry(operation,
		backoff.WithContext(backoff.NewConstantBackOff(s.retryDelay), ctx))
}

// pump runs one connection attempt: dial, then bridge frames both ways until
// the link errors or the context is canceled. Cancellation closes the socket
// without draining the outbound queue.
func (s *Supervisor) pump(ctx context.Context) error {
	s.state.Store(int32(Connecting))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial cloud: %w", err)
	}
	defer conn.Close()

	s.state.Store(int32(Connected))
	s.logger.Info("Connected to cloud", zap.String("url", s.url))

	readErr := make(chan error, 1)
	go func() {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			s.handleInbound(string(data))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			s.state.Store(int32(Connecting))
			return fmt.Errorf("cloud link closed: %w", err)

		case text := <-s.outbound:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				s.state.Store(int32(Connecting))
				return fmt.Errorf("failed to write to cloud: %w", err)
			}
		}
	}
}

// handleInbound re-injects hub-relay tagged frames into the router. Anything
// else from the cloud is dropped here: feeding it back would bounce straight
// up the link again.
func (s *Supervisor) handleInbound(text string) {
	env := protocol.Classify(text)
	if env.Kind != protocol.KindHubRelay {
		s.logger.Debug("Ignoring untagged cloud frame", zap.String("frame", text))
		return
	}
	if s.router != nil {
		s.router.HandleCloudFrame(env.Content)
	}
}
