package relay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pozordom/protocol"
)

// CommandDispatcher consumes control commands from interactive peers.
// Dispatch reports handled=false when the frame is not a command at all and
// should take the relay path instead; a command with an invalid format is
// handled (and the error logged by the caller) but never relayed.
type CommandDispatcher interface {
	Dispatch(raw []byte) (handled bool, err error)
}

// Server accepts websocket peers and ties each connection to the registry and
// router: one read loop and one write pump per peer.
type Server struct {
	logger     *zap.Logger
	addr       string
	component  string
	registry   *Registry
	router     *Router
	dispatcher CommandDispatcher
	greeter    func(remoteAddr string) string
	upgrader   websocket.Upgrader
}

func NewServer(addr, component string, registry *Registry, router *Router, logger *zap.Logger) *Server {
	return &Server{
		logger:    logger,
		addr:      addr,
		component: component,
		registry:  registry,
		router:    router,
		upgrader: websocket.Upgrader{
			// Browser dashboards connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// SetDispatcher attaches the command dispatcher. Without one, every frame
// takes the relay path.
func (s *Server) SetDispatcher(d CommandDispatcher) {
	s.dispatcher = d
}

// SetGreeter overrides the component name used in the welcome frame, per
// peer. The cloud greets loopback peers as "Hub".
func (s *Server) SetGreeter(f func(remoteAddr string) string) {
	s.greeter = f
}

// Run serves until ctx is done. A bind failure is returned to the caller and
// aborts startup.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.handleConn(ctx, w, r)
	})

	srv := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("WebSocket server listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("websocket server failed: %w", err)
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to accept websocket connection",
			zap.String("remote", r.RemoteAddr),
			zap.Error(err))
		return
	}
	defer conn.Close()

	addr := conn.RemoteAddr().String()
	s.logger.Info("New peer connection", zap.String("peer", addr))

	outbound := s.registry.Register(addr)
	defer s.registry.Unregister(addr)

	component := s.component
	if s.greeter != nil {
		component = s.greeter(addr)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(protocol.Welcome(component))); err != nil {
		s.logger.Error("Failed to send welcome frame",
			zap.String("peer", addr),
			zap.Error(err))
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Write pump: drains the registry channel into the socket. A write
	// failure closes the socket, which also ends the read loop below.
	go func() {
		for {
			select {
			case <-connCtx.Done():
				return
			case text := <-outbound:
				if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
					s.logger.Warn("Failed to send to peer",
						zap.String("peer", addr),
						zap.Error(err))
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Peer read error", zap.String("peer", addr), zap.Error(err))
			}
			break
		}
		if msgType != websocket.TextMessage {
			s.logger.Warn("Ignoring non-text frame",
				zap.String("peer", addr),
				zap.Int("message_type", msgType))
			continue
		}

		text := string(data)
		s.logger.Debug("Received from peer",
			zap.String("peer", addr),
			zap.String("frame", text))

		if s.dispatcher != nil {
			handled, err := s.dispatcher.Dispatch(data)
			if err != nil {
				s.logger.Warn("Invalid command from peer",
					zap.String("peer", addr),
					zap.Error(err))
			}
			if handled {
				continue
			}
		}

		s.router.HandlePeerFrame(addr, text)
	}

	s.logger.Info("Peer connection closed", zap.String("peer", addr))
}
