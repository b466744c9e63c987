// Package api exposes the dashboard HTTP API served by both the hub and the
// cloud mirror.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"pozordom/relay"
)

// cloudController issues link commands when the cloud flag is toggled.
type cloudController interface {
	Connect()
	Disconnect()
}

// configStore persists the cloud flag.
type configStore interface {
	SetCloudEnabled(enabled bool) error
}

type Server struct {
	logger *zap.Logger
	addr   string
	state  *relay.State
	config configStore
	cloud  cloudController
	proxy  http.Handler
}

func NewServer(addr string, state *relay.State, logger *zap.Logger) *Server {
	return &Server{
		logger: logger,
		addr:   addr,
		state:  state,
	}
}

// SetCloudController attaches the link supervisor driven by toggle-cloud.
func (s *Server) SetCloudController(c cloudController) {
	s.cloud = c
}

// SetConfigStore attaches durable storage for the cloud flag.
func (s *Server) SetConfigStore(c configStore) {
	s.config = c
}

// SetProxy forwards device and message queries to another relay instead of
// serving them locally. The cloud proxies these to the hub.
func (s *Server) SetProxy(proxy http.Handler) {
	s.proxy = proxy
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.proxy != nil {
		mux.Handle("/api/", s.proxy)
	} else {
		mux.HandleFunc("/api/devices", s.handleDevices)
		mux.HandleFunc("/api/messages", s.handleMessages)
	}
	mux.HandleFunc("/api/toggle-cloud", s.handleToggleCloud)
	return withCORS(mux)
}

// Run serves until ctx is done. A bind failure aborts startup.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("Dashboard API listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.state.Devices())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.state.Messages())
}

func (s *Server) handleToggleCloud(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	enabled := s.state.ToggleCloud()

	// Persist the desired state before driving the link so a restart resumes
	// in the mode the user chose.
	if s.config != nil {
		if err := s.config.SetCloudEnabled(enabled); err != nil {
			s.logger.Error("Failed to persist cloud flag", zap.Error(err))
		}
	}

	if s.cloud != nil {
		if enabled {
			s.cloud.Connect()
		} else {
			s.cloud.Disconnect()
		}
	}

	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	s.logger.Info("Cloud connectivity toggled", zap.Bool("cloud_enabled", enabled))

	s.writeJSON(w, map[string]any{
		"cloud_enabled": enabled,
		"message":       fmt.Sprintf("Cloud %s for %s", verb, s.state.ServiceName()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode API response", zap.Error(err))
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
