package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"pozordom/api"
	"pozordom/config"
	"pozordom/log"
	"pozordom/relay"
)

func main() {
	// Initialize structured logger
	logger := log.GetInstance()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	state := relay.NewState("Cloud")
	registry := relay.NewRegistry(logger)
	router := relay.NewRouter(relay.RoleCloud, registry, state, logger)

	wsServer := relay.NewServer(cfg.CloudListenAddr(), "Cloud", registry, router, logger)
	// Hubs dial in from the local network; everyone else is an external client.
	wsServer.SetGreeter(func(remoteAddr string) string {
		if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
			if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
				return "Hub"
			}
		}
		return "external client"
	})

	// The cloud answers toggle-cloud itself and proxies the data endpoints to
	// the hub, which owns the database.
	proxy, err := api.NewHubProxy(cfg.HubHTTPURL(), logger)
	if err != nil {
		logger.Fatal("Failed to build hub proxy", zap.Error(err))
	}
	apiServer := api.NewServer(cfg.CloudHTTPListenAddr(), state, logger)
	apiServer.SetProxy(proxy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := wsServer.Run(ctx); err != nil {
			logger.Fatal("WebSocket server failed", zap.Error(err))
		}
	}()
	go func() {
		if err := apiServer.Run(ctx); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	logger.Info("Pozor-dom Cloud started",
		zap.String("ws_addr", cfg.CloudListenAddr()),
		zap.String("http_addr", cfg.CloudHTTPListenAddr()),
		zap.String("hub_api", cfg.HubHTTPURL()),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping cloud")
	cancel()
}
