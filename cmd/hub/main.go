package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"pozordom/api"
	"pozordom/config"
	"pozordom/log"
	"pozordom/mqtt"
	"pozordom/relay"
	"pozordom/store"
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

	// Initialize SQLite persistence
	db, err := store.NewStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Resume in the previously desired cloud mode
	cloudEnabled, err := db.GetCloudEnabled()
	if err != nil {
		logger.Warn("Failed to read cloud flag, defaulting to enabled", zap.Error(err))
	}

	state := relay.NewState("Hub")
	state.SetCloudEnabled(cloudEnabled)

	// Rehydrate the in-memory snapshot from the last run
	devices, err := db.LoadDevices()
	if err != nil {
		logger.Error("Failed to load devices from database", zap.Error(err))
	}
	for _, t := range devices {
		state.UpdateDevice(t)
	}
	messages, err := db.RecentMessages(relay.MaxMessages)
	if err != nil {
		logger.Error("Failed to load message log from database", zap.Error(err))
	}
	for _, m := range messages {
		state.AddMessage(m)
	}

	// Wire the relay core
	registry := relay.NewRegistry(logger)
	router := relay.NewRouter(relay.RoleHub, registry, state, logger)
	router.SetMessageStore(db)

	supervisor := relay.NewSupervisor(cfg.CloudWSURL(), logger)
	supervisor.SetRouter(router)
	router.SetUplink(supervisor)

	// Device transport
	bridge := mqtt.NewBridge(db, state, router, logger)
	mqttClient := mqtt.NewClient(cfg.MQTTBroker, "pozor-dom-hub", bridge.Handle, logger)
	mqttClient.Connect()
	defer mqttClient.Close()

	dispatcher := mqtt.NewDispatcher(mqttClient, logger)

	wsServer := relay.NewServer(cfg.HubListenAddr(), "Hub", registry, router, logger)
	wsServer.SetDispatcher(dispatcher)

	apiServer := api.NewServer(cfg.HubHTTPListenAddr(), state, logger)
	apiServer.SetConfigStore(db)
	apiServer.SetCloudController(supervisor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go supervisor.Run(ctx)

	// A bind failure on either listener aborts startup
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

	if cloudEnabled {
		supervisor.Connect()
		logger.Info("Cloud relay enabled", zap.String("url", cfg.CloudWSURL()))
	} else {
		logger.Info("Cloud relay disabled, local network only")
	}

	logger.Info("Pozor-dom Hub started",
		zap.String("ws_addr", cfg.HubListenAddr()),
		zap.String("http_addr", cfg.HubHTTPListenAddr()),
		zap.String("mqtt_broker", cfg.MQTTBroker),
		zap.Int("known_devices", len(devices)),
		zap.Bool("cloud_enabled", cloudEnabled),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping hub")
	cancel()
}
