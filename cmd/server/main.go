package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"pingboard/internal/config"
	"pingboard/internal/db"
	"pingboard/internal/devices"
	"pingboard/internal/events"
	"pingboard/internal/handlers"
	"pingboard/internal/logexport"
	"pingboard/internal/metrics"
	"pingboard/internal/models"
	"pingboard/internal/monitor"
	"pingboard/internal/notify"
	"pingboard/internal/ws"
)

// statusSource pairs the device store with the monitor for the metrics
// collector.
type statusSource struct {
	store *devices.Store
	mon   *monitor.Monitor
}

func (s statusSource) List() []models.Device { return s.store.List() }

func (s statusSource) Statuses(devs []models.Device) map[string]models.StatusSnapshot {
	return s.mon.Statuses(devs)
}

const (
	configFile        = "pingboard.ini"
	authConfigFile    = "static/config.js"
	legacyEmailConfig = "email_config.json"
)

func main() {
	cfgPath := configFile
	if v := os.Getenv("CONFIG_FILE"); v != "" {
		cfgPath = v
	}
	cfg := config.Load(cfgPath)

	var authEnabled atomic.Bool
	authEnabled.Store(cfg.AuthEnabled)
	cfgWatcher, err := config.Watch(cfgPath, func(next models.Config) {
		authEnabled.Store(next.AuthEnabled)
	})
	if err != nil {
		log.Printf("⚠️ Config watcher unavailable: %v", err)
	} else {
		defer cfgWatcher.Close()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	if err := notify.InitSchema(database); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	notify.MigrateLegacyConfig(database, legacyEmailConfig)
	log.Printf("✓ Database connected (%s)", cfg.DBPath)

	store, err := devices.OpenStore(cfg.DevicesPath)
	if err != nil {
		log.Fatalf("Failed to load devices from %s: %v", cfg.DevicesPath, err)
	}
	watcher, err := devices.NewWatcher(store, nil)
	if err != nil {
		log.Printf("⚠️ Device file watcher unavailable: %v", err)
	} else {
		defer watcher.Close()
	}
	log.Printf("✓ Loaded %d devices from %s", len(store.List()), cfg.DevicesPath)

	bus := events.NewBus()
	logWriter := logexport.NewWriter(cfg.LogPath)

	mon := monitor.New(store, nil, bus, logWriter)
	mon.SetInterval(cfg.PollInterval)

	dispatcher := notify.NewDispatcher(database, bus, notify.ShoutrrrSender{})
	dispatcher.Start()
	defer dispatcher.Stop()

	hub := ws.NewHub(bus, func() map[string]models.StatusSnapshot {
		return mon.Statuses(store.List())
	}, cfg.PollInterval)
	defer hub.CloseAll()

	metrics.Register(statusSource{store, mon})

	router := handlers.NewRouter(authEnabled.Load,
		handlers.NewDeviceHandler(store, mon, bus),
		handlers.NewEmailHandler(database, dispatcher),
		handlers.NewLogHandler(cfg.LogPath),
		handlers.NewCredentialHandler(authConfigFile),
		hub,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mon.Start(ctx)
	defer mon.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		log.Printf("✓ Pingboard server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Shutdown error: %v", err)
	}
}
