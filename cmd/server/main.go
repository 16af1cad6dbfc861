package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomsense/internal/adapter"
	"roomsense/internal/config"
	"roomsense/internal/domain"
	"roomsense/internal/fusion"
	"roomsense/internal/handler"
	"roomsense/internal/hub"
	"roomsense/internal/log"
	"roomsense/internal/repository/sqlite"
	"roomsense/internal/service"
	"roomsense/internal/watcher"
)

const sightingRetention = 7 * 24 * time.Hour

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "", "config file path")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	var (
		cfg  *config.Config
		path string
		err  error
	)
	if *configPath != "" {
		cfg, path, err = config.LoadFromPath(*configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	log.Init(cfg.LogLevel)
	if path != "" {
		log.Info("loaded config", "path", path, "summary", cfg.Summary())
	} else {
		log.Info("no config file found, using defaults")
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	log.Info("database opened", "path", cfg.Database.Path)

	settings := service.NewSettings(cfg)
	eventBus := service.NewEventBus()

	sseHub := hub.New()
	go sseHub.Run()

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			sseHub.Broadcast(string(event.Type), event.Payload)
		}
	}()

	engine := fusion.NewEngine(fusion.Options{
		Interval: cfg.Fusion.Interval.Duration(),
		People:   settings.People,
		Rooms:    settings.RoomNames,
		OnCycle: func(results []domain.FusionResult, state domain.HomeAwayState) {
			eventBus.Publish(service.Event{
				Type: service.EventFusionUpdated,
				Payload: map[string]interface{}{
					"results": results,
					"state":   state,
				},
			})
		},
		OnHomeAway: func(state domain.HomeAwayState) {
			eventBus.Publish(service.Event{
				Type:    service.EventHomeAwayChanged,
				Payload: map[string]string{"state": string(state)},
			})
		},
	})

	// The registry's commit function closes over the service, which is
	// constructed right after. Adapters only run once Start is called,
	// so the indirection is never observed unset.
	var svc *service.PresenceService
	registry := adapter.NewRegistry(func(ctx context.Context, batch *adapter.Batch) error {
		return svc.Commit(ctx, batch)
	})

	svc = service.NewPresenceService(engine, repo, registry, settings, eventBus)
	if err := svc.LoadOverrides(context.Background()); err != nil {
		log.Warn("failed to load mapping overrides", "error", err)
	}
	if path != "" {
		loadPath := path
		svc.SetConfigLoader(func() (*config.Config, error) {
			c, _, err := config.LoadFromPath(loadPath)
			return c, err
		})
	}

	registerAdapters(registry, settings, cfg)

	adapterCtx, adapterCancel := context.WithCancel(context.Background())
	if err := registry.Start(adapterCtx); err != nil {
		log.Warn("failed to start adapter registry", "error", err)
	}

	engineCtx, engineCancel := context.WithCancel(context.Background())
	go func() {
		if err := engine.Run(engineCtx); err != nil && err != context.Canceled {
			log.Error("fusion engine stopped", "error", err)
		}
	}()

	go pruneSightings(engineCtx, repo)

	if path != "" {
		w := watcher.New(path, func() {
			if err := svc.Reload(); err != nil {
				log.Warn("config reload failed", "error", err)
			}
		})
		go func() {
			if err := w.Watch(engineCtx); err != nil && err != context.Canceled {
				log.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	handler.NewPresenceHandler(svc).Routes(mux)
	mux.Handle("GET /events", sseHub)

	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORS,
		handler.Logger,
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      finalHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	adapterCancel()
	if err := registry.Stop(); err != nil {
		log.Warn("adapter registry shutdown error", "error", err)
	}
	engineCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown error", "error", err)
	}

	log.Info("server stopped")
}

// registerAdapters wires the configured sources into the registry.
func registerAdapters(registry *adapter.Registry, settings *service.Settings, cfg *config.Config) {
	if cfg.Network.Enabled {
		var source adapter.NetworkSource
		switch cfg.Network.Source {
		case "controller":
			source = adapter.NewControllerClient(
				cfg.Network.Controller.Endpoint,
				cfg.Network.Controller.APIKey,
				cfg.Network.Controller.Timeout.Duration(),
			)
		case "stations":
			source = adapter.NewStationSource(adapter.StationSourceConfig{
				Host:       cfg.Network.Stations.Host,
				Port:       cfg.Network.Stations.Port,
				User:       cfg.Network.Stations.User,
				Password:   cfg.Network.Stations.Password,
				KeyFile:    cfg.Network.Stations.PrivateKeyFile,
				Interfaces: cfg.Network.Stations.Interfaces,
				Timeout:    cfg.Network.Stations.Timeout.Duration(),
			})
		case "sweep":
			source = adapter.NewSweepSource(cfg.Network.Sweep.Targets, cfg.Network.Sweep.Timeout.Duration())
		default:
			log.Error("unknown network source", "source", cfg.Network.Source)
		}

		if source != nil {
			na := adapter.NewNetworkAdapter(source, settings.Adapter)
			if err := registry.Register(na, adapter.AdapterConfig{
				Enabled:      true,
				PollInterval: cfg.Network.PollInterval.Duration().String(),
			}); err != nil {
				log.Error("failed to register network adapter", "error", err)
			}
		}
	}

	if cfg.Vision.Enabled {
		stream := adapter.NewWSDetectionStream(cfg.Vision.Endpoint, cfg.Vision.APIKey)
		va := adapter.NewVisionAdapter(stream, settings.Adapter)
		if cfg.Vision.EnrichEndpoint != "" {
			enricher := adapter.NewHTTPEnricher(
				cfg.Vision.EnrichEndpoint,
				cfg.Vision.APIKey,
				cfg.Vision.EnrichTimeout.Duration(),
			)
			va.SetEnricher(enricher, cfg.Vision.EnrichTimeout.Duration())
		}
		if err := registry.Register(va, adapter.AdapterConfig{Enabled: true}); err != nil {
			log.Error("failed to register vision adapter", "error", err)
		}
	}
}

// pruneSightings trims the sighting history once a day.
func pruneSightings(ctx context.Context, repo *sqlite.Repository) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.PruneSightings(ctx, time.Now().Add(-sightingRetention))
			if err != nil {
				log.Warn("sighting prune failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("pruned sighting history", "removed", removed)
			}
		}
	}
}
