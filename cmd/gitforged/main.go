package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gitforged/server/internal/character"
	"github.com/gitforged/server/internal/config"
	"github.com/gitforged/server/internal/logger"
	"github.com/gitforged/server/internal/quest"
	"github.com/gitforged/server/internal/quest/content"
	"github.com/gitforged/server/internal/server"
	"github.com/gitforged/server/internal/store"
	"github.com/gitforged/server/internal/tick"
)

func main() {
	configFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	logCfg, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logCfg)

	logger.Info("Starting GitForged server")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()
	logger.Info("Store opened", "driver", cfg.Store.Driver)

	registry := quest.NewRegistry()
	if err := content.Register(registry); err != nil {
		log.Fatalf("Failed to register quests: %v", err)
	}
	logger.Info("Quests registered", "playable", len(registry.Playable()))

	bot, err := character.NewGitHub(cfg.GitHub.APIBase, cfg.GitHub.Token)
	if err != nil {
		log.Fatalf("Failed to create GitHub client: %v", err)
	}
	engine := quest.NewEngine(st, bot, registry)
	srv := server.New(cfg, st, bot, engine)

	var runner *tick.Runner
	if cfg.Tick.Enabled {
		runner = tick.NewRunner(cfg.Tick.FastInterval(), cfg.Tick.FullInterval(), engine.TickAll)
		runner.Start()
		logger.Info("Tick scheduler started",
			"fast_interval", cfg.Tick.FastInterval(), "full_interval", cfg.Tick.FullInterval())
	} else {
		logger.Info("Tick scheduler disabled, expecting external tick triggers")
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("HTTP server stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	if runner != nil {
		runner.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
