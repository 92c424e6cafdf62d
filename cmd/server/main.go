package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/docsense/internal/api"
	"github.com/dgallion1/docsense/internal/cache"
	"github.com/dgallion1/docsense/internal/config"
	"github.com/dgallion1/docsense/internal/persona"
	"github.com/dgallion1/docsense/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	table, err := loadTable(cfg.PersonaTablePath)
	if err != nil {
		log.Error("load persona table", "error", err)
		os.Exit(1)
	}

	memo, err := cache.New(cache.Config{
		Type:            "memory",
		DefaultTTL:      cfg.CacheTTL,
		CleanupInterval: cfg.CacheCleanup,
	})
	if err != nil {
		log.Error("init cache", "error", err)
		os.Exit(1)
	}

	engine := pipeline.NewEngine(pipeline.OptionsFromConfig(cfg), table, memo, pipeline.NewDocumentStats(cfg.StatsWindow), log)
	srv := api.NewServer(engine, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestBudget + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docsense", "port", cfg.Port, "workers", cfg.WorkerCount, "auth", cfg.APIKey != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func loadTable(path string) (*persona.Table, error) {
	if path == "" {
		return persona.Default()
	}
	return persona.Load(path)
}
