package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amadeus/internal/catalog"
	"amadeus/internal/config"
	"amadeus/internal/game"
	"amadeus/internal/logging"
	"amadeus/internal/transport/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(os.Getenv("AMADEUS_DEBUG") == "true")

	store, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open song catalog")
	}
	defer store.Close()

	sessions := game.NewMemoryDirectory()
	timers := game.NewSystemTimerService()
	idgen := game.NewUUIDGenerator()
	registry := game.NewRegistry(store, sessions, timers, idgen, cfg.DefaultRoomConfiguration, logger)

	server := httpapi.NewServer(registry, sessions, cfg.AllowedOrigins, logger)
	router := server.NewRouter(cfg.AllowedOrigins)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("amadeus server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	<-sigCh
	logger.Info().Msg("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}
