package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prylval/affiliates/config"
	"github.com/prylval/affiliates/internal/decorator"
	httpDelivery "github.com/prylval/affiliates/internal/delivery/http"
	"github.com/prylval/affiliates/internal/infrastructure"
	"github.com/prylval/affiliates/internal/infrastructure/cache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := config.SetupLogger(cfg.Log)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Type).
		Str("map_url", cfg.Decorator.MapURL).
		Dur("cache_ttl", cfg.Decorator.CacheTTL).
		Msg("starting affiliate decorator")

	reader, err := infrastructure.NewMapReader(cfg, logger.With().Str("component", "mapclient").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure affiliate map source")
	}

	dec := decorator.New(
		reader,
		cache.NewMapCache(cfg.Decorator.CacheTTL, nil),
		logger.With().Str("component", "decorator").Logger(),
	)

	// Warm the cache; a failure here is retried on the first request
	if _, err := dec.Load(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("affiliate map not available yet")
	}

	handler := httpDelivery.NewHandler(dec, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
