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

	"github.com/rs/zerolog"

	"github.com/julianalert/expedition37-sub000/internal/api"
	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/catalog/fallback"
	"github.com/julianalert/expedition37-sub000/internal/config"
	"github.com/julianalert/expedition37-sub000/internal/logging"
	"github.com/julianalert/expedition37-sub000/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	collector := metrics.New()

	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	source := openSource(ctx, cfg, log)
	defer source.close()

	src := source.value
	if src != nil {
		bc := catalog.DefaultBreakerConfig("catalog")
		bc.OnStateChange = func(name, from, to string) {
			collector.BreakerStateChange(name, from, to)
			log.Warn().Str("breaker", name).Str("from", from).Str("to", to).Msg("breaker state changed")
		}
		src = catalog.NewGuarded(src, bc)
	}

	store := openCache(ctx, cfg, log)
	defer store.close()

	checks := append(source.checks, store.checks...)

	svc := catalog.NewService(catalog.Options{
		Source:        src,
		Cache:         store.value,
		Fallback:      fallback.Default(),
		CacheTTL:      cfg.CacheTTL,
		RemoteTimeout: cfg.RemoteTimeout,
		Recorder:      collector,
		Logger:        log,
	})

	handlers := api.NewHandlers(svc, svc, log)
	router := api.NewRouter(handlers, api.RouterOptions{
		AdminToken:     cfg.AdminToken,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		Checks:         checks,
		Metrics:        collector,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("recover", r).Msg("server goroutine panicked")
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Bool("remote", svc.Configured()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info().Msg("server shut down cleanly")
	return nil
}
