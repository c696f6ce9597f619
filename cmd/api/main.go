package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "review_feed/internal/adapters/http_server"
	"review_feed/internal/adapters/observability"
	"review_feed/internal/bootstrap"
	"review_feed/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// optional second listener so scrapers stay off the API port
	observability.Serve(ctx, cfg.MetricsAddr)

	stack, err := bootstrap.Build(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer stack.Close()

	go func() {
		if err := stack.Run(ctx); err != nil {
			log.Error().Err(err).Msg("loop stopped")
		}
	}()

	// first page, as a freshly opened screen would
	stack.List.LoadNextPage()

	srv := server.New(server.WithTimeout(cfg.RequestTimeout), server.WithLogger(log.Logger))
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		List:      stack.List,
		Layout:    stack.Layout,
		Threshold: cfg.LoadThreshold,
		Ready:     stack.Ready,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
