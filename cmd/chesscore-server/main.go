package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/app"
	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/httpapi"
)

const GracefulShutdownTimeout = 20 * time.Second

var configPath = flag.String("config", "", "path to a chesscore.yaml")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	app.SetupLogging(cfg, os.Stderr)

	eng, err := app.NewEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("creating engine")
	}
	defer eng.Close()

	api := httpapi.New(eng.Engine, cfg.GetInt(config.KeyMaxDepth))
	if eng.Prober != nil {
		api.WithProber(eng.Prober)
	}
	srv := &http.Server{
		Addr:    cfg.GetString(config.KeyHTTPAddr),
		Handler: api.Routes(),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()
	log.Info().Str("addr", srv.Addr).Msg("listening")

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	select {
	case <-sigCtx.Done():
		log.Info().Msg("got quit signal...")
	case err, ok := <-serverErrCh:
		if ok {
			log.Error().Err(err).Msg("server error")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
	log.Info().Msg("server gracefully shutting down")
}
