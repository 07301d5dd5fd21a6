package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/app"
	"github.com/hailam/chesscore/internal/bench"
	"github.com/hailam/chesscore/internal/config"
)

var (
	configPath = flag.String("config", "", "path to a chesscore.yaml")
	suitePath  = flag.String("suite", "", "YAML suite of positions, built-in suite if empty")
	depth      = flag.Int("depth", 0, "override the suite depth")
	workers    = flag.Int("workers", runtime.NumCPU(), "engines searching at once")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	app.SetupLogging(cfg, os.Stderr)

	suite := bench.DefaultSuite()
	if *suitePath != "" {
		f, err := os.Open(*suitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("opening suite")
		}
		suite, err = bench.LoadSuite(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("loading suite")
		}
	}
	if *depth > 0 {
		suite.Depth = *depth
	}
	if suite.HashMB == 0 {
		suite.HashMB = cfg.GetInt(config.KeyHashMB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := bench.Run(ctx, suite, *workers)
	if err != nil {
		log.Fatal().Err(err).Msg("bench failed")
	}
	if err := rep.WriteYAML(os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("writing report")
	}
	log.Info().Uint64("nodes", rep.TotalNodes).Uint64("nps", rep.NPS).Msg("bench done")
}
