package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/app"
	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/uci"
)

var (
	configPath = flag.String("config", "", "path to a chesscore.yaml")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	// stdout belongs to the protocol
	app.SetupLogging(cfg, os.Stderr)

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	eng, err := app.NewEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("creating engine")
	}
	defer eng.Close()

	protocol := uci.New(eng.Engine, os.Stdout, cfg.GetInt(config.KeyMaxDepth))
	if err := protocol.Run(os.Stdin); err != nil {
		log.Error().Err(err).Msg("reading stdin")
	}
}
