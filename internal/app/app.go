// Package app wires configuration into a ready-to-search engine for the
// command line binaries.
package app

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
	"github.com/hailam/chesscore/internal/tablebase"
)

// SetupLogging points the global logger at w with the configured level.
// Binaries speaking a protocol on stdout must pass os.Stderr.
func SetupLogging(cfg *config.Config, w io.Writer) {
	zerolog.SetGlobalLevel(cfg.LogLevel())
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).
		With().Timestamp().Logger()
	log.Debug().Interface("settings", cfg.AllSettings()).Msg("loaded config")
}

// Engine holds an engine plus the resources it was wired to.
type Engine struct {
	*engine.Engine
	Store  *storage.AnalysisStore
	Prober *tablebase.CachedProber
}

// NewEngine builds an engine from cfg, opening the analysis store and the
// online tablebase when enabled.
func NewEngine(cfg *config.Config) (*Engine, error) {
	e := &Engine{
		Engine: engine.New(engine.Options{
			HashMB:        cfg.GetInt(config.KeyHashMB),
			CheckInterval: cfg.GetInt(config.KeyCheckInterval),
		}),
	}

	if cfg.GetBool(config.KeyAnalysisStore) {
		dir, err := storage.AnalysisDir(cfg.GetString(config.KeyDataDir))
		if err != nil {
			return nil, err
		}
		store, err := storage.Open(dir)
		if err != nil {
			return nil, err
		}
		e.Store = store
		e.SetResumeStore(store)
		log.Info().Str("dir", dir).Msg("analysis store opened")
	}

	if cfg.GetBool(config.KeyTablebaseOnline) {
		lichess := tablebase.NewLichessProber(
			cfg.GetString(config.KeyTablebaseURL),
			cfg.GetDuration(config.KeyTablebaseTimeout),
		)
		lichess.SetMaxPieces(cfg.GetInt(config.KeyTablebasePieces))
		prober, err := tablebase.NewCachedProber(lichess, cfg.GetInt(config.KeyTablebaseEntries))
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Prober = prober
		e.SetProber(prober)
		log.Info().Int("max_pieces", prober.MaxPieces()).Msg("online tablebase enabled")
	}
	return e, nil
}

// Close releases the store and the tablebase cache.
func (e *Engine) Close() error {
	if e.Prober != nil {
		log.Debug().Float64("hit_rate", e.Prober.HitRate()).Msg("tablebase cache")
		e.Prober.Close()
	}
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}
