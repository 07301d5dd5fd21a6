// Package config loads engine settings from defaults, an optional
// chesscore.yaml and CHESSCORE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/hailam/chesscore/internal/storage"
)

const (
	KeyHashMB           = "hash_mb"
	KeyCheckInterval    = "check_interval"
	KeyMaxDepth         = "max_depth"
	KeyDataDir          = "data_dir"
	KeyAnalysisStore    = "analysis_store"
	KeyTablebaseOnline  = "tablebase.online"
	KeyTablebaseURL     = "tablebase.url"
	KeyTablebaseEntries = "tablebase.cache_entries"
	KeyTablebasePieces  = "tablebase.max_pieces"
	KeyTablebaseTimeout = "tablebase.timeout"
	KeyLogLevel         = "log_level"
	KeyHTTPAddr         = "http.addr"
)

type Config struct {
	*viper.Viper
}

// New returns a configuration holding only the defaults.
func New() *Config {
	v := viper.New()
	v.SetDefault(KeyHashMB, 64)
	v.SetDefault(KeyCheckInterval, 1024)
	v.SetDefault(KeyMaxDepth, 64)
	v.SetDefault(KeyAnalysisStore, false)
	v.SetDefault(KeyTablebaseOnline, false)
	v.SetDefault(KeyTablebaseURL, "")
	v.SetDefault(KeyTablebaseEntries, 4096)
	v.SetDefault(KeyTablebasePieces, 7)
	v.SetDefault(KeyTablebaseTimeout, "2s")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyHTTPAddr, ":8089")
	if dir, err := storage.DataDir(); err == nil {
		v.SetDefault(KeyDataDir, dir)
	}

	v.SetEnvPrefix("CHESSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Config{Viper: v}
}

// Load reads the config file at path, or searches the working directory and
// $XDG_CONFIG_HOME/chesscore for chesscore.yaml when path is empty. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	c := New()
	if path != "" {
		c.SetConfigFile(path)
	} else {
		c.SetConfigName("chesscore")
		c.SetConfigType("yaml")
		c.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			c.AddConfigPath(filepath.Join(dir, "chesscore"))
		}
	}

	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.GetInt(KeyHashMB) < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyHashMB, c.GetInt(KeyHashMB))
	}
	if c.GetInt(KeyCheckInterval) < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyCheckInterval, c.GetInt(KeyCheckInterval))
	}
	if d := c.GetInt(KeyMaxDepth); d < 1 || d > 127 {
		return fmt.Errorf("%s must be in [1, 127], got %d", KeyMaxDepth, d)
	}
	if _, err := zerolog.ParseLevel(c.GetString(KeyLogLevel)); err != nil {
		return fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return nil
}

// LogLevel returns the configured zerolog level, info when unparsable.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.GetString(KeyLogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
