package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c := New()

	is.Equal(c.GetInt(KeyHashMB), 64)
	is.Equal(c.GetInt(KeyCheckInterval), 1024)
	is.Equal(c.GetInt(KeyMaxDepth), 64)
	is.Equal(c.GetBool(KeyAnalysisStore), false)
	is.Equal(c.GetBool(KeyTablebaseOnline), false)
	is.Equal(c.GetInt(KeyTablebaseEntries), 4096)
	is.Equal(c.GetInt(KeyTablebasePieces), 7)
	is.Equal(c.GetDuration(KeyTablebaseTimeout), 2*time.Second)
	is.Equal(c.GetString(KeyHTTPAddr), ":8089")
	is.Equal(c.LogLevel(), zerolog.InfoLevel)
	is.NoErr(c.Validate())
}

func TestEnvironmentOverrides(t *testing.T) {
	is := is.New(t)
	t.Setenv("CHESSCORE_HASH_MB", "256")
	t.Setenv("CHESSCORE_TABLEBASE_ONLINE", "true")
	t.Setenv("CHESSCORE_LOG_LEVEL", "debug")

	c := New()
	is.Equal(c.GetInt(KeyHashMB), 256)
	is.True(c.GetBool(KeyTablebaseOnline))
	is.Equal(c.LogLevel(), zerolog.DebugLevel)
}

func TestLoadFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "chesscore.yaml")
	data := "hash_mb: 16\nmax_depth: 20\ntablebase:\n  cache_entries: 99\nhttp:\n  addr: \":9000\"\n"
	is.NoErr(os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	is.NoErr(err)
	is.Equal(c.GetInt(KeyHashMB), 16)
	is.Equal(c.GetInt(KeyMaxDepth), 20)
	is.Equal(c.GetInt(KeyTablebaseEntries), 99)
	is.Equal(c.GetString(KeyHTTPAddr), ":9000")
	is.Equal(c.GetInt(KeyCheckInterval), 1024)
}

func TestLoadRejectsBadValues(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	is.True(err != nil)

	path := filepath.Join(dir, "bad.yaml")
	is.NoErr(os.WriteFile(path, []byte("max_depth: 500\n"), 0o644))
	_, err = Load(path)
	is.True(err != nil)

	path = filepath.Join(dir, "level.yaml")
	is.NoErr(os.WriteFile(path, []byte("log_level: loud\n"), 0o644))
	_, err = Load(path)
	is.True(err != nil)
}
