package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
)

var ErrNotFound = errors.New("analysis not found")

var keyPrefix = []byte("analysis/")

// Analysis is the deepest finished search stored for one position.
type Analysis struct {
	FEN     string    `json:"fen"`
	Depth   int       `json:"depth"`
	Eval    int       `json:"eval"`
	PV      []string  `json:"pv"`
	Updated time.Time `json:"updated"`
}

// AnalysisStore wraps BadgerDB. It satisfies engine.ResumeStore.
type AnalysisStore struct {
	db *badger.DB
}

// Open opens or creates the store in dir.
func Open(dir string) (*AnalysisStore, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a store that is never written to disk.
func OpenInMemory() (*AnalysisStore, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*AnalysisStore, error) {
	opts.Logger = badgerLogger{log.With().Str("component", "badger").Logger()}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open analysis store: %w", err)
	}
	return &AnalysisStore{db: db}, nil
}

// Close closes the database
func (s *AnalysisStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// key is the xxhash of the position without move counters, so transpositions
// reached at different game lengths share a record.
func key(fen string) []byte {
	k := make([]byte, len(keyPrefix)+8)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], xxhash.Sum64String(fen))
	return k
}

// Get loads the analysis of pos.
func (s *AnalysisStore) Get(pos *board.Position) (*Analysis, error) {
	fen := pos.PositionKey()
	var a Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(fen))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if err != nil {
		return nil, err
	}
	if a.FEN != fen {
		return nil, ErrNotFound
	}
	return &a, nil
}

// Put stores a unless an analysis at least as deep already exists.
// It reports whether a was written.
func (s *AnalysisStore) Put(pos *board.Position, a Analysis) (bool, error) {
	a.FEN = pos.PositionKey()
	a.Updated = time.Now()
	k := key(a.FEN)

	written := false
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var old Analysis
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err != nil {
				return err
			}
			if old.FEN == a.FEN && old.Depth >= a.Depth {
				return nil
			}
		}

		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		written = true
		return txn.Set(k, data)
	})
	if err != nil {
		return false, fmt.Errorf("store analysis: %w", err)
	}
	return written, nil
}

// Count returns the number of stored analyses.
func (s *AnalysisStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *AnalysisStore) Resume(pos *board.Position) (depth, eval int, ok bool) {
	a, err := s.Get(pos)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Msg("reading analysis store")
		}
		return 0, 0, false
	}
	return a.Depth, a.Eval, true
}

func (s *AnalysisStore) Record(pos *board.Position, depth, eval int, pv []board.Move) {
	a := Analysis{
		Depth: depth,
		Eval:  eval,
		PV:    lo.Map(pv, func(m board.Move, _ int) string { return m.String() }),
	}
	written, err := s.Put(pos, a)
	if err != nil {
		log.Warn().Err(err).Msg("writing analysis store")
		return
	}
	if written {
		log.Debug().Str("fen", a.FEN).Int("depth", depth).Msg("analysis stored")
	}
}

// badgerLogger routes badger's messages through zerolog.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(f string, v ...any)   { b.l.Error().Msgf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...any) { b.l.Warn().Msgf(f, v...) }
func (b badgerLogger) Infof(f string, v ...any)    { b.l.Debug().Msgf(f, v...) }
func (b badgerLogger) Debugf(f string, v ...any)   { b.l.Trace().Msgf(f, v...) }
