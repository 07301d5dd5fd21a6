package tablebase

import (
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/hailam/chesscore/internal/board"
)

// CachedProber wraps another prober with an admission-controlled cache.
// This reduces API calls for frequently probed positions.
type CachedProber struct {
	inner  Prober
	probes *ristretto.Cache[uint64, ProbeResult]
	roots  *ristretto.Cache[uint64, RootResult]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedProber creates a cached prober holding about entries results.
func NewCachedProber(inner Prober, entries int) (*CachedProber, error) {
	entries = max(entries, 16)
	// every entry costs 1, MaxCost is an entry count
	probes, err := ristretto.NewCache(&ristretto.Config[uint64, ProbeResult]{
		NumCounters:        int64(entries) * 10,
		MaxCost:            int64(entries),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	roots, err := ristretto.NewCache(&ristretto.Config[uint64, RootResult]{
		NumCounters:        int64(entries) * 10,
		MaxCost:            int64(entries),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		probes.Close()
		return nil, err
	}
	return &CachedProber{inner: inner, probes: probes, roots: roots}, nil
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	if result, ok := cp.probes.Get(pos.Hash); ok {
		cp.hits.Add(1)
		return result
	}
	cp.misses.Add(1)
	result := cp.inner.Probe(pos)
	if result.Found {
		cp.probes.Set(pos.Hash, result, 1)
	}
	return result
}

func (cp *CachedProber) ProbeRoot(pos *board.Position) RootResult {
	if result, ok := cp.roots.Get(pos.Hash); ok {
		cp.hits.Add(1)
		return result
	}
	cp.misses.Add(1)
	result := cp.inner.ProbeRoot(pos)
	if result.Found {
		cp.roots.Set(pos.Hash, result, 1)
	}
	return result
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

// Wait blocks until pending cache writes are visible.
func (cp *CachedProber) Wait() {
	cp.probes.Wait()
	cp.roots.Wait()
}

// HitRate returns the cache hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	hits, misses := cp.hits.Load(), cp.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}

// Clear clears the cache.
func (cp *CachedProber) Clear() {
	cp.probes.Clear()
	cp.roots.Clear()
	cp.hits.Store(0)
	cp.misses.Store(0)
}

func (cp *CachedProber) Close() {
	cp.probes.Close()
	cp.roots.Close()
}
