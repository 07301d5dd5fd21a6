package engine

import (
	"unsafe"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/board"
)

// ScoreKind tells how a stored score relates to the true value.
type ScoreKind uint8

const (
	// ScoreUnset marks entries left behind by an interrupted search whose
	// score is not a usable bound; their move is still a good first guess.
	ScoreUnset ScoreKind = iota
	ScoreExact
	ScoreLowerBound
	ScoreUpperBound
)

func (k ScoreKind) String() string {
	switch k {
	case ScoreExact:
		return "exact"
	case ScoreLowerBound:
		return "lower"
	case ScoreUpperBound:
		return "upper"
	}
	return "unset"
}

// TTEntry is one transposition table slot.
type TTEntry struct {
	Key   uint64
	Move  board.Move
	Score int16
	Depth int8
	Kind  ScoreKind
	tick  uint8
}

func (e *TTEntry) empty() bool {
	return *e == TTEntry{}
}

// ttBucket keeps the most valuable entry seen for its index next to the
// most recently written one.
type ttBucket struct {
	valuable TTEntry
	recent   TTEntry
}

// TranspositionTable is a fixed-size hash table of search results. It is
// owned by one search at a time and is not safe for concurrent writers.
type TranspositionTable struct {
	buckets []ttBucket
	mask    uint64
	tick    uint8
}

const bucketSize = uint64(unsafe.Sizeof(ttBucket{}))

// NewTranspositionTable creates a table using at most sizeMB megabytes.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table, dropping every entry. The size is rounded
// down to a power of two buckets and capped at half the physical memory.
func (tt *TranspositionTable) Resize(sizeMB int) {
	bytes := uint64(max(sizeMB, 1)) << 20
	if total := memory.TotalMemory(); total > 0 && bytes > total/2 {
		log.Warn().Int("requested_mb", sizeMB).Uint64("limit_mb", total/2>>20).Msg("hash size capped")
		bytes = total / 2
	}

	n := uint64(1)
	for n*2*bucketSize <= bytes {
		n *= 2
	}
	tt.buckets = make([]ttBucket, n)
	tt.mask = n - 1
	tt.tick = 0
	log.Debug().Uint64("buckets", n).Uint64("bytes", n*bucketSize).Msg("transposition table allocated")
}

// Clear wipes every entry without reallocating.
func (tt *TranspositionTable) Clear() {
	clear(tt.buckets)
	tt.tick = 0
}

// NewSearch advances the recency tick; entries from older searches lose
// value against fresh ones of the same depth.
func (tt *TranspositionTable) NewSearch() {
	tt.tick++
}

// Prefetch touches the bucket for hash so it is cached before the probe.
func (tt *TranspositionTable) Prefetch(hash uint64) {
	_ = tt.buckets[hash&tt.mask].valuable.Key
}

// Probe looks hash up, checking the recent slot first.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	b := &tt.buckets[hash&tt.mask]
	if b.recent.Key == hash && !b.recent.empty() {
		return b.recent, true
	}
	if b.valuable.Key == hash && !b.valuable.empty() {
		return b.valuable, true
	}
	return TTEntry{}, false
}

// Store writes an entry. Scores must already be converted with ScoreToTT.
func (tt *TranspositionTable) Store(hash uint64, move board.Move, score, depth int, kind ScoreKind) {
	e := TTEntry{
		Key:   hash,
		Move:  move,
		Score: int16(score),
		Depth: int8(max(min(depth, 127), -128)),
		Kind:  kind,
		tick:  tt.tick,
	}
	b := &tt.buckets[hash&tt.mask]

	if b.valuable.empty() || b.valuable.Key == hash {
		if tt.atLeastAsValuable(&e, &b.valuable) {
			b.valuable = e
			if b.recent.Key == hash {
				b.recent = TTEntry{}
			}
		} else {
			b.recent = e
		}
		return
	}

	if tt.moreValuable(&e, &b.valuable) {
		b.recent = b.valuable
		b.valuable = e
		return
	}
	b.recent = e
}

// value is the entry depth minus how many searches ago it was written.
func (tt *TranspositionTable) value(e *TTEntry) int {
	return int(e.Depth) + wrap8(int(e.tick)-int(tt.tick))
}

func (tt *TranspositionTable) moreValuable(a, b *TTEntry) bool {
	va, vb := tt.value(a), tt.value(b)
	if va != vb {
		return va > vb
	}
	return a.Kind == ScoreExact && b.Kind != ScoreExact
}

func (tt *TranspositionTable) atLeastAsValuable(a, b *TTEntry) bool {
	va, vb := tt.value(a), tt.value(b)
	if va != vb {
		return va > vb
	}
	return a.Kind == ScoreExact || b.Kind != ScoreExact
}

// wrap8 reduces d to the signed 8-bit range with two's-complement
// wraparound, so tick differences stay meaningful after the counter wraps.
func wrap8(d int) int {
	return ((d+128)%256+256)%256 - 128
}

// Occupancy samples the first buckets and returns the fraction of slots
// written during the current search.
func (tt *TranspositionTable) Occupancy() float64 {
	n := min(len(tt.buckets), 1000)
	if n == 0 {
		return 0
	}
	used := 0
	for i := range n {
		b := &tt.buckets[i]
		if !b.valuable.empty() && b.valuable.tick == tt.tick {
			used++
		}
		if !b.recent.empty() && b.recent.tick == tt.tick {
			used++
		}
	}
	return float64(used) / float64(2*n)
}

// HashFull is Occupancy in permille, as reported over UCI.
func (tt *TranspositionTable) HashFull() int {
	return int(tt.Occupancy() * 1000)
}

// ScoreToTT makes mate scores relative to the node being stored.
func ScoreToTT(score, ply int) int {
	if score >= MateScore-MaxPly {
		return score + ply
	}
	if score <= -MateScore+MaxPly {
		return score - ply
	}
	return score
}

// ScoreFromTT undoes ScoreToTT for a probe at ply.
func ScoreFromTT(score, ply int) int {
	if score >= MateScore-MaxPly {
		return score - ply
	}
	if score <= -MateScore+MaxPly {
		return score + ply
	}
	return score
}
