package eval

import "github.com/hailam/chesscore/internal/board"

type pawnEntry struct {
	key    uint64
	mg, eg int16
}

// PawnTable caches pawn-structure terms keyed by the position's pawn key.
type PawnTable struct {
	entries []pawnEntry
	mask    uint64
	hits    uint64
	probes  uint64
}

// NewPawnTable sizes the table to at most sizeKB kilobytes, rounded down to
// a power-of-two entry count.
func NewPawnTable(sizeKB int) *PawnTable {
	n := sizeKB * 1024 / 16
	size := 1
	for size*2 <= n {
		size *= 2
	}
	return &PawnTable{entries: make([]pawnEntry, size), mask: uint64(size - 1)}
}

func (t *PawnTable) probe(key uint64) (mg, eg int, ok bool) {
	t.probes++
	e := &t.entries[key&t.mask]
	if e.key != key {
		return 0, 0, false
	}
	t.hits++
	return int(e.mg), int(e.eg), true
}

func (t *PawnTable) store(key uint64, mg, eg int) {
	t.entries[key&t.mask] = pawnEntry{key: key, mg: int16(mg), eg: int16(eg)}
}

// HitRate is the fraction of probes answered from the cache.
func (t *PawnTable) HitRate() float64 {
	if t.probes == 0 {
		return 0
	}
	return float64(t.hits) / float64(t.probes)
}

func (t *PawnTable) Clear() {
	clear(t.entries)
	t.hits, t.probes = 0, 0
}

// pawnStructure scores doubled, isolated and passed pawns from White's view.
func pawnStructure(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		own := pos.Pieces[c][board.Pawn]
		enemy := pos.Pieces[c.Other()][board.Pawn]
		for bb := own; bb != 0; {
			sq := bb.PopLSB()
			file := sq.File()
			adjacent := adjacentFiles[file]

			if (own&board.FileMask[file]).PopCount() > 1 && sq == frontmost(own&board.FileMask[file], c) {
				mg += sign * doubledPawnMg
				eg += sign * doubledPawnEg
			}
			if own&adjacent == 0 {
				mg += sign * isolatedPawnMg
				eg += sign * isolatedPawnEg
			}
			if enemy&passedSpan[c][sq] == 0 {
				rel := sq.RelativeRank(c)
				mg += sign * passedPawnBonus[rel] / 2
				eg += sign * passedPawnBonus[rel]
			}
		}
	}
	return mg, eg
}

func frontmost(bb board.Bitboard, c board.Color) board.Square {
	if c == board.White {
		var last board.Square
		for bb != 0 {
			last = bb.PopLSB()
		}
		return last
	}
	return bb.LSB()
}

var (
	adjacentFiles [8]board.Bitboard
	// passedSpan[c][sq] covers the squares in front of sq on its own and
	// adjacent files, from c's point of view.
	passedSpan [2][64]board.Bitboard
)

func init() {
	for f := 0; f < 8; f++ {
		if f > 0 {
			adjacentFiles[f] |= board.FileMask[f-1]
		}
		if f < 7 {
			adjacentFiles[f] |= board.FileMask[f+1]
		}
	}
	for sq := board.A1; sq <= board.H8; sq++ {
		files := board.FileMask[sq.File()] | adjacentFiles[sq.File()]
		for r := 0; r < 8; r++ {
			if r > sq.Rank() {
				passedSpan[board.White][sq] |= files & board.RankMask[r]
			}
			if r < sq.Rank() {
				passedSpan[board.Black][sq] |= files & board.RankMask[r]
			}
		}
	}
}
