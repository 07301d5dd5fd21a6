package board

import "math/bits"

// Sliding attacks use fancy magic bitboards. Magic multipliers are searched
// at start-up with a fixed-seed generator, so the tables are reproducible.

type magic struct {
	mask  Bitboard
	mult  uint64
	shift uint8
	table []Bitboard
}

var (
	bishopMagics [64]magic
	rookMagics   [64]magic
)

var (
	bishopDirs = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rookDirs   = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

func (m *magic) attacks(occ Bitboard) Bitboard {
	return m.table[(uint64(occ&m.mask)*m.mult)>>m.shift]
}

func initMagics() {
	rng := newPRNG(0x2F6B3A19C0DE1234)
	for sq := A1; sq <= H8; sq++ {
		bishopMagics[sq] = findMagic(sq, bishopDirs, rng)
		rookMagics[sq] = findMagic(sq, rookDirs, rng)
	}
}

// slide casts rays from sq, stopping on (and including) the first blocker.
func slide(sq Square, dirs [][2]int, occ Bitboard) Bitboard {
	var bb Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			s := SquareBB(NewSquare(f, r))
			bb |= s
			if occ&s != 0 {
				break
			}
			f, r = f+d[0], r+d[1]
		}
	}
	return bb
}

// relevantMask drops the last square of each ray, whose occupancy never matters.
func relevantMask(sq Square, dirs [][2]int) Bitboard {
	var bb Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f+d[0] >= 0 && f+d[0] < 8 && r+d[1] >= 0 && r+d[1] < 8 {
			bb |= SquareBB(NewSquare(f, r))
			f, r = f+d[0], r+d[1]
		}
	}
	return bb
}

func findMagic(sq Square, dirs [][2]int, rng *prng) magic {
	mask := relevantMask(sq, dirs)
	n := mask.PopCount()
	size := 1 << n

	occs := make([]Bitboard, 0, size)
	refs := make([]Bitboard, 0, size)
	// carry-rippler enumeration of every subset of mask
	for sub := Bitboard(0); ; {
		occs = append(occs, sub)
		refs = append(refs, slide(sq, dirs, sub))
		sub = (sub - mask) & mask
		if sub == 0 {
			break
		}
	}

	table := make([]Bitboard, size)
	epoch := make([]int, size)
	shift := uint8(64 - n)
	for attempt := 1; ; attempt++ {
		mult := rng.sparse()
		if bits.OnesCount64((uint64(mask)*mult)>>56) < 6 {
			continue
		}
		ok := true
		for i, occ := range occs {
			idx := (uint64(occ) * mult) >> shift
			if epoch[idx] != attempt {
				epoch[idx] = attempt
				table[idx] = refs[i]
			} else if table[idx] != refs[i] {
				ok = false
				break
			}
		}
		if ok {
			return magic{mask: mask, mult: mult, shift: shift, table: table}
		}
	}
}
