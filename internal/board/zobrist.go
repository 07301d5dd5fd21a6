package board

var (
	zobristPiece      [2][6][64]uint64
	zobristEnPassant  [8]uint64
	zobristCastling   [16]uint64
	zobristSideToMove uint64
)

// prng is xorshift64*; a fixed seed keeps hashes stable across runs, which
// persisted analysis records rely on.
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// sparse returns a value with few bits set, a good magic candidate.
func (p *prng) sparse() uint64 {
	return p.next() & p.next() & p.next()
}

func init() {
	rng := newPRNG(0x98F107A2BEEF1234)
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}
	for f := range zobristEnPassant {
		zobristEnPassant[f] = rng.next()
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	zobristSideToMove = rng.next()
}

// ComputeHash rebuilds the zobrist key from scratch.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := p.Pieces[c][pt]; bb != 0; {
				h ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	if p.SideToMove == Black {
		h ^= zobristSideToMove
	}
	h ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		h ^= zobristEnPassant[p.EnPassant.File()]
	}
	return h
}

// ComputePawnKey hashes pawn placement only, for the pawn structure cache.
func (p *Position) ComputePawnKey() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for bb := p.Pieces[c][Pawn]; bb != 0; {
			h ^= zobristPiece[c][Pawn][bb.PopLSB()]
		}
	}
	return h
}
