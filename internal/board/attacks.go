package board

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard
)

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		knightAttacks[sq] = stepTargets(sq, knightSteps[:])
		kingAttacks[sq] = stepTargets(sq, kingSteps[:])
		bb := SquareBB(sq)
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
	initLines()
	initMagics()
}

func stepTargets(sq Square, steps [][2]int) Bitboard {
	var bb Bitboard
	for _, d := range steps {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		if f >= 0 && f < 8 && r >= 0 && r < 8 {
			bb |= SquareBB(NewSquare(f, r))
		}
	}
	return bb
}

// initLines fills betweenBB and lineBB for every pair of aligned squares.
func initLines() {
	for a := A1; a <= H8; a++ {
		for _, d := range kingSteps {
			var ray Bitboard
			f, r := a.File()+d[0], a.Rank()+d[1]
			for f >= 0 && f < 8 && r >= 0 && r < 8 {
				b := NewSquare(f, r)
				betweenBB[a][b] = ray
				ray |= SquareBB(b)
				f, r = f+d[0], r+d[1]
			}
			// the full line through a in direction d, both ways
			full := SquareBB(a) | ray | walk(a, -d[0], -d[1])
			for rr := ray; rr != 0; {
				lineBB[a][rr.PopLSB()] = full
			}
		}
	}
}

func walk(sq Square, df, dr int) Bitboard {
	var bb Bitboard
	f, r := sq.File()+df, sq.Rank()+dr
	for f >= 0 && f < 8 && r >= 0 && r < 8 {
		bb |= SquareBB(NewSquare(f, r))
		f, r = f+df, r+dr
	}
	return bb
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }
func KingAttacks(sq Square) Bitboard   { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

func BishopAttacks(sq Square, occ Bitboard) Bitboard { return bishopMagics[sq].attacks(occ) }
func RookAttacks(sq Square, occ Bitboard) Bitboard   { return rookMagics[sq].attacks(occ) }

func QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ) | RookAttacks(sq, occ)
}

// Between returns the squares strictly between a and b, empty if not aligned.
func Between(a, b Square) Bitboard { return betweenBB[a][b] }

// Aligned reports whether c lies on the line through a and b.
func Aligned(a, b, c Square) bool {
	return lineBB[a][b]&SquareBB(c) != 0
}

// AttackersTo returns attackers of both colors on sq given an occupancy.
func (p *Position) AttackersTo(sq Square, occ Bitboard) Bitboard {
	return p.AttackersByColor(sq, White, occ) | p.AttackersByColor(sq, Black, occ)
}

// AttackersByColor returns the pieces of color c attacking sq.
func (p *Position) AttackersByColor(sq Square, c Color, occ Bitboard) Bitboard {
	pc := &p.Pieces[c]
	return pawnAttacks[c.Other()][sq]&pc[Pawn] |
		knightAttacks[sq]&pc[Knight] |
		kingAttacks[sq]&pc[King] |
		BishopAttacks(sq, occ)&(pc[Bishop]|pc[Queen]) |
		RookAttacks(sq, occ)&(pc[Rook]|pc[Queen])
}

func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	return p.AttackersByColor(sq, by, p.AllOccupied) != 0
}

// UpdateCheckers recomputes the pieces giving check to the side to move.
func (p *Position) UpdateCheckers() {
	us := p.SideToMove
	if p.Pieces[us][King] == 0 {
		p.Checkers = 0
		return
	}
	p.Checkers = p.AttackersByColor(p.Pieces[us][King].LSB(), us.Other(), p.AllOccupied)
}
