package engine

import "github.com/hailam/chesscore/internal/board"

// seeValue are the piece values used by static exchange evaluation. The
// king is worth nothing here; capturing with it is handled separately.
var seeValue = [7]int{100, 320, 330, 500, 900, 0, 0}

// SeeGE reports whether the static exchange evaluation of m is at least
// threshold, resolving the capture sequence on m's destination square with
// the least valuable attacker each time.
func SeeGE(pos *board.Position, m board.Move, threshold int) bool {
	if m.IsCastling() {
		return threshold <= 0
	}

	from, to := m.From(), m.To()

	balance := -threshold
	if m.IsCapture() {
		balance += seeValue[m.Captured().Type()]
	}
	next := m.Piece().Type()
	if m.IsPromotion() {
		next = m.Promotion()
		balance += seeValue[next] - seeValue[board.Pawn]
	}
	if balance < 0 {
		return false
	}

	// assume the moved piece is lost
	balance -= seeValue[next]
	if balance >= 0 {
		return true
	}

	occ := pos.AllOccupied ^ board.SquareBB(from) | board.SquareBB(to)
	if m.IsEnPassant() {
		occ ^= board.SquareBB(board.NewSquare(to.File(), from.Rank()))
	}

	diag := pos.Pieces[board.White][board.Bishop] | pos.Pieces[board.Black][board.Bishop] |
		pos.Pieces[board.White][board.Queen] | pos.Pieces[board.Black][board.Queen]
	straight := pos.Pieces[board.White][board.Rook] | pos.Pieces[board.Black][board.Rook] |
		pos.Pieces[board.White][board.Queen] | pos.Pieces[board.Black][board.Queen]

	attackers := pos.AttackersTo(to, occ) & occ
	side := pos.SideToMove.Other()

	for {
		mine := attackers & pos.Occupied[side]
		if mine == 0 {
			break
		}

		for next = board.Pawn; next < board.King; next++ {
			if mine&pos.Pieces[side][next] != 0 {
				break
			}
		}
		occ ^= board.SquareBB((mine & pos.Pieces[side][next]).LSB())

		// x-rays behind the piece that just captured
		if next == board.Pawn || next == board.Bishop || next == board.Queen {
			attackers |= board.BishopAttacks(to, occ) & diag
		}
		if next == board.Rook || next == board.Queen {
			attackers |= board.RookAttacks(to, occ) & straight
		}
		attackers &= occ

		side = side.Other()
		balance = -balance - 1 - seeValue[next]
		if balance >= 0 {
			// a king may not recapture into a defended square
			if next == board.King && attackers&pos.Occupied[side] != 0 {
				side = side.Other()
			}
			break
		}
	}

	return pos.SideToMove != side
}
