// Package eval provides static evaluators for the search: a tapered
// piece-square evaluator with a pawn-structure cache, and a material-only
// evaluator.
package eval

import "github.com/hailam/chesscore/internal/board"

// Limit bounds every static score, keeping evaluations far from mate scores.
const Limit = 10000

const (
	doubledPawnMg  = -10
	doubledPawnEg  = -20
	isolatedPawnMg = -15
	isolatedPawnEg = -10
	bishopPairMg   = 30
	bishopPairEg   = 50
	rookOpenFile   = 20
	rookHalfOpen   = 10
	maxPhase       = 24
)

// passedPawnBonus is indexed by relative rank.
var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

var mobilityWeight = [6]int{0, 4, 5, 2, 1, 0}

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// Piece-square tables from White's side, a8 first; index with sq^56 for White.
var (
	pawnPST = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		50, 50, 50, 50, 50, 50, 50, 50,
		10, 10, 20, 30, 30, 20, 10, 10,
		5, 5, 10, 25, 25, 10, 5, 5,
		0, 0, 0, 20, 20, 0, 0, 0,
		5, -5, -10, 0, 0, -10, -5, 5,
		5, 10, 10, -20, -20, 10, 10, 5,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	knightPST = [64]int{
		-50, -40, -30, -30, -30, -30, -40, -50,
		-40, -20, 0, 0, 0, 0, -20, -40,
		-30, 0, 10, 15, 15, 10, 0, -30,
		-30, 5, 15, 20, 20, 15, 5, -30,
		-30, 0, 15, 20, 20, 15, 0, -30,
		-30, 5, 10, 15, 15, 10, 5, -30,
		-40, -20, 0, 5, 5, 0, -20, -40,
		-50, -40, -30, -30, -30, -30, -40, -50,
	}
	bishopPST = [64]int{
		-20, -10, -10, -10, -10, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 10, 10, 5, 0, -10,
		-10, 5, 5, 10, 10, 5, 5, -10,
		-10, 0, 10, 10, 10, 10, 0, -10,
		-10, 10, 10, 10, 10, 10, 10, -10,
		-10, 5, 0, 0, 0, 0, 5, -10,
		-20, -10, -10, -10, -10, -10, -10, -20,
	}
	rookPST = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, 10, 10, 10, 10, 5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		0, 0, 0, 5, 5, 0, 0, 0,
	}
	queenPST = [64]int{
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-5, 0, 5, 5, 5, 5, 0, -5,
		0, 0, 5, 5, 5, 5, 0, -5,
		-10, 5, 5, 5, 5, 5, 0, -10,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	}
	kingMgPST = [64]int{
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-20, -30, -30, -40, -40, -30, -30, -20,
		-10, -20, -20, -20, -20, -20, -20, -10,
		20, 20, 0, 0, 0, 0, 20, 20,
		20, 30, 10, 0, 0, 10, 30, 20,
	}
	kingEgPST = [64]int{
		-50, -40, -30, -20, -20, -30, -40, -50,
		-30, -20, -10, 0, 0, -10, -20, -30,
		-30, -10, 20, 30, 30, 20, -10, -30,
		-30, -10, 30, 40, 40, 30, -10, -30,
		-30, -10, 30, 40, 40, 30, -10, -30,
		-30, -10, 20, 30, 30, 20, -10, -30,
		-30, -30, 0, 0, 0, 0, -30, -30,
		-50, -30, -30, -30, -30, -30, -30, -50,
	}
)

// mgTable and egTable are indexed [color][piece type][square], so the inner
// loop never mirrors.
var mgTable, egTable [2][6][64]int

func init() {
	psts := [6]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingMgPST}
	for pt := board.Pawn; pt <= board.King; pt++ {
		for sq := board.A1; sq <= board.H8; sq++ {
			white := sq ^ 56
			mg := board.PieceValue[pt] + psts[pt][white]
			eg := mg
			if pt == board.King {
				eg = board.PieceValue[pt] + kingEgPST[white]
			}
			mgTable[board.White][pt][sq], egTable[board.White][pt][sq] = mg, eg
			mirror := psts[pt][sq]
			mgTable[board.Black][pt][sq] = board.PieceValue[pt] + mirror
			egTable[board.Black][pt][sq] = board.PieceValue[pt] + mirror
			if pt == board.King {
				egTable[board.Black][pt][sq] = board.PieceValue[pt] + kingEgPST[sq]
			}
		}
	}
}

// Evaluator is the default evaluator. It is not safe for concurrent use;
// each search owns one.
type Evaluator struct {
	pawns *PawnTable
}

// New returns an evaluator with a pawn cache of pawnKB kilobytes. A
// non-positive size disables the cache.
func New(pawnKB int) *Evaluator {
	e := &Evaluator{}
	if pawnKB > 0 {
		e.pawns = NewPawnTable(pawnKB)
	}
	return e
}

// PawnTable exposes the cache, nil when disabled.
func (e *Evaluator) PawnTable() *PawnTable {
	return e.pawns
}

// Evaluate scores pos from the side to move's point of view.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	var mg, eg, phase int
	for c := board.White; c <= board.Black; c++ {
		sign := 1 - 2*int(c)
		for pt := board.Pawn; pt <= board.King; pt++ {
			for bb := pos.Pieces[c][pt]; bb != 0; {
				sq := bb.PopLSB()
				mg += sign * mgTable[c][pt][sq]
				eg += sign * egTable[c][pt][sq]
				phase += phaseWeight[pt]
			}
		}
	}

	pmg, peg := e.pawnTerms(pos)
	mg += pmg
	eg += peg

	omg, oeg := pieceTerms(pos)
	mg += omg
	eg += oeg

	if phase > maxPhase {
		phase = maxPhase
	}
	score := (mg*phase + eg*(maxPhase-phase)) / maxPhase
	if pos.SideToMove == board.Black {
		score = -score
	}
	return clamp(score)
}

func (e *Evaluator) pawnTerms(pos *board.Position) (int, int) {
	if e.pawns == nil {
		return pawnStructure(pos)
	}
	if mg, eg, ok := e.pawns.probe(pos.PawnKey); ok {
		return mg, eg
	}
	mg, eg := pawnStructure(pos)
	e.pawns.store(pos.PawnKey, mg, eg)
	return mg, eg
}

// pieceTerms covers mobility, the bishop pair and rooks on open files.
func pieceTerms(pos *board.Position) (mg, eg int) {
	occ := pos.AllOccupied
	allPawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	for c := board.White; c <= board.Black; c++ {
		sign := 1 - 2*int(c)
		own := pos.Occupied[c]

		if pos.Pieces[c][board.Bishop].PopCount() >= 2 {
			mg += sign * bishopPairMg
			eg += sign * bishopPairEg
		}

		for pt := board.Knight; pt <= board.Queen; pt++ {
			for bb := pos.Pieces[c][pt]; bb != 0; {
				sq := bb.PopLSB()
				var att board.Bitboard
				switch pt {
				case board.Knight:
					att = board.KnightAttacks(sq)
				case board.Bishop:
					att = board.BishopAttacks(sq, occ)
				case board.Rook:
					att = board.RookAttacks(sq, occ)
					file := board.FileMask[sq.File()]
					if allPawns&file == 0 {
						mg += sign * rookOpenFile
					} else if pos.Pieces[c][board.Pawn]&file == 0 {
						mg += sign * rookHalfOpen
					}
				case board.Queen:
					att = board.QueenAttacks(sq, occ)
				}
				n := (att &^ own).PopCount() * mobilityWeight[pt]
				mg += sign * n
				eg += sign * n
			}
		}
	}
	return mg, eg
}

func clamp(v int) int {
	return max(-Limit, min(Limit, v))
}

// Material scores material balance only, from the side to move's point of
// view. It is symmetric, so mirrored positions evaluate to zero.
type Material struct{}

func (Material) Evaluate(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += board.PieceValue[pt] * (pos.Pieces[board.White][pt].PopCount() - pos.Pieces[board.Black][pt].PopCount())
	}
	if pos.SideToMove == board.Black {
		score = -score
	}
	return clamp(score)
}
