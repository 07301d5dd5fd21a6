package engine

import "github.com/hailam/chesscore/internal/board"

// HistoryMax bounds every history value in both directions.
const HistoryMax = 16384

// gravity moves *v toward the sign of delta. The update shrinks as |*v|
// approaches HistoryMax, so |*v| <= HistoryMax holds for any delta.
func gravity(v *int32, delta int) {
	c := max(-HistoryMax, min(HistoryMax, delta))
	cur := int(*v)
	*v = int32(cur + c - cur*abs(c)/HistoryMax)
}

// quietHistory is indexed by [side][piece type][destination].
type quietHistory [2][6][64]int32

func (h *quietHistory) get(c board.Color, m board.Move) int {
	return int(h[c][m.Piece().Type()][m.To()])
}

func (h *quietHistory) update(c board.Color, m board.Move, delta int) {
	gravity(&h[c][m.Piece().Type()][m.To()], delta)
}

func (h *quietHistory) age() {
	for c := range h {
		for pt := range h[c] {
			for sq := range h[c][pt] {
				h[c][pt][sq] /= 2
			}
		}
	}
}

// captureHistory is indexed by [side][attacker][victim][destination].
type captureHistory [2][6][6][64]int32

func (h *captureHistory) get(c board.Color, m board.Move) int {
	return int(h[c][m.Piece().Type()][victimType(m)][m.To()])
}

func (h *captureHistory) update(c board.Color, m board.Move, delta int) {
	gravity(&h[c][m.Piece().Type()][victimType(m)][m.To()], delta)
}

func (h *captureHistory) age() {
	for c := range h {
		for a := range h[c] {
			for v := range h[c][a] {
				for sq := range h[c][a][v] {
					h[c][a][v][sq] /= 2
				}
			}
		}
	}
}

// victimType treats quiet queen promotions as pawn captures so they share
// the capture table.
func victimType(m board.Move) board.PieceType {
	if m.IsCapture() {
		return m.Captured().Type()
	}
	return board.Pawn
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
