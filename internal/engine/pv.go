package engine

import "github.com/hailam/chesscore/internal/board"

// walkPV follows hash moves from pos on a private copy, stopping at the
// first missing entry, illegal move or repeated position, or after maxLen
// moves. The table is only read.
func (e *Engine) walkPV(pos *board.Position, maxLen int) []board.Move {
	cur := pos.Copy()
	seen := make(map[uint64]struct{}, maxLen)
	var pv []board.Move

	for len(pv) < maxLen {
		if _, dup := seen[cur.Hash]; dup {
			break
		}
		seen[cur.Hash] = struct{}{}

		entry, ok := e.tt.Probe(cur.Hash)
		if !ok || entry.Move == board.NoMove {
			break
		}
		if !cur.GenerateLegalMoves().Contains(entry.Move) {
			debugAssert(false, "principal variation contains an illegal move")
			break
		}
		cur.MakeMove(entry.Move)
		pv = append(pv, entry.Move)
	}
	return pv
}
