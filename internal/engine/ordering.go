package engine

import "github.com/hailam/chesscore/internal/board"

// Move ordering bonuses
const (
	CaptureBonus = 1 << 24 // tactical moves sort above every quiet
	KillerBonus  = 1 << 20
	CounterBonus = 1 << 19
	HashBonus    = 1 << 28 // quiescence only; the main search tries the hash move itself
)

// Orderer owns the heuristics learned from earlier cutoffs: killers per ply,
// counter moves, quiet and capture history. It lives across searches and is
// aged rather than cleared between them.
type Orderer struct {
	killers  [MaxPly + 1][2]board.Move
	counters [2][6][64]board.Move
	quiet    quietHistory
	capture  captureHistory
	gamePly  int
}

// NewOrderer creates an empty orderer.
func NewOrderer() *Orderer {
	return &Orderer{gamePly: -1}
}

// Clear forgets everything, used on a new game.
func (o *Orderer) Clear() {
	*o = Orderer{gamePly: -1}
}

// Age prepares the tables for a search from pos. Killers are shifted by the
// number of plies played since the previous search so that a killer stored
// at ply p of the old tree lands on the same game ply, history is halved.
func (o *Orderer) Age(pos *board.Position) {
	gp := gamePly(pos)
	shift := gp - o.gamePly
	switch {
	case o.gamePly < 0 || shift < 0 || shift > MaxPly:
		o.killers = [MaxPly + 1][2]board.Move{}
	case shift > 0:
		copy(o.killers[:], o.killers[shift:])
		clear(o.killers[len(o.killers)-shift:])
	}
	o.gamePly = gp

	o.quiet.age()
	o.capture.age()
}

func gamePly(pos *board.Position) int {
	return 2*(pos.FullMoveNumber-1) + int(pos.SideToMove)
}

// CounterMove returns the stored reply to prev for side c.
func (o *Orderer) CounterMove(c board.Color, prev board.Move) board.Move {
	if prev == board.NoMove {
		return board.NoMove
	}
	return o.counters[c][prev.Piece().Type()][prev.To()]
}

// ReportCutoff credits m for failing high at ply. pos is the position m was
// played from.
func (o *Orderer) ReportCutoff(pos *board.Position, m, prev board.Move, ply, depth int) {
	us := pos.SideToMove
	bonus := depth * depth
	if m.IsTactical() {
		o.capture.update(us, m, bonus)
		return
	}
	o.quiet.update(us, m, bonus)

	k := &o.killers[ply]
	if k[0] != m {
		k[1] = k[0]
		k[0] = m
	}
	if prev != board.NoMove {
		o.counters[us][prev.Piece().Type()][prev.To()] = m
	}
}

// ReportNonCutoff penalises a move that was searched without failing high.
func (o *Orderer) ReportNonCutoff(pos *board.Position, m board.Move, depth int) {
	us := pos.SideToMove
	malus := -depth * depth
	if m.IsTactical() {
		o.capture.update(us, m, malus)
		return
	}
	o.quiet.update(us, m, malus)
}

func (o *Orderer) scoreTactical(us board.Color, m board.Move) int32 {
	s := CaptureBonus + o.capture.get(us, m)
	if m.IsCapture() {
		s += seeValue[m.Captured().Type()]
	}
	if m.IsPromotion() {
		s += seeValue[m.Promotion()]
	}
	return int32(s)
}

func (o *Orderer) scoreQuiet(us board.Color, m, prev board.Move, ply int) int32 {
	s := o.quiet.get(us, m)
	if k := o.killers[ply]; m == k[0] || m == k[1] {
		s += KillerBonus
	}
	if m == o.CounterMove(us, prev) {
		s += CounterBonus
	}
	return int32(s)
}
