// Package tablebase looks up endgame positions in precomputed win/draw/loss
// tables.
package tablebase

import (
	"errors"

	"github.com/hailam/chesscore/internal/board"
)

// ErrNotAvailable is returned when no table covers the position.
var ErrNotAvailable = errors.New("tablebase not available")

// WDL represents Win/Draw/Loss result.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // loss, but the 50-move rule saves it
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // win, but the 50-move rule spoils it
	WDLWin         WDL = 2
)

func (w WDL) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed-loss"
	case WDLCursedWin:
		return "cursed-win"
	case WDLWin:
		return "win"
	}
	return "draw"
}

// ProbeResult contains the result of a tablebase probe.
type ProbeResult struct {
	Found bool
	WDL   WDL
	DTZ   int // distance to zeroing move (pawn move or capture)
}

// RootResult lists the root moves that keep the best reachable outcome.
type RootResult struct {
	Found bool
	Moves []board.Move // best first
	WDL   WDL
	DTZ   int
}

// Prober is the interface for tablebase probing. Results are from the side
// to move's point of view.
type Prober interface {
	// Probe looks up a position in the tablebase.
	Probe(pos *board.Position) ProbeResult

	// ProbeRoot classifies every legal move and returns those preserving
	// the best result. More expensive than Probe.
	ProbeRoot(pos *board.Position) RootResult

	// MaxPieces returns the largest piece count, kings included, covered.
	MaxPieces() int
}

// TBWinScore sits below every mate score so a forced mate is still
// preferred over a tablebase win.
const TBWinScore = 20000

// WDLToScore converts a WDL result to a search score.
func WDLToScore(wdl WDL, ply int) int {
	switch wdl {
	case WDLWin:
		return TBWinScore - ply
	case WDLCursedWin:
		return 1
	case WDLBlessedLoss:
		return -1
	case WDLLoss:
		return -TBWinScore + ply
	default:
		return 0
	}
}

// NoopProber never finds anything.
type NoopProber struct{}

func (NoopProber) Probe(*board.Position) ProbeResult    { return ProbeResult{} }
func (NoopProber) ProbeRoot(*board.Position) RootResult { return RootResult{} }
func (NoopProber) MaxPieces() int                       { return 0 }

// Covers reports whether p can answer for pos at all.
func Covers(p Prober, pos *board.Position) bool {
	return p != nil && pos.PieceCount() <= p.MaxPieces()
}
