// Package engine implements the game-tree search: iterative deepening with
// aspiration windows over a principal-variation negamax, quiescence search,
// a two-slot transposition table and staged move ordering.
package engine

import (
	"strings"

	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
	DrawScore = 0

	// scoreInterrupted is returned by interrupted searches. It lies outside
	// [-Infinity, Infinity] so it can never be confused with a real score.
	scoreInterrupted = Infinity + 1
)

// Pruning and reduction parameters
const (
	RFPMarginPerDepth = 85
	RFPMaxDepth       = 6

	FutilityMaxDepth    = 6
	FutilityBase        = 100
	FutilityPerDepth    = 80
	FutilityMovePenalty = 5

	LMRMinDepth      = 3
	LMRMoveThreshold = 3

	NullMoveMinDepth = 3

	DeltaMargin = 200

	AspirationDelta  = 25
	aspirationGrowth = 4

	CheckInterval = 1024
)

// IsMateScore reports whether s encodes a forced mate for either side.
func IsMateScore(s int) bool {
	return s >= MateScore-MaxPly || s <= -MateScore+MaxPly
}

// MateIn converts a mate score to the signed number of moves until mate.
func MateIn(s int) int {
	if s > 0 {
		return (MateScore - s + 1) / 2
	}
	return -(MateScore + s + 1) / 2
}

// Evaluator scores a position from the side to move's perspective.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// TimeManager decides when a running search has to give up.
// ShouldInterruptSearch is polled from inside the tree, ShouldStopAfterFullPly
// once per completed iteration.
type TimeManager interface {
	ShouldInterruptSearch(nodes uint64) bool
	ShouldStopAfterFullPly(depth int) bool
}

// infiniteSearch is implemented by time managers that keep the engine
// searching until it is explicitly interrupted.
type infiniteSearch interface {
	Infinite() bool
}

// ResumeStore persists the deepest finished result per position so a later
// search of the same position can start from it.
type ResumeStore interface {
	Resume(pos *board.Position) (depth, eval int, ok bool)
	Record(pos *board.Position, depth, eval int, pv []board.Move)
}

// SearchStatistics are the counters accumulated since the last reset.
type SearchStatistics struct {
	Nodes       uint64
	QNodes      uint64
	TTHits      uint64
	TTOccupancy float64
	SelDepth    int

	nullMoves uint64
}

// TotalNodes counts main-search and quiescence nodes together.
func (s SearchStatistics) TotalNodes() uint64 {
	return s.Nodes + s.QNodes
}

// RootSearchResult is the outcome of SearchForBestMove.
type RootSearchResult struct {
	PV          []board.Move
	Eval        int
	Interrupted bool
	Depth       int
}

// BestMove returns the first move of the PV, NoMove if there is none.
func (r RootSearchResult) BestMove() board.Move {
	if len(r.PV) == 0 {
		return board.NoMove
	}
	return r.PV[0]
}

// IterationInfo describes one completed iterative-deepening step.
type IterationInfo struct {
	Depth    int
	Eval     int
	PV       []board.Move
	Stats    SearchStatistics
	Partial  bool
	HashFull int
}

// PVString joins moves in UCI notation.
func PVString(pv []board.Move) string {
	parts := make([]string, len(pv))
	for i, m := range pv {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}
