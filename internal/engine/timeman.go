package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Limits are the search constraints of a UCI "go" command.
type Limits struct {
	Time      [2]time.Duration // wtime, btime
	Inc       [2]time.Duration // winc, binc
	MovesToGo int              // 0 = sudden death
	MoveTime  time.Duration    // fixed time per move, overrides the clock
	Depth     int
	Nodes     uint64
	Infinite  bool
}

// ClockManager is the TimeManager driven by the UCI clock. It splits the
// remaining time into an optimum, checked between iterations, and a hard
// maximum checked from inside the tree.
type ClockManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time

	nodes    uint64
	depth    int
	infinite bool
	timed    bool

	lastBest  board.Move
	stability int
	baseOpt   time.Duration
}

// NewClockManager starts the clock for a search by us at game ply.
func NewClockManager(limits Limits, us board.Color, ply int) *ClockManager {
	tm := &ClockManager{
		startTime: time.Now(),
		nodes:     limits.Nodes,
		depth:     limits.Depth,
		infinite:  limits.Infinite,
	}

	switch {
	case limits.Infinite:
		return tm
	case limits.MoveTime > 0:
		tm.timed = true
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		tm.baseOpt = tm.optimumTime
		return tm
	case limits.Time[us] == 0:
		// depth or node limited only
		return tm
	}
	tm.timed = true

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]

	mtg := limits.MovesToGo
	if mtg == 0 {
		// fewer moves expected as the game goes on
		mtg = max(10, min(50, 50-ply/4))
	}

	tm.optimumTime = timeLeft/time.Duration(mtg) + inc*9/10
	if ply < 8 {
		tm.optimumTime = tm.optimumTime * 85 / 100
	}

	// 5x optimum, at most 80% of what is left
	tm.maximumTime = min(tm.optimumTime*5, timeLeft*8/10, timeLeft*95/100)

	tm.optimumTime = max(tm.optimumTime, 10*time.Millisecond)
	tm.maximumTime = max(tm.maximumTime, 50*time.Millisecond)
	tm.baseOpt = tm.optimumTime
	return tm
}

// Elapsed returns the time since the search started.
func (tm *ClockManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

func (tm *ClockManager) OptimumTime() time.Duration { return tm.optimumTime }
func (tm *ClockManager) MaximumTime() time.Duration { return tm.maximumTime }

// Infinite keeps the engine waiting for "stop" once its depth ceiling is hit.
func (tm *ClockManager) Infinite() bool {
	return tm.infinite
}

// ShouldInterruptSearch implements TimeManager.
func (tm *ClockManager) ShouldInterruptSearch(nodes uint64) bool {
	if tm.nodes > 0 && nodes >= tm.nodes {
		return true
	}
	return tm.timed && tm.Elapsed() >= tm.maximumTime
}

// ShouldStopAfterFullPly implements TimeManager. Starting another iteration
// past 60% of the optimum rarely finishes it in time.
func (tm *ClockManager) ShouldStopAfterFullPly(depth int) bool {
	if tm.infinite {
		return false
	}
	if tm.depth > 0 && depth >= tm.depth {
		return true
	}
	return tm.timed && tm.Elapsed() >= tm.optimumTime*6/10
}

// ObserveIteration shortens the optimum while the best move stays the same
// and stretches it while the best move keeps changing.
func (tm *ClockManager) ObserveIteration(best board.Move) {
	if !tm.timed || tm.baseOpt == tm.maximumTime {
		return
	}
	if best == tm.lastBest {
		tm.stability++
	} else {
		tm.stability = 0
		tm.lastBest = best
	}

	switch {
	case tm.stability >= 6:
		tm.optimumTime = tm.baseOpt * 40 / 100
	case tm.stability >= 4:
		tm.optimumTime = tm.baseOpt * 60 / 100
	case tm.stability >= 2:
		tm.optimumTime = tm.baseOpt * 80 / 100
	default:
		tm.optimumTime = min(tm.baseOpt*150/100, tm.maximumTime)
	}
}
