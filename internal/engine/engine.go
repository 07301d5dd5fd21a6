package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/eval"
	"github.com/hailam/chesscore/internal/tablebase"
)

// Options configure a new Engine.
type Options struct {
	HashMB        int
	CheckInterval int
	PawnHashKB    int
}

// DefaultOptions are used for zero fields of the Options passed to New.
var DefaultOptions = Options{
	HashMB:        64,
	CheckInterval: CheckInterval,
	PawnHashKB:    1024,
}

// Engine is the search facade. One search runs at a time; InterruptSearch
// is the only method that may be called while SearchForBestMove runs.
type Engine struct {
	tt      *TranspositionTable
	orderer *Orderer
	eval    Evaluator
	tm      TimeManager
	prober  tablebase.Prober
	store   ResumeStore
	cancel  *Canceller
	stats   SearchStatistics

	// AspirationWindow is the initial half-width of the aspiration window,
	// 0 searches every iteration with a full window.
	AspirationWindow int

	// OnIteration is called after every completed depth and for a partial
	// result accepted after an interruption.
	OnIteration func(IterationInfo)

	resume resumeRecord
}

type resumeRecord struct {
	hash  uint64
	depth int
	eval  int
}

// New creates an engine with the default evaluator.
func New(opts Options) *Engine {
	if opts.HashMB <= 0 {
		opts.HashMB = DefaultOptions.HashMB
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultOptions.CheckInterval
	}
	if opts.PawnHashKB <= 0 {
		opts.PawnHashKB = DefaultOptions.PawnHashKB
	}
	return &Engine{
		tt:               NewTranspositionTable(opts.HashMB),
		orderer:          NewOrderer(),
		eval:             eval.New(opts.PawnHashKB),
		cancel:           NewCanceller(opts.CheckInterval),
		AspirationWindow: AspirationDelta,
	}
}

// SetEvaluator replaces the static evaluation.
func (e *Engine) SetEvaluator(ev Evaluator) { e.eval = ev }

// SetTimeManager installs the collaborator deciding when to stop. nil
// searches until the depth ceiling or an explicit interrupt.
func (e *Engine) SetTimeManager(tm TimeManager) {
	e.tm = tm
	e.cancel.tm = tm
}

// SetProber installs an endgame tablebase consulted at the root.
func (e *Engine) SetProber(p tablebase.Prober) { e.prober = p }

// SetResumeStore installs persistent storage for finished results.
func (e *Engine) SetResumeStore(s ResumeStore) { e.store = s }

// SetTableSize reallocates the transposition table.
func (e *Engine) SetTableSize(mb int) {
	e.tt.Resize(mb)
	e.resume = resumeRecord{}
}

// NewGame forgets everything learned from previous positions.
func (e *Engine) NewGame() {
	e.tt.Clear()
	e.orderer.Clear()
	e.resume = resumeRecord{}
	if ev, ok := e.eval.(*eval.Evaluator); ok {
		ev.PawnTable().Clear()
	}
}

// PrepareForNewSearch ages the tables and clears a pending interrupt. Call
// it before every SearchForBestMove.
func (e *Engine) PrepareForNewSearch(pos *board.Position) {
	e.cancel.Reset()
	e.tt.NewSearch()
	e.orderer.Age(pos)
}

// InterruptSearch stops the running search as soon as possible. The search
// still returns its best result so far.
func (e *Engine) InterruptSearch() {
	e.cancel.Interrupt()
}

// SearchStatistics returns the counters accumulated since the last reset.
func (e *Engine) SearchStatistics() SearchStatistics {
	st := e.stats
	st.TTOccupancy = e.tt.Occupancy()
	return st
}

// ResetSearchStatistics zeroes the counters.
func (e *Engine) ResetSearchStatistics() {
	e.stats = SearchStatistics{}
}

// SearchForBestMove runs iterative deepening on pos up to depth plies.
// evalGuess centres the first aspiration window; when nil, a previous
// result for the same position is resumed if one is known.
func (e *Engine) SearchForBestMove(pos *board.Position, depth int, evalGuess *int) RootSearchResult {
	depth = max(1, min(depth, MaxPly-1))
	start := time.Now()

	s := &Searcher{
		pos:     pos.Copy(),
		tt:      e.tt,
		orderer: e.orderer,
		eval:    e.eval,
		cancel:  e.cancel,
		stats:   &e.stats,
	}

	legal := pos.GenerateLegalMoves()
	if legal.Len() == 0 {
		ev := DrawScore
		if pos.InCheck() {
			ev = -MateScore
		}
		return RootSearchResult{Eval: ev}
	}
	tb := e.probeRoot(pos)
	if tb.Found {
		s.rootMoves = tb.Moves
	}

	var result RootSearchResult
	startDepth, center, haveCenter := 1, 0, false
	switch {
	case evalGuess != nil:
		center, haveCenter = *evalGuess, true
	default:
		if d, ev, ok := e.lookupResume(pos); ok {
			center, haveCenter = ev, true
			if pv := e.walkPV(pos, min(d, depth)); len(pv) > 0 && s.rootMoves == nil {
				result = RootSearchResult{PV: pv, Eval: ev, Depth: d}
				startDepth = d + 1
				if d >= depth {
					// already searched deep enough
					e.notify(result, false)
				}
			}
		}
	}

	for d := startDepth; d <= depth; d++ {
		s.rootBest = board.NoMove
		score, failedLow, ok := e.aspirate(s, d, center, haveCenter || d > 1)
		if !ok {
			if !failedLow && s.rootBest != board.NoMove {
				pv := e.walkPV(pos, d)
				if len(pv) == 0 || pv[0] != s.rootBest {
					pv = []board.Move{s.rootBest}
				}
				result = RootSearchResult{PV: pv, Eval: s.rootScore, Depth: d}
				e.notify(result, true)
			}
			result.Interrupted = true
			break
		}

		result = RootSearchResult{PV: e.walkPV(pos, d), Eval: score, Depth: d}
		if len(result.PV) == 0 && s.rootBest != board.NoMove {
			result.PV = []board.Move{s.rootBest}
		}
		center, haveCenter = score, true
		e.remember(pos, result)
		e.notify(result, false)

		if e.tm != nil && e.tm.ShouldStopAfterFullPly(d) {
			break
		}
		if e.cancel.Stopped() {
			result.Interrupted = true
			break
		}
	}

	if !result.Interrupted && e.infinite() {
		e.cancel.Wait()
	}

	if len(result.PV) == 0 {
		// interrupted before the first iteration finished
		result.PV = []board.Move{legal.Get(0)}
		if s.rootMoves != nil {
			result.PV = []board.Move{s.rootMoves[0]}
		}
	}
	if tb.Found && !IsMateScore(result.Eval) {
		result.Eval = tablebase.WDLToScore(tb.WDL, 0)
	}

	log.Debug().
		Int("depth", result.Depth).
		Int("eval", result.Eval).
		Bool("interrupted", result.Interrupted).
		Uint64("nodes", e.stats.TotalNodes()).
		Dur("elapsed", time.Since(start)).
		Str("pv", PVString(result.PV)).
		Msg("search finished")
	return result
}

// aspirate searches one depth, starting from a narrow window around center
// and widening the failing side until the score falls inside.
func (e *Engine) aspirate(s *Searcher, depth, center int, narrow bool) (score int, failedLow, ok bool) {
	alpha, beta := -Infinity, Infinity
	lowTol, highTol := e.AspirationWindow, e.AspirationWindow
	if narrow && e.AspirationWindow > 0 {
		alpha = max(center-lowTol, -Infinity)
		beta = min(center+highTol, Infinity)
	}

	for {
		score = s.search(depth, 0, alpha, beta, board.NoMove, noNullMove)
		if s.stopped() {
			return 0, failedLow, false
		}

		switch {
		case score <= alpha && alpha > -Infinity:
			failedLow = true
			lowTol *= aspirationGrowth
			if IsMateScore(score) {
				alpha = -Infinity
			} else {
				alpha = max(center-lowTol, -Infinity)
			}
		case score >= beta && beta < Infinity:
			highTol *= aspirationGrowth
			if IsMateScore(score) {
				beta = Infinity
			} else {
				beta = min(center+highTol, Infinity)
			}
		default:
			return score, failedLow, true
		}
		log.Trace().Int("depth", depth).Int("alpha", alpha).Int("beta", beta).Msg("aspiration re-search")
	}
}

// probeRoot asks the tablebase for the best root moves. The result is only
// Found when it names at least one move.
func (e *Engine) probeRoot(pos *board.Position) tablebase.RootResult {
	if !tablebase.Covers(e.prober, pos) {
		return tablebase.RootResult{}
	}
	r := e.prober.ProbeRoot(pos)
	if !r.Found || len(r.Moves) == 0 {
		return tablebase.RootResult{}
	}
	log.Debug().Str("wdl", r.WDL.String()).Int("moves", len(r.Moves)).Msg("tablebase restricts root moves")
	return r
}

func (e *Engine) infinite() bool {
	inf, ok := e.tm.(infiniteSearch)
	return ok && inf.Infinite()
}

func (e *Engine) lookupResume(pos *board.Position) (depth, ev int, ok bool) {
	if e.resume.hash == pos.Hash && e.resume.depth > 0 {
		return e.resume.depth, e.resume.eval, true
	}
	if e.store != nil {
		return e.store.Resume(pos)
	}
	return 0, 0, false
}

func (e *Engine) remember(pos *board.Position, r RootSearchResult) {
	e.resume = resumeRecord{hash: pos.Hash, depth: r.Depth, eval: r.Eval}
	if e.store != nil {
		e.store.Record(pos, r.Depth, r.Eval, r.PV)
	}
}

func (e *Engine) notify(r RootSearchResult, partial bool) {
	if e.OnIteration == nil {
		return
	}
	e.OnIteration(IterationInfo{
		Depth:    r.Depth,
		Eval:     r.Eval,
		PV:       r.PV,
		Stats:    e.SearchStatistics(),
		Partial:  partial,
		HashFull: e.tt.HashFull(),
	})
}
