package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"lukechampine.com/frand"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/eval"
	"github.com/hailam/chesscore/internal/tablebase"
)

func newTestEngine(ev Evaluator) *Engine {
	e := New(Options{HashMB: 8})
	if ev != nil {
		e.SetEvaluator(ev)
	}
	return e
}

func search(e *Engine, pos *board.Position, depth int) RootSearchResult {
	e.PrepareForNewSearch(pos)
	return e.SearchForBestMove(pos, depth, nil)
}

func assertLegalPV(t *testing.T, pos *board.Position, pv []board.Move) {
	t.Helper()
	cur := pos.Copy()
	for i, m := range pv {
		if !cur.GenerateLegalMoves().Contains(m) {
			t.Fatalf("pv move %d (%s) is illegal in %s", i, m, cur.ToFEN())
		}
		cur.MakeMove(m)
	}
}

func TestStartPositionDepthOne(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	e := newTestEngine(eval.Material{})

	res := search(e, pos, 1)
	is.Equal(res.Eval, 0)
	is.True(!res.Interrupted)
	is.Equal(res.Depth, 1)
	is.True(len(res.PV) > 0)
	assertLegalPV(t, pos, res.PV)
}

func TestFindsMateInOne(t *testing.T) {
	is := is.New(t)
	for _, fen := range []string{
		"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1",
		"6k1/8/6K1/8/8/8/8/R7 w - - 0 1",
	} {
		pos := mustFEN(t, fen)
		for depth := 1; depth <= 4; depth++ {
			e := newTestEngine(nil)
			res := search(e, pos, depth)
			is.Equal(res.BestMove().String(), "a1a8")
			is.Equal(res.Eval, MateScore-1)
			is.Equal(MateIn(res.Eval), 1)
		}
	}
}

func TestFindsMateInTwo(t *testing.T) {
	is := is.New(t)
	// 1.Rd8+ Rxd8 2.Rxd8#
	pos := mustFEN(t, "1r4k1/5ppp/8/8/8/8/3R1PPP/3R2K1 w - - 0 1")
	res := search(newTestEngine(nil), pos, 4)
	is.Equal(res.BestMove().String(), "d2d8")
	is.Equal(res.Eval, MateScore-3)
	is.Equal(MateIn(res.Eval), 2)
	is.True(len(res.PV) >= 3)
	assertLegalPV(t, pos, res.PV)
}

func TestMatedPositionHasNoMove(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1")
	res := search(newTestEngine(nil), pos, 3)
	is.Equal(len(res.PV), 0)
	is.Equal(res.Eval, -MateScore)
}

func TestWinsHangingQueen(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, "4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1")
	res := search(newTestEngine(eval.Material{}), pos, 3)
	is.Equal(res.BestMove().String(), "d2d5")
	is.True(res.Eval > 400)
}

func TestAvoidsStalemateWhenWinning(t *testing.T) {
	is := is.New(t)
	// Qg6 stalemates; everything else keeps a won position
	pos := mustFEN(t, "7k/8/5K2/8/8/8/8/6Q1 w - - 0 1")
	res := search(newTestEngine(nil), pos, 3)
	is.True(res.BestMove().String() != "g1g6")
	is.True(res.Eval > 500)
}

func TestRepetitionIsDraw(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		m, err := board.ParseMove(s, pos)
		is.NoErr(err)
		pos.MakeMove(m)
	}
	is.Equal(pos.RepetitionCount(), 1)

	s := newSearcher(newTestEngine(eval.Material{}), pos)
	is.Equal(s.search(3, 1, -Infinity, Infinity, board.NoMove, noNullMove), DrawScore)
}

func newSearcher(e *Engine, pos *board.Position) *Searcher {
	return &Searcher{pos: pos, tt: e.tt, orderer: e.orderer, eval: e.eval, cancel: e.cancel, stats: &e.stats}
}

var exactnessCases = []struct {
	fen      string
	maxDepth int
}{
	{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", 3},
	{"8/8/3k4/8/8/2P5/2K5/8 b - - 0 1", 3},
	{board.StartFEN, 3},
}

func TestScoreInsideWindowIsExact(t *testing.T) {
	for _, tc := range exactnessCases {
		for depth := 1; depth <= tc.maxDepth; depth++ {
			full := rawSearch(t, tc.fen, depth, -Infinity, Infinity)
			for _, w := range []int{1, 10, 60} {
				for _, c := range []int{full - w/2, full, full + w/2} {
					alpha, beta := c-w, c+w
					got := rawSearch(t, tc.fen, depth, alpha, beta)
					if got > alpha && got < beta && got != full {
						t.Errorf("%s depth %d window (%d, %d): got %d, full window %d",
							tc.fen, depth, alpha, beta, got, full)
					}
				}
			}
		}
	}
}

func rawSearch(t *testing.T, fen string, depth, alpha, beta int) int {
	t.Helper()
	pos := mustFEN(t, fen)
	e := newTestEngine(nil)
	e.PrepareForNewSearch(pos)
	return newSearcher(e, pos).search(depth, 0, alpha, beta, board.NoMove, noNullMove)
}

// tacticalFEN has pins on both sides and captures on several squares.
const tacticalFEN = "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 1"

var aspirationCases = []struct {
	fen      string
	eval     Evaluator
	maxDepth int
}{
	{board.StartFEN, eval.Material{}, 4},
	{board.StartFEN, nil, 3},
	{tacticalFEN, nil, 2},
	{"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", nil, 4},
	{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", nil, 4},
	{"4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1", eval.Material{}, 4},
}

func TestAspirationMatchesFullWindow(t *testing.T) {
	for _, tc := range aspirationCases {
		for depth := 1; depth <= tc.maxDepth; depth++ {
			pos := mustFEN(t, tc.fen)

			narrow := newTestEngine(tc.eval)
			full := newTestEngine(tc.eval)
			full.AspirationWindow = 0

			a := search(narrow, pos, depth)
			b := search(full, pos, depth)
			if a.Eval != b.Eval {
				t.Errorf("%s depth %d: aspiration %d, full window %d", tc.fen, depth, a.Eval, b.Eval)
			}
		}
	}
}

func TestDeepeningAgreesWithSingleSearch(t *testing.T) {
	is := is.New(t)
	single := rawSearch(t, tacticalFEN, 2, -Infinity, Infinity)

	full := newTestEngine(nil)
	full.AspirationWindow = 0
	is.Equal(search(full, mustFEN(t, tacticalFEN), 2).Eval, single)
	is.Equal(search(newTestEngine(nil), mustFEN(t, tacticalFEN), 2).Eval, single)
}

func TestSkippedCaptureBoundsQuiescence(t *testing.T) {
	is := is.New(t)
	// exd5 wins a pawn, far too little to reach an alpha 400 above stand-pat
	const fen = "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1"

	fresh := newSearcher(newTestEngine(nil), mustFEN(t, fen))
	standPat := fresh.evaluate()
	want := fresh.quiescence(0, -Infinity, Infinity)
	is.True(want > standPat)

	e := newTestEngine(nil)
	s := newSearcher(e, mustFEN(t, fen))
	alpha := standPat + 400
	is.True(s.quiescence(0, alpha, alpha+1) <= alpha)

	entry, ok := e.tt.Probe(s.pos.Hash)
	is.True(ok)
	is.Equal(entry.Kind, ScoreUpperBound)
	is.True(int(entry.Score) >= want)

	// a later full window search still sees the pawn
	is.Equal(s.quiescence(0, -Infinity, Infinity), want)
}

func TestEvalGuessCentresWindow(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	guess := 500 // far off, forces re-searches
	e := newTestEngine(eval.Material{})
	e.PrepareForNewSearch(pos)
	res := e.SearchForBestMove(pos, 2, &guess)
	is.Equal(res.Eval, 0)
	is.True(!res.Interrupted)
}

// randomPawnEnding places both kings and a few pawns at random.
func randomPawnEnding(t *testing.T) *board.Position {
	t.Helper()
	for {
		var sq [64]byte
		put := func(c byte, lo, hi int) {
			for {
				s := lo + frand.Intn(hi-lo)
				if sq[s] == 0 {
					sq[s] = c
					return
				}
			}
		}
		put('K', 0, 64)
		put('k', 0, 64)
		for range 1 + frand.Intn(4) {
			put('P', 8, 56)
		}
		for range 1 + frand.Intn(4) {
			put('p', 8, 56)
		}

		var sb strings.Builder
		for rank := 7; rank >= 0; rank-- {
			empty := 0
			for file := range 8 {
				c := sq[rank*8+file]
				if c == 0 {
					empty++
					continue
				}
				if empty > 0 {
					fmt.Fprint(&sb, empty)
					empty = 0
				}
				sb.WriteByte(c)
			}
			if empty > 0 {
				fmt.Fprint(&sb, empty)
			}
			if rank > 0 {
				sb.WriteByte('/')
			}
		}
		side := "w"
		if frand.Intn(2) == 1 {
			side = "b"
		}
		pos, err := board.ParseFEN(sb.String() + " " + side + " - - 0 1")
		if err == nil {
			return pos
		}
	}
}

func TestNoNullMoveWithoutPieces(t *testing.T) {
	for range 20 {
		pos := randomPawnEnding(t)
		e := newTestEngine(nil)
		search(e, pos, 5)
		if n := e.stats.nullMoves; n != 0 {
			t.Fatalf("%s: %d null moves tried in a pawn ending", pos.ToFEN(), n)
		}
	}

	// and they are tried once pieces are on the board
	e := newTestEngine(nil)
	search(e, board.NewPosition(), 6)
	if e.stats.nullMoves == 0 {
		t.Fatal("no null move tried from the start position")
	}
}

func TestInterruptFromAnotherGoroutine(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	e := newTestEngine(nil)
	e.PrepareForNewSearch(pos)

	done := make(chan RootSearchResult)
	go func() {
		done <- e.SearchForBestMove(pos, MaxPly, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	e.InterruptSearch()

	select {
	case res := <-done:
		is.True(res.Interrupted)
		is.True(len(res.PV) > 0)
		assertLegalPV(t, pos, res.PV)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop after interrupt")
	}
}

func TestInterruptBeforeFirstIterationStillReturnsMove(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	e := newTestEngine(nil)
	e.PrepareForNewSearch(pos)
	e.InterruptSearch()

	res := e.SearchForBestMove(pos, 10, nil)
	is.True(res.Interrupted)
	is.Equal(len(res.PV), 1)
	assertLegalPV(t, pos, res.PV)
}

func TestNodeLimitStopsSearch(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	e := newTestEngine(nil)
	e.SetTimeManager(NewClockManager(Limits{Nodes: 20000}, board.White, 0))

	res := search(e, pos, MaxPly)
	is.True(res.Interrupted)
	is.True(e.SearchStatistics().TotalNodes() <= 20000+CheckInterval)
	assertLegalPV(t, pos, res.PV)
}

func TestInfiniteSearchWaitsForStop(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	e := newTestEngine(nil)
	e.SetTimeManager(NewClockManager(Limits{Infinite: true}, board.White, 0))
	e.PrepareForNewSearch(pos)

	done := make(chan RootSearchResult, 1)
	go func() {
		done <- e.SearchForBestMove(pos, 2, nil)
	}()

	select {
	case <-done:
		t.Fatal("infinite search returned before stop")
	case <-time.After(200 * time.Millisecond):
	}

	e.InterruptSearch()
	select {
	case res := <-done:
		is.Equal(res.Depth, 2)
		is.True(len(res.PV) > 0)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not return after stop")
	}
}

func TestIterationCallback(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	e := newTestEngine(nil)

	var depths []int
	e.OnIteration = func(info IterationInfo) {
		depths = append(depths, info.Depth)
		assertLegalPV(t, pos, info.PV)
	}
	search(e, pos, 4)
	is.Equal(depths, []int{1, 2, 3, 4})

	st := e.SearchStatistics()
	is.True(st.Nodes > 0)
	is.True(st.QNodes > 0)
	is.True(st.SelDepth >= 4)
	is.True(st.TTOccupancy > 0)

	e.ResetSearchStatistics()
	is.Equal(e.SearchStatistics().Nodes, uint64(0))
}

type memoryStore struct {
	depth, eval int
	saved       int
}

func (m *memoryStore) Resume(*board.Position) (int, int, bool) {
	return m.depth, m.eval, m.depth > 0
}

func (m *memoryStore) Record(_ *board.Position, depth, eval int, _ []board.Move) {
	m.depth, m.eval = depth, eval
	m.saved++
}

func TestResumesPreviousSearch(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	store := &memoryStore{}
	e := newTestEngine(nil)
	e.SetResumeStore(store)

	var first []int
	e.OnIteration = func(info IterationInfo) { first = append(first, info.Depth) }
	res := search(e, pos, 3)
	is.Equal(store.depth, 3)
	is.Equal(store.saved, 3)
	is.Equal(first, []int{1, 2, 3})

	// the same engine resumes at depth 4 from the table
	var second []int
	e.OnIteration = func(info IterationInfo) { second = append(second, info.Depth) }
	res = search(e, pos, 5)
	is.Equal(second, []int{4, 5})
	is.Equal(res.Depth, 5)
	assertLegalPV(t, pos, res.PV)

	// NewGame clears the table, the stored eval is still used as a guess
	e.NewGame()
	second = nil
	search(e, pos, 2)
	is.Equal(second, []int{1, 2})
}

type fixedProber struct {
	moves []board.Move
}

func (p fixedProber) Probe(*board.Position) tablebase.ProbeResult {
	return tablebase.ProbeResult{}
}

func (p fixedProber) ProbeRoot(*board.Position) tablebase.RootResult {
	return tablebase.RootResult{Found: true, WDL: tablebase.WDLWin, Moves: p.moves}
}

func (p fixedProber) MaxPieces() int { return 5 }

func TestTablebaseRestrictsRootMoves(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	only, err := board.ParseMove("e1d1", pos)
	is.NoErr(err)

	e := newTestEngine(nil)
	e.SetProber(fixedProber{moves: []board.Move{only}})
	res := search(e, pos, 4)
	is.Equal(res.BestMove(), only)
	is.Equal(res.Eval, tablebase.TBWinScore)

	// too many pieces for the prober
	start := board.NewPosition()
	res = search(e, start, 1)
	is.True(res.BestMove() != board.NoMove)
}

// interruptingEval scores positions with white to move as 0 and black to
// move as black, and interrupts the search on its stopAt-th call.
type interruptingEval struct {
	cancel *Canceller
	stopAt int
	black  int
	calls  int
}

func (ev *interruptingEval) Evaluate(pos *board.Position) int {
	ev.calls++
	if ev.calls == ev.stopAt {
		ev.cancel.Interrupt()
	}
	if pos.SideToMove == board.Black {
		return ev.black
	}
	return 0
}

// bareKings leaves every root move at depth 1 with a capture-free
// quiescence node, one evaluation each.
const bareKings = "4k3/8/8/8/8/8/8/4K3 w - - 0 1"

func TestInterruptedSearchStoreRules(t *testing.T) {
	tests := []struct {
		name        string
		stopAt      int
		alpha, beta int
		stored      bool
		kind        ScoreKind
	}{
		{"no move finished", 1, -Infinity, Infinity, false, 0},
		{"alpha raised", 2, -Infinity, Infinity, true, ScoreLowerBound},
		{"alpha not raised", 2, 100, 200, true, ScoreUnset},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			pos := mustFEN(t, bareKings)
			e := newTestEngine(nil)
			e.SetEvaluator(&interruptingEval{cancel: e.cancel, stopAt: tc.stopAt})
			e.PrepareForNewSearch(pos)

			is.Equal(newSearcher(e, pos).search(1, 0, tc.alpha, tc.beta, board.NoMove, noNullMove), scoreInterrupted)
			entry, ok := e.tt.Probe(pos.Hash)
			is.Equal(ok, tc.stored)
			if ok {
				is.Equal(entry.Kind, tc.kind)
				is.Equal(int(entry.Depth), 1)
			}
		})
	}
}

func TestInterruptedQuiescenceStoreRules(t *testing.T) {
	// cxb5 and cxd5 both leave black without a capture
	const fen = "4k3/8/8/1p1p4/2P5/8/8/4K3 w - - 0 1"
	tests := []struct {
		name   string
		stopAt int
		black  int
		stored bool
		kind   ScoreKind
	}{
		{"no move finished", 2, 0, false, 0},
		{"alpha raised", 3, -10, true, ScoreLowerBound},
		{"alpha not raised", 3, 0, true, ScoreUnset},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			pos := mustFEN(t, fen)
			e := newTestEngine(nil)
			e.SetEvaluator(&interruptingEval{cancel: e.cancel, stopAt: tc.stopAt, black: tc.black})
			e.PrepareForNewSearch(pos)

			is.Equal(newSearcher(e, pos).quiescence(0, -Infinity, Infinity), scoreInterrupted)
			entry, ok := e.tt.Probe(pos.Hash)
			is.Equal(ok, tc.stored)
			if ok {
				is.Equal(entry.Kind, tc.kind)
			}
		})
	}
}

func TestInterruptAfterFailLowDropsPartialResult(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, bareKings)
	n := pos.GenerateLegalMoves().Len()

	e := newTestEngine(nil)
	// a guess of 500 fails low three times before the window reaches the
	// real score of 0; the stop lands on the second move of the fourth try
	e.SetEvaluator(&interruptingEval{cancel: e.cancel, stopAt: 3*n + 2})
	partial := false
	e.OnIteration = func(info IterationInfo) { partial = partial || info.Partial }
	e.PrepareForNewSearch(pos)

	guess := 500
	res := e.SearchForBestMove(pos, 3, &guess)
	is.True(res.Interrupted)
	is.Equal(res.Depth, 0)
	is.True(!partial)
	is.Equal(len(res.PV), 1)
	assertLegalPV(t, pos, res.PV)
}

func TestInterruptWithoutFailLowKeepsPartialResult(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, bareKings)

	e := newTestEngine(nil)
	e.SetEvaluator(&interruptingEval{cancel: e.cancel, stopAt: 2})
	partial := false
	e.OnIteration = func(info IterationInfo) { partial = partial || info.Partial }
	e.PrepareForNewSearch(pos)

	res := e.SearchForBestMove(pos, 3, nil)
	is.True(res.Interrupted)
	is.Equal(res.Depth, 1)
	is.True(partial)
	is.Equal(len(res.PV), 1)
	assertLegalPV(t, pos, res.PV)
}

func TestResumeDeepEnoughSkipsSearch(t *testing.T) {
	is := is.New(t)
	pos := board.NewPosition()
	e := newTestEngine(nil)
	first := search(e, pos, 4)

	e.ResetSearchStatistics()
	var depths []int
	e.OnIteration = func(info IterationInfo) { depths = append(depths, info.Depth) }
	res := search(e, pos, 3)
	is.Equal(res.Depth, 4)
	is.Equal(res.Eval, first.Eval)
	is.Equal(res.BestMove(), first.BestMove())
	is.Equal(depths, []int{4})
	is.Equal(e.SearchStatistics().TotalNodes(), uint64(0))
	assertLegalPV(t, pos, res.PV)
}
