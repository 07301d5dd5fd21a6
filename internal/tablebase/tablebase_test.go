package tablebase

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

const kqk = "4k3/8/8/8/8/8/8/4K2Q w - - 0 1"

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func TestNoopProber(t *testing.T) {
	is := is.New(t)
	var prober NoopProber
	pos := board.NewPosition()

	is.Equal(prober.MaxPieces(), 0)
	is.True(!prober.Probe(pos).Found)
	is.True(!prober.ProbeRoot(pos).Found)
	is.True(!Covers(prober, pos))
	is.True(!Covers(nil, pos))
}

func TestWDLToScore(t *testing.T) {
	tests := []struct {
		wdl  WDL
		ply  int
		want int
	}{
		{WDLWin, 0, TBWinScore},
		{WDLWin, 10, TBWinScore - 10},
		{WDLCursedWin, 3, 1},
		{WDLDraw, 3, 0},
		{WDLBlessedLoss, 3, -1},
		{WDLLoss, 4, -TBWinScore + 4},
	}
	for _, tc := range tests {
		if got := WDLToScore(tc.wdl, tc.ply); got != tc.want {
			t.Errorf("WDLToScore(%s, %d) = %d, want %d", tc.wdl, tc.ply, got, tc.want)
		}
	}
}

func newLichessServer(t *testing.T, body string, status int) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var calls atomic.Int32
	var lastFEN atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastFEN.Store(r.URL.Query().Get("fen"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &lastFEN
}

const kqkResponse = `{
	"category": "win",
	"dtz": 19,
	"moves": [
		{"uci": "h1h5", "category": "loss", "dtz": -18},
		{"uci": "e1d2", "category": "loss", "dtz": -20},
		{"uci": "h1e4", "category": "draw", "dtz": 0},
		{"uci": "a1a9", "category": "loss", "dtz": -1}
	]
}`

func TestLichessProbe(t *testing.T) {
	is := is.New(t)
	srv, calls, lastFEN := newLichessServer(t, kqkResponse, http.StatusOK)
	lp := NewLichessProber(srv.URL, time.Second)
	pos := mustFEN(t, kqk)

	r := lp.Probe(pos)
	is.True(r.Found)
	is.Equal(r.WDL, WDLWin)
	is.Equal(r.DTZ, 19)
	is.Equal(lastFEN.Load().(string), pos.ToFEN())
	is.Equal(calls.Load(), int32(1))
}

func TestLichessProbeRootKeepsBestMoves(t *testing.T) {
	is := is.New(t)
	srv, _, _ := newLichessServer(t, kqkResponse, http.StatusOK)
	lp := NewLichessProber(srv.URL, time.Second)
	pos := mustFEN(t, kqk)

	r := lp.ProbeRoot(pos)
	is.True(r.Found)
	is.Equal(r.WDL, WDLWin)
	is.Equal(len(r.Moves), 2)
	is.Equal(r.Moves[0].String(), "h1h5")
	is.Equal(r.Moves[1].String(), "e1d2")
}

func TestLichessUnavailable(t *testing.T) {
	is := is.New(t)
	srv, calls, _ := newLichessServer(t, `{"error":"not found"}`, http.StatusNotFound)
	lp := NewLichessProber(srv.URL, time.Second)

	is.True(!lp.Probe(mustFEN(t, kqk)).Found)
	is.True(!lp.ProbeRoot(mustFEN(t, kqk)).Found)
	is.Equal(calls.Load(), int32(2))

	// too many pieces never reaches the server
	is.True(!lp.Probe(board.NewPosition()).Found)
	is.Equal(calls.Load(), int32(2))
}

type countingProber struct {
	probes atomic.Int32
	roots  atomic.Int32
	found  bool
}

func (c *countingProber) Probe(*board.Position) ProbeResult {
	c.probes.Add(1)
	return ProbeResult{Found: c.found, WDL: WDLDraw}
}

func (c *countingProber) ProbeRoot(pos *board.Position) RootResult {
	c.roots.Add(1)
	return RootResult{Found: c.found, Moves: []board.Move{pos.GenerateLegalMoves().Get(0)}}
}

func (c *countingProber) MaxPieces() int { return 5 }

func TestCachedProberReusesResults(t *testing.T) {
	is := is.New(t)
	inner := &countingProber{found: true}
	cp, err := NewCachedProber(inner, 128)
	is.NoErr(err)
	defer cp.Close()
	pos := mustFEN(t, kqk)

	is.True(cp.Probe(pos).Found)
	is.True(cp.ProbeRoot(pos).Found)
	cp.Wait()
	is.True(cp.Probe(pos).Found)
	root := cp.ProbeRoot(pos)
	is.Equal(len(root.Moves), 1)

	is.Equal(inner.probes.Load(), int32(1))
	is.Equal(inner.roots.Load(), int32(1))
	is.Equal(cp.HitRate(), 50.0)
	is.Equal(cp.MaxPieces(), 5)

	cp.Clear()
	is.Equal(cp.HitRate(), 0.0)
	cp.Probe(pos)
	is.Equal(inner.probes.Load(), int32(2))
}

func TestCachedProberSkipsMisses(t *testing.T) {
	is := is.New(t)
	inner := &countingProber{}
	cp, err := NewCachedProber(inner, 128)
	is.NoErr(err)
	defer cp.Close()
	pos := mustFEN(t, kqk)

	cp.Probe(pos)
	cp.Wait()
	cp.Probe(pos)
	is.Equal(inner.probes.Load(), int32(2))
}
