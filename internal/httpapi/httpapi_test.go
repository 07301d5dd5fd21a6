package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/tablebase"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func newServer() http.Handler {
	return New(engine.New(engine.Options{HashMB: 1}), 32).Routes()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestAnalyseFindsMate(t *testing.T) {
	rec := post(t, newServer(), `{"fen": "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "depth": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp AnalyseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "a1a8", resp.BestMove)
	require.Equal(t, 3, resp.Depth)
	require.Equal(t, engine.MateScore-1, resp.Eval)
	require.NotNil(t, resp.Mate)
	require.Equal(t, 1, *resp.Mate)
	require.False(t, resp.Interrupted)
	require.NotZero(t, resp.Nodes)
}

func TestAnalyseMatedPosition(t *testing.T) {
	rec := post(t, newServer(), `{"fen": "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", "depth": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalyseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "0000", resp.BestMove)
	require.Empty(t, resp.PV)
	require.Equal(t, -engine.MateScore, resp.Eval)
}

func TestAnalyseMoveTime(t *testing.T) {
	rec := post(t, newServer(), `{"fen": "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3", "movetime_ms": 50}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalyseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEqual(t, "0000", resp.BestMove)
	require.NotEmpty(t, resp.PV)
	require.Less(t, resp.ElapsedMs, int64(2000))
}

func TestAnalyseRejectsBadInput(t *testing.T) {
	h := newServer()
	for _, body := range []string{
		`{"fen": "not a fen"}`,
		`{"fen": `,
		`{"fen": "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "depth": -1}`,
	} {
		rec := post(t, h, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.Contains(t, rec.Body.String(), "error")
	}
}

func TestClearHash(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/hash", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"cleared": true}`, rec.Body.String())
}

type drawProber struct{}

func (drawProber) Probe(*board.Position) tablebase.ProbeResult {
	return tablebase.ProbeResult{Found: true, WDL: tablebase.WDLDraw}
}

func (drawProber) ProbeRoot(*board.Position) tablebase.RootResult { return tablebase.RootResult{} }

func (drawProber) MaxPieces() int { return 5 }

func TestAnalyseReportsTablebase(t *testing.T) {
	h := New(engine.New(engine.Options{HashMB: 1}), 32).WithProber(drawProber{}).Routes()

	var resp AnalyseResponse
	rec := post(t, h, `{"fen": "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", "depth": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "draw", resp.Tablebase)

	// too many pieces for the prober
	resp = AnalyseResponse{}
	rec = post(t, h, `{"fen": "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "depth": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Tablebase)
}

func TestCancelledRequestStopsSearch(t *testing.T) {
	eng := engine.New(engine.Options{HashMB: 1})
	pos := board.NewPosition()
	eng.PrepareForNewSearch(pos)

	ctx, cancel := context.WithCancel(context.Background())
	stop := interruptOnDone(ctx, eng)
	defer stop()
	cancel()

	done := make(chan engine.RootSearchResult, 1)
	go func() { done <- eng.SearchForBestMove(pos, engine.MaxPly-1, nil) }()
	select {
	case res := <-done:
		require.True(t, res.Interrupted)
	case <-time.After(5 * time.Second):
		t.Fatal("search ignored the cancelled request")
	}
}

func TestFinishedRequestDoesNotInterruptNextSearch(t *testing.T) {
	eng := engine.New(engine.Options{HashMB: 1})
	pos := board.NewPosition()

	ctx, cancel := context.WithCancel(context.Background())
	stop := interruptOnDone(ctx, eng)
	stop()
	// the request context ends after the handler returned
	cancel()
	time.Sleep(20 * time.Millisecond)

	res := eng.SearchForBestMove(pos, 2, nil)
	require.False(t, res.Interrupted)
	require.Equal(t, 2, res.Depth)
}
