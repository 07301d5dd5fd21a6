// Package httpapi serves position analysis over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/tablebase"
)

const defaultMoveTime = time.Second

// AnalyseRequest is the body of POST /analyse. With neither depth nor
// movetime_ms set the search runs for one second.
type AnalyseRequest struct {
	FEN        string `json:"fen"`
	Depth      int    `json:"depth"`
	MoveTimeMs int    `json:"movetime_ms"`
}

type AnalyseResponse struct {
	BestMove    string   `json:"bestmove"`
	Ponder      string   `json:"ponder,omitempty"`
	PV          []string `json:"pv"`
	Eval        int      `json:"eval"`
	Mate        *int     `json:"mate,omitempty"`
	Depth       int      `json:"depth"`
	Interrupted bool     `json:"interrupted"`
	Nodes       uint64   `json:"nodes"`
	ElapsedMs   int64    `json:"elapsed_ms"`

	// Tablebase is the WDL of the position when the prober knows it.
	Tablebase string `json:"tablebase,omitempty"`
}

// Server owns one engine; requests take turns searching with it.
type Server struct {
	mu       sync.Mutex
	engine   *engine.Engine
	prober   tablebase.Prober
	maxDepth int
}

func New(eng *engine.Engine, maxDepth int) *Server {
	if maxDepth <= 0 || maxDepth >= engine.MaxPly {
		maxDepth = engine.MaxPly - 1
	}
	return &Server{engine: eng, maxDepth: maxDepth}
}

// WithProber reports tablebase results for positions p covers.
func (s *Server) WithProber(p tablebase.Prober) *Server {
	s.prober = p
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/analyse", s.handleAnalyse)
	r.Delete("/hash", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.engine.NewGame()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
	})
	return r
}

func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	var req AnalyseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	pos, err := board.ParseFEN(req.FEN)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Depth < 0 || req.MoveTimeMs < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "depth and movetime_ms must not be negative"})
		return
	}

	limits := engine.Limits{
		Depth:    min(req.Depth, s.maxDepth),
		MoveTime: time.Duration(req.MoveTimeMs) * time.Millisecond,
	}
	if limits.Depth == 0 && limits.MoveTime == 0 {
		limits.MoveTime = defaultMoveTime
	}
	depth := s.maxDepth
	if limits.Depth > 0 {
		depth = limits.Depth
	}

	var wdl string
	if tablebase.Covers(s.prober, pos) {
		if pr := s.prober.Probe(pos); pr.Found {
			wdl = pr.WDL.String()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tm := engine.NewClockManager(limits, pos.SideToMove, (pos.FullMoveNumber-1)*2+int(pos.SideToMove))
	s.engine.SetTimeManager(tm)
	s.engine.OnIteration = nil
	s.engine.ResetSearchStatistics()
	s.engine.PrepareForNewSearch(pos)

	// a client that goes away stops its search
	stop := interruptOnDone(r.Context(), s.engine)
	result := s.engine.SearchForBestMove(pos, depth, nil)
	stop()

	resp := AnalyseResponse{
		BestMove:    "0000",
		PV:          lo.Map(result.PV, func(m board.Move, _ int) string { return m.String() }),
		Eval:        result.Eval,
		Depth:       result.Depth,
		Interrupted: result.Interrupted,
		Nodes:       s.engine.SearchStatistics().TotalNodes(),
		ElapsedMs:   tm.Elapsed().Milliseconds(),
		Tablebase:   wdl,
	}
	if len(resp.PV) > 0 {
		resp.BestMove = resp.PV[0]
	}
	if len(resp.PV) > 1 {
		resp.Ponder = resp.PV[1]
	}
	if engine.IsMateScore(result.Eval) {
		resp.Mate = lo.ToPtr(engine.MateIn(result.Eval))
	}
	writeJSON(w, http.StatusOK, resp)
}

// interruptOnDone interrupts eng once ctx is done. The returned stop waits
// for the watcher to exit, after which ctx no longer reaches eng.
func interruptOnDone(ctx context.Context, eng *engine.Engine) (stop func()) {
	finished := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			eng.InterruptSearch()
		case <-finished:
		}
	}()
	return func() {
		close(finished)
		<-exited
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
