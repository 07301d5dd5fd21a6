// Package bench searches a suite of positions concurrently, one engine per
// position, and reports node counts and speed.
package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

type Position struct {
	Name  string `yaml:"name"`
	FEN   string `yaml:"fen"`
	Depth int    `yaml:"depth,omitempty"`
}

// Suite lists the positions to search. Depth applies to positions that do
// not set their own.
type Suite struct {
	Depth     int        `yaml:"depth"`
	HashMB    int        `yaml:"hash_mb"`
	Positions []Position `yaml:"positions"`
}

type Result struct {
	Name        string `yaml:"name"`
	FEN         string `yaml:"fen"`
	BestMove    string `yaml:"bestmove"`
	Eval        int    `yaml:"eval"`
	Depth       int    `yaml:"depth"`
	Interrupted bool   `yaml:"interrupted,omitempty"`
	Nodes       uint64 `yaml:"nodes"`
	NPS         uint64 `yaml:"nps"`
	ElapsedMs   int64  `yaml:"elapsed_ms"`
}

type Report struct {
	Results    []Result `yaml:"results"`
	TotalNodes uint64   `yaml:"total_nodes"`
	ElapsedMs  int64    `yaml:"elapsed_ms"`
	NPS        uint64   `yaml:"nps"`
}

// DefaultSuite is a handful of well-known middlegame and endgame positions.
func DefaultSuite() *Suite {
	return &Suite{
		Depth:  8,
		HashMB: 16,
		Positions: []Position{
			{Name: "start", FEN: board.StartFEN},
			{Name: "kiwipete", FEN: "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"},
			{Name: "italian", FEN: "r1bqk1nr/pppp1ppp/2n5/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"},
			{Name: "queens gambit", FEN: "rnbqkb1r/ppp2ppp/4pn2/3p4/2PP4/2N5/PP2PPPP/R1BQKBNR w KQkq - 2 4"},
			{Name: "rook ending", FEN: "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"},
			{Name: "pawn race", FEN: "8/5k2/8/1p6/8/6P1/5K2/8 w - - 0 1"},
			{Name: "promotion", FEN: "r2q1rk1/pP1p2pp/Q4n2/bbp1p3/Np6/1B3NBn/pPPP1PPP/R3K2R b KQ - 0 1"},
		},
	}
}

// LoadSuite reads a YAML suite.
func LoadSuite(r io.Reader) (*Suite, error) {
	var s Suite
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode suite: %w", err)
	}
	if len(s.Positions) == 0 {
		return nil, fmt.Errorf("suite has no positions")
	}
	return &s, nil
}

// Run searches every position of s with at most workers engines at once.
// Cancelling ctx interrupts the running searches; their partial results are
// still reported.
func Run(ctx context.Context, s *Suite, workers int) (*Report, error) {
	positions := make([]*board.Position, len(s.Positions))
	for i, p := range s.Positions {
		pos, err := board.ParseFEN(p.FEN)
		if err != nil {
			return nil, fmt.Errorf("position %q: %w", p.Name, err)
		}
		positions[i] = pos
	}

	results := make([]Result, len(s.Positions))
	start := time.Now()
	g := errgroup.Group{}
	g.SetLimit(max(1, workers))

	for i := range s.Positions {
		g.Go(func() error {
			results[i] = searchOne(ctx, s, s.Positions[i], positions[i])
			log.Debug().
				Str("name", results[i].Name).
				Str("bestmove", results[i].BestMove).
				Uint64("nodes", results[i].Nodes).
				Msg("bench position done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	rep := &Report{
		Results:    results,
		TotalNodes: lo.SumBy(results, func(r Result) uint64 { return r.Nodes }),
		ElapsedMs:  elapsed.Milliseconds(),
	}
	if elapsed > 0 {
		rep.NPS = uint64(float64(rep.TotalNodes) / elapsed.Seconds())
	}
	return rep, nil
}

func searchOne(ctx context.Context, s *Suite, p Position, pos *board.Position) Result {
	depth := lo.Ternary(p.Depth > 0, p.Depth, s.Depth)
	if depth <= 0 {
		depth = 8
	}

	eng := engine.New(engine.Options{HashMB: s.HashMB})
	eng.PrepareForNewSearch(pos)

	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			eng.InterruptSearch()
		case <-finished:
		}
	}()
	start := time.Now()
	r := eng.SearchForBestMove(pos, depth, nil)
	elapsed := time.Since(start)
	close(finished)

	nodes := eng.SearchStatistics().TotalNodes()
	res := Result{
		Name:        p.Name,
		FEN:         p.FEN,
		BestMove:    "0000",
		Eval:        r.Eval,
		Depth:       r.Depth,
		Interrupted: r.Interrupted,
		Nodes:       nodes,
		ElapsedMs:   elapsed.Milliseconds(),
	}
	if r.BestMove() != board.NoMove {
		res.BestMove = r.BestMove().String()
	}
	if elapsed > 0 {
		res.NPS = uint64(float64(nodes) / elapsed.Seconds())
	}
	return res
}

// WriteYAML writes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
