// Package uci implements the Universal Chess Interface front end.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position
	maxDepth int

	outMu sync.Mutex
	out   io.Writer

	// search state, only touched by the command loop
	searchDone chan struct{}
	infinite   bool
}

// New creates a protocol handler writing responses to out.
func New(eng *engine.Engine, out io.Writer, maxDepth int) *UCI {
	if maxDepth <= 0 || maxDepth >= engine.MaxPly {
		maxDepth = engine.MaxPly - 1
	}
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		maxDepth: maxDepth,
		out:      out,
	}
}

func (u *UCI) println(a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintln(u.out, a...)
}

func (u *UCI) printf(format string, a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, a...)
}

// Run reads commands until "quit" or the end of input. A search still
// running at the end of input is allowed to finish, unless it is infinite.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		log.Debug().Str("cmd", cmd).Strs("args", args).Msg("uci command")

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleStop()
			u.engine.NewGame()
			u.position = board.NewPosition()
		case "position":
			u.handleStop()
			u.handlePosition(args)
		case "go":
			u.handleStop()
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleStop()
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.printf("%s", u.position)
		case "perft":
			u.handleStop()
			u.handlePerft(args)
		default:
			u.printf("info string unknown command %s\n", cmd)
		}
	}

	if u.infinite {
		u.handleStop()
	}
	u.waitSearch()
	return scanner.Err()
}

func (u *UCI) handleUCI() {
	u.println("id name ChessCore")
	u.println("id author ChessCore Team")
	u.println()
	u.println("option name Hash type spin default 64 min 1 max 65536")
	u.println("option name Clear Hash type button")
	u.printf("option name AspirationWindow type spin default %d min 0 max 1000\n", engine.AspirationDelta)
	u.println("uciok")
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := lo.IndexOf(args, "moves")
	setup := args
	var moves []string
	if movesAt >= 0 {
		setup, moves = args[:movesAt], args[movesAt+1:]
	}

	var pos *board.Position
	switch setup[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(setup[1:], " "))
		if err != nil {
			u.printf("info string invalid FEN: %v\n", err)
			return
		}
	default:
		return
	}

	for _, s := range moves {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			u.printf("info string invalid move %s: %v\n", s, err)
			return
		}
		pos.MakeMove(m)
	}
	u.position = pos
}

// parseGo parses "go" command arguments.
func parseGo(args []string) engine.Limits {
	var limits engine.Limits
	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		next := ""
		if i+1 < len(args) {
			next = args[i+1]
		}
		switch args[i] {
		case "depth":
			limits.Depth, _ = strconv.Atoi(next)
			i++
		case "nodes":
			limits.Nodes, _ = strconv.ParseUint(next, 10, 64)
			i++
		case "movetime":
			limits.MoveTime = ms(next)
			i++
		case "wtime":
			limits.Time[board.White] = ms(next)
			i++
		case "btime":
			limits.Time[board.Black] = ms(next)
			i++
		case "winc":
			limits.Inc[board.White] = ms(next)
			i++
		case "binc":
			limits.Inc[board.Black] = ms(next)
			i++
		case "movestogo":
			limits.MovesToGo, _ = strconv.Atoi(next)
			i++
		case "infinite":
			limits.Infinite = true
		}
	}
	return limits
}

// handleGo starts a search in the background.
func (u *UCI) handleGo(args []string) {
	limits := parseGo(args)
	pos := u.position.Copy()

	depth := u.maxDepth
	if limits.Depth > 0 {
		depth = min(limits.Depth, depth)
	}

	gamePly := (pos.FullMoveNumber-1)*2 + int(pos.SideToMove)
	tm := engine.NewClockManager(limits, pos.SideToMove, gamePly)
	log.Debug().
		Dur("optimum", tm.OptimumTime()).
		Dur("maximum", tm.MaximumTime()).
		Int("depth", depth).
		Msg("search limits")

	u.engine.SetTimeManager(tm)
	u.engine.ResetSearchStatistics()
	u.engine.PrepareForNewSearch(pos)
	u.engine.OnIteration = func(info engine.IterationInfo) {
		if !info.Partial && len(info.PV) > 0 {
			tm.ObserveIteration(info.PV[0])
		}
		u.sendInfo(info, tm.Elapsed())
	}

	u.infinite = limits.Infinite
	done := make(chan struct{})
	u.searchDone = done
	go func() {
		defer close(done)
		result := u.engine.SearchForBestMove(pos, depth, nil)
		u.sendBestMove(result)
	}()
}

func (u *UCI) sendBestMove(r engine.RootSearchResult) {
	switch {
	case len(r.PV) == 0:
		u.println("bestmove 0000")
	case len(r.PV) == 1:
		u.printf("bestmove %s\n", r.PV[0])
	default:
		u.printf("bestmove %s ponder %s\n", r.PV[0], r.PV[1])
	}
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.IterationInfo, elapsed time.Duration) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		fmt.Sprintf("seldepth %d", max(info.Stats.SelDepth, info.Depth)),
		formatScore(info.Eval),
	}
	if info.Partial {
		parts = append(parts, "lowerbound")
	}

	nodes := info.Stats.TotalNodes()
	parts = append(parts,
		fmt.Sprintf("nodes %d", nodes),
		fmt.Sprintf("time %d", elapsed.Milliseconds()),
	)
	if elapsed > 0 {
		parts = append(parts, fmt.Sprintf("nps %d", uint64(float64(nodes)/elapsed.Seconds())))
	}
	parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	if len(info.PV) > 0 {
		parts = append(parts, "pv "+engine.PVString(info.PV))
	}

	u.println("info " + strings.Join(parts, " "))
}

func formatScore(s int) string {
	if engine.IsMateScore(s) {
		return fmt.Sprintf("score mate %d", engine.MateIn(s))
	}
	return fmt.Sprintf("score cp %d", s)
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.engine.InterruptSearch()
	u.waitSearch()
}

func (u *UCI) waitSearch() {
	if u.searchDone == nil {
		return
	}
	<-u.searchDone
	u.searchDone = nil
	u.infinite = false
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(args []string) {
	nameAt := lo.IndexOf(args, "name")
	if nameAt < 0 {
		return
	}
	valueAt := lo.IndexOf(args, "value")
	var name, value string
	if valueAt > nameAt {
		name = strings.Join(args[nameAt+1:valueAt], " ")
		value = strings.Join(args[valueAt+1:], " ")
	} else {
		name = strings.Join(args[nameAt+1:], " ")
	}

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 1 {
			u.printf("info string invalid Hash value %q\n", value)
			return
		}
		u.engine.SetTableSize(mb)
	case "clear hash":
		u.engine.NewGame()
	case "aspirationwindow":
		w, err := strconv.Atoi(value)
		if err != nil || w < 0 {
			u.printf("info string invalid AspirationWindow value %q\n", value)
			return
		}
		u.engine.AspirationWindow = w
	default:
		u.printf("info string unknown option %s\n", name)
	}
}

// handlePerft counts leaf nodes, divided by root move.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}

	start := time.Now()
	divide := u.position.Divide(depth)
	moves := lo.Keys(divide)
	lines := lo.Map(moves, func(m board.Move, _ int) string {
		return fmt.Sprintf("%s: %d", m, divide[m])
	})
	total := lo.Sum(lo.Values(divide))
	elapsed := time.Since(start)

	slices.Sort(lines)
	for _, l := range lines {
		u.println(l)
	}
	u.println()
	u.printf("Nodes: %d\n", total)
	u.printf("Time: %v\n", elapsed)
}
