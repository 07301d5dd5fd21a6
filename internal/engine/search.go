package engine

import "github.com/hailam/chesscore/internal/board"

// noNullMove is the lastNullMovePly passed to the root; it never matches.
const noNullMove = -10

// Searcher holds the state of one SearchForBestMove call. The position is
// mutated in place and restored after every move.
type Searcher struct {
	pos     *board.Position
	tt      *TranspositionTable
	orderer *Orderer
	eval    Evaluator
	cancel  *Canceller
	stats   *SearchStatistics

	// rootMoves restricts the moves searched at ply 0, nil for no restriction
	rootMoves []board.Move

	// best root move and score of the iteration in progress
	rootBest  board.Move
	rootScore int
}

func (s *Searcher) stopped() bool {
	return s.cancel.Stopped()
}

func (s *Searcher) evaluate() int {
	return s.eval.Evaluate(s.pos)
}

// search is the principal-variation negamax. Returns scoreInterrupted when
// the search was cancelled, in which case the value must be ignored.
func (s *Searcher) search(depth, ply, alpha, beta int, lastMove board.Move, lastNullMovePly int) int {
	if s.cancel.Poll(s.stats.TotalNodes()) {
		return scoreInterrupted
	}
	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	s.stats.Nodes++
	s.stats.SelDepth = max(s.stats.SelDepth, ply)

	pos := s.pos
	pvNode := beta-alpha > 1
	origBeta := beta

	if ply > 0 {
		if pos.RepetitionCount() >= 1 || pos.IsFiftyMoveDraw() || pos.IsInsufficientMaterial() {
			return DrawScore
		}
		if ply >= MaxPly-1 {
			return s.evaluate()
		}
	}

	// Extensions
	inCheck := pos.InCheck()
	extension := 0
	if ply > 0 {
		if inCheck {
			extension++
		}
		if pawnToSeventh(lastMove) {
			extension++
		}
	}
	depth += extension

	mateWindow := IsMateScore(alpha) || IsMateScore(beta)
	staticEval := 0
	haveEval := false

	// Reverse futility pruning
	if !pvNode && !inCheck && !mateWindow && depth <= RFPMaxDepth {
		staticEval, haveEval = s.evaluate(), true
		if staticEval-RFPMarginPerDepth*depth >= beta {
			return beta
		}
	}

	// Null move pruning
	if !pvNode && !inCheck && !IsMateScore(beta) && ply > 0 && depth >= NullMoveMinDepth &&
		ply != lastNullMovePly+2 && pos.HasNonPawnMaterial() {
		r := 2 + depth/4
		s.stats.nullMoves++
		undo := pos.MakeNullMove()
		score := -s.search(max(depth-1-r, 0), ply+1, -beta, -beta+1, board.NoMove, ply)
		pos.UnmakeNullMove(undo)
		if s.stopped() {
			return scoreInterrupted
		}
		if score >= beta {
			return beta
		}
	}

	// Transposition table
	ttMove := board.NoMove
	if e, ok := s.tt.Probe(pos.Hash); ok {
		s.stats.TTHits++
		ttMove = e.Move
		if ply > 0 && e.Kind != ScoreUnset && int(e.Depth) >= depth {
			score := ScoreFromTT(int(e.Score), ply)
			switch e.Kind {
			case ScoreExact:
				return score
			case ScoreLowerBound:
				alpha = max(alpha, score)
			case ScoreUpperBound:
				beta = min(beta, score)
			}
			if alpha >= beta {
				return score
			}
		}
	}

	moves := pos.GenerateLegalMoves()
	if ply == 0 && s.rootMoves != nil {
		moves = restrict(moves, s.rootMoves)
	}
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return DrawScore
	}
	if ttMove != board.NoMove && !moves.Contains(ttMove) {
		debugAssert(ply == 0 && s.rootMoves != nil, "hash move is not legal in its position")
		ttMove = board.NoMove
	}

	canFutility := !pvNode && !inCheck && !mateWindow && depth <= FutilityMaxDepth
	if canFutility && !haveEval {
		staticEval = s.evaluate()
	}

	var (
		bestScore   = -Infinity
		bestMove    = board.NoMove
		raised      bool
		searched    int
		interrupted bool
		picker      *MovePicker
		moveCount   int
	)

	for {
		var m board.Move
		if moveCount == 0 && ttMove != board.NoMove {
			m = ttMove
		} else {
			if picker == nil {
				picker = s.orderer.NewMovePicker(pos, moves, ttMove, lastMove, ply)
			}
			var ok bool
			if m, ok = picker.Next(); !ok {
				break
			}
		}
		moveCount++
		losing := picker != nil && picker.Losing()

		undo := pos.MakeMove(m)
		s.tt.Prefetch(pos.Hash)
		givesCheck := pos.InCheck()

		// Futility pruning
		if canFutility && moveCount > 1 && m.IsQuiet() && !givesCheck {
			margin := max(FutilityBase+FutilityPerDepth*depth-FutilityMovePenalty*moveCount, 0)
			if staticEval+margin <= alpha {
				pos.UnmakeMove(undo)
				bestScore = max(bestScore, staticEval+margin)
				continue
			}
		}

		// Late move reductions
		reduction := 0
		if extension == 0 && !pvNode && depth >= LMRMinDepth && moveCount > LMRMoveThreshold &&
			(losing || !m.IsTactical()) {
			reduction = 1
		}

		newDepth := depth - 1
		var score int
		switch {
		case !pvNode:
			score = -s.search(newDepth-reduction, ply+1, -beta, -alpha, m, lastNullMovePly)
		case moveCount == 1:
			score = -s.search(newDepth, ply+1, -beta, -alpha, m, lastNullMovePly)
		default:
			score = -s.search(newDepth-reduction, ply+1, -alpha-1, -alpha, m, lastNullMovePly)
			if score > alpha && reduction > 0 && !s.stopped() {
				score = -s.search(newDepth, ply+1, -alpha-1, -alpha, m, lastNullMovePly)
			}
			if score > alpha && score < beta && !s.stopped() {
				score = -s.search(newDepth, ply+1, -beta, -alpha, m, lastNullMovePly)
			}
		}
		pos.UnmakeMove(undo)

		if s.stopped() {
			interrupted = true
			break
		}
		searched++

		if score > bestScore {
			bestScore = score
			bestMove = m
		}
		if score >= beta {
			s.orderer.ReportCutoff(pos, m, lastMove, ply, depth)
			score = min(score, origBeta)
			s.tt.Store(pos.Hash, m, ScoreToTT(score, ply), depth, ScoreLowerBound)
			if ply == 0 {
				s.rootBest, s.rootScore = m, score
			}
			return score
		}
		s.orderer.ReportNonCutoff(pos, m, depth)
		if score > alpha {
			alpha = score
			raised = true
			if ply == 0 {
				s.rootBest, s.rootScore = m, score
			}
		}
	}

	if interrupted {
		// keep what was learned; a raised alpha is still a valid lower bound
		if searched > 0 {
			kind := ScoreUnset
			if raised {
				kind = ScoreLowerBound
			}
			s.tt.Store(pos.Hash, bestMove, ScoreToTT(alpha, ply), depth, kind)
		}
		return scoreInterrupted
	}

	kind := ScoreUpperBound
	if raised {
		kind = ScoreExact
	}
	s.tt.Store(pos.Hash, bestMove, ScoreToTT(bestScore, ply), depth, kind)
	return bestScore
}

// pawnToSeventh reports a pawn push reaching the rank before promotion.
func pawnToSeventh(m board.Move) bool {
	if m == board.NoMove || m.Piece().Type() != board.Pawn {
		return false
	}
	return m.To().RelativeRank(m.Piece().Color()) == 6
}

// restrict keeps the moves of ml that appear in allowed.
func restrict(ml *board.MoveList, allowed []board.Move) *board.MoveList {
	out := board.NewMoveList()
	for _, m := range ml.Slice() {
		for _, a := range allowed {
			if m == a {
				out.Add(m)
				break
			}
		}
	}
	return out
}
