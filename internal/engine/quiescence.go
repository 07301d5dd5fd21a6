package engine

import "github.com/hailam/chesscore/internal/board"

// quiescence resolves captures (or check evasions) until the position is
// quiet enough for the static evaluation to be trusted.
func (s *Searcher) quiescence(ply, alpha, beta int) int {
	if s.cancel.Poll(s.stats.TotalNodes()) {
		return scoreInterrupted
	}
	s.stats.QNodes++
	s.stats.SelDepth = max(s.stats.SelDepth, ply)

	pos := s.pos
	if ply >= MaxPly-1 {
		return s.evaluate()
	}

	ttMove := board.NoMove
	if e, ok := s.tt.Probe(pos.Hash); ok {
		s.stats.TTHits++
		ttMove = e.Move
		if e.Kind != ScoreUnset {
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

	inCheck := pos.InCheck()
	bestScore := -Infinity
	standPat := 0

	var moves *board.MoveList
	if inCheck {
		moves = pos.GenerateLegalMoves()
		if moves.Len() == 0 {
			return -MateScore + ply
		}
	} else {
		standPat = s.evaluate()
		if standPat >= beta {
			return beta
		}
		alpha = max(alpha, standPat)
		bestScore = standPat

		moves = pos.GenerateCaptures()
		if moves.Len() == 0 {
			if !pos.HasLegalMoves() {
				return DrawScore
			}
			return standPat
		}
	}

	var (
		bestMove    = board.NoMove
		raised      bool
		searched    int
		interrupted bool
	)

	picker := s.orderer.NewQuiescencePicker(pos, moves, ttMove)
	for {
		m, ok := picker.Next()
		if !ok {
			break
		}

		// Skip captures that cannot lift the score to alpha even when the
		// exchange goes our way, unless they give check.
		prune := !inCheck && !SeeGE(pos, m, alpha-standPat-DeltaMargin+1)

		undo := pos.MakeMove(m)
		if prune && !pos.InCheck() {
			pos.UnmakeMove(undo)
			// the skipped capture is only known not to beat alpha
			bestScore = max(bestScore, alpha)
			continue
		}
		s.tt.Prefetch(pos.Hash)
		score := -s.quiescence(ply+1, -beta, -alpha)
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
			s.tt.Store(pos.Hash, m, ScoreToTT(score, ply), 0, ScoreLowerBound)
			return score
		}
		if score > alpha {
			alpha = score
			raised = true
		}
	}

	if interrupted {
		if searched > 0 {
			kind := ScoreUnset
			if raised {
				kind = ScoreLowerBound
			}
			s.tt.Store(pos.Hash, bestMove, ScoreToTT(alpha, ply), 0, kind)
		}
		return scoreInterrupted
	}

	kind := ScoreUpperBound
	if raised {
		kind = ScoreExact
	}
	s.tt.Store(pos.Hash, bestMove, ScoreToTT(bestScore, ply), 0, kind)
	return bestScore
}
