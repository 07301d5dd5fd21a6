package engine

import "github.com/hailam/chesscore/internal/board"

type stage uint8

const (
	stageInit stage = iota
	stageGoodTactical
	stageQuiets
	stageLosingCaptures
	stageDone
)

type scoredMove struct {
	move  board.Move
	score int32
}

// MovePicker hands out the moves of one node, best guesses first, doing as
// little sorting as possible before the first move is needed. Main-search
// pickers go through good tactical moves, quiets, then captures that lose
// material by SEE. Quiescence pickers yield every move by score only.
//
// Layout of the move buffer once initialised:
//
//	[0, losingStart)           tactical moves not yet returned
//	[losingStart, tacticalEnd) deferred losing captures, newest first
//	[tacticalEnd, len)         quiet moves
type MovePicker struct {
	o    *Orderer
	pos  *board.Position
	prev board.Move
	ply  int
	qs   bool

	stage       stage
	moves       []scoredMove
	buf         [256]scoredMove
	next        int
	losingStart int
	tacticalEnd int
}

// NewMovePicker builds a main-search picker over moves. skip is the move the
// caller already searched (usually the hash move) and is left out.
func (o *Orderer) NewMovePicker(pos *board.Position, moves *board.MoveList, skip, prev board.Move, ply int) *MovePicker {
	mp := &MovePicker{o: o, pos: pos, prev: prev, ply: ply}
	mp.load(moves, skip)
	return mp
}

// NewQuiescencePicker builds a picker without the tactical/quiet split.
// hashMove, when present in moves, is returned first.
func (o *Orderer) NewQuiescencePicker(pos *board.Position, moves *board.MoveList, hashMove board.Move) *MovePicker {
	mp := &MovePicker{o: o, pos: pos, qs: true}
	mp.load(moves, board.NoMove)
	us := pos.SideToMove
	for i := range mp.moves {
		m := mp.moves[i].move
		switch {
		case m == hashMove:
			mp.moves[i].score = HashBonus
		case m.IsTactical():
			mp.moves[i].score = o.scoreTactical(us, m)
		default:
			mp.moves[i].score = int32(o.quiet.get(us, m))
		}
	}
	mp.stage = stageGoodTactical
	mp.losingStart = len(mp.moves)
	mp.tacticalEnd = len(mp.moves)
	return mp
}

func (mp *MovePicker) load(moves *board.MoveList, skip board.Move) {
	mp.moves = mp.buf[:0]
	for _, m := range moves.Slice() {
		if m != skip {
			mp.moves = append(mp.moves, scoredMove{move: m})
		}
	}
}

// Losing reports whether the last returned move was a deferred losing capture.
func (mp *MovePicker) Losing() bool {
	return mp.stage == stageLosingCaptures
}

// Next returns the next move, false once every move has been returned.
func (mp *MovePicker) Next() (board.Move, bool) {
	for {
		switch mp.stage {
		case stageInit:
			mp.partition()
			mp.stage = stageGoodTactical

		case stageGoodTactical:
			if mp.next >= mp.losingStart {
				if mp.qs {
					mp.stage = stageDone
					continue
				}
				mp.scoreQuiets()
				mp.next = mp.tacticalEnd
				mp.stage = stageQuiets
				continue
			}
			mp.selectBest(mp.next, mp.losingStart)
			m := mp.moves[mp.next].move
			if !mp.qs && m.IsCapture() && !SeeGE(mp.pos, m, 0) {
				mp.losingStart--
				mp.moves[mp.next], mp.moves[mp.losingStart] = mp.moves[mp.losingStart], mp.moves[mp.next]
				continue
			}
			mp.next++
			return m, true

		case stageQuiets:
			if mp.next >= len(mp.moves) {
				mp.next = mp.losingStart
				mp.stage = stageLosingCaptures
				continue
			}
			mp.selectBest(mp.next, len(mp.moves))
			m := mp.moves[mp.next].move
			mp.next++
			return m, true

		case stageLosingCaptures:
			if mp.next >= mp.tacticalEnd {
				mp.stage = stageDone
				continue
			}
			m := mp.moves[mp.next].move
			mp.next++
			return m, true

		default:
			return board.NoMove, false
		}
	}
}

// partition moves tactical moves to the front with a two-pointer sweep and
// scores them.
func (mp *MovePicker) partition() {
	i, j := 0, len(mp.moves)-1
	for i <= j {
		switch {
		case mp.moves[i].move.IsTactical():
			i++
		case !mp.moves[j].move.IsTactical():
			j--
		default:
			mp.moves[i], mp.moves[j] = mp.moves[j], mp.moves[i]
			i++
			j--
		}
	}
	mp.tacticalEnd = i
	mp.losingStart = i

	us := mp.pos.SideToMove
	for k := 0; k < mp.tacticalEnd; k++ {
		mp.moves[k].score = mp.o.scoreTactical(us, mp.moves[k].move)
	}
}

func (mp *MovePicker) scoreQuiets() {
	us := mp.pos.SideToMove
	for k := mp.tacticalEnd; k < len(mp.moves); k++ {
		mp.moves[k].score = mp.o.scoreQuiet(us, mp.moves[k].move, mp.prev, mp.ply)
	}
}

// selectBest swaps the highest scored move of [from, to) into from.
func (mp *MovePicker) selectBest(from, to int) {
	best := from
	for k := from + 1; k < to; k++ {
		if mp.moves[k].score > mp.moves[best].score {
			best = k
		}
	}
	mp.moves[from], mp.moves[best] = mp.moves[best], mp.moves[from]
}
