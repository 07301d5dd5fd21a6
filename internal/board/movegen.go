package board

// GenerateLegalMoves returns every legal move, annotated with the moving and
// captured pieces.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generate(ml, false)
	return p.filterLegal(ml)
}

// GenerateCaptures returns legal captures, en passant and all promotions.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.generate(ml, true)
	return p.filterLegal(ml)
}

// generate adds pseudo-legal moves. With tacticalOnly, quiet moves other
// than promotions are skipped.
func (p *Position) generate(ml *MoveList, tacticalOnly bool) {
	us := p.SideToMove
	occ := p.AllOccupied
	targets := ^p.Occupied[us]
	if tacticalOnly {
		targets = p.Occupied[us.Other()]
	}

	p.generatePawnMoves(ml, us, tacticalOnly)

	for pt := Knight; pt <= King; pt++ {
		for pieces := p.Pieces[us][pt]; pieces != 0; {
			from := pieces.PopLSB()
			var att Bitboard
			switch pt {
			case Knight:
				att = KnightAttacks(from)
			case Bishop:
				att = BishopAttacks(from, occ)
			case Rook:
				att = RookAttacks(from, occ)
			case Queen:
				att = QueenAttacks(from, occ)
			case King:
				att = KingAttacks(from)
			}
			for att &= targets; att != 0; {
				ml.Add(NewMove(from, att.PopLSB()))
			}
		}
	}

	if !tacticalOnly {
		p.generateCastling(ml, us)
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, tacticalOnly bool) {
	pawns := p.Pieces[us][Pawn]
	enemies := p.Occupied[us.Other()]
	empty := ^p.AllOccupied

	var push1, push2, capL, capR, promoRank Bitboard
	var dir int
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		capL, capR = pawns.NorthWest()&enemies, pawns.NorthEast()&enemies
		promoRank, dir = Rank8, 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		capL, capR = pawns.SouthWest()&enemies, pawns.SouthEast()&enemies
		promoRank, dir = Rank1, -8
	}

	add := func(targets Bitboard, delta int) {
		for targets != 0 {
			to := targets.PopLSB()
			from := Square(int(to) - delta)
			if promoRank.Has(to) {
				for _, pt := range [...]PieceType{Queen, Rook, Bishop, Knight} {
					ml.Add(NewPromotion(from, to, pt))
				}
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}

	add(capL, dir-1)
	add(capR, dir+1)
	if tacticalOnly {
		add(push1&promoRank, dir)
	} else {
		add(push1, dir)
		add(push2, 2*dir)
	}

	if p.EnPassant != NoSquare {
		for att := PawnAttacks(p.EnPassant, us.Other()) & pawns; att != 0; {
			ml.Add(NewEnPassant(att.PopLSB(), p.EnPassant))
		}
	}
}

type castleSpec struct {
	right       CastlingRights
	king, to    Square
	empty, safe Bitboard
}

var castleSpecs = [2][2]castleSpec{
	{
		{WhiteKingSideCastle, E1, G1, SquareBB(F1) | SquareBB(G1), SquareBB(E1) | SquareBB(F1) | SquareBB(G1)},
		{WhiteQueenSideCastle, E1, C1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(E1) | SquareBB(D1) | SquareBB(C1)},
	},
	{
		{BlackKingSideCastle, E8, G8, SquareBB(F8) | SquareBB(G8), SquareBB(E8) | SquareBB(F8) | SquareBB(G8)},
		{BlackQueenSideCastle, E8, C8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(E8) | SquareBB(D8) | SquareBB(C8)},
	},
}

func (p *Position) generateCastling(ml *MoveList, us Color) {
	for _, cs := range castleSpecs[us] {
		if p.CastlingRights&cs.right == 0 || p.AllOccupied&cs.empty != 0 {
			continue
		}
		safe := true
		for s := cs.safe; s != 0; {
			if p.IsSquareAttacked(s.PopLSB(), us.Other()) {
				safe = false
				break
			}
		}
		if safe {
			ml.Add(NewCastling(cs.king, cs.to))
		}
	}
}

// filterLegal keeps the legal moves of ml and annotates them.
func (p *Position) filterLegal(ml *MoveList) *MoveList {
	out := NewMoveList()
	pinned := p.ComputePinned()
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if p.isLegal(m, pinned) {
			out.Add(p.annotate(m))
		}
	}
	return out
}

func (p *Position) annotate(m Move) Move {
	captured := p.PieceAt(m.To())
	if m.IsEnPassant() {
		captured = NewPiece(Pawn, p.SideToMove.Other())
	} else if m.IsCastling() {
		captured = NoPiece
	}
	return m.withPieces(p.PieceAt(m.From()), captured)
}

// isLegal tests a pseudo-legal move; pinned must come from ComputePinned.
func (p *Position) isLegal(m Move, pinned Bitboard) bool {
	us := p.SideToMove
	from, to := m.From(), m.To()
	ksq := p.KingSquare[us]

	if from == ksq {
		if m.IsCastling() {
			return p.Checkers == 0
		}
		return p.AttackersByColor(to, us.Other(), p.AllOccupied&^SquareBB(from)) == 0
	}
	if m.IsEnPassant() {
		return p.legalEnPassant(m)
	}
	if p.Checkers != 0 {
		if p.Checkers.PopCount() > 1 {
			return false
		}
		checker := p.Checkers.LSB()
		if (SquareBB(checker)|Between(checker, ksq))&SquareBB(to) == 0 {
			return false
		}
	}
	return pinned&SquareBB(from) == 0 || Aligned(from, to, ksq)
}

// legalEnPassant removes both pawns from the occupancy and looks for
// sliders hitting the king, which covers the horizontal pin case.
func (p *Position) legalEnPassant(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	to := m.To()
	capSq := Square(int(to) - 8)
	if us == Black {
		capSq = Square(int(to) + 8)
	}
	occ := p.AllOccupied&^SquareBB(m.From())&^SquareBB(capSq) | SquareBB(to)
	ksq := p.KingSquare[us]
	if RookAttacks(ksq, occ)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) != 0 ||
		BishopAttacks(ksq, occ)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen]) != 0 {
		return false
	}
	leapers := PawnAttacks(ksq, us)&p.Pieces[them][Pawn]&^SquareBB(capSq) |
		KnightAttacks(ksq)&p.Pieces[them][Knight]
	return leapers == 0
}

// HasLegalMoves reports whether the side to move can move at all.
func (p *Position) HasLegalMoves() bool {
	ml := NewMoveList()
	p.generate(ml, false)
	pinned := p.ComputePinned()
	for i := 0; i < ml.Len(); i++ {
		if p.isLegal(ml.Get(i), pinned) {
			return true
		}
	}
	return false
}

func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsInsufficientMaterial reports K vs K and K+minor vs K.
func (p *Position) IsInsufficientMaterial() bool {
	w, b := &p.Pieces[White], &p.Pieces[Black]
	if w[Pawn]|b[Pawn]|w[Rook]|b[Rook]|w[Queen]|b[Queen] != 0 {
		return false
	}
	return (w[Knight] | w[Bishop] | b[Knight] | b[Bishop]).PopCount() <= 1
}

// MakeMove plays a legal move and returns the record UnmakeMove needs.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		Captured:       NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Checkers:       p.Checkers,
		KingSquare:     p.KingSquare,
		Pieces:         p.Pieces,
		Occupied:       p.Occupied,
		AllOccupied:    p.AllOccupied,
	}
	p.history = append(p.history, p.Hash)

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pc := p.PieceAt(from)
	pt := pc.Type()

	h := p.Hash ^ zobristSideToMove ^ zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		h ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}

	switch {
	case m.IsEnPassant():
		capSq := Square(int(to) - 8)
		if us == Black {
			capSq = Square(int(to) + 8)
		}
		undo.Captured = p.removePiece(capSq)
		h ^= zobristPiece[them][Pawn][capSq]
		p.PawnKey ^= zobristPiece[them][Pawn][capSq]
	case !p.IsEmpty(to):
		undo.Captured = p.removePiece(to)
		ct := undo.Captured.Type()
		h ^= zobristPiece[them][ct][to]
		if ct == Pawn {
			p.PawnKey ^= zobristPiece[them][Pawn][to]
		}
	}

	p.movePiece(pc, from, to)
	h ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][Pawn][to]
	}

	if m.IsPromotion() {
		promo := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promo] |= SquareBB(to)
		h ^= zobristPiece[us][Pawn][to] ^ zobristPiece[us][promo][to]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsCastling() {
		rank := from.Rank()
		rookFrom, rookTo := NewSquare(7, rank), NewSquare(5, rank)
		if to < from {
			rookFrom, rookTo = NewSquare(0, rank), NewSquare(3, rank)
		}
		p.movePiece(NewPiece(Rook, us), rookFrom, rookTo)
		h ^= zobristPiece[us][Rook][rookFrom] ^ zobristPiece[us][Rook][rookTo]
	}

	p.CastlingRights &^= castlingLoss[from] | castlingLoss[to]
	h ^= zobristCastling[p.CastlingRights]

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		p.EnPassant = Square((int(from) + int(to)) / 2)
		h ^= zobristEnPassant[p.EnPassant.File()]
	}

	if pt == Pawn || undo.Captured != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.Hash = h
	p.SideToMove = them
	p.UpdateCheckers()
	return undo
}

// castlingLoss lists the rights lost when a move touches each square.
var castlingLoss = func() (t [64]CastlingRights) {
	t[E1] = WhiteKingSideCastle | WhiteQueenSideCastle
	t[A1] = WhiteQueenSideCastle
	t[H1] = WhiteKingSideCastle
	t[E8] = BlackKingSideCastle | BlackQueenSideCastle
	t[A8] = BlackQueenSideCastle
	t[H8] = BlackKingSideCastle
	return t
}()

// UnmakeMove restores the position from the record MakeMove returned.
func (p *Position) UnmakeMove(undo UndoInfo) {
	p.history = p.history[:len(p.history)-1]
	p.SideToMove = p.SideToMove.Other()
	if p.SideToMove == Black {
		p.FullMoveNumber--
	}
	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.KingSquare = undo.KingSquare
	p.Pieces = undo.Pieces
	p.Occupied = undo.Occupied
	p.AllOccupied = undo.AllOccupied
}

// Perft counts leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) int64 {
	moves := p.GenerateLegalMoves()
	if depth <= 1 {
		if depth <= 0 {
			return 1
		}
		return int64(moves.Len())
	}
	var nodes int64
	for i := 0; i < moves.Len(); i++ {
		undo := p.MakeMove(moves.Get(i))
		nodes += p.Perft(depth - 1)
		p.UnmakeMove(undo)
	}
	return nodes
}

// Divide returns the perft count below each root move.
func (p *Position) Divide(depth int) map[Move]int64 {
	out := make(map[Move]int64)
	moves := p.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := p.MakeMove(m)
		out[m] = p.Perft(depth - 1)
		p.UnmakeMove(undo)
	}
	return out
}
