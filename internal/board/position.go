package board

import (
	"fmt"
	"strings"
)

type CastlingRights uint8

const (
	WhiteKingSideCastle CastlingRights = 1 << iota
	WhiteQueenSideCastle
	BlackKingSideCastle
	BlackQueenSideCastle

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// Position is a mutable chess position. Search code mutates one Position in
// place with MakeMove/UnmakeMove; use Copy for an independent position.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int

	Hash    uint64
	PawnKey uint64

	KingSquare [2]Square
	Checkers   Bitboard

	// hashes of the positions preceding the current one, oldest first
	history []uint64
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Copy returns a deep copy, including the repetition history.
func (p *Position) Copy() *Position {
	cp := *p
	cp.history = make([]uint64, len(p.history), len(p.history)+64)
	copy(cp.history, p.history)
	return &cp
}

// Ply is the number of moves made since the position was set up.
func (p *Position) Ply() int {
	return len(p.history)
}

func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

func (p *Position) setPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(sq Square) Piece {
	pc := p.PieceAt(sq)
	if pc == NoPiece {
		return NoPiece
	}
	bb := SquareBB(sq)
	p.Pieces[pc.Color()][pc.Type()] &^= bb
	p.Occupied[pc.Color()] &^= bb
	p.AllOccupied &^= bb
	return pc
}

func (p *Position) movePiece(pc Piece, from, to Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= bb
	p.Occupied[c] ^= bb
	p.AllOccupied ^= bb
	if pt == King {
		p.KingSquare[c] = to
	}
}

func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

// HasNonPawnMaterial reports whether the side to move owns a knight,
// bishop, rook or queen.
func (p *Position) HasNonPawnMaterial() bool {
	pc := &p.Pieces[p.SideToMove]
	return pc[Knight]|pc[Bishop]|pc[Rook]|pc[Queen] != 0
}

// PieceCount counts all pieces on the board, kings included.
func (p *Position) PieceCount() int {
	return p.AllOccupied.PopCount()
}

// ComputePinned returns the side to move's pieces pinned to its king.
func (p *Position) ComputePinned() Bitboard {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	var pinned Bitboard

	snipers := RookAttacks(ksq, 0)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) |
		BishopAttacks(ksq, 0)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen])
	for snipers != 0 {
		blockers := Between(snipers.PopLSB(), ksq) & p.AllOccupied
		if blockers.PopCount() == 1 && blockers&p.Occupied[us] != 0 {
			pinned |= blockers
		}
	}
	return pinned
}

// RepetitionCount returns how many earlier positions since the last
// irreversible move equal the current one.
func (p *Position) RepetitionCount() int {
	n := len(p.history)
	count := 0
	for k := 2; k <= p.HalfMoveClock && k <= n; k += 2 {
		if p.history[n-k] == p.Hash {
			count++
		}
	}
	return count
}

// IsFiftyMoveDraw applies the fifty-move rule.
func (p *Position) IsFiftyMoveDraw() bool {
	return p.HalfMoveClock >= 100
}

// MakeNullMove passes the turn. The half-move clock is reset so repetition
// scans never look across a null move.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{
		EnPassant:     p.EnPassant,
		Hash:          p.Hash,
		HalfMoveClock: p.HalfMoveClock,
		Checkers:      p.Checkers,
	}
	p.history = append(p.history, p.Hash)
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.HalfMoveClock = 0
	p.UpdateCheckers()
	return undo
}

func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.history = p.history[:len(p.history)-1]
	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = undo.EnPassant
	p.Hash = undo.Hash
	p.HalfMoveClock = undo.HalfMoveClock
	p.Checkers = undo.Checkers
}

func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteString(" " + p.PieceAt(NewSquare(file, rank)).String())
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Key: %016X\n", p.Hash)
	return sb.String()
}
