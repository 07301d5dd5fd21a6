package board

import "fmt"

// Move encodes a move in 32 bits:
//
//	bits 0-5:   from square
//	bits 6-11:  to square
//	bits 12-13: promotion piece (0=Knight .. 3=Queen)
//	bits 14-15: flag (normal, promotion, en passant, castling)
//	bits 16-19: moving piece
//	bits 20-23: captured piece, NoPiece for non-captures
//
// Moves handed out by the generator always carry the piece fields, so two
// moves are the same move exactly when they compare equal.
type Move uint32

const (
	FlagNormal    uint32 = 0 << 14
	FlagPromotion uint32 = 1 << 14
	FlagEnPassant uint32 = 2 << 14
	FlagCastling  uint32 = 3 << 14

	flagMask      = 3 << 14
	squaresMask   = 0xFFFF
	pieceShift    = 16
	capturedShift = 20
)

// NoMove is the zero move.
const NoMove Move = 0

// NewMove creates a normal move without piece annotation.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(FlagPromotion)
}

func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling creates a castling move expressed as the king's two-square step.
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagCastling)
}

// withPieces returns m annotated with the moving and captured pieces.
func (m Move) withPieces(moved, captured Piece) Move {
	return m&squaresMask | Move(moved)<<pieceShift | Move(captured)<<capturedShift
}

func (m Move) From() Square { return Square(m & 0x3F) }
func (m Move) To() Square   { return Square((m >> 6) & 0x3F) }
func (m Move) Flag() uint32 { return uint32(m) & flagMask }

// Promotion is only meaningful when IsPromotion is true.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

func (m Move) IsPromotion() bool { return m.Flag() == FlagPromotion }
func (m Move) IsCastling() bool  { return m.Flag() == FlagCastling }
func (m Move) IsEnPassant() bool { return m.Flag() == FlagEnPassant }

// Piece is the piece being moved.
func (m Move) Piece() Piece {
	return Piece((m >> pieceShift) & 0xF)
}

// Captured is the piece removed by the move, NoPiece if none.
func (m Move) Captured() Piece {
	if m == NoMove {
		return NoPiece
	}
	return Piece((m >> capturedShift) & 0xF)
}

func (m Move) IsCapture() bool {
	return m.Captured() != NoPiece
}

// IsTactical reports captures and queen promotions.
func (m Move) IsTactical() bool {
	return m.IsCapture() || (m.IsPromotion() && m.Promotion() == Queen)
}

func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// String returns the move in UCI long algebraic form.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// ParseMove resolves a UCI move string against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move string %q", s)
	}
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if m := moves.Get(i); m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move %q in %s: %w", s, pos.ToFEN(), ErrIllegalMove)
}

// MoveList is a fixed-capacity move buffer.
type MoveList struct {
	moves [256]Move
	count int
}

func NewMoveList() *MoveList {
	return &MoveList{}
}

func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int          { return ml.count }
func (ml *MoveList) Get(i int) Move    { return ml.moves[i] }
func (ml *MoveList) Set(i int, m Move) { ml.moves[i] = m }
func (ml *MoveList) Clear()            { ml.count = 0 }

func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice aliases the list's storage.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo is the rollback record returned by MakeMove. The position is
// restored from it wholesale rather than by reversing each change.
type UndoInfo struct {
	Captured       Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	Checkers       Bitboard
	KingSquare     [2]Square
	Pieces         [2][6]Bitboard
	Occupied       [2]Bitboard
	AllOccupied    Bitboard
}

// NullMoveUndo is the rollback record returned by MakeNullMove.
type NullMoveUndo struct {
	EnPassant     Square
	Hash          uint64
	HalfMoveClock int
	Checkers      Bitboard
}
