package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrIllegalMove = errors.New("illegal move")
)

func fenError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFEN, fmt.Sprintf(format, args...))
}

// ParseFEN builds a position from a FEN string. The move counters are
// optional and default to 0 and 1.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fenError("need at least 4 fields, got %d", len(fields))
	}

	pos := &Position{EnPassant: NoSquare, FullMoveNumber: 1}
	pos.KingSquare = [2]Square{NoSquare, NoSquare}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fenError("need 8 ranks, got %d", len(ranks))
	}
	for i, row := range ranks {
		rank, file := 7-i, 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			pc := PieceFromChar(c)
			if pc == NoPiece || file > 7 {
				return nil, fenError("bad placement %q", row)
			}
			pos.setPiece(pc, NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return nil, fenError("rank %d has %d squares", rank+1, file)
		}
	}

	switch fields[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fenError("bad side to move %q", fields[1])
	}

	if fields[2] != "-" {
		for _, c := range fields[2] {
			idx := strings.IndexRune("KQkq", c)
			if idx < 0 {
				return nil, fenError("bad castling %q", fields[2])
			}
			pos.CastlingRights |= 1 << idx
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fenError("bad en passant square %q", fields[3])
		}
		pos.EnPassant = sq
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fenError("bad half-move clock %q", fields[4])
		}
		pos.HalfMoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return nil, fenError("bad full-move number %q", fields[5])
		}
		pos.FullMoveNumber = n
	}

	if pos.Pieces[White][King].PopCount() != 1 || pos.Pieces[Black][King].PopCount() != 1 {
		return nil, fenError("each side needs exactly one king")
	}
	if (pos.Pieces[White][Pawn]|pos.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return nil, fenError("pawn on back rank")
	}
	if pos.IsSquareAttacked(pos.KingSquare[pos.SideToMove.Other()], pos.SideToMove) {
		return nil, fenError("side not to move is in check")
	}

	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()
	pos.UpdateCheckers()
	return pos, nil
}

// ToFEN renders the position as a FEN string.
func (p *Position) ToFEN() string {
	var sb strings.Builder
	sb.WriteString(p.placement())
	if p.SideToMove == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}
	sb.WriteString(p.CastlingRights.String())
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())
	fmt.Fprintf(&sb, " %d %d", p.HalfMoveClock, p.FullMoveNumber)
	return sb.String()
}

// PositionKey is the FEN without the move counters, identifying a position
// independently of how it was reached.
func (p *Position) PositionKey() string {
	fen := p.ToFEN()
	fields := strings.Fields(fen)
	return strings.Join(fields[:4], " ")
}

func (p *Position) placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.PieceAt(NewSquare(file, rank))
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}
