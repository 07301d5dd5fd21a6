package board

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestFENRoundTrip(t *testing.T) {
	is := is.New(t)
	for _, fen := range []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1",
		"6k1/8/6K1/8/8/8/8/R7 w - - 12 40",
	} {
		pos, err := ParseFEN(fen)
		is.NoErr(err)
		is.Equal(pos.ToFEN(), fen)
	}
}

func TestParseFENRejectsBadInput(t *testing.T) {
	for _, fen := range []string{
		"",
		"8/8/8/8/8/8/8/8 w - -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq -",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"4k3/8/8/8/8/8/8/4KR2 w - - 0 1x",
	} {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("ParseFEN(%q) err = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestParseFENComputesCheckers(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, "R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	is.True(pos.InCheck())
	is.True(pos.IsCheckmate())

	pos = mustFEN(t, "6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	is.True(pos.InCheck())
	is.True(!pos.IsCheckmate())

	pos = mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	is.True(pos.IsStalemate())
}

func TestMoveAnnotations(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, "4k3/8/8/3pP3/8/8/8/R3K2R w KQ d6 0 1")

	ep, err := ParseMove("e5d6", pos)
	is.NoErr(err)
	is.True(ep.IsEnPassant())
	is.Equal(ep.Piece(), WhitePawn)
	is.Equal(ep.Captured(), BlackPawn)

	castle, err := ParseMove("e1g1", pos)
	is.NoErr(err)
	is.True(castle.IsCastling())
	is.True(!castle.IsCapture())
	is.Equal(castle.Piece(), WhiteKing)

	_, err = ParseMove("e1e3", pos)
	is.True(errors.Is(err, ErrIllegalMove))
}

func TestRepetitionCount(t *testing.T) {
	is := is.New(t)
	pos := NewPosition()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for round := 1; round <= 2; round++ {
		for _, s := range shuffle {
			m, err := ParseMove(s, pos)
			is.NoErr(err)
			pos.MakeMove(m)
		}
		is.Equal(pos.RepetitionCount(), round)
	}

	// an irreversible move hides earlier occurrences
	m, err := ParseMove("e2e4", pos)
	is.NoErr(err)
	pos.MakeMove(m)
	is.Equal(pos.RepetitionCount(), 0)
}

func TestNullMove(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 3 10")
	before := *pos

	undo := pos.MakeNullMove()
	is.Equal(pos.SideToMove, Black)
	is.Equal(pos.EnPassant, NoSquare)
	is.Equal(pos.Hash, pos.ComputeHash())
	is.Equal(pos.RepetitionCount(), 0)

	pos.UnmakeNullMove(undo)
	is.Equal(pos.Hash, before.Hash)
	is.Equal(pos.EnPassant, before.EnPassant)
	is.Equal(pos.HalfMoveClock, 3)
	is.Equal(pos.Ply(), 0)
}

func TestCopyIsIndependent(t *testing.T) {
	is := is.New(t)
	pos := NewPosition()
	m, _ := ParseMove("e2e4", pos)
	pos.MakeMove(m)

	cp := pos.Copy()
	reply, _ := ParseMove("e7e5", cp)
	cp.MakeMove(reply)

	is.Equal(pos.Ply(), 1)
	is.Equal(cp.Ply(), 2)
	is.True(pos.Hash != cp.Hash)
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/3NKB2 w - - 0 1", false},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
	}
	for _, tc := range tests {
		if got := mustFEN(t, tc.fen).IsInsufficientMaterial(); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.fen, got, tc.want)
		}
	}
}
