package board

import (
	"math/bits"
	"strings"
)

// Bitboard has one bit per square, bit 0 being A1.
type Bitboard uint64

const (
	FileA Bitboard = 0x0101010101010101
	FileH Bitboard = FileA << 7

	Rank1 Bitboard = 0xFF
	Rank2 Bitboard = Rank1 << 8
	Rank3 Bitboard = Rank1 << 16
	Rank4 Bitboard = Rank1 << 24
	Rank5 Bitboard = Rank1 << 32
	Rank6 Bitboard = Rank1 << 40
	Rank7 Bitboard = Rank1 << 48
	Rank8 Bitboard = Rank1 << 56

	Empty Bitboard = 0
)

// FileMask and RankMask are indexed by zero-based file and rank.
var (
	FileMask [8]Bitboard
	RankMask [8]Bitboard
)

func init() {
	for i := 0; i < 8; i++ {
		FileMask[i] = FileA << i
		RankMask[i] = Rank1 << (8 * i)
	}
}

func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

func (b Bitboard) Has(sq Square) bool {
	return b&(1<<sq) != 0
}

func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the lowest set square, NoSquare when empty.
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// PopLSB clears and returns the lowest set square.
func (b *Bitboard) PopLSB() Square {
	sq := Square(bits.TrailingZeros64(uint64(*b)))
	*b &= *b - 1
	return sq
}

func (b Bitboard) North() Bitboard     { return b << 8 }
func (b Bitboard) South() Bitboard     { return b >> 8 }
func (b Bitboard) East() Bitboard      { return (b << 1) &^ FileA }
func (b Bitboard) West() Bitboard      { return (b >> 1) &^ FileH }
func (b Bitboard) NorthEast() Bitboard { return (b << 9) &^ FileA }
func (b Bitboard) NorthWest() Bitboard { return (b << 7) &^ FileH }
func (b Bitboard) SouthEast() Bitboard { return (b >> 7) &^ FileA }
func (b Bitboard) SouthWest() Bitboard { return (b >> 9) &^ FileH }

func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		for file := 0; file < 8; file++ {
			if b.Has(NewSquare(file, rank)) {
				sb.WriteString(" 1")
			} else {
				sb.WriteString(" .")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
