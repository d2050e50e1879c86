// Package reversi implements the Reversi rules core: board state, the
// sandwich-rule flip engine, legal move generation, and position replay
// from a move list with implicit passes.
package reversi

import (
	"fmt"
	"strings"
)

// Color is the content of a board cell. Empty marks an unoccupied cell;
// Black and White are the two sides. The zero value is Empty.
type Color uint8

const (
	Empty Color = iota
	Black
	White
)

// Opponent returns the opposing side. Empty has no opponent and maps to
// itself.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

// Letter returns the single-character wire form used in move tokens and
// the newgame command.
func (c Color) Letter() string {
	switch c {
	case Black:
		return "b"
	case White:
		return "w"
	default:
		return ""
	}
}

// ParseColor accepts the wire letter, case-insensitively.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b":
		return Black, nil
	case "w":
		return White, nil
	default:
		return Empty, fmt.Errorf("invalid color %q", s)
	}
}

// Square addresses one of the 64 board cells. Values are rank*8+file with
// file 0 = a and rank 0 = rank 1, so a1 is 0 and h8 is 63.
type Square uint8

// NewSquare builds a Square from zero-based file and rank indices.
func NewSquare(file, rank int) (Square, error) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, fmt.Errorf("square out of bounds: file=%d rank=%d", file, rank)
	}
	return Square(rank*8 + file), nil
}

// MustSquare is NewSquare for statically known coordinates.
func MustSquare(file, rank int) Square {
	s, err := NewSquare(file, rank)
	if err != nil {
		panic(err)
	}
	return s
}

// File returns the zero-based file index (0 = a).
func (s Square) File() int { return int(s) % 8 }

// Rank returns the zero-based rank index (0 = rank 1).
func (s Square) Rank() int { return int(s) / 8 }

// String renders the square in algebraic form, for example "d4".
func (s Square) String() string {
	return fmt.Sprintf("%c%c", 'a'+s.File(), '1'+s.Rank())
}

// Board maps every Square to a Color. It is a value type: assignment
// copies the whole grid, which is what Apply and snapshotting rely on.
// The zero value is an empty board.
type Board struct {
	cells [64]Color
}

// NewBoard builds a board with the given squares occupied. Squares not
// named stay empty.
func NewBoard(cells map[Square]Color) Board {
	var b Board
	for sq, c := range cells {
		b.cells[sq] = c
	}
	return b
}

// StartingBoard returns the fixed initial configuration: d4 and e5 Black,
// e4 and d5 White.
func StartingBoard() Board {
	var b Board
	b.cells[MustSquare(3, 3)] = Black // d4
	b.cells[MustSquare(4, 3)] = White // e4
	b.cells[MustSquare(3, 4)] = White // d5
	b.cells[MustSquare(4, 4)] = Black // e5
	return b
}

// At returns the cell content for s.
func (b Board) At(s Square) Color { return b.cells[s] }

// Count returns the number of cells holding c.
func (b Board) Count(c Color) int {
	n := 0
	for _, cell := range b.cells {
		if cell == c {
			n++
		}
	}
	return n
}

// Winner returns the color with more discs, or Empty on an equal count.
// It does not check that the game is actually over.
func (b Board) Winner() Color {
	black, white := b.Count(Black), b.Count(White)
	switch {
	case black > white:
		return Black
	case white > black:
		return White
	default:
		return Empty
	}
}

// String renders an ASCII diagram with rank 8 on top, for logs and test
// failure output.
func (b Board) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			switch b.cells[rank*8+file] {
			case Black:
				sb.WriteString("X ")
			case White:
				sb.WriteString("O ")
			default:
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}
