package reversi

import (
	"errors"
	"fmt"
)

var (
	// ErrOccupiedSquare reports a placement on a non-empty square.
	ErrOccupiedSquare = errors.New("square occupied")
	// ErrNoFlips reports a placement that would flip nothing.
	ErrNoFlips = errors.New("move flips no discs")
)

// The eight compass and diagonal directions as (file, rank) deltas.
var directions = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Flips returns the squares that would change color if c placed a disc on
// s. The result is empty when the placement is not legal; occupancy of s
// itself is not checked here.
//
// Each direction is walked outward over a run of opposing discs. The run
// counts only when it is non-empty and ends on a disc of c still on the
// board: an empty cell or the board edge voids that direction, and a disc
// of c adjacent to s ends the run at length zero. Flipped runs are never
// re-examined as new placements.
func (b Board) Flips(s Square, c Color) []Square {
	if c != Black && c != White {
		return nil
	}
	opponent := c.Opponent()
	var flips []Square
	for _, d := range directions {
		run := b.runAlong(s, d[0], d[1], c, opponent)
		flips = append(flips, run...)
	}
	return flips
}

// runAlong collects the contiguous opposing run from s in direction
// (df, dr), returning nil unless the run is closed by a same-color disc.
func (b Board) runAlong(s Square, df, dr int, c, opponent Color) []Square {
	var run []Square
	file, rank := s.File()+df, s.Rank()+dr
	for file >= 0 && file <= 7 && rank >= 0 && rank <= 7 {
		sq := Square(rank*8 + file)
		switch b.cells[sq] {
		case opponent:
			run = append(run, sq)
			file += df
			rank += dr
		case c:
			if len(run) == 0 {
				return nil
			}
			return run
		default:
			return nil
		}
	}
	// Ran off the board without a closing disc.
	return nil
}

// IsLegal reports whether placing c on s is a legal move: the square is
// empty and at least one disc flips.
func (b Board) IsLegal(s Square, c Color) bool {
	if b.cells[s] != Empty {
		return false
	}
	opponent := c.Opponent()
	if opponent == Empty {
		return false
	}
	for _, d := range directions {
		if len(b.runAlong(s, d[0], d[1], c, opponent)) > 0 {
			return true
		}
	}
	return false
}

// Apply places m on a copy of the board, flipping the sandwiched runs, and
// returns the new board. The receiver is unchanged. The error wraps
// ErrOccupiedSquare or ErrNoFlips when the move is not legal.
func (b Board) Apply(m Move) (Board, error) {
	if b.cells[m.Square] != Empty {
		return b, fmt.Errorf("%s: %w", m, ErrOccupiedSquare)
	}
	flips := b.Flips(m.Square, m.Color)
	if len(flips) == 0 {
		return b, fmt.Errorf("%s: %w", m, ErrNoFlips)
	}
	next := b
	next.cells[m.Square] = m.Color
	for _, sq := range flips {
		next.cells[sq] = m.Color
	}
	return next, nil
}
