package reversi

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongColor reports a move whose declared color is not the side
	// whose turn it is, counting implicit passes.
	ErrWrongColor = errors.New("not this color's turn")
	// ErrGameOver reports a move played after neither side can move.
	ErrGameOver = errors.New("game is over")
)

// Position is a board plus the move history that produced it and the side
// to move. Passes are implicit: the history only ever contains placements,
// and the side to move is re-derived from board legality after every move
// rather than from history parity.
type Position struct {
	board   Board
	toMove  Color
	history []Move
}

// StartPosition returns the fixed initial position with Black to move.
func StartPosition() *Position {
	return &Position{board: StartingBoard(), toMove: Black}
}

// PositionFromBoard builds a history-less position from an arbitrary
// board. toMove is normalized the same way a played move is: a side with
// no legal placement loses the turn, and when neither side can place the
// position is over.
func PositionFromBoard(b Board, toMove Color) *Position {
	if toMove != Empty && b.MustPass(toMove) {
		if !b.MustPass(toMove.Opponent()) {
			toMove = toMove.Opponent()
		} else {
			toMove = Empty
		}
	}
	return &Position{board: b, toMove: toMove}
}

// Replay builds a Position by applying moves in order from the start,
// validating occupancy, flip legality, and turn derivation at every step.
// The returned error identifies the offending move by index and token.
func Replay(moves []Move) (*Position, error) {
	p := StartPosition()
	for i, m := range moves {
		if err := p.Play(m); err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
	}
	return p, nil
}

// Play validates and applies one move, then advances the side to move,
// skipping any side with no legal reply. The position is unchanged on
// error.
func (p *Position) Play(m Move) error {
	if p.toMove == Empty {
		return ErrGameOver
	}
	if m.Color != p.toMove {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongColor, p.toMove, m.Color)
	}
	next, err := p.board.Apply(m)
	if err != nil {
		return err
	}
	p.board = next
	p.toMove = next.nextToMove(m.Color)
	p.history = append(p.history, m)
	return nil
}

// Board returns the current board. Board is a value type, so the caller
// gets an independent copy.
func (p *Position) Board() Board { return p.board }

// ToMove returns the side to move, or Empty when the game is over.
func (p *Position) ToMove() Color { return p.toMove }

// Over reports whether neither side can move.
func (p *Position) Over() bool { return p.toMove == Empty }

// LegalMoves returns the legal squares for the side to move, nil when the
// game is over.
func (p *Position) LegalMoves() []Square {
	if p.toMove == Empty {
		return nil
	}
	return p.board.LegalMoves(p.toMove)
}

// History returns a copy of the moves played so far.
func (p *Position) History() []Move {
	return append([]Move(nil), p.history...)
}

// MoveCount returns the number of explicit moves played.
func (p *Position) MoveCount() int { return len(p.history) }

// LastMove returns the most recent move, if any.
func (p *Position) LastMove() (Move, bool) {
	if len(p.history) == 0 {
		return Move{}, false
	}
	return p.history[len(p.history)-1], true
}

// Clone returns an independent copy, safe to hand to a concurrent reader
// such as a search task.
func (p *Position) Clone() *Position {
	return &Position{
		board:   p.board,
		toMove:  p.toMove,
		history: append([]Move(nil), p.history...),
	}
}
