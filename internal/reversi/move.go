package reversi

import (
	"fmt"
	"strings"
)

// Move is a placement of one disc: a target square and the mover's color.
type Move struct {
	Square Square
	Color  Color
}

// ParseMove decodes the three-character wire token `[a-h][1-8][bw]`,
// case-insensitively.
func ParseMove(token string) (Move, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if len(t) != 3 {
		return Move{}, fmt.Errorf("invalid move token %q: want 3 characters", token)
	}
	file := int(t[0]) - 'a'
	rank := int(t[1]) - '1'
	sq, err := NewSquare(file, rank)
	if err != nil {
		return Move{}, fmt.Errorf("invalid move token %q: %w", token, err)
	}
	color, err := ParseColor(t[2:])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move token %q: %w", token, err)
	}
	return Move{Square: sq, Color: color}, nil
}

// ParseMoves decodes a chronological list of move tokens.
func ParseMoves(tokens []string) ([]Move, error) {
	moves := make([]Move, 0, len(tokens))
	for i, tok := range tokens {
		m, err := ParseMove(tok)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// String renders the canonical lower-case wire token, for example "e3b".
func (m Move) String() string {
	return m.Square.String() + m.Color.Letter()
}

// FormatMoves joins moves into the space-separated wire form.
func FormatMoves(moves []Move) string {
	if len(moves) == 0 {
		return ""
	}
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}
