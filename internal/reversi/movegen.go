package reversi

// LegalMoves returns every square where c may legally place a disc. The
// order is ascending square index, which keeps output deterministic for a
// given board.
func (b Board) LegalMoves(c Color) []Square {
	var moves []Square
	for sq := Square(0); sq < 64; sq++ {
		if b.IsLegal(sq, c) {
			moves = append(moves, sq)
		}
	}
	return moves
}

// MustPass reports whether c has no legal move on the board.
func (b Board) MustPass(c Color) bool {
	for sq := Square(0); sq < 64; sq++ {
		if b.IsLegal(sq, c) {
			return false
		}
	}
	return true
}

// GameOver reports whether neither color has a legal move.
func (b Board) GameOver() bool {
	return b.MustPass(Black) && b.MustPass(White)
}

// nextToMove derives who moves after prev has played: the opponent unless
// they must pass, then prev again, then nobody (game over, Empty).
func (b Board) nextToMove(prev Color) Color {
	opponent := prev.Opponent()
	if !b.MustPass(opponent) {
		return opponent
	}
	if !b.MustPass(prev) {
		return prev
	}
	return Empty
}
