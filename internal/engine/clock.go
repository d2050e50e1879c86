package engine

import (
	"time"

	"github.com/Frojdholm/reversi-tournament/internal/protocol"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// One decision spends a slice of the remaining budget plus half the
// increment, clamped so a short clock still answers and a long clock does
// not stall the game. A reply margin is held back so the bestmove line
// reaches the wire before the side's flag falls.
const (
	budgetSlices      = 25
	minDecisionBudget = 20 * time.Millisecond
	maxDecisionBudget = 5 * time.Second
	replyMargin       = 50 * time.Millisecond
)

// DecisionBudget derives the wall-clock allowance for one decision from
// the clock entry of the side to move. The result is always positive,
// even on an exhausted clock, so the session can still answer.
func DecisionBudget(tc protocol.TimeControl, side reversi.Color) time.Duration {
	remaining := tc.Remaining(side)
	budget := remaining/budgetSlices + tc.Increment(side)/2
	if budget < minDecisionBudget {
		budget = minDecisionBudget
	}
	if budget > maxDecisionBudget {
		budget = maxDecisionBudget
	}
	if ceiling := remaining - replyMargin; budget > ceiling {
		budget = ceiling
	}
	if budget < time.Millisecond {
		budget = time.Millisecond
	}
	return budget
}
