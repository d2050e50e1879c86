package agent

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// ErrNoLegalMove reports a Pick on a position where the side to move has
// nothing to play. The caller is responsible for pass handling.
var ErrNoLegalMove = errors.New("no legal move")

// Random plays a uniformly random legal move. It is the baseline
// opponent for calibrating the scored agents.
type Random struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a random agent. A zero seed draws one from the
// clock.
func NewRandom(seed int64) *Random {
	return &Random{r: newRand(seed)}
}

func (a *Random) Name() string { return KindRandom }

func (a *Random) Pick(ctx context.Context, pos *reversi.Position) (reversi.Move, error) {
	if err := ctx.Err(); err != nil {
		return reversi.Move{}, err
	}
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return reversi.Move{}, ErrNoLegalMove
	}
	a.mu.Lock()
	idx := a.r.Intn(len(legal))
	a.mu.Unlock()
	return reversi.Move{Square: legal[idx], Color: pos.ToMove()}, nil
}
