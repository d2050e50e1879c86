package agent

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/Frojdholm/reversi-tournament/internal/openings"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// GreedyOptions parameterizes a Greedy agent. Book is optional; when set
// it is consulted with the preset's probability before any ranking.
type GreedyOptions struct {
	Preset        Preset
	Seed          int64
	Book          *openings.Book
	BookMaxPly    int
	BookMinWeight int
}

// Greedy ranks moves by immediate material swing plus a positional
// bonus, then chooses through the preset's weighted window.
type Greedy struct {
	opt GreedyOptions
	mu  sync.Mutex
	r   *rand.Rand
}

func NewGreedy(opt GreedyOptions) (*Greedy, error) {
	if err := ValidatePreset(opt.Preset); err != nil {
		return nil, err
	}
	return &Greedy{opt: opt, r: newRand(opt.Seed)}, nil
}

func (a *Greedy) Name() string { return KindGreedy }

func (a *Greedy) Pick(ctx context.Context, pos *reversi.Position) (reversi.Move, error) {
	if err := ctx.Err(); err != nil {
		return reversi.Move{}, err
	}
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return reversi.Move{}, ErrNoLegalMove
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if m, ok := a.bookMove(pos); ok {
		return m, nil
	}

	chosen, err := SelectCandidate(a.opt.Preset, rankGreedy(pos, legal), a.r)
	if err != nil {
		return reversi.Move{}, err
	}
	return chosen.Move, nil
}

// bookMove rolls against the preset's book probability and, on a hit,
// draws one of the book's continuations weight-proportionally. Book
// lines replay legally from the start, so a suggestion that extends the
// position's history is always playable.
func (a *Greedy) bookMove(pos *reversi.Position) (reversi.Move, bool) {
	if a.opt.Book == nil || a.opt.Preset.BookProbability <= 0 {
		return reversi.Move{}, false
	}
	if a.r.Float64() >= a.opt.Preset.BookProbability {
		return reversi.Move{}, false
	}
	suggestions := a.opt.Book.Lookup(pos.History(), a.opt.BookMaxPly, a.opt.BookMinWeight)
	s, ok := openings.Pick(suggestions, a.r)
	if !ok {
		return reversi.Move{}, false
	}
	return s.Move, true
}

// rankGreedy scores every legal square and returns candidates best
// first. A corner capture is marked Forced: no preset ever declines one
// it can see.
func rankGreedy(pos *reversi.Position, legal []reversi.Square) []Candidate {
	board := pos.Board()
	mover := pos.ToMove()
	candidates := make([]Candidate, 0, len(legal))
	for _, sq := range legal {
		candidates = append(candidates, Candidate{
			Move:   reversi.Move{Square: sq, Color: mover},
			Score:  2*len(board.Flips(sq, mover)) + positionBonus(sq),
			Forced: isCorner(sq),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// positionBonus weights board geography: corners are strong, the
// diagonal neighbors of an empty corner hand it away, edges are mildly
// good.
func positionBonus(sq reversi.Square) int {
	f, r := sq.File(), sq.Rank()
	switch {
	case isCorner(sq):
		return 32
	case (f == 1 || f == 6) && (r == 1 || r == 6):
		return -24
	case f == 0 || f == 7 || r == 0 || r == 7:
		return 6
	default:
		return 0
	}
}

func isCorner(sq reversi.Square) bool {
	f, r := sq.File(), sq.Rank()
	return (f == 0 || f == 7) && (r == 0 || r == 7)
}
