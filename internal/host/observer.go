package host

import (
	"context"
	"time"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Observer receives tournament events as they happen. Implementations
// run on the game loop and must return promptly; anything slow should
// hand off to its own goroutine. With concurrent series, calls arrive
// from multiple goroutines.
type Observer interface {
	TournamentStarted(ctx context.Context, t *domain.Tournament)
	GameStarted(ctx context.Context, g *domain.Game)
	MovePlayed(ctx context.Context, gameID string, m reversi.Move, thinkTime time.Duration, pos *reversi.Position)
	GameFinished(ctx context.Context, g *domain.Game)
	TournamentFinished(ctx context.Context, t *domain.Tournament, s *domain.Standings)
}

// NopObserver implements Observer with no behavior. Embed it to pick
// only the events you care about.
type NopObserver struct{}

func (NopObserver) TournamentStarted(context.Context, *domain.Tournament) {}
func (NopObserver) GameStarted(context.Context, *domain.Game)            {}
func (NopObserver) MovePlayed(context.Context, string, reversi.Move, time.Duration, *reversi.Position) {
}
func (NopObserver) GameFinished(context.Context, *domain.Game)                             {}
func (NopObserver) TournamentFinished(context.Context, *domain.Tournament, *domain.Standings) {}

type multiObserver []Observer

// CombineObservers fans events out to every non-nil observer in order.
func CombineObservers(obs ...Observer) Observer {
	kept := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return kept
}

func (m multiObserver) TournamentStarted(ctx context.Context, t *domain.Tournament) {
	for _, o := range m {
		o.TournamentStarted(ctx, t)
	}
}

func (m multiObserver) GameStarted(ctx context.Context, g *domain.Game) {
	for _, o := range m {
		o.GameStarted(ctx, g)
	}
}

func (m multiObserver) MovePlayed(ctx context.Context, gameID string, mv reversi.Move, thinkTime time.Duration, pos *reversi.Position) {
	for _, o := range m {
		o.MovePlayed(ctx, gameID, mv, thinkTime, pos)
	}
}

func (m multiObserver) GameFinished(ctx context.Context, g *domain.Game) {
	for _, o := range m {
		o.GameFinished(ctx, g)
	}
}

func (m multiObserver) TournamentFinished(ctx context.Context, t *domain.Tournament, s *domain.Standings) {
	for _, o := range m {
		o.TournamentFinished(ctx, t, s)
	}
}
