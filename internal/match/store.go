// Package match persists tournaments, their games, and the running
// standings. The in-memory store is the default; the redis store keeps
// the same records as JSON values so several processes can share one
// tournament, and the optional postgres repository archives finished
// games durably.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
)

// ErrTournamentExists reports a CreateTournament with an id that is
// already claimed.
var ErrTournamentExists = errors.New("tournament already exists")

// Store is the persistence surface the tournament host writes through
// and the live view reads from. Lookups of unknown ids return (nil,
// nil).
type Store interface {
	// CreateTournament claims the tournament id and writes its metadata.
	CreateTournament(ctx context.Context, t *domain.Tournament) error
	Tournament(ctx context.Context, id string) (*domain.Tournament, error)

	// SaveGame writes or overwrites one game record.
	SaveGame(ctx context.Context, g *domain.Game) error
	Game(ctx context.Context, id string) (*domain.Game, error)
	// Games returns a tournament's games ordered by start time.
	Games(ctx context.Context, tournamentID string) ([]*domain.Game, error)

	// ApplyResult folds a finished game into the standings tallies.
	ApplyResult(ctx context.Context, g *domain.Game) error
	Standings(ctx context.Context, tournamentID string) (*domain.Standings, error)

	Close() error
}

// NewGameID mints a unique game id. The uuid suffix keeps ids unique
// across hosts sharing one store; time ordering keeps them readable.
func NewGameID() string {
	return fmt.Sprintf("g-%d-%s", time.Now().UnixNano(), idSuffix())
}

// NewTournamentID mints a tournament id.
func NewTournamentID() string {
	return fmt.Sprintf("t-%d-%s", time.Now().UnixNano(), idSuffix())
}

func idSuffix() string {
	return uuid.NewString()[:8]
}

// applyToScores updates both engines' tallies for a finished game.
func applyToScores(scores map[string]*domain.Score, g *domain.Game) error {
	if !g.Draw() && g.Winner != g.Black && g.Winner != g.White {
		return fmt.Errorf("winner %q did not play game %s", g.Winner, g.ID)
	}
	for _, engine := range []string{g.Black, g.White} {
		if _, ok := scores[engine]; !ok {
			scores[engine] = &domain.Score{Engine: engine}
		}
	}
	if g.Draw() {
		scores[g.Black].Draws++
		scores[g.White].Draws++
		return nil
	}
	scores[g.Winner].Wins++
	scores[g.Loser()].Losses++
	return nil
}

// standingsFrom builds a sorted snapshot of the tallies.
func standingsFrom(tournamentID string, scores map[string]*domain.Score, updatedAt time.Time) *domain.Standings {
	s := &domain.Standings{TournamentID: tournamentID, UpdatedAt: updatedAt}
	for _, sc := range scores {
		s.Scores = append(s.Scores, *sc)
	}
	s.Sort()
	return s
}
