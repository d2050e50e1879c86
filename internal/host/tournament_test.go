package host

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Frojdholm/reversi-tournament/internal/agent"
	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/engine"
	"github.com/Frojdholm/reversi-tournament/internal/match"
	"github.com/Frojdholm/reversi-tournament/internal/openings"
	"github.com/Frojdholm/reversi-tournament/internal/protocol"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// inProcessLauncher runs each engine inside the test process, over the
// real wire protocol, choosing the search by spec name.
func inProcessLauncher(ctx context.Context, spec EngineSpec) (Player, error) {
	var opt agent.Options
	switch spec.Name {
	case "rnd":
		opt = agent.Options{Kind: agent.KindRandom, Seed: 21}
	case "grd":
		opt = agent.Options{Kind: agent.KindGreedy, Preset: "master", Seed: 22}
	default:
		return nil, fmt.Errorf("no test agent named %q", spec.Name)
	}
	ag, err := agent.New(opt)
	if err != nil {
		return nil, err
	}
	return NewInProcessSession(ctx, spec.Name, engine.Info{Name: spec.Name, Author: "test"}, ag)
}

type countingObserver struct {
	NopObserver

	mu         sync.Mutex
	tournament *domain.Tournament
	started    int
	finished   []*domain.Game
	moves      int
	standings  *domain.Standings
}

func (o *countingObserver) TournamentStarted(_ context.Context, t *domain.Tournament) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tournament = t
}

func (o *countingObserver) GameStarted(context.Context, *domain.Game) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *countingObserver) MovePlayed(_ context.Context, _ string, _ reversi.Move, _ time.Duration, _ *reversi.Position) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves++
}

func (o *countingObserver) GameFinished(_ context.Context, g *domain.Game) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, g)
}

func (o *countingObserver) TournamentFinished(_ context.Context, _ *domain.Tournament, s *domain.Standings) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.standings = s
}

func TestInProcessSessionSpeaksTheProtocol(t *testing.T) {
	ctx := context.Background()
	ag, err := agent.New(agent.Options{Kind: agent.KindGreedy, Preset: "master", Seed: 7})
	require.NoError(t, err)

	s, err := NewInProcessSession(ctx, "probe", engine.Info{Name: "probe engine", Author: "tests"}, ag)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "probe engine", s.Info().Name)
	require.Equal(t, "tests", s.Info().Author)
	require.NoError(t, s.EnsureReady(ctx))
	require.NoError(t, s.NewGame(ctx, reversi.Black))
	require.NoError(t, s.SendPosition(nil))

	tc := protocol.TimeControl{BlackRemaining: time.Second, WhiteRemaining: time.Second}
	m, pass, err := s.Go(ctx, tc, reversi.Black)
	require.NoError(t, err)
	require.False(t, pass)
	require.Equal(t, reversi.Black, m.Color)
	require.Contains(t, []string{"e3b", "f4b", "c5b", "d6b"}, m.String())
}

func TestTournamentRunsASeries(t *testing.T) {
	store := match.NewMemStore()
	defer store.Close()
	obs := &countingObserver{}

	tour, err := NewTournament(
		EngineSpec{Name: "rnd"},
		EngineSpec{Name: "grd"},
		store, nil,
		TournamentOptions{
			Name:     "series test",
			Games:    4,
			Initial:  5 * time.Second,
			Launcher: inProcessLauncher,
		},
		obs,
	)
	require.NoError(t, err)

	standings, err := tour.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, standings)
	require.Len(t, standings.Scores, 2)

	var points float64
	for _, s := range standings.Scores {
		require.Equal(t, 4, s.Games())
		points += s.Points()
	}
	require.Equal(t, 4.0, points)

	require.NotNil(t, obs.tournament)
	require.Equal(t, 4, obs.started)
	require.Len(t, obs.finished, 4)
	require.Greater(t, obs.moves, 0)
	require.NotNil(t, obs.standings)

	games, err := store.Games(context.Background(), obs.tournament.ID)
	require.NoError(t, err)
	require.Len(t, games, 4)
	for _, g := range games {
		require.Equal(t, domain.ReasonScore, g.Reason)
		switch {
		case g.Round <= 2:
			require.Equal(t, "rnd", g.Black)
			require.Equal(t, "grd", g.White)
		default:
			require.Equal(t, "grd", g.Black)
			require.Equal(t, "rnd", g.White)
		}
	}
}

func TestTournamentSharesOpeningsAcrossColors(t *testing.T) {
	book, err := openings.Load()
	require.NoError(t, err)

	store := match.NewMemStore()
	defer store.Close()
	obs := &countingObserver{}

	tour, err := NewTournament(
		EngineSpec{Name: "rnd"},
		EngineSpec{Name: "grd"},
		store, nil,
		TournamentOptions{
			Games:    2,
			Initial:  5 * time.Second,
			Book:     book,
			Seed:     99,
			Launcher: inProcessLauncher,
		},
		obs,
	)
	require.NoError(t, err)

	_, err = tour.Run(context.Background())
	require.NoError(t, err)

	games, err := store.Games(context.Background(), obs.tournament.ID)
	require.NoError(t, err)
	require.Len(t, games, 2)

	first, second := games[0], games[1]
	if first.Round != 1 {
		first, second = second, first
	}
	require.NotEmpty(t, first.Moves)
	require.Equal(t, first.Moves[0], second.Moves[0])
	require.Equal(t, time.Duration(0), first.MoveTimes[0])
	require.Equal(t, time.Duration(0), second.MoveTimes[0])
	require.Equal(t, "rnd", first.Black)
	require.Equal(t, "grd", second.Black)
}

func TestTournamentRunsGamesConcurrently(t *testing.T) {
	store := match.NewMemStore()
	defer store.Close()
	obs := &countingObserver{}

	tour, err := NewTournament(
		EngineSpec{Name: "rnd"},
		EngineSpec{Name: "grd"},
		store, nil,
		TournamentOptions{
			Games:       6,
			Initial:     5 * time.Second,
			Concurrency: 3,
			Launcher:    inProcessLauncher,
		},
		obs,
	)
	require.NoError(t, err)

	standings, err := tour.Run(context.Background())
	require.NoError(t, err)

	total := 0
	for _, s := range standings.Scores {
		total += s.Games()
	}
	require.Equal(t, 12, total)
	require.Len(t, obs.finished, 6)

	games, err := store.Games(context.Background(), obs.tournament.ID)
	require.NoError(t, err)
	require.Len(t, games, 6)
	rounds := make(map[int]bool)
	for _, g := range games {
		rounds[g.Round] = true
	}
	require.Len(t, rounds, 6)
}

func TestTournamentRelaunchesAfterProtocolLoss(t *testing.T) {
	store := match.NewMemStore()
	defer store.Close()

	launches := 0
	launcher := func(ctx context.Context, spec EngineSpec) (Player, error) {
		if spec.Name == "flaky" {
			launches++
			if launches == 1 {
				// First incarnation dies on its first move.
				return &scriptedPlayer{label: "flaky", goErr: fmt.Errorf("engine crashed")}, nil
			}
			ag, err := agent.New(agent.Options{Kind: agent.KindRandom, Seed: 31})
			if err != nil {
				return nil, err
			}
			return &agentPlayer{label: "flaky", ag: ag, pos: reversi.StartPosition()}, nil
		}
		ag, err := agent.New(agent.Options{Kind: agent.KindRandom, Seed: 32})
		if err != nil {
			return nil, err
		}
		return &agentPlayer{label: "steady", ag: ag, pos: reversi.StartPosition()}, nil
	}

	tour, err := NewTournament(
		EngineSpec{Name: "flaky"},
		EngineSpec{Name: "steady"},
		store, nil,
		TournamentOptions{
			Games:    2,
			Initial:  5 * time.Second,
			Launcher: launcher,
		},
	)
	require.NoError(t, err)

	standings, err := tour.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, launches)

	var flaky, steady domain.Score
	for _, s := range standings.Scores {
		switch s.Engine {
		case "flaky":
			flaky = s
		case "steady":
			steady = s
		}
	}
	// Round one is the crash forfeit; round two is a real game either
	// side may win.
	require.GreaterOrEqual(t, flaky.Losses, 1)
	require.GreaterOrEqual(t, steady.Wins, 1)
	require.Equal(t, 2, flaky.Games())
	require.Equal(t, 2, steady.Games())
}

func TestNewTournamentRejectsBadPairings(t *testing.T) {
	store := match.NewMemStore()
	defer store.Close()
	good := TournamentOptions{Games: 1, Initial: time.Second}

	_, err := NewTournament(EngineSpec{Name: "a"}, EngineSpec{Name: "b"}, nil, nil, good)
	require.ErrorContains(t, err, "store")

	_, err = NewTournament(EngineSpec{}, EngineSpec{Name: "b"}, store, nil, good)
	require.ErrorContains(t, err, "name")

	_, err = NewTournament(EngineSpec{Name: "a"}, EngineSpec{Name: "a"}, store, nil, good)
	require.ErrorContains(t, err, "differ")

	_, err = NewTournament(EngineSpec{Name: "a"}, EngineSpec{Name: "b"}, store, nil,
		TournamentOptions{Games: 1})
	require.ErrorContains(t, err, "initial time")
}

func TestPacingSleeps(t *testing.T) {
	require.NoError(t, Pacing{}.SleepMove(context.Background()))
	require.NoError(t, Pacing{}.SleepGame(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Pacing{MoveDelay: time.Minute}.SleepMove(ctx)
	require.ErrorIs(t, err, context.Canceled)

	started := time.Now()
	require.NoError(t, Pacing{MoveDelay: 5 * time.Millisecond, Jitter: 0.5}.SleepMove(context.Background()))
	require.Less(t, time.Since(started), time.Second)
}
