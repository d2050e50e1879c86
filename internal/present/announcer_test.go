package present

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/host"
	"github.com/Frojdholm/reversi-tournament/internal/notify"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (s *recordingSink) Post(_ context.Context, e notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) recorded() []notify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Event(nil), s.events...)
}

func TestAnnouncerPostsLifecycleEvents(t *testing.T) {
	cat := newTestCatalog(t)
	sink := &recordingSink{}
	ctx := context.Background()

	var obs host.Observer = NewAnnouncer(cat, sink)
	obs.TournamentStarted(ctx, &domain.Tournament{
		ID: "t1", Name: "casual", Players: []string{"rnd", "grd"},
		Games: 2, TimeControl: "1s+0s",
	})
	obs.GameStarted(ctx, &domain.Game{Round: 1, Black: "rnd", White: "grd"})
	obs.MovePlayed(ctx, "g1", reversi.Move{}, time.Millisecond, reversi.StartPosition())
	obs.GameFinished(ctx, &domain.Game{
		ID: "g1", TournamentID: "t1", Round: 1,
		Black: "rnd", White: "grd", Winner: "grd",
		Reason: domain.ReasonScore, BlackDiscs: 20, WhiteDiscs: 44,
	})
	obs.TournamentFinished(ctx,
		&domain.Tournament{ID: "t1", Name: "casual"},
		&domain.Standings{Scores: []domain.Score{
			{Engine: "grd", Wins: 2},
			{Engine: "rnd", Losses: 2},
		}})

	events := sink.recorded()
	require.Len(t, events, 3)

	require.Equal(t, notify.KindTournamentStarted, events[0].Kind)
	require.Equal(t, "t1", events[0].TournamentID)
	require.Contains(t, events[0].Text, "rnd vs grd")

	require.Equal(t, notify.KindGameFinished, events[1].Kind)
	require.Equal(t, "g1", events[1].GameID)
	require.Equal(t, 1, events[1].Round)
	require.Equal(t, "Game 1: grd wins 20-44", events[1].Text)

	require.Equal(t, notify.KindTournamentFinished, events[2].Kind)
	require.Contains(t, events[2].Text, "Standings: casual")
	require.Contains(t, events[2].Text, "1. grd  2 pts  (2W 0D 0L)")
	require.Contains(t, events[2].Text, "grd takes it with 2 points.")
}

func TestAnnouncerSurvivesSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("webhook down")}
	a := NewAnnouncer(newTestCatalog(t), sink)

	a.GameFinished(context.Background(), &domain.Game{
		Round: 1, Black: "a", White: "b", Winner: "a", Reason: domain.ReasonScore,
	})
	require.Len(t, sink.recorded(), 1)
}
