package present

import (
	"context"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/host"
	"github.com/Frojdholm/reversi-tournament/internal/msgcat"
	"github.com/Frojdholm/reversi-tournament/internal/notify"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
)

// Announcer forwards rendered announcements to a notification sink.
// Delivery failures are logged and dropped; a down webhook must not
// stall the game loop. Per-move events are deliberately not posted.
type Announcer struct {
	host.NopObserver

	cat  *msgcat.Catalog
	sink notify.Notifier
}

func NewAnnouncer(cat *msgcat.Catalog, sink notify.Notifier) *Announcer {
	return &Announcer{cat: cat, sink: sink}
}

func (a *Announcer) TournamentStarted(ctx context.Context, t *domain.Tournament) {
	text, err := TournamentStartedText(a.cat, t)
	a.post(ctx, notify.Event{
		Kind:         notify.KindTournamentStarted,
		Text:         text,
		TournamentID: t.ID,
	}, err)
}

func (a *Announcer) GameFinished(ctx context.Context, g *domain.Game) {
	text, err := GameFinishedText(a.cat, g)
	a.post(ctx, notify.Event{
		Kind:         notify.KindGameFinished,
		Text:         text,
		TournamentID: g.TournamentID,
		GameID:       g.ID,
		Round:        g.Round,
	}, err)
}

func (a *Announcer) TournamentFinished(ctx context.Context, t *domain.Tournament, s *domain.Standings) {
	text, err := StandingsText(a.cat, t, s)
	a.post(ctx, notify.Event{
		Kind:         notify.KindTournamentFinished,
		Text:         text,
		TournamentID: t.ID,
	}, err)
}

func (a *Announcer) post(ctx context.Context, e notify.Event, renderErr error) {
	if renderErr != nil {
		obslog.L().Warn("announcement_failed", zap.String("kind", e.Kind), zap.Error(renderErr))
		return
	}
	if err := a.sink.Post(ctx, e); err != nil {
		obslog.L().Warn("announcement_failed", zap.String("kind", e.Kind), zap.Error(err))
	}
}
