// Package present turns tournament events into human-readable
// announcements. The Reporter narrates to a writer so headless runs
// read like a live broadcast; the Announcer forwards the same text to
// a notification sink.
package present

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/msgcat"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Reporter narrates tournament events to a writer using the message
// catalog. Writes are serialized; a template failure drops the line
// and logs instead of breaking the game loop.
type Reporter struct {
	cat       *msgcat.Catalog
	mu        sync.Mutex
	out       io.Writer
	showMoves bool
}

// NewReporter writes narration to out. showMoves also prints every
// engine move, which is noisy for anything but a watched single game.
func NewReporter(cat *msgcat.Catalog, out io.Writer, showMoves bool) *Reporter {
	return &Reporter{cat: cat, out: out, showMoves: showMoves}
}

func (r *Reporter) TournamentStarted(_ context.Context, t *domain.Tournament) {
	r.say(TournamentStartedText(r.cat, t))
}

func (r *Reporter) GameStarted(_ context.Context, g *domain.Game) {
	r.say(GameStartedText(r.cat, g))
}

func (r *Reporter) MovePlayed(_ context.Context, _ string, m reversi.Move, thinkTime time.Duration, pos *reversi.Position) {
	if !r.showMoves {
		return
	}
	board := pos.Board()
	r.line(fmt.Sprintf("  %-3s  %s  %d:%d",
		m.String(),
		thinkTime.Round(time.Millisecond),
		board.Count(reversi.Black),
		board.Count(reversi.White)))
}

func (r *Reporter) GameFinished(_ context.Context, g *domain.Game) {
	r.say(GameFinishedText(r.cat, g))
}

func (r *Reporter) TournamentFinished(_ context.Context, t *domain.Tournament, s *domain.Standings) {
	r.say(StandingsText(r.cat, t, s))
}

func (r *Reporter) say(text string, err error) {
	if err != nil {
		obslog.L().Warn("narration_failed", zap.Error(err))
		return
	}
	r.line(text)
}

func (r *Reporter) line(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, text)
}
