package present

import (
	"fmt"
	"math"
	"strings"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/msgcat"
)

// TournamentStartedText announces the pairing and schedule.
func TournamentStartedText(cat *msgcat.Catalog, t *domain.Tournament) (string, error) {
	return cat.Render("tournament.started", map[string]any{
		"Name":        t.Name,
		"A":           playerAt(t, 0),
		"B":           playerAt(t, 1),
		"Games":       t.Games,
		"TimeControl": t.TimeControl,
	})
}

// GameStartedText announces one round's color assignment.
func GameStartedText(cat *msgcat.Catalog, g *domain.Game) (string, error) {
	return cat.Render("game.started", map[string]any{
		"Round": g.Round,
		"Black": g.Black,
		"White": g.White,
	})
}

// GameFinishedText picks the template matching how the game ended.
func GameFinishedText(cat *msgcat.Catalog, g *domain.Game) (string, error) {
	key := "game.score"
	switch {
	case g.Draw():
		key = "game.draw"
	case g.Reason == domain.ReasonTimeout:
		key = "game.timeout"
	case g.Reason == domain.ReasonIllegalMove:
		key = "game.illegal_move"
	case g.Reason == domain.ReasonProtocol:
		key = "game.protocol"
	}
	return cat.Render(key, map[string]any{
		"Round":      g.Round,
		"Winner":     g.Winner,
		"Loser":      g.Loser(),
		"BlackDiscs": g.BlackDiscs,
		"WhiteDiscs": g.WhiteDiscs,
	})
}

// StandingsText renders the final table and the closing line as one
// newline-joined block.
func StandingsText(cat *msgcat.Catalog, t *domain.Tournament, s *domain.Standings) (string, error) {
	var b strings.Builder
	header, err := cat.Render("standings.header", map[string]any{"Name": t.Name})
	if err != nil {
		return "", err
	}
	b.WriteString(header)

	for i, score := range s.Scores {
		row, err := cat.Render("standings.row", map[string]any{
			"Rank":   i + 1,
			"Engine": score.Engine,
			"Points": formatPoints(score.Points()),
			"Wins":   score.Wins,
			"Draws":  score.Draws,
			"Losses": score.Losses,
		})
		if err != nil {
			return "", err
		}
		b.WriteString("\n")
		b.WriteString(row)
	}

	leader, ok := s.Leader()
	if !ok {
		return b.String(), nil
	}
	key := "tournament.finished"
	if len(s.Scores) > 1 && s.Scores[1].Points() == leader.Points() {
		key = "tournament.finished_tied"
	}
	ending, err := cat.Render(key, map[string]any{
		"Name":   t.Name,
		"Leader": leader.Engine,
		"Points": formatPoints(leader.Points()),
	})
	if err != nil {
		return "", err
	}
	b.WriteString("\n")
	b.WriteString(ending)
	return b.String(), nil
}

// formatPoints prints half-point tallies without a trailing zero, so
// "2.5" but "4" rather than "4.0".
func formatPoints(p float64) string {
	if p == math.Trunc(p) {
		return fmt.Sprintf("%d", int(p))
	}
	return fmt.Sprintf("%.1f", p)
}

func playerAt(t *domain.Tournament, i int) string {
	if i < len(t.Players) {
		return strings.TrimSpace(t.Players[i])
	}
	return "?"
}
