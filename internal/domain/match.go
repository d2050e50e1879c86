package domain

import (
	"sort"
	"time"
)

// Reason explains how a game ended.
type Reason string

const (
	// ReasonScore marks a game decided by disc count after neither side
	// could move.
	ReasonScore Reason = "score"
	// ReasonTimeout marks a flag fall.
	ReasonTimeout Reason = "timeout"
	// ReasonIllegalMove marks a game forfeited by an illegal placement.
	ReasonIllegalMove Reason = "illegal_move"
	// ReasonProtocol marks a malformed reply or a dead engine process.
	ReasonProtocol Reason = "protocol"
)

// Game is the record of one tournament game. Moves holds the wire
// tokens in played order; MoveTimes is the measured think time per
// move, aligned with Moves.
type Game struct {
	ID           string          `json:"id"`
	TournamentID string          `json:"tournament_id"`
	Round        int             `json:"round"`
	Black        string          `json:"black"`
	White        string          `json:"white"`
	Moves        []string        `json:"moves"`
	MoveTimes    []time.Duration `json:"move_times"`
	Winner       string          `json:"winner,omitempty"`
	Reason       Reason          `json:"reason"`
	BlackDiscs   int             `json:"black_discs"`
	WhiteDiscs   int             `json:"white_discs"`
	StartedAt    time.Time       `json:"started_at"`
	EndedAt      time.Time       `json:"ended_at"`
}

// Draw reports whether the game ended without a winner.
func (g *Game) Draw() bool { return g.Winner == "" }

// Loser returns the engine that lost, or "" on a draw.
func (g *Game) Loser() string {
	switch g.Winner {
	case g.Black:
		return g.White
	case g.White:
		return g.Black
	default:
		return ""
	}
}

// Duration returns the wall time of the game, never negative.
func (g *Game) Duration() time.Duration {
	d := g.EndedAt.Sub(g.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Clone returns an independent copy.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.Moves = append([]string(nil), g.Moves...)
	out.MoveTimes = append([]time.Duration(nil), g.MoveTimes...)
	return &out
}

// Tournament is the metadata written once when a series starts.
type Tournament struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Games       int       `json:"games"`
	Players     []string  `json:"players"`
	TimeControl string    `json:"time_control"`
	StartedAt   time.Time `json:"started_at"`
}

// Clone returns an independent copy.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	out := *t
	out.Players = append([]string(nil), t.Players...)
	return &out
}

// Score is one engine's tally in a tournament.
type Score struct {
	Engine string `json:"engine"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
}

// Points scores a win as 1 and a draw as half.
func (s Score) Points() float64 {
	return float64(s.Wins) + float64(s.Draws)/2
}

// Games returns the number of games behind the tally.
func (s Score) Games() int {
	return s.Wins + s.Losses + s.Draws
}

// Standings is the current table of a tournament, best placed first.
type Standings struct {
	TournamentID string    `json:"tournament_id"`
	Scores       []Score   `json:"scores"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sort orders scores by points, then wins, then engine name.
func (s *Standings) Sort() {
	sort.SliceStable(s.Scores, func(i, j int) bool {
		a, b := s.Scores[i], s.Scores[j]
		if a.Points() != b.Points() {
			return a.Points() > b.Points()
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.Engine < b.Engine
	})
}

// Leader returns the top score, if any.
func (s *Standings) Leader() (Score, bool) {
	if len(s.Scores) == 0 {
		return Score{}, false
	}
	return s.Scores[0], true
}
