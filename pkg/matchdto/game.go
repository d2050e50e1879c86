package matchdto

import "time"

// GameSummary is one game on the wire. Moves are the 3-char tokens in
// played order; ThinkMS is the measured think time per move, aligned
// with Moves.
type GameSummary struct {
	ID           string    `json:"id"`
	TournamentID string    `json:"tournament_id"`
	Round        int       `json:"round"`
	Black        string    `json:"black"`
	White        string    `json:"white"`
	Moves        []string  `json:"moves,omitempty"`
	ThinkMS      []int64   `json:"think_ms,omitempty"`
	Winner       string    `json:"winner,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	BlackDiscs   int       `json:"black_discs"`
	WhiteDiscs   int       `json:"white_discs"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
}

type ScoreRow struct {
	Engine string  `json:"engine"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Draws  int     `json:"draws"`
	Points float64 `json:"points"`
}

// StandingsSnapshot is the table as served and broadcast, best placed
// first.
type StandingsSnapshot struct {
	TournamentID string     `json:"tournament_id"`
	Name         string     `json:"name,omitempty"`
	Scores       []ScoreRow `json:"scores"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MoveEvent is broadcast for every move of a live game.
type MoveEvent struct {
	GameID     string `json:"game_id"`
	Move       string `json:"move"`
	ThinkMS    int64  `json:"think_ms"`
	BlackDiscs int    `json:"black_discs"`
	WhiteDiscs int    `json:"white_discs"`
}
