package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
)

// Repository archives tournaments and finished games in postgres. It is
// optional; callers treat archive failures as non-fatal and only log
// them.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &Repository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS reversi_tournaments (
    tournament_id TEXT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    games         INT  NOT NULL DEFAULT 0,
    players       TEXT NOT NULL DEFAULT '[]',
    time_control  TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS reversi_games (
    game_id       TEXT PRIMARY KEY,
    tournament_id TEXT NOT NULL DEFAULT '',
    round         INT  NOT NULL DEFAULT 0,
    black_name    TEXT NOT NULL DEFAULT '',
    white_name    TEXT NOT NULL DEFAULT '',
    moves         TEXT NOT NULL DEFAULT '',
    move_times_ms TEXT NOT NULL DEFAULT '[]',
    winner        TEXT NOT NULL DEFAULT '',
    reason        TEXT NOT NULL DEFAULT '',
    black_discs   INT  NOT NULL DEFAULT 0,
    white_discs   INT  NOT NULL DEFAULT 0,
    started_at    TIMESTAMPTZ,
    ended_at      TIMESTAMPTZ,
    duration_ms   BIGINT NOT NULL DEFAULT 0
);`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveTournament upserts the tournament metadata row.
func (r *Repository) SaveTournament(ctx context.Context, t *domain.Tournament) error {
	if r == nil || r.db == nil || t == nil {
		return nil
	}
	players, _ := json.Marshal(t.Players)
	q := `INSERT INTO reversi_tournaments (
        tournament_id, name, games, players, time_control, started_at
      ) VALUES ($1,$2,$3,$4,$5,$6)
      ON CONFLICT (tournament_id) DO UPDATE SET
        name=EXCLUDED.name,
        games=EXCLUDED.games,
        players=EXCLUDED.players,
        time_control=EXCLUDED.time_control,
        started_at=EXCLUDED.started_at`
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.Name, t.Games, string(players), t.TimeControl, t.StartedAt)
	return err
}

// SaveGame upserts one finished game. The transcript is stored in wire
// form, think times as a JSON list of milliseconds.
func (r *Repository) SaveGame(ctx context.Context, g *domain.Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	times := make([]int64, len(g.MoveTimes))
	for i, d := range g.MoveTimes {
		times[i] = d.Milliseconds()
	}
	timesRaw, _ := json.Marshal(times)

	q := `INSERT INTO reversi_games (
        game_id, tournament_id, round, black_name, white_name,
        moves, move_times_ms, winner, reason, black_discs, white_discs,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
      ) ON CONFLICT (game_id) DO UPDATE SET
        tournament_id=EXCLUDED.tournament_id,
        round=EXCLUDED.round,
        black_name=EXCLUDED.black_name,
        white_name=EXCLUDED.white_name,
        moves=EXCLUDED.moves,
        move_times_ms=EXCLUDED.move_times_ms,
        winner=EXCLUDED.winner,
        reason=EXCLUDED.reason,
        black_discs=EXCLUDED.black_discs,
        white_discs=EXCLUDED.white_discs,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		g.ID, g.TournamentID, g.Round,
		g.Black, g.White,
		strings.Join(g.Moves, " "), string(timesRaw),
		g.Winner, string(g.Reason),
		g.BlackDiscs, g.WhiteDiscs,
		g.StartedAt, g.EndedAt, g.Duration().Milliseconds(),
	)
	return err
}

// RecentGames returns the latest archived games, newest first.
func (r *Repository) RecentGames(ctx context.Context, limit int) ([]*domain.Game, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT game_id, tournament_id, round, black_name, white_name,
            moves, move_times_ms, winner, reason, black_discs, white_discs,
            started_at, ended_at
          FROM reversi_games ORDER BY ended_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Game
	for rows.Next() {
		var g domain.Game
		var moves, timesRaw, reason string
		if err := rows.Scan(&g.ID, &g.TournamentID, &g.Round, &g.Black, &g.White,
			&moves, &timesRaw, &g.Winner, &reason, &g.BlackDiscs, &g.WhiteDiscs,
			&g.StartedAt, &g.EndedAt); err != nil {
			return nil, err
		}
		g.Moves = strings.Fields(moves)
		var ms []int64
		if err := json.Unmarshal([]byte(timesRaw), &ms); err == nil {
			g.MoveTimes = make([]time.Duration, len(ms))
			for i, v := range ms {
				g.MoveTimes[i] = time.Duration(v) * time.Millisecond
			}
		}
		g.Reason = domain.Reason(reason)
		out = append(out, &g)
	}
	return out, rows.Err()
}
