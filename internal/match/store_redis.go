package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
)

const (
	ttlRecord    = 24 * time.Hour
	maxTxRetries = 5
)

// RedisStore shares one tournament between processes. Records are JSON
// values with a rolling TTL; standings updates run under WATCH so
// concurrent hosts cannot lose increments.
type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(redisURL string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func keyTournament(id string) string { return "rv:t:" + strings.TrimSpace(id) }
func keyGame(id string) string       { return "rv:game:" + strings.TrimSpace(id) }
func keyGames(tid string) string     { return keyTournament(tid) + ":games" }
func keyStandings(tid string) string { return keyTournament(tid) + ":standings" }

func (s *RedisStore) CreateTournament(ctx context.Context, t *domain.Tournament) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, keyTournament(t.ID), raw, ttlRecord).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrTournamentExists
	}
	return nil
}

func (s *RedisStore) Tournament(ctx context.Context, id string) (*domain.Tournament, error) {
	raw, err := s.rdb.Get(ctx, keyTournament(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t domain.Tournament
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *RedisStore) SaveGame(ctx context.Context, g *domain.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyGame(g.ID), raw, ttlRecord).Err(); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, keyGames(g.TournamentID), g.ID).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, keyGames(g.TournamentID), ttlRecord).Err()
}

func (s *RedisStore) Game(ctx context.Context, id string) (*domain.Game, error) {
	raw, err := s.rdb.Get(ctx, keyGame(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *RedisStore) Games(ctx context.Context, tournamentID string) ([]*domain.Game, error) {
	ids, err := s.rdb.SMembers(ctx, keyGames(tournamentID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Game, 0, len(ids))
	for _, id := range ids {
		g, err := s.Game(ctx, id)
		if err != nil {
			return nil, err
		}
		if g != nil {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// standingsDoc is the stored form of a tournament's tallies.
type standingsDoc struct {
	Scores    map[string]*domain.Score `json:"scores"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// ApplyResult folds the game into the standings under WATCH, retrying a
// handful of times when another host commits first.
func (s *RedisStore) ApplyResult(ctx context.Context, g *domain.Game) error {
	key := keyStandings(g.TournamentID)
	apply := func(tx *redis.Tx) error {
		doc := standingsDoc{Scores: make(map[string]*domain.Score)}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}
		}
		if err := applyToScores(doc.Scores, g); err != nil {
			return err
		}
		doc.UpdatedAt = time.Now()
		newRaw, err := json.Marshal(&doc)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, ttlRecord)
		_, err = pipe.Exec(ctx)
		return err
	}

	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = s.rdb.Watch(ctx, apply, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *RedisStore) Standings(ctx context.Context, tournamentID string) (*domain.Standings, error) {
	raw, err := s.rdb.Get(ctx, keyStandings(tournamentID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc := standingsDoc{Scores: make(map[string]*domain.Score)}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return standingsFrom(tournamentID, doc.Scores, doc.UpdatedAt), nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
