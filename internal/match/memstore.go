package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
)

// MemStore keeps everything in process memory. Returned records are
// copies, so callers can mutate them freely.
type MemStore struct {
	mu           sync.RWMutex
	tournaments  map[string]*domain.Tournament
	games        map[string]*domain.Game
	byTournament map[string][]string
	standings    map[string]map[string]*domain.Score
	updatedAt    map[string]time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		tournaments:  make(map[string]*domain.Tournament),
		games:        make(map[string]*domain.Game),
		byTournament: make(map[string][]string),
		standings:    make(map[string]map[string]*domain.Score),
		updatedAt:    make(map[string]time.Time),
	}
}

func (s *MemStore) CreateTournament(_ context.Context, t *domain.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[t.ID]; ok {
		return ErrTournamentExists
	}
	s.tournaments[t.ID] = t.Clone()
	return nil
}

func (s *MemStore) Tournament(_ context.Context, id string) (*domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tournaments[id].Clone(), nil
}

func (s *MemStore) SaveGame(_ context.Context, g *domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[g.ID]; !ok {
		s.byTournament[g.TournamentID] = append(s.byTournament[g.TournamentID], g.ID)
	}
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *MemStore) Game(_ context.Context, id string) (*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id].Clone(), nil
}

func (s *MemStore) Games(_ context.Context, tournamentID string) ([]*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byTournament[tournamentID]
	out := make([]*domain.Game, 0, len(ids))
	for _, id := range ids {
		if g := s.games[id]; g != nil {
			out = append(out, g.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *MemStore) ApplyResult(_ context.Context, g *domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores, ok := s.standings[g.TournamentID]
	if !ok {
		scores = make(map[string]*domain.Score)
		s.standings[g.TournamentID] = scores
	}
	if err := applyToScores(scores, g); err != nil {
		return err
	}
	s.updatedAt[g.TournamentID] = time.Now()
	return nil
}

func (s *MemStore) Standings(_ context.Context, tournamentID string) (*domain.Standings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores, ok := s.standings[tournamentID]
	if !ok {
		return nil, nil
	}
	return standingsFrom(tournamentID, scores, s.updatedAt[tournamentID]), nil
}

func (s *MemStore) Close() error { return nil }
