package host

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/match"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/openings"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Launcher builds a Player for an engine spec. The default launches a
// subprocess; the arena and tests substitute in-process players.
type Launcher func(ctx context.Context, spec EngineSpec) (Player, error)

// ExecLauncher is the subprocess Launcher.
func ExecLauncher(ctx context.Context, spec EngineSpec) (Player, error) {
	return NewSession(ctx, spec)
}

// TournamentOptions parameterize a head-to-head series.
type TournamentOptions struct {
	Name        string
	Games       int
	Initial     time.Duration
	Increment   time.Duration
	EnforceFlag bool

	// Concurrency is how many games run at once. Each worker launches
	// its own pair of engine sessions.
	Concurrency int

	// Book assigns each pairing a forced opening line, so the rematch
	// with colors swapped replays the same opening. Nil plays every game
	// from the bare start position.
	Book          *openings.Book
	OpeningMaxPly int

	Seed     int64
	Pacing   Pacing
	Launcher Launcher
}

// Tournament runs a series between two engines, records every game in
// the match store, and reports events to its observers.
type Tournament struct {
	a, b  EngineSpec
	opt   TournamentOptions
	store match.Store
	repo  *match.Repository
	obs   Observer
}

// NewTournament validates the pairing. repo may be nil when long-term
// archiving is off; observers may be empty.
func NewTournament(a, b EngineSpec, store match.Store, repo *match.Repository, opt TournamentOptions, obs ...Observer) (*Tournament, error) {
	if store == nil {
		return nil, fmt.Errorf("match store required")
	}
	if a.Name == "" || b.Name == "" {
		return nil, fmt.Errorf("both engines need a name")
	}
	if a.Name == b.Name {
		return nil, fmt.Errorf("engine names must differ, both are %q", a.Name)
	}
	if opt.Games <= 0 {
		opt.Games = 1
	}
	if opt.Initial <= 0 {
		return nil, fmt.Errorf("initial time must be positive")
	}
	if opt.Concurrency <= 0 {
		opt.Concurrency = 1
	}
	if opt.Launcher == nil {
		opt.Launcher = ExecLauncher
	}
	return &Tournament{a: a, b: b, opt: opt, store: store, repo: repo, obs: CombineObservers(obs...)}, nil
}

// Run plays the whole series and returns the final standings. Forfeits
// are results, not errors; Run fails only when the context ends, an
// engine cannot be (re)launched, or the store rejects a write.
func (t *Tournament) Run(ctx context.Context) (*domain.Standings, error) {
	record := &domain.Tournament{
		ID:          match.NewTournamentID(),
		Name:        t.opt.Name,
		Games:       t.opt.Games,
		Players:     []string{t.a.Name, t.b.Name},
		TimeControl: fmt.Sprintf("%s+%s", t.opt.Initial, t.opt.Increment),
		StartedAt:   time.Now(),
	}
	if record.Name == "" {
		record.Name = record.ID
	}
	if err := t.store.CreateTournament(ctx, record); err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}
	if t.repo != nil {
		if err := t.repo.SaveTournament(ctx, record); err != nil {
			obslog.L().Warn("tournament_archive_failed", zap.String("tournament", record.ID), zap.Error(err))
		}
	}
	obslog.L().Info("tournament_started",
		zap.String("tournament", record.ID),
		zap.String("black_first", t.a.Name),
		zap.String("opponent", t.b.Name),
		zap.Int("games", t.opt.Games),
		zap.Int("concurrency", t.opt.Concurrency))
	t.obs.TournamentStarted(ctx, record.Clone())

	lines := t.drawOpenings()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rounds := make(chan int)
	go func() {
		defer close(rounds)
		for round := 1; round <= t.opt.Games; round++ {
			select {
			case rounds <- round:
			case <-runCtx.Done():
				return
			}
		}
	}()

	workers := t.opt.Concurrency
	if workers > t.opt.Games {
		workers = t.opt.Games
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := t.runWorker(runCtx, record, rounds, lines); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	standings, err := t.store.Standings(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("load standings: %w", err)
	}
	if standings == nil {
		standings = &domain.Standings{TournamentID: record.ID, UpdatedAt: time.Now()}
	}
	t.obs.TournamentFinished(ctx, record.Clone(), standings)
	return standings, nil
}

// runWorker owns one pair of sessions and plays the rounds it receives.
func (t *Tournament) runWorker(ctx context.Context, record *domain.Tournament, rounds <-chan int, lines [][]reversi.Move) error {
	specs := [2]EngineSpec{t.a, t.b}
	var players [2]Player
	defer func() {
		for _, p := range players {
			if p != nil {
				_ = p.Close()
			}
		}
	}()
	for i := range specs {
		p, err := t.opt.Launcher(ctx, specs[i])
		if err != nil {
			return fmt.Errorf("launch %s: %w", specs[i].Name, err)
		}
		players[i] = p
	}

	half := (t.opt.Games + 1) / 2
	for round := range rounds {
		// The first engine takes black for the front half of the series,
		// then colors swap and the openings repeat pairing by pairing.
		blackIdx, whiteIdx := 0, 1
		pairing := round - 1
		if round > half {
			blackIdx, whiteIdx = 1, 0
			pairing = round - half - 1
		}
		var opening []reversi.Move
		if pairing < len(lines) {
			opening = lines[pairing]
		}

		g, err := t.playRound(ctx, record, round, players[blackIdx], players[whiteIdx], opening)
		if err != nil {
			return err
		}

		// A protocol forfeit leaves the losing session in an unknown
		// state, possibly with a reader still pending. Replace it.
		if g.Reason == domain.ReasonProtocol {
			loserIdx := blackIdx
			if g.Winner == g.Black {
				loserIdx = whiteIdx
			}
			_ = players[loserIdx].Close()
			players[loserIdx] = nil
			p, err := t.opt.Launcher(ctx, specs[loserIdx])
			if err != nil {
				return fmt.Errorf("relaunch %s: %w", specs[loserIdx].Name, err)
			}
			players[loserIdx] = p
		}

		if err := t.opt.Pacing.SleepGame(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tournament) playRound(ctx context.Context, record *domain.Tournament, round int, black, white Player, opening []reversi.Move) (*domain.Game, error) {
	gameID := match.NewGameID()
	t.obs.GameStarted(ctx, &domain.Game{
		ID:           gameID,
		TournamentID: record.ID,
		Round:        round,
		Black:        black.Label(),
		White:        white.Label(),
		StartedAt:    time.Now(),
	})

	g, err := PlayGame(ctx, black, white, GameOptions{
		Initial:     t.opt.Initial,
		Increment:   t.opt.Increment,
		Opening:     opening,
		EnforceFlag: t.opt.EnforceFlag,
		Pacing:      t.opt.Pacing,
		OnMove: func(m reversi.Move, thinkTime time.Duration, pos *reversi.Position) {
			t.obs.MovePlayed(ctx, gameID, m, thinkTime, pos)
		},
	})
	if err != nil {
		return nil, err
	}
	g.ID = gameID
	g.TournamentID = record.ID
	g.Round = round

	if err := t.store.SaveGame(ctx, g); err != nil {
		return nil, fmt.Errorf("save game %s: %w", gameID, err)
	}
	if err := t.store.ApplyResult(ctx, g); err != nil {
		return nil, fmt.Errorf("tally game %s: %w", gameID, err)
	}
	if t.repo != nil {
		if err := t.repo.SaveGame(ctx, g); err != nil {
			obslog.L().Warn("game_archive_failed", zap.String("game", gameID), zap.Error(err))
		}
	}

	obslog.L().Info("game_finished",
		zap.String("game", gameID),
		zap.Int("round", round),
		zap.String("black", g.Black),
		zap.String("white", g.White),
		zap.String("winner", g.Winner),
		zap.String("reason", string(g.Reason)),
		zap.Int("black_discs", g.BlackDiscs),
		zap.Int("white_discs", g.WhiteDiscs),
		zap.Int("moves", len(g.Moves)))
	t.obs.GameFinished(ctx, g.Clone())
	return g, nil
}

// drawOpenings picks one book line per pairing up front, so concurrent
// workers share a fixed, race-free schedule.
func (t *Tournament) drawOpenings() [][]reversi.Move {
	half := (t.opt.Games + 1) / 2
	lines := make([][]reversi.Move, half)
	if t.opt.Book == nil || t.opt.Book.Len() == 0 {
		return lines
	}
	seed := t.opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))
	for i := range lines {
		entry, moves, ok := t.opt.Book.RandomLine(r)
		if !ok {
			break
		}
		if t.opt.OpeningMaxPly > 0 && len(moves) > t.opt.OpeningMaxPly {
			moves = moves[:t.opt.OpeningMaxPly]
		}
		lines[i] = moves
		obslog.L().Info("opening_assigned",
			zap.Int("pairing", i+1),
			zap.String("opening", entry.Key),
			zap.String("moves", reversi.FormatMoves(moves)))
	}
	return lines
}
