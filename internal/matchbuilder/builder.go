// Package matchbuilder assembles the tournament service from its
// configuration: storage, opening book, spectator server, notification
// sinks and the tournament host itself, wired in dependency order.
package matchbuilder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/config"
	"github.com/Frojdholm/reversi-tournament/internal/host"
	"github.com/Frojdholm/reversi-tournament/internal/live"
	"github.com/Frojdholm/reversi-tournament/internal/match"
	"github.com/Frojdholm/reversi-tournament/internal/msgcat"
	"github.com/Frojdholm/reversi-tournament/internal/notify"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/openings"
	"github.com/Frojdholm/reversi-tournament/internal/present"
	"github.com/Frojdholm/reversi-tournament/internal/render"
)

// Options tune the parts of the build that are not configuration:
// where console narration goes and whether per-move lines print.
type Options struct {
	Narration io.Writer
	ShowMoves bool
	Launcher  host.Launcher
}

// Deps holds the assembled service. Close releases the storage
// connections; everything else is torn down by canceling the run
// context.
type Deps struct {
	Store      match.Store
	Repo       *match.Repository
	Book       *openings.Book
	Renderer   render.BoardRenderer
	Live       *live.Server
	Notifier   notify.Notifier
	Catalog    *msgcat.Catalog
	Tournament *host.Tournament
}

// New builds the service for one tournament described by the manifest.
// The store is Redis when REDIS_URL is set and in-process otherwise;
// the Postgres archive and the webhook sink are attached only when
// configured.
func New(cfg *config.AppConfig, m *config.Manifest, opts Options) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required for matchbuilder")
	}
	if m == nil {
		return nil, fmt.Errorf("manifest is required for matchbuilder")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	if opts.Narration == nil {
		opts.Narration = os.Stdout
	}

	deps := &Deps{}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		store, err := match.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		deps.Store = store
	} else {
		deps.Store = match.NewMemStore()
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := match.NewRepository(cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		deps.Repo = repo
	}

	if m.Openings.BookEnabled() {
		book, err := openings.Load()
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("load opening book: %w", err)
		}
		deps.Book = book
	}

	cat, err := msgcat.New("")
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("load message catalog: %w", err)
	}
	deps.Catalog = cat

	deps.Renderer = render.NewBoardRenderer()
	deps.Live = live.NewServer(deps.Store, deps.Renderer)

	deps.Notifier = notify.Nop{}
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		deps.Notifier = notify.NewWebhook(cfg.WebhookURL)
	}

	observers := []host.Observer{
		present.NewReporter(cat, opts.Narration, opts.ShowMoves),
		deps.Live,
	}
	if _, quiet := deps.Notifier.(notify.Nop); !quiet {
		observers = append(observers, present.NewAnnouncer(cat, deps.Notifier))
	}
	if cfg.SnapshotDir != "" {
		snaps, err := present.NewSnapshotter(deps.Renderer, cfg.SnapshotDir)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("init snapshots: %w", err)
		}
		observers = append(observers, snaps)
	}

	if len(m.Players) > 2 {
		obslog.L().Warn("extra_players_ignored",
			zap.Int("configured", len(m.Players)),
			zap.String("tournament", m.Name))
	}
	black := engineSpec(m.Players[0])
	white := engineSpec(m.Players[1])

	tournament, err := host.NewTournament(black, white, deps.Store, deps.Repo, host.TournamentOptions{
		Name:          m.Name,
		Games:         m.Games,
		Initial:       m.Clock.Initial(),
		Increment:     m.Clock.Increment(),
		EnforceFlag:   m.FlagEnforced(),
		Concurrency:   m.Concurrency,
		Book:          deps.Book,
		OpeningMaxPly: m.Openings.MaxPly,
		Seed:          m.Openings.Seed,
		Pacing: host.Pacing{
			MoveDelay: m.Pacing.MoveDelay(),
			GameDelay: m.Pacing.GameDelay(),
			Jitter:    m.Pacing.Jitter,
		},
		Launcher: opts.Launcher,
	}, observers...)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("init tournament: %w", err)
	}
	deps.Tournament = tournament

	return deps, nil
}

// Close releases storage connections. Safe on a partially built Deps.
func (d *Deps) Close() {
	if d.Repo != nil {
		if err := d.Repo.Close(); err != nil {
			obslog.L().Warn("archive_close_failed", zap.Error(err))
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			obslog.L().Warn("store_close_failed", zap.Error(err))
		}
	}
}

func engineSpec(p config.PlayerSpec) host.EngineSpec {
	return host.EngineSpec{
		Name:    p.Name,
		Command: p.Command,
		Args:    append([]string(nil), p.Args...),
		Env:     append([]string(nil), p.Env...),
	}
}
