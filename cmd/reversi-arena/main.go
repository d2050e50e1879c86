// Command reversi-arena plays an agent-vs-agent series inside one
// process. No engine subprocesses are spawned: each worker wires its
// agents to the host over in-memory pipes, so the full wire protocol
// still runs. Useful for quick policy evaluation and preset tuning.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Frojdholm/reversi-tournament/internal/agent"
	"github.com/Frojdholm/reversi-tournament/internal/engine"
	"github.com/Frojdholm/reversi-tournament/internal/host"
	"github.com/Frojdholm/reversi-tournament/internal/match"
	"github.com/Frojdholm/reversi-tournament/internal/msgcat"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/openings"
	"github.com/Frojdholm/reversi-tournament/internal/present"
)

var (
	specA       = flag.String("a", "greedy:club", "first agent as kind[:preset]")
	specB       = flag.String("b", "random", "second agent as kind[:preset]")
	games       = flag.Int("games", 20, "games in the series")
	initialMs   = flag.Int("initial", 2000, "clock budget per side in milliseconds")
	incrementMs = flag.Int("increment", 50, "increment per move in milliseconds")
	concurrency = flag.Int("concurrency", 4, "games running at once")
	seed        = flag.Int64("seed", 0, "series seed, 0 draws one from the clock")
	noBook      = flag.Bool("no-book", false, "start every game from the initial position")
	bookPly     = flag.Int("book-ply", 8, "longest forced opening prefix in plies")
	showMoves   = flag.Bool("moves", false, "print every move")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	var book *openings.Book
	if !*noBook {
		b, err := openings.Load()
		if err != nil {
			log.Fatalf("opening book error: %v", err)
		}
		book = b
	}

	cat, err := msgcat.New("")
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	nameA, nameB := *specA, *specB
	if nameA == nameB {
		nameA += "-a"
		nameB += "-b"
	}

	// Each worker launches its own pair; distinct derived seeds keep the
	// agents from mirroring each other when a series seed is given.
	var launches atomic.Int64
	launcher := func(ctx context.Context, spec host.EngineSpec) (host.Player, error) {
		kind, preset, err := parseAgentSpec(spec.Command)
		if err != nil {
			return nil, err
		}
		agentSeed := int64(0)
		if *seed != 0 {
			agentSeed = *seed + launches.Add(1)
		}
		searcher, err := agent.New(agent.Options{
			Kind:       kind,
			Preset:     preset,
			Seed:       agentSeed,
			Book:       book,
			BookMaxPly: *bookPly,
		})
		if err != nil {
			return nil, err
		}
		return host.NewInProcessSession(ctx, spec.Name, engine.Info{Name: spec.Name, Author: "reversi-arena"}, searcher)
	}

	store := match.NewMemStore()
	defer store.Close()

	tournament, err := host.NewTournament(
		host.EngineSpec{Name: nameA, Command: *specA},
		host.EngineSpec{Name: nameB, Command: *specB},
		store, nil,
		host.TournamentOptions{
			Name:          fmt.Sprintf("%s vs %s", nameA, nameB),
			Games:         *games,
			Initial:       time.Duration(*initialMs) * time.Millisecond,
			Increment:     time.Duration(*incrementMs) * time.Millisecond,
			EnforceFlag:   true,
			Concurrency:   *concurrency,
			Book:          book,
			OpeningMaxPly: *bookPly,
			Seed:          *seed,
			Launcher:      launcher,
		},
		present.NewReporter(cat, os.Stdout, *showMoves),
	)
	if err != nil {
		log.Fatalf("series init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := tournament.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("series error: %v", err)
	}
}

func parseAgentSpec(s string) (kind, preset string, err error) {
	kind, preset, _ = strings.Cut(strings.TrimSpace(s), ":")
	kind = strings.ToLower(strings.TrimSpace(kind))
	preset = strings.TrimSpace(preset)
	if kind == "" {
		return "", "", fmt.Errorf("empty agent spec")
	}
	if preset == "" {
		preset = "club"
	}
	return kind, preset, nil
}
