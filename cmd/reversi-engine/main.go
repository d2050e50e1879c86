// Command reversi-engine speaks the reversi_v1 protocol on
// stdin/stdout. The decision policy, identity and opening book come
// from the environment, so a tournament manifest can field different
// builds of this one binary through per-player env entries.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/agent"
	"github.com/Frojdholm/reversi-tournament/internal/config"
	"github.com/Frojdholm/reversi-tournament/internal/engine"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/openings"
)

func main() {
	_ = godotenv.Load()
	// Stdout carries the wire protocol, so engine logging is file-only
	// unless console output is asked for explicitly.
	if os.Getenv("LOG_TO_CONSOLE") == "" {
		os.Setenv("LOG_TO_CONSOLE", "false")
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var book *openings.Book
	if cfg.OpeningBook {
		book, err = openings.Load()
		if err != nil {
			obslog.L().Warn("opening_book_unavailable", zap.Error(err))
			book = nil
		}
	}

	searcher, err := agent.New(agent.Options{
		Kind:          cfg.AgentKind,
		Preset:        cfg.AgentPreset,
		Seed:          cfg.AgentSeed,
		Script:        cfg.AgentScriptPath,
		Book:          book,
		BookMaxPly:    cfg.OpeningMaxPly,
		BookMinWeight: cfg.OpeningMinWeight,
	})
	if err != nil {
		log.Fatalf("agent init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := engine.NewSession(engine.Info{Name: cfg.EngineName, Author: cfg.EngineAuthor}, searcher, os.Stdout)
	runner := engine.NewRunner(session, os.Stdin)

	obslog.L().Info("engine_ready",
		zap.String("name", cfg.EngineName),
		zap.String("agent", searcher.Name()))

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		obslog.L().Error("engine_stopped", zap.Error(err))
		os.Exit(1)
	}
}
