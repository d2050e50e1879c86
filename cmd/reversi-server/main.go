// Command reversi-server referees one tournament: it spawns the engines
// named in the manifest, plays the series, and serves the spectator
// surface while games run. Storage, archive and webhook sinks attach
// according to the environment.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/config"
	"github.com/Frojdholm/reversi-tournament/internal/matchbuilder"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
)

var (
	manifestPath = flag.String("manifest", "", "tournament manifest (default $ARENA_MANIFEST, then tournament.yaml)")
	liveAddr     = flag.String("addr", "", "live view listen address (default $LIVE_ADDR)")
	showMoves    = flag.Bool("moves", false, "print every move to the console")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	path := *manifestPath
	if path == "" {
		path = cfg.ManifestPath
	}
	manifest, err := config.LoadManifest(path)
	if err != nil {
		log.Fatalf("manifest error: %v", err)
	}

	deps, err := matchbuilder.New(cfg, manifest, matchbuilder.Options{
		Narration: os.Stdout,
		ShowMoves: *showMoves,
	})
	if err != nil {
		log.Fatalf("init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := *liveAddr
	if addr == "" {
		addr = cfg.LiveAddr
	}

	// A live server failure, a bind error included, stops the series.
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		if err := deps.Live.Serve(runCtx, addr); err != nil {
			obslog.L().Error("live_server_failed", zap.Error(err))
			cancel()
		}
	}()

	standings, runErr := deps.Tournament.Run(runCtx)
	cancel()
	<-serveDone
	deps.Close()

	switch {
	case runErr == nil:
		if leader, ok := standings.Leader(); ok {
			obslog.L().Info("tournament_complete",
				zap.String("name", manifest.Name),
				zap.String("leader", leader.Engine),
				zap.Float64("points", leader.Points()))
		}
	case errors.Is(runErr, context.Canceled):
		obslog.L().Info("tournament_interrupted", zap.String("name", manifest.Name))
	default:
		obslog.L().Error("tournament_failed", zap.Error(runErr))
		os.Exit(1)
	}
}
