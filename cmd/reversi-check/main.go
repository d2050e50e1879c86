// Command reversi-check probes one engine binary: it spawns the
// command, runs the protocol handshake and an isready round-trip, and
// reports the engine's identity and response latency. Meant for CI
// smoke checks and for validating a manifest entry before a series.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Frojdholm/reversi-tournament/internal/host"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
)

var (
	timeout = flag.Duration("timeout", 10*time.Second, "overall probe budget")
	name    = flag.String("name", "", "label for the probed engine (default: the command)")
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: reversi-check [-timeout 10s] [-name label] <command> [args...]")
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	spec := host.EngineSpec{
		Name:    *name,
		Command: flag.Arg(0),
		Args:    flag.Args()[1:],
	}

	started := time.Now()
	session, err := host.NewSession(ctx, spec)
	if err != nil {
		log.Fatalf("handshake failed: %v", err)
	}
	defer session.Close()
	handshake := time.Since(started)

	info := session.Info()
	log.Printf("handshake ok: name=%q author=%q in %s", info.Name, info.Author, handshake.Round(time.Millisecond))

	started = time.Now()
	if err := session.EnsureReady(ctx); err != nil {
		log.Fatalf("isready failed: %v", err)
	}
	log.Printf("isready ok in %s", time.Since(started).Round(time.Millisecond))
}
