// Package config loads process configuration: environment settings for
// the binaries, the YAML tournament manifest, and the spectator client's
// config file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	EngineName   string
	EngineAuthor string

	AgentKind       string
	AgentPreset     string
	AgentSeed       int64
	AgentScriptPath string

	OpeningBook      bool
	OpeningMaxPly    int
	OpeningMinWeight int

	RedisURL    string
	DatabaseURL string
	WebhookURL  string

	LiveAddr     string
	ManifestPath string

	// SnapshotDir, when set, receives one final-board PNG per game.
	SnapshotDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EngineName:       "reversi-tournament",
		EngineAuthor:     "the reversi-tournament authors",
		AgentKind:        "greedy",
		AgentPreset:      "club",
		OpeningBook:      true,
		OpeningMaxPly:    8,
		OpeningMinWeight: 1,
		LiveAddr:         ":8080",
		ManifestPath:     DefaultManifestPath(),
	}

	if v := strings.TrimSpace(os.Getenv("ENGINE_NAME")); v != "" {
		cfg.EngineName = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_AUTHOR")); v != "" {
		cfg.EngineAuthor = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_AGENT")); v != "" {
		cfg.AgentKind = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_PRESET")); v != "" {
		cfg.AgentPreset = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_SEED")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ENGINE_SEED must be an integer: %w", err)
		}
		cfg.AgentSeed = n
	}
	cfg.AgentScriptPath = strings.TrimSpace(os.Getenv("AGENT_SCRIPT"))

	if v := strings.TrimSpace(os.Getenv("OPENING_BOOK")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OpeningBook = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("OPENING_MAX_PLY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OpeningMaxPly = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OPENING_MIN_WEIGHT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OpeningMinWeight = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.WebhookURL = strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL"))

	if v := strings.TrimSpace(os.Getenv("LIVE_ADDR")); v != "" {
		cfg.LiveAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_MANIFEST")); v != "" {
		cfg.ManifestPath = v
	}
	cfg.SnapshotDir = strings.TrimSpace(os.Getenv("BOARD_SNAPSHOT_DIR"))

	return cfg, nil
}
