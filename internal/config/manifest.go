package config

import (
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Manifest describes one tournament: who plays, how many games each
// pairing runs, and the clock every game starts from.
type Manifest struct {
	Name        string         `yaml:"name"`
	Games       int            `yaml:"games"`
	Concurrency int            `yaml:"concurrency"`
	EnforceFlag *bool          `yaml:"enforce_flag"`
	Clock       ClockSettings  `yaml:"clock"`
	Players     []PlayerSpec   `yaml:"players"`
	Openings    OpeningPolicy  `yaml:"openings"`
	Pacing      PacingSettings `yaml:"pacing"`
}

// FlagEnforced reports whether flag falls lose the game. Unset means
// enforced.
func (m *Manifest) FlagEnforced() bool {
	return m.EnforceFlag == nil || *m.EnforceFlag
}

// OpeningPolicy controls the book lines forced at the start of each
// pairing.
type OpeningPolicy struct {
	Enabled *bool `yaml:"enabled"`
	MaxPly  int   `yaml:"max_ply"`
	Seed    int64 `yaml:"seed"`
}

// BookEnabled reports whether games start from book lines. Unset means
// enabled.
func (o OpeningPolicy) BookEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

// PacingSettings slow a series down for spectators. Zero values play
// at full speed.
type PacingSettings struct {
	MoveDelayMs int     `yaml:"move_delay_ms"`
	GameDelayMs int     `yaml:"game_delay_ms"`
	Jitter      float64 `yaml:"jitter"`
}

func (p PacingSettings) MoveDelay() time.Duration {
	return time.Duration(p.MoveDelayMs) * time.Millisecond
}

func (p PacingSettings) GameDelay() time.Duration {
	return time.Duration(p.GameDelayMs) * time.Millisecond
}

// ClockSettings is the per-side starting budget and increment, in
// milliseconds as written in the manifest.
type ClockSettings struct {
	InitialMs   int `yaml:"initial_ms"`
	IncrementMs int `yaml:"increment_ms"`
}

func (c ClockSettings) Initial() time.Duration {
	return time.Duration(c.InitialMs) * time.Millisecond
}

func (c ClockSettings) Increment() time.Duration {
	return time.Duration(c.IncrementMs) * time.Millisecond
}

// PlayerSpec is one engine entry: the command to spawn and any extra
// arguments and environment it needs.
type PlayerSpec struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
}

// DefaultManifestPath prefers tournament.yaml in the working directory
// and falls back to the copy under the XDG config directory.
func DefaultManifestPath() string {
	if _, err := os.Stat("tournament.yaml"); err == nil {
		return "tournament.yaml"
	}
	if p, err := xdg.SearchConfigFile("reversi-tournament/tournament.yaml"); err == nil {
		return p
	}
	return "tournament.yaml"
}

// LoadManifest reads and validates a tournament manifest.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Name == "" {
		m.Name = "unnamed tournament"
	}
	if m.Games == 0 {
		m.Games = 100
	}
	if m.Concurrency == 0 {
		m.Concurrency = 1
	}
	if m.Clock.InitialMs == 0 {
		m.Clock.InitialMs = 60000
	}
	if m.Openings.MaxPly == 0 {
		m.Openings.MaxPly = 8
	}
}

// Validate rejects manifests that cannot produce a playable tournament.
func (m *Manifest) Validate() error {
	if m.Games < 1 {
		return fmt.Errorf("games must be >= 1, got %d", m.Games)
	}
	if m.Clock.InitialMs < 1 {
		return fmt.Errorf("clock.initial_ms must be >= 1, got %d", m.Clock.InitialMs)
	}
	if m.Clock.IncrementMs < 0 {
		return fmt.Errorf("clock.increment_ms must be >= 0, got %d", m.Clock.IncrementMs)
	}
	if m.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", m.Concurrency)
	}
	if m.Pacing.MoveDelayMs < 0 || m.Pacing.GameDelayMs < 0 {
		return fmt.Errorf("pacing delays must be >= 0")
	}
	if m.Pacing.Jitter < 0 || m.Pacing.Jitter > 1 {
		return fmt.Errorf("pacing.jitter must be within [0, 1], got %v", m.Pacing.Jitter)
	}
	if len(m.Players) < 2 {
		return fmt.Errorf("need at least 2 players, got %d", len(m.Players))
	}
	seen := make(map[string]bool, len(m.Players))
	for i, p := range m.Players {
		if p.Name == "" {
			return fmt.Errorf("player %d has no name", i+1)
		}
		if p.Command == "" {
			return fmt.Errorf("player %q has no command", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate player name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
