// Package agent implements the decision policies an engine process can
// run: a uniform random baseline, a greedy material scorer, and a
// Lua-scripted scorer. Greedy and Lua rank candidates and then choose
// through the preset's weighted window, optionally consulting the
// opening book first.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Frojdholm/reversi-tournament/internal/openings"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Agent kinds selectable from configuration.
const (
	KindRandom = "random"
	KindGreedy = "greedy"
	KindLua    = "lua"
)

// Agent picks a move for the side to move on the given position.
type Agent interface {
	Name() string
	Pick(ctx context.Context, pos *reversi.Position) (reversi.Move, error)
}

// Options selects and parameterizes an agent.
type Options struct {
	Kind          string
	Preset        string
	Seed          int64
	Script        string
	Book          *openings.Book
	BookMaxPly    int
	BookMinWeight int
}

// New builds the agent opt.Kind names.
func New(opt Options) (Agent, error) {
	switch opt.Kind {
	case KindRandom:
		return NewRandom(opt.Seed), nil
	case KindGreedy:
		preset, err := GetPreset(opt.Preset)
		if err != nil {
			return nil, err
		}
		return NewGreedy(GreedyOptions{
			Preset:        preset,
			Seed:          opt.Seed,
			Book:          opt.Book,
			BookMaxPly:    opt.BookMaxPly,
			BookMinWeight: opt.BookMinWeight,
		})
	case KindLua:
		preset, err := GetPreset(opt.Preset)
		if err != nil {
			return nil, err
		}
		script := opt.Script
		if script == "" {
			script = DefaultScript
		}
		return NewLua(LuaOptions{
			Preset: preset,
			Seed:   opt.Seed,
			Script: script,
		})
	default:
		return nil, fmt.Errorf("unknown agent kind: %q", opt.Kind)
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
