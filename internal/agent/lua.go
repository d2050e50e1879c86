package agent

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// DefaultScript is the built-in evaluation, equivalent to the greedy
// ranking.
//
//go:embed score_default.lua
var DefaultScript string

const scriptChunkName = "agent-script"

// LuaOptions parameterizes a Lua agent. Script must define a global
// function score(cells, move) returning a number.
type LuaOptions struct {
	Preset Preset
	Seed   int64
	Script string
}

// Lua ranks moves with a user-supplied Lua evaluation function, then
// chooses through the preset's weighted window. The script is compiled
// once; every Pick runs it in a fresh interpreter state, so scripts
// cannot carry state between moves.
type Lua struct {
	opt   LuaOptions
	proto *lua.FunctionProto
	mu    sync.Mutex
	r     *rand.Rand
}

// NewLua compiles and dry-runs the script, verifying that it defines a
// score function.
func NewLua(opt LuaOptions) (*Lua, error) {
	if err := ValidatePreset(opt.Preset); err != nil {
		return nil, err
	}
	chunk, err := parse.Parse(strings.NewReader(opt.Script), scriptChunkName)
	if err != nil {
		return nil, fmt.Errorf("parse agent script: %w", err)
	}
	proto, err := lua.Compile(chunk, scriptChunkName)
	if err != nil {
		return nil, fmt.Errorf("compile agent script: %w", err)
	}

	L := lua.NewState()
	defer L.Close()
	if err := runProto(L, proto); err != nil {
		return nil, fmt.Errorf("load agent script: %w", err)
	}
	if fn := L.GetGlobal("score"); fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("agent script must define a score function, got %s", fn.Type())
	}

	return &Lua{opt: opt, proto: proto, r: newRand(opt.Seed)}, nil
}

func (a *Lua) Name() string { return KindLua }

func (a *Lua) Pick(ctx context.Context, pos *reversi.Position) (reversi.Move, error) {
	if err := ctx.Err(); err != nil {
		return reversi.Move{}, err
	}
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return reversi.Move{}, ErrNoLegalMove
	}

	candidates, err := a.rank(ctx, pos, legal)
	if err != nil {
		return reversi.Move{}, err
	}

	a.mu.Lock()
	chosen, err := SelectCandidate(a.opt.Preset, candidates, a.r)
	a.mu.Unlock()
	if err != nil {
		return reversi.Move{}, err
	}
	return chosen.Move, nil
}

func (a *Lua) rank(ctx context.Context, pos *reversi.Position, legal []reversi.Square) ([]Candidate, error) {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	if err := runProto(L, a.proto); err != nil {
		return nil, fmt.Errorf("load agent script: %w", err)
	}
	fn := L.GetGlobal("score")
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("agent script must define a score function, got %s", fn.Type())
	}

	board := pos.Board()
	mover := pos.ToMove()
	cells := cellsTable(L, board)

	candidates := make([]Candidate, 0, len(legal))
	for _, sq := range legal {
		score, err := callScore(L, fn, cells, board, sq, mover)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", sq, err)
		}
		candidates = append(candidates, Candidate{
			Move:  reversi.Move{Square: sq, Color: mover},
			Score: score,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

func callScore(L *lua.LState, fn lua.LValue, cells *lua.LTable, board reversi.Board, sq reversi.Square, mover reversi.Color) (int, error) {
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, cells, moveTable(L, board, sq, mover)); err != nil {
		return 0, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("score returned %s, want number", ret.Type())
	}
	return int(math.Round(float64(n))), nil
}

// cellsTable renders the board as a 64-entry array: index 1 is a1, index
// 64 is h8, values are the color letters with "" for empty cells.
func cellsTable(L *lua.LState, board reversi.Board) *lua.LTable {
	t := L.CreateTable(64, 0)
	for sq := reversi.Square(0); sq < 64; sq++ {
		t.Append(lua.LString(board.At(sq).Letter()))
	}
	return t
}

// moveTable describes one candidate move for the script: its square in
// algebraic and numeric form, the mover's color, and the squares it
// would flip.
func moveTable(L *lua.LState, board reversi.Board, sq reversi.Square, mover reversi.Color) *lua.LTable {
	flips := board.Flips(sq, mover)
	ft := L.CreateTable(len(flips), 0)
	for _, f := range flips {
		ft.Append(lua.LString(f.String()))
	}

	t := L.CreateTable(0, 5)
	t.RawSetString("square", lua.LString(sq.String()))
	t.RawSetString("file", lua.LNumber(sq.File()+1))
	t.RawSetString("rank", lua.LNumber(sq.Rank()+1))
	t.RawSetString("color", lua.LString(mover.Letter()))
	t.RawSetString("flips", ft)
	return t
}

func runProto(L *lua.LState, proto *lua.FunctionProto) error {
	L.Push(L.NewFunctionFromProto(proto))
	return L.PCall(0, lua.MultRet, nil)
}
