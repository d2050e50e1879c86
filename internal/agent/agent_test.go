package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Frojdholm/reversi-tournament/internal/openings"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

func boardFrom(t *testing.T, black, white []string) reversi.Board {
	t.Helper()
	cells := make(map[reversi.Square]reversi.Color)
	for _, name := range black {
		m, err := reversi.ParseMove(name + "b")
		require.NoError(t, err)
		cells[m.Square] = reversi.Black
	}
	for _, name := range white {
		m, err := reversi.ParseMove(name + "w")
		require.NoError(t, err)
		cells[m.Square] = reversi.White
	}
	return reversi.NewBoard(cells)
}

// cornerBoard has exactly two black moves: a1 captures the corner and
// flips two discs, f1 flips one.
func cornerBoard(t *testing.T) *reversi.Position {
	t.Helper()
	return reversi.PositionFromBoard(boardFrom(t, []string{"d1"}, []string{"b1", "c1", "e1"}), reversi.Black)
}

func mustMoves(t *testing.T, tokens ...string) []reversi.Move {
	t.Helper()
	moves, err := reversi.ParseMoves(tokens)
	require.NoError(t, err)
	return moves
}

func TestRandomIsSeedDeterministic(t *testing.T) {
	ctx := context.Background()
	a1, a2 := NewRandom(42), NewRandom(42)
	pos := reversi.StartPosition()
	for i := 0; i < 20; i++ {
		m1, err := a1.Pick(ctx, pos)
		require.NoError(t, err)
		m2, err := a2.Pick(ctx, pos)
		require.NoError(t, err)
		require.Equal(t, m1, m2)
		require.True(t, pos.Board().IsLegal(m1.Square, m1.Color))
	}
}

func TestRandomReportsDeadPositions(t *testing.T) {
	pos := reversi.PositionFromBoard(boardFrom(t, []string{"a1", "b1", "c1"}, nil), reversi.Black)
	_, err := NewRandom(1).Pick(context.Background(), pos)
	require.ErrorIs(t, err, ErrNoLegalMove)
}

func TestGreedyTakesTheCorner(t *testing.T) {
	g, err := NewGreedy(GreedyOptions{Preset: DefaultPresets["master"], Seed: 7})
	require.NoError(t, err)
	m, err := g.Pick(context.Background(), cornerBoard(t))
	require.NoError(t, err)
	require.Equal(t, "a1b", m.String())
}

func TestGreedyRankingOrdersByScore(t *testing.T) {
	pos := cornerBoard(t)
	candidates := rankGreedy(pos, pos.LegalMoves())
	require.Len(t, candidates, 2)
	require.Equal(t, "a1b", candidates[0].Move.String())
	require.Equal(t, 2*2+32, candidates[0].Score)
	require.True(t, candidates[0].Forced, "corner captures are never declined")
	require.Equal(t, "f1b", candidates[1].Move.String())
	require.Equal(t, 2*1+6, candidates[1].Score)
	require.False(t, candidates[1].Forced)
}

func TestPositionBonusGeography(t *testing.T) {
	for name, want := range map[string]int{
		"a1": 32, "h1": 32, "a8": 32, "h8": 32,
		"b2": -24, "g2": -24, "b7": -24, "g7": -24,
		"a4": 6, "d1": 6, "h5": 6, "e8": 6,
		"d4": 0, "f6": 0,
	} {
		m, err := reversi.ParseMove(name + "b")
		require.NoError(t, err)
		require.Equal(t, want, positionBonus(m.Square), name)
	}
}

func TestGreedyOpeningComesFromTheBook(t *testing.T) {
	book, err := openings.Load()
	require.NoError(t, err)

	// The master preset consults the book on every move.
	g, err := NewGreedy(GreedyOptions{Preset: DefaultPresets["master"], Seed: 11, Book: book})
	require.NoError(t, err)

	m, err := g.Pick(context.Background(), reversi.StartPosition())
	require.NoError(t, err)
	require.Contains(t, []string{"f4b", "c5b"}, m.String(), "first move must come from a book line")
}

func TestGreedyFallsBackWhenTheBookRunsDry(t *testing.T) {
	book, err := openings.Load()
	require.NoError(t, err)

	g, err := NewGreedy(GreedyOptions{Preset: DefaultPresets["master"], Seed: 3, Book: book})
	require.NoError(t, err)

	// e3 is a legal opening the catalog does not cover. Both white
	// replies flip one disc, so the ranking falls back to square order.
	pos, err := reversi.Replay(mustMoves(t, "e3b"))
	require.NoError(t, err)

	m, err := g.Pick(context.Background(), pos)
	require.NoError(t, err)
	require.Equal(t, "d3w", m.String())
}

func TestGreedyRejectsBrokenPreset(t *testing.T) {
	_, err := NewGreedy(GreedyOptions{Preset: Preset{Name: "broken"}})
	require.Error(t, err)
}

func TestLuaDefaultRanksLikeGreedy(t *testing.T) {
	a, err := NewLua(LuaOptions{Preset: DefaultPresets["master"], Seed: 5, Script: DefaultScript})
	require.NoError(t, err)

	for name, pos := range map[string]*reversi.Position{
		"start":  reversi.StartPosition(),
		"corner": cornerBoard(t),
	} {
		legal := pos.LegalMoves()
		fromLua, err := a.rank(context.Background(), pos, legal)
		require.NoError(t, err, name)
		fromGreedy := rankGreedy(pos, legal)
		require.Equal(t, len(fromGreedy), len(fromLua), name)
		for i := range fromGreedy {
			require.Equal(t, fromGreedy[i].Move, fromLua[i].Move, name)
			require.Equal(t, fromGreedy[i].Score, fromLua[i].Score, name)
		}
	}
}

func TestLuaScriptDrivesTheChoice(t *testing.T) {
	const script = `function score(cells, move) return move.file + 8 * move.rank end`
	a, err := NewLua(LuaOptions{Preset: DefaultPresets["master"], Seed: 5, Script: script})
	require.NoError(t, err)

	m, err := a.Pick(context.Background(), reversi.StartPosition())
	require.NoError(t, err)
	require.Equal(t, "d6b", m.String())
}

func TestLuaSeesBoardAndFlips(t *testing.T) {
	// The script asserts the cells table itself and prefers the move
	// that flips e1, overriding the geometric ranking.
	const script = `
function score(cells, move)
  if cells[1] ~= "" then error("a1 should be empty") end
  if cells[2] ~= "w" then error("b1 should be white") end
  if cells[4] ~= "b" then error("d1 should be black") end
  if move.color ~= "b" then error("black to move") end
  for _, f in ipairs(move.flips) do
    if f == "e1" then return 100 end
  end
  return 0
end`
	a, err := NewLua(LuaOptions{Preset: DefaultPresets["master"], Seed: 5, Script: script})
	require.NoError(t, err)

	m, err := a.Pick(context.Background(), cornerBoard(t))
	require.NoError(t, err)
	require.Equal(t, "f1b", m.String())
}

func TestLuaRejectsBrokenScripts(t *testing.T) {
	for name, script := range map[string]string{
		"syntax error":         `function score(`,
		"no score global":      `x = 1`,
		"score not a function": `score = 5`,
	} {
		_, err := NewLua(LuaOptions{Preset: DefaultPresets["master"], Script: script})
		require.Error(t, err, name)
	}
}

func TestLuaRuntimeFailuresSurface(t *testing.T) {
	master := DefaultPresets["master"]

	a, err := NewLua(LuaOptions{Preset: master, Script: `function score(cells, move) error("boom") end`})
	require.NoError(t, err)
	_, err = a.Pick(context.Background(), reversi.StartPosition())
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	a, err = NewLua(LuaOptions{Preset: master, Script: `function score(cells, move) return "high" end`})
	require.NoError(t, err)
	_, err = a.Pick(context.Background(), reversi.StartPosition())
	require.Error(t, err)
	require.Contains(t, err.Error(), "want number")
}

func TestNewSelectsAgentKind(t *testing.T) {
	a, err := New(Options{Kind: KindRandom})
	require.NoError(t, err)
	require.IsType(t, &Random{}, a)
	require.Equal(t, KindRandom, a.Name())

	a, err = New(Options{Kind: KindGreedy, Preset: "club"})
	require.NoError(t, err)
	require.IsType(t, &Greedy{}, a)

	// An empty script falls back to the embedded default.
	a, err = New(Options{Kind: KindLua, Preset: "master"})
	require.NoError(t, err)
	require.IsType(t, &Lua{}, a)

	_, err = New(Options{Kind: "alphabeta"})
	require.Error(t, err)

	_, err = New(Options{Kind: KindGreedy, Preset: "nope"})
	require.Error(t, err)
}

func TestPickHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := NewGreedy(GreedyOptions{Preset: DefaultPresets["master"], Seed: 1})
	require.NoError(t, err)
	_, err = g.Pick(ctx, reversi.StartPosition())
	require.ErrorIs(t, err, context.Canceled)

	_, err = NewRandom(1).Pick(ctx, reversi.StartPosition())
	require.ErrorIs(t, err, context.Canceled)
}
