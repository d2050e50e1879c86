package openings

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

func history(t *testing.T, tokens ...string) []reversi.Move {
	t.Helper()
	moves, err := reversi.ParseMoves(tokens)
	require.NoError(t, err)
	return moves
}

func TestLoadEmbeddedCatalog(t *testing.T) {
	b, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8, b.Len())

	again, err := Load()
	require.NoError(t, err)
	require.Same(t, b, again)

	e, ok := b.FindByKey("Perpendicular")
	require.True(t, ok)
	require.Equal(t, "Perpendicular opening", e.Name)

	_, ok = b.FindByKey("sicilian")
	require.False(t, ok)
}

func TestLookupAggregatesWeights(t *testing.T) {
	b, err := Load()
	require.NoError(t, err)

	// Every line starting with f4b backs the first suggestion.
	root := b.Lookup(nil, 8, 1)
	require.Len(t, root, 2)
	require.Equal(t, "f4b", root[0].Move.String())
	require.Equal(t, 142, root[0].Weight)
	require.Equal(t, "Diagonal opening", root[0].Name)
	require.Equal(t, "c5b", root[1].Move.String())
	require.Equal(t, 6, root[1].Weight)

	after := b.Lookup(history(t, "f4b"), 8, 1)
	require.Len(t, after, 3)
	require.Equal(t, "d3w", after[0].Move.String())
	require.Equal(t, 74, after[0].Weight)
	require.Equal(t, "f5w", after[1].Move.String())
	require.Equal(t, 48, after[1].Weight)
	require.Equal(t, "f3w", after[2].Move.String())
	require.Equal(t, 20, after[2].Weight)
}

func TestLookupFilters(t *testing.T) {
	b, err := Load()
	require.NoError(t, err)

	deep := b.Lookup(history(t, "f4b", "d3w"), 8, 1)
	require.Len(t, deep, 2)

	heavy := b.Lookup(history(t, "f4b", "d3w"), 8, 15)
	require.Len(t, heavy, 1)
	require.Equal(t, "c3b", heavy[0].Move.String())
	require.Equal(t, "Diagonal mainline", heavy[0].Name)

	require.Empty(t, b.Lookup(history(t, "f4b", "d3w"), 2, 1), "past max ply")
	require.Empty(t, b.Lookup(history(t, "e3b"), 8, 1), "off book")
}

func TestIdentifyNamesTheLongestLine(t *testing.T) {
	b, err := Load()
	require.NoError(t, err)

	_, ok := b.Identify(nil)
	require.False(t, ok)
	_, ok = b.Identify(history(t, "f4b"))
	require.False(t, ok)

	e, ok := b.Identify(history(t, "f4b", "f5w"))
	require.True(t, ok)
	require.Equal(t, "perpendicular", e.Key)

	e, ok = b.Identify(history(t, "f4b", "d3w", "c5b"))
	require.True(t, ok)
	require.Equal(t, "diagonal-wing", e.Key)

	// Later moves leave the identification at the deepest matched line.
	e, ok = b.Identify(history(t, "f4b", "d3w", "c3b", "b3w"))
	require.True(t, ok)
	require.Equal(t, "diagonal-mainline", e.Key)
}

func TestPickIsWeightProportional(t *testing.T) {
	b, err := Load()
	require.NoError(t, err)
	suggestions := b.Lookup(history(t, "f4b"), 8, 1)

	r := rand.New(rand.NewSource(7))
	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		s, ok := Pick(suggestions, r)
		require.True(t, ok)
		counts[s.Move.String()]++
	}
	// 74/48/20 out of 142: the mainline reply must dominate.
	require.Greater(t, counts["d3w"], counts["f5w"])
	require.Greater(t, counts["f5w"], counts["f3w"])
	require.Greater(t, counts["f3w"], 0)

	_, ok := Pick(nil, r)
	require.False(t, ok)
}

func TestRandomLineDrawsWholeLines(t *testing.T) {
	b, err := Load()
	require.NoError(t, err)
	r := rand.New(rand.NewSource(11))

	// Scribbling on a drawn line must not corrupt the catalog; the loop
	// below re-verifies every later draw against its entry.
	_, scratch, ok := b.RandomLine(r)
	require.True(t, ok)
	scratch[0] = reversi.Move{}

	counts := map[string]int{}
	for i := 0; i < 500; i++ {
		e, moves, ok := b.RandomLine(r)
		require.True(t, ok)
		require.NotEmpty(t, moves)
		stored, found := b.FindByKey(e.Key)
		require.True(t, found)
		require.Equal(t, stored.Moves, reversi.FormatMoves(moves))
		counts[e.Key]++
	}
	require.Len(t, counts, b.Len(), "every catalog line should be reachable")
	require.Greater(t, counts["diagonal"], counts["diagonal-rotated"])

	var empty *Book
	_, _, ok = empty.RandomLine(r)
	require.False(t, ok)
}

func TestCatalogRejectsBrokenLines(t *testing.T) {
	_, err := parseCatalog([]byte("openings: [{key: bad, name: Bad, moves: d4b, weight: 1}]"))
	require.Error(t, err)

	_, err = parseCatalog([]byte("openings: [{key: x, name: X, moves: f4b, weight: 0}]"))
	require.Error(t, err)

	_, err = parseCatalog([]byte("openings: [{key: a, name: A, moves: f4b, weight: 1}, {key: A, name: B, moves: f4b, weight: 1}]"))
	require.Error(t, err)
}
