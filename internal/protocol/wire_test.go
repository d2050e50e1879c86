package protocol

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

func TestParseGoAnyOrder(t *testing.T) {
	want := TimeControl{
		BlackRemaining: 60 * time.Second,
		WhiteRemaining: 45 * time.Second,
		BlackIncrement: 2 * time.Second,
		WhiteIncrement: 500 * time.Millisecond,
	}
	lines := [][]string{
		{"btime=60000", "wtime=45000", "binc=2000", "winc=500"},
		{"winc=500", "binc=2000", "wtime=45000", "btime=60000"},
		{"wtime=45000", "btime=60000", "winc=500", "binc=2000"},
	}
	for _, args := range lines {
		tc, err := ParseGo(args)
		require.NoError(t, err, strings.Join(args, " "))
		require.Equal(t, want, tc)
	}
}

func TestParseGoRejectsBadArguments(t *testing.T) {
	cases := map[string][]string{
		"missing key":   {"btime=60000", "wtime=45000", "binc=0"},
		"duplicate key": {"btime=1", "btime=2", "wtime=3", "binc=0", "winc=0"},
		"negative":      {"btime=-1", "wtime=0", "binc=0", "winc=0"},
		"not a number":  {"btime=soon", "wtime=0", "binc=0", "winc=0"},
		"no equals":     {"btime", "wtime=0", "binc=0", "winc=0"},
		"unknown key":   {"btime=0", "wtime=0", "binc=0", "winc=0", "depth=3"},
	}
	for name, args := range cases {
		_, err := ParseGo(args)
		require.Error(t, err, name)
		kind, ok := KindOf(err)
		require.True(t, ok, name)
		require.Equal(t, KindMalformed, kind, name)
	}
}

func TestGoLineRoundTrip(t *testing.T) {
	tc := TimeControl{
		BlackRemaining: 61 * time.Second,
		WhiteRemaining: 59 * time.Second,
		WhiteIncrement: time.Second,
	}
	line := tc.GoLine()
	require.Equal(t, "go btime=61000 wtime=59000 binc=0 winc=1000", line)

	fields := Fields(line)
	require.Equal(t, CmdGo, fields[0])
	parsed, err := ParseGo(fields[1:])
	require.NoError(t, err)
	require.Equal(t, tc, parsed)
}

func TestTimeControlBookkeeping(t *testing.T) {
	tc := TimeControl{
		BlackRemaining: 10 * time.Second,
		WhiteRemaining: 8 * time.Second,
		BlackIncrement: time.Second,
	}
	require.Equal(t, 10*time.Second, tc.Remaining(reversi.Black))
	require.Equal(t, 8*time.Second, tc.Remaining(reversi.White))
	require.Equal(t, time.Second, tc.Increment(reversi.Black))
	require.Equal(t, time.Duration(0), tc.Increment(reversi.White))

	after := tc.WithMoveMade(reversi.Black, 3*time.Second)
	require.Equal(t, 8*time.Second, after.BlackRemaining)
	require.Equal(t, 8*time.Second, after.WhiteRemaining)

	flagged := tc.WithMoveMade(reversi.White, 9*time.Second)
	require.Negative(t, flagged.WhiteRemaining)
}

func TestParsePosition(t *testing.T) {
	moves, err := ParsePosition([]string{"startpos"})
	require.NoError(t, err)
	require.Empty(t, moves)

	moves, err = ParsePosition([]string{"startpos", "c5b", "c4w", "e3b"})
	require.NoError(t, err)
	require.Len(t, moves, 3)
	require.Equal(t, "position startpos c5b c4w e3b", PositionLine(moves))

	_, err = ParsePosition(nil)
	requireKind(t, err, KindMalformed)
	_, err = ParsePosition([]string{"fen", "whatever"})
	requireKind(t, err, KindMalformed)
	_, err = ParsePosition([]string{"startpos", "z9q"})
	requireKind(t, err, KindMalformed)
}

func TestParseNewGame(t *testing.T) {
	c, err := ParseNewGame([]string{"b"})
	require.NoError(t, err)
	require.Equal(t, reversi.Black, c)

	c, err = ParseNewGame([]string{"W"})
	require.NoError(t, err)
	require.Equal(t, reversi.White, c)
	require.Equal(t, "newgame w", NewGameLine(c))

	_, err = ParseNewGame(nil)
	requireKind(t, err, KindMalformed)
	_, err = ParseNewGame([]string{"b", "w"})
	requireKind(t, err, KindMalformed)
	_, err = ParseNewGame([]string{"x"})
	requireKind(t, err, KindMalformed)
}

func TestParseBestMove(t *testing.T) {
	m, pass, err := ParseBestMove("bestmove e3b")
	require.NoError(t, err)
	require.False(t, pass)
	require.Equal(t, "e3b", m.String())
	require.Equal(t, "bestmove e3b", BestMoveLine(m))

	_, pass, err = ParseBestMove("bestmove pass")
	require.NoError(t, err)
	require.True(t, pass)
	require.Equal(t, "bestmove pass", BestMovePassLine())

	for _, line := range []string{"", "bestmove", "bestmove e3b extra", "readyok", "bestmove i9x"} {
		_, _, err := ParseBestMove(line)
		requireKind(t, err, KindMalformed)
	}
}

func TestParseIDLine(t *testing.T) {
	field, value, ok := ParseIDLine(IDNameLine("greedy 1.0"))
	require.True(t, ok)
	require.Equal(t, "name", field)
	require.Equal(t, "greedy 1.0", value)

	field, value, ok = ParseIDLine("id   author   someone else")
	require.True(t, ok)
	require.Equal(t, "author", field)
	require.Equal(t, "someone else", value)

	for _, line := range []string{"id name", "id vendor x", "readyok", ""} {
		_, _, ok := ParseIDLine(line)
		require.False(t, ok, line)
	}
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, want, kind)
}
