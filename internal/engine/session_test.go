package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Frojdholm/reversi-tournament/internal/protocol"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// lineSink collects protocol replies and lets tests wait for the next
// one. Each send writes exactly one line.
type lineSink struct {
	mu    sync.Mutex
	lines []string
	ch    chan string
}

func newLineSink() *lineSink {
	return &lineSink{ch: make(chan string, 64)}
}

func (ls *lineSink) Write(p []byte) (int, error) {
	line := strings.TrimSuffix(string(p), "\n")
	ls.mu.Lock()
	ls.lines = append(ls.lines, line)
	ls.mu.Unlock()
	ls.ch <- line
	return len(p), nil
}

func (ls *lineSink) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-ls.ch:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reply line")
		return ""
	}
}

func (ls *lineSink) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case line := <-ls.ch:
		t.Fatalf("unexpected reply %q", line)
	case <-time.After(d):
	}
}

func (ls *lineSink) all() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.lines...)
}

// pickFirst takes the first legal square, which is deterministic.
type pickFirst struct{}

func (pickFirst) Pick(_ context.Context, pos *reversi.Position) (reversi.Move, error) {
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return reversi.Move{}, errors.New("no legal moves")
	}
	return reversi.Move{Square: legal[0], Color: pos.ToMove()}, nil
}

// gatedSearcher holds its answer until released or cancelled.
type gatedSearcher struct {
	release chan struct{}
}

func (g gatedSearcher) Pick(ctx context.Context, pos *reversi.Position) (reversi.Move, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return reversi.Move{}, ctx.Err()
	}
	return pickFirst{}.Pick(ctx, pos)
}

// offBookSearcher answers with a square that is never legal from the
// start, to exercise the session's legality guard.
type offBookSearcher struct{}

func (offBookSearcher) Pick(_ context.Context, pos *reversi.Position) (reversi.Move, error) {
	return reversi.Move{Square: reversi.MustSquare(0, 0), Color: pos.ToMove()}, nil
}

func testInfo() Info {
	return Info{Name: "engine under test", Author: "nobody"}
}

func requireFault(t *testing.T, err error, want protocol.Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := protocol.KindOf(err)
	require.True(t, ok)
	require.Equal(t, want, kind)
}

func TestHandshake(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	require.Equal(t, "id name engine under test", sink.next(t))
	require.Equal(t, "id author nobody", sink.next(t))
	require.Equal(t, "reversi_v1_ok", sink.next(t))
	require.Equal(t, StateReady, s.state)

	requireFault(t, s.Handle(ctx, "reversi_v1"), protocol.KindOutOfOrder)
	requireFault(t, s.Handle(ctx, "reversi_v1 twice"), protocol.KindMalformed)
}

func TestOpeningSearchPicksLegalBlackMove(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)

	require.NoError(t, s.Handle(ctx, "newgame b"))
	require.NoError(t, s.Handle(ctx, "isready"))
	require.Equal(t, "readyok", sink.next(t))

	require.NoError(t, s.Handle(ctx, "position startpos"))
	require.NoError(t, s.Handle(ctx, "go btime=60000 wtime=60000 binc=0 winc=0"))

	reply := sink.next(t)
	m, pass, err := protocol.ParseBestMove(reply)
	require.NoError(t, err)
	require.False(t, pass)
	require.Contains(t, []string{"e3b", "f4b", "c5b", "d6b"}, m.String())

	sink.expectSilence(t, 50*time.Millisecond)
	require.Len(t, sink.all(), 5)

	s.mu.Lock()
	require.Equal(t, PhaseCommitted, s.phase)
	s.mu.Unlock()
}

func TestMessagesOutsideTheirStatesAreRejected(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()
	ctx := context.Background()

	// Nothing but the handshake is accepted before it happens.
	requireFault(t, s.Handle(ctx, "isready"), protocol.KindOutOfOrder)
	requireFault(t, s.Handle(ctx, "newgame b"), protocol.KindOutOfOrder)
	requireFault(t, s.Handle(ctx, "position startpos"), protocol.KindOutOfOrder)

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)

	// Ready but no game yet.
	requireFault(t, s.Handle(ctx, "isready"), protocol.KindOutOfOrder)
	requireFault(t, s.Handle(ctx, "position startpos"), protocol.KindOutOfOrder)

	require.NoError(t, s.Handle(ctx, "newgame b"))
	requireFault(t, s.Handle(ctx, "go btime=1 wtime=1 binc=0 winc=0"), protocol.KindOutOfOrder)

	// The session survived every fault.
	require.NoError(t, s.Handle(ctx, "isready"))
	require.Equal(t, "readyok", sink.next(t))
}

func TestCommitmentFreezesSearchUntilNextGo(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)
	require.NoError(t, s.Handle(ctx, "newgame b"))
	require.NoError(t, s.Handle(ctx, "position startpos"))
	require.NoError(t, s.Handle(ctx, "go btime=60000 wtime=60000 binc=0 winc=0"))
	require.Equal(t, "bestmove e3b", sink.next(t))

	// Committed: another go without a fresh position is rejected.
	requireFault(t, s.Handle(ctx, "go btime=59000 wtime=60000 binc=0 winc=0"), protocol.KindOutOfOrder)

	// A position is still absorbed without starting any search.
	require.NoError(t, s.Handle(ctx, "position startpos e3b f5w"))
	s.mu.Lock()
	require.Equal(t, PhasePositionLoaded, s.phase)
	s.mu.Unlock()
	sink.expectSilence(t, 50*time.Millisecond)

	// The next go searches the new position.
	require.NoError(t, s.Handle(ctx, "go btime=59000 wtime=60000 binc=0 winc=0"))
	reply := sink.next(t)
	m, pass, err := protocol.ParseBestMove(reply)
	require.NoError(t, err)
	require.False(t, pass)
	require.Equal(t, reversi.Black, m.Color)
}

func TestInvalidMoveSequenceBlocksSearchUntilReplaced(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)
	require.NoError(t, s.Handle(ctx, "newgame b"))

	// d4 is occupied from the start.
	requireFault(t, s.Handle(ctx, "position startpos d4b"), protocol.KindInvalidMoveSequence)
	requireFault(t, s.Handle(ctx, "go btime=1000 wtime=1000 binc=0 winc=0"), protocol.KindInvalidMoveSequence)

	// A well-formed position recovers the game.
	require.NoError(t, s.Handle(ctx, "position startpos"))
	require.NoError(t, s.Handle(ctx, "go btime=1000 wtime=1000 binc=0 winc=0"))
	require.Equal(t, "bestmove e3b", sink.next(t))
}

func TestMalformedLinesLeaveStateUntouched(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)
	require.NoError(t, s.Handle(ctx, "newgame b"))
	require.NoError(t, s.Handle(ctx, "position startpos"))

	requireFault(t, s.Handle(ctx, "flibber"), protocol.KindMalformed)
	requireFault(t, s.Handle(ctx, "newgame q"), protocol.KindMalformed)
	requireFault(t, s.Handle(ctx, "position fen something"), protocol.KindMalformed)
	requireFault(t, s.Handle(ctx, "go btime=soon wtime=0 binc=0 winc=0"), protocol.KindMalformed)
	requireFault(t, s.Handle(ctx, "position startpos e3"), protocol.KindMalformed)
	require.NoError(t, s.Handle(ctx, ""))
	require.NoError(t, s.Handle(ctx, "   "))

	// The loaded position is still searchable.
	require.NoError(t, s.Handle(ctx, "go btime=1000 wtime=1000 binc=0 winc=0"))
	require.Equal(t, "bestmove e3b", sink.next(t))
}

func TestNewGameDropsInFlightSearch(t *testing.T) {
	sink := newLineSink()
	gate := gatedSearcher{release: make(chan struct{})}
	s := NewSession(testInfo(), gate, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)
	require.NoError(t, s.Handle(ctx, "newgame b"))
	require.NoError(t, s.Handle(ctx, "position startpos"))
	require.NoError(t, s.Handle(ctx, "go btime=60000 wtime=60000 binc=0 winc=0"))

	// The reset cancels the pending decision; its late result must not
	// reach the wire.
	require.NoError(t, s.Handle(ctx, "newgame w"))
	close(gate.release)
	sink.expectSilence(t, 100*time.Millisecond)

	s.mu.Lock()
	require.Equal(t, PhaseIdle, s.phase)
	s.mu.Unlock()
}

func TestIsReadyAnsweredWhileSearching(t *testing.T) {
	sink := newLineSink()
	gate := gatedSearcher{release: make(chan struct{})}
	s := NewSession(testInfo(), gate, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)
	require.NoError(t, s.Handle(ctx, "newgame b"))
	require.NoError(t, s.Handle(ctx, "position startpos"))
	require.NoError(t, s.Handle(ctx, "go btime=60000 wtime=60000 binc=0 winc=0"))

	require.NoError(t, s.Handle(ctx, "isready"))
	require.Equal(t, "readyok", sink.next(t))

	close(gate.release)
	require.Equal(t, "bestmove e3b", sink.next(t))
}

func TestDecideGuardsAgainstIllegalPicks(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), offBookSearcher{}, sink)
	defer s.Close()

	line := s.decide(context.Background(), reversi.StartPosition())
	require.Equal(t, "bestmove e3b", line)
}

func TestDecideEmitsPassOnDeadPosition(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()

	board := reversi.NewBoard(map[reversi.Square]reversi.Color{
		reversi.MustSquare(0, 0): reversi.Black,
		reversi.MustSquare(1, 0): reversi.Black,
		reversi.MustSquare(2, 0): reversi.Black,
	})
	pos := reversi.PositionFromBoard(board, reversi.White)
	require.True(t, pos.Over())

	line := s.decide(context.Background(), pos)
	require.Equal(t, "bestmove pass", line)
}

func TestSearcherTimeoutFallsBackToFirstLegalMove(t *testing.T) {
	sink := newLineSink()
	gate := gatedSearcher{release: make(chan struct{})}
	s := NewSession(testInfo(), gate, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)
	require.NoError(t, s.Handle(ctx, "newgame b"))
	require.NoError(t, s.Handle(ctx, "position startpos"))

	// The gate never opens, so the decision deadline expires and the
	// session answers with the first legal move on its own.
	require.NoError(t, s.Handle(ctx, "go btime=500 wtime=500 binc=0 winc=0"))
	require.Equal(t, "bestmove e3b", sink.next(t))
}

func TestDivergentHistoryIsAdvisoryOnly(t *testing.T) {
	sink := newLineSink()
	s := NewSession(testInfo(), pickFirst{}, sink)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, "reversi_v1"))
	sink.next(t)
	sink.next(t)
	sink.next(t)
	require.NoError(t, s.Handle(ctx, "newgame b"))
	require.NoError(t, s.Handle(ctx, "position startpos e3b f5w"))

	// A shorter history does not extend the tracked one, but the session
	// resynchronizes from it all the same.
	err := s.Handle(ctx, "position startpos c5b")
	requireFault(t, err, protocol.KindMismatch)
	s.mu.Lock()
	require.True(t, s.posValid)
	require.Equal(t, 1, s.pos.MoveCount())
	s.mu.Unlock()

	require.NoError(t, s.Handle(ctx, "go btime=1000 wtime=1000 binc=0 winc=0"))
	reply := sink.next(t)
	_, pass, perr := protocol.ParseBestMove(reply)
	require.NoError(t, perr)
	require.False(t, pass)
}
