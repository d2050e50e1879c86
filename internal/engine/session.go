// Package engine implements the engine side of the reversi_v1 protocol:
// a Session state machine fed one line at a time, and the bounded
// decision task that produces bestmove replies.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/protocol"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// State is the lifecycle stage of a session.
type State uint8

const (
	StateUninitialized State = iota
	StateHandshaking
	StateReady
	StateGameActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateGameActive:
		return "game_active"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Phase is the in-game stage of an active session.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePositionLoaded
	PhaseSearching
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePositionLoaded:
		return "position_loaded"
	case PhaseSearching:
		return "searching"
	case PhaseCommitted:
		return "committed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Searcher picks a move for the side to move. The context carries the
// decision deadline; implementations must return promptly once it
// expires. The position is a private snapshot the searcher may read
// freely.
type Searcher interface {
	Pick(ctx context.Context, pos *reversi.Position) (reversi.Move, error)
}

// Info identifies the engine during the handshake.
type Info struct {
	Name   string
	Author string
}

// Session is one engine-side protocol conversation. Handle is called
// sequentially with inbound lines; the only concurrent activity is the
// decision task spawned by go, which commits its bestmove through the
// session's mutex so stale results from a superseded search are dropped.
type Session struct {
	info     Info
	searcher Searcher

	wmu sync.Mutex
	out io.Writer

	mu       sync.Mutex
	state    State
	phase    Phase
	color    reversi.Color
	pos      *reversi.Position
	posValid bool
	gen      uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSession builds a session that writes protocol replies to out.
func NewSession(info Info, searcher Searcher, out io.Writer) *Session {
	return &Session{
		info:     info,
		searcher: searcher,
		out:      out,
	}
}

// Handle processes one inbound line. A non-nil return is a classified
// protocol fault for the caller to report; the session itself stays
// responsive regardless.
func (s *Session) Handle(ctx context.Context, line string) error {
	fields := protocol.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case protocol.CmdHandshake:
		return s.handleHandshake(args)
	case protocol.CmdNewGame:
		return s.handleNewGame(args)
	case protocol.CmdIsReady:
		return s.handleIsReady(args)
	case protocol.CmdPosition:
		return s.handlePosition(args)
	case protocol.CmdGo:
		return s.handleGo(ctx, args)
	default:
		return protocol.Errorf(protocol.KindMalformed, "unknown command %q", cmd)
	}
}

// Close cancels any in-flight decision and waits for it to drain.
func (s *Session) Close() {
	s.mu.Lock()
	s.abortSearchLocked()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) handleHandshake(args []string) error {
	if len(args) != 0 {
		return protocol.Errorf(protocol.KindMalformed, "%s takes no arguments", protocol.CmdHandshake)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUninitialized {
		return protocol.Errorf(protocol.KindOutOfOrder, "%s in state %s", protocol.CmdHandshake, s.state)
	}
	s.state = StateHandshaking
	s.send(protocol.IDNameLine(s.info.Name))
	s.send(protocol.IDAuthorLine(s.info.Author))
	s.send(protocol.ReplyHandshakeOK)
	s.state = StateReady
	obslog.L().Info("handshake_complete", zap.String("engine", s.info.Name))
	return nil
}

func (s *Session) handleNewGame(args []string) error {
	color, err := protocol.ParseNewGame(args)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady && s.state != StateGameActive {
		return protocol.Errorf(protocol.KindOutOfOrder, "%s in state %s", protocol.CmdNewGame, s.state)
	}
	s.abortSearchLocked()
	s.state = StateGameActive
	s.phase = PhaseIdle
	s.color = color
	s.pos = reversi.StartPosition()
	s.posValid = true
	obslog.L().Info("new_game", zap.String("color", color.String()))
	return nil
}

func (s *Session) handleIsReady(args []string) error {
	if len(args) != 0 {
		return protocol.Errorf(protocol.KindMalformed, "%s takes no arguments", protocol.CmdIsReady)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGameActive {
		return protocol.Errorf(protocol.KindOutOfOrder, "%s in state %s", protocol.CmdIsReady, s.state)
	}
	s.send(protocol.ReplyReadyOK)
	return nil
}

func (s *Session) handlePosition(args []string) error {
	moves, err := protocol.ParsePosition(args)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGameActive {
		return protocol.Errorf(protocol.KindOutOfOrder, "%s in state %s", protocol.CmdPosition, s.state)
	}

	// The inbound history should extend what this session already tracks.
	// Divergence is advisory only: the new list is authoritative and the
	// session resynchronizes from it.
	var advisory error
	if s.posValid && s.pos != nil && !historyExtends(moves, s.pos.History()) {
		advisory = protocol.Errorf(protocol.KindMismatch,
			"inbound history of %d moves does not extend the %d tracked", len(moves), s.pos.MoveCount())
	}

	pos, rerr := reversi.Replay(moves)
	if rerr != nil {
		s.pos = nil
		s.posValid = false
		if s.phase != PhaseSearching {
			s.phase = PhasePositionLoaded
		}
		return protocol.Errorf(protocol.KindInvalidMoveSequence, "%v", rerr)
	}
	s.pos = pos
	s.posValid = true
	if s.phase != PhaseSearching {
		s.phase = PhasePositionLoaded
	}
	obslog.L().Debug("position_loaded",
		zap.Int("moves", pos.MoveCount()),
		zap.String("to_move", pos.ToMove().String()))
	return advisory
}

func (s *Session) handleGo(ctx context.Context, args []string) error {
	tc, err := protocol.ParseGo(args)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGameActive {
		return protocol.Errorf(protocol.KindOutOfOrder, "%s in state %s", protocol.CmdGo, s.state)
	}
	if s.phase != PhasePositionLoaded {
		return protocol.Errorf(protocol.KindOutOfOrder, "%s in phase %s", protocol.CmdGo, s.phase)
	}
	if !s.posValid {
		return protocol.Errorf(protocol.KindInvalidMoveSequence, "refusing to search a position that did not replay")
	}

	snapshot := s.pos.Clone()
	if s.color != reversi.Empty && snapshot.ToMove() != reversi.Empty && snapshot.ToMove() != s.color {
		// Searching is still honored: the reply names the side to move,
		// and the next position resynchronizes both ends.
		obslog.L().Warn("side_mismatch",
			zap.String("assigned", s.color.String()),
			zap.String("to_move", snapshot.ToMove().String()))
	}
	budget := DecisionBudget(tc, snapshot.ToMove())
	s.gen++
	gen := s.gen
	searchCtx, cancel := context.WithTimeout(ctx, budget)
	s.cancel = cancel
	s.phase = PhaseSearching
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.runDecision(searchCtx, gen, snapshot)
	}()
	obslog.L().Info("search_started",
		zap.String("side", snapshot.ToMove().String()),
		zap.Duration("budget", budget),
		zap.Int("move_count", snapshot.MoveCount()))
	return nil
}

// runDecision computes a reply off the session goroutine and commits it
// unless a newgame or a later go superseded this search in the meantime.
func (s *Session) runDecision(ctx context.Context, gen uint64, snapshot *reversi.Position) {
	started := time.Now()
	line := s.decide(ctx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.phase != PhaseSearching {
		obslog.L().Warn("stale_decision_dropped",
			zap.Uint64("generation", gen),
			zap.String("reply", line))
		return
	}
	s.phase = PhaseCommitted
	s.cancel = nil
	s.send(line)
	obslog.L().Info("bestmove_committed",
		zap.String("reply", line),
		zap.Duration("elapsed", time.Since(started)))
}

// decide always produces a reply line: the searcher's pick when it is
// legal, the first legal move when the searcher errors or misbehaves, and
// the pass sentinel when the side to move has no placement at all.
func (s *Session) decide(ctx context.Context, snapshot *reversi.Position) string {
	legal := snapshot.LegalMoves()
	if len(legal) == 0 {
		return protocol.BestMovePassLine()
	}
	mover := snapshot.ToMove()
	fallback := reversi.Move{Square: legal[0], Color: mover}

	m, err := s.searcher.Pick(ctx, snapshot)
	if err != nil {
		obslog.L().Warn("decision_fallback", zap.Error(err), zap.String("move", fallback.String()))
		return protocol.BestMoveLine(fallback)
	}
	for _, sq := range legal {
		if m.Square == sq && m.Color == mover {
			return protocol.BestMoveLine(m)
		}
	}
	obslog.L().Warn("decision_rejected", zap.String("move", m.String()), zap.String("fallback", fallback.String()))
	return protocol.BestMoveLine(fallback)
}

func (s *Session) abortSearchLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) send(line string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := fmt.Fprintln(s.out, line); err != nil {
		obslog.L().Error("write_failed", zap.String("line", line), zap.Error(err))
	}
}

// historyExtends reports whether tracked is a prefix of inbound.
func historyExtends(inbound, tracked []reversi.Move) bool {
	if len(inbound) < len(tracked) {
		return false
	}
	for i, m := range tracked {
		if inbound[i] != m {
			return false
		}
	}
	return true
}
