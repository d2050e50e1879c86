// Package host sits on the referee side of the wire. It launches engine
// processes, referees clocked games between them, and runs tournaments
// that feed results into the match store.
package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/protocol"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond

	// moveOverhead is the grace past the mover's clock before the host
	// stops waiting for bestmove and declares the engine unresponsive.
	moveOverhead = 2 * time.Second
)

// EngineSpec names one engine and how to launch it.
type EngineSpec struct {
	Name    string
	Command string
	Args    []string
	Env     []string
}

// EngineInfo is the identity an engine reports during the handshake.
type EngineInfo struct {
	Name   string
	Author string
}

// Session is the host's end of one engine conversation. Writes are
// serialized through a mutex; reads go through a context-aware line
// reader so a silent engine cannot wedge the caller.
type Session struct {
	label  string
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	info   EngineInfo
	stop   func() error
}

// NewSession launches the engine process and performs the protocol
// handshake. Stderr passes through so engine logs stay visible.
func NewSession(ctx context.Context, spec EngineSpec) (*Session, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return nil, fmt.Errorf("engine command required")
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start engine %s: %w", spec.Command, err)
	}

	label := spec.Name
	if label == "" {
		label = spec.Command
	}
	s := &Session{
		label:  label,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stop: func() error {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			return cmd.Wait()
		},
	}

	if err := s.handshake(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("handshake with %s: %w", label, err)
	}
	obslog.L().Info("engine_started",
		zap.String("engine", label),
		zap.String("id_name", s.info.Name),
		zap.String("id_author", s.info.Author))
	return s, nil
}

// Label returns the display name used in game records and logs.
func (s *Session) Label() string { return s.label }

// Info returns the identity collected during the handshake.
func (s *Session) Info() EngineInfo { return s.info }

// Close tears the session down and reaps the engine process.
func (s *Session) Close() error {
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.stop != nil {
		return s.stop()
	}
	return nil
}

// EnsureReady round-trips isready and waits for the acknowledgement.
func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send(protocol.CmdIsReady + "\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, protocol.ReplyReadyOK); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame announces the engine's color for the coming game and waits
// for it to settle. Engines that are slow to reset get a few chances.
func (s *Session) NewGame(ctx context.Context, c reversi.Color) error {
	if err := s.send(protocol.NewGameLine(c) + "\n"); err != nil {
		return fmt.Errorf("send newgame: %w", err)
	}
	for attempt := 1; ; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt >= newGameRetryAttempts {
			return err
		}
		obslog.L().Warn("newgame_retry",
			zap.String("engine", s.label),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
}

// SendPosition ships the full move history from the start position.
func (s *Session) SendPosition(moves []reversi.Move) error {
	if err := s.send(protocol.PositionLine(moves) + "\n"); err != nil {
		return fmt.Errorf("send position: %w", err)
	}
	return nil
}

// Go starts the engine's decision and waits for the bestmove reply. The
// wait is bounded by the mover's remaining clock plus a grace, so a
// hung engine forfeits rather than stalling the whole series.
func (s *Session) Go(ctx context.Context, tc protocol.TimeControl, side reversi.Color) (reversi.Move, bool, error) {
	wait := tc.Remaining(side)
	if wait < 0 {
		wait = 0
	}
	goCtx, cancel := context.WithTimeout(ctx, wait+moveOverhead)
	defer cancel()

	if err := s.send(tc.GoLine() + "\n"); err != nil {
		return reversi.Move{}, false, fmt.Errorf("send go: %w", err)
	}
	for {
		line, err := s.readLine(goCtx)
		if err != nil {
			return reversi.Move{}, false, fmt.Errorf("wait bestmove: %w", err)
		}
		if line == "" {
			continue
		}
		if fields := protocol.Fields(line); fields[0] == protocol.ReplyBestMove {
			return protocol.ParseBestMove(line)
		}
		obslog.L().Warn("unexpected_engine_line",
			zap.String("engine", s.label),
			zap.String("line", line))
	}
}

// handshake greets the engine and collects id lines until it
// acknowledges the protocol version.
func (s *Session) handshake(ctx context.Context) error {
	hsCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send(protocol.CmdHandshake + "\n"); err != nil {
		return fmt.Errorf("send %s: %w", protocol.CmdHandshake, err)
	}
	for {
		line, err := s.readLine(hsCtx)
		if err != nil {
			return fmt.Errorf("wait %s: %w", protocol.ReplyHandshakeOK, err)
		}
		if line == "" {
			continue
		}
		if field, value, ok := protocol.ParseIDLine(line); ok {
			if field == "name" {
				s.info.Name = value
			} else {
				s.info.Author = value
			}
			continue
		}
		if fields := protocol.Fields(line); fields[0] == protocol.ReplyHandshakeOK {
			return nil
		}
		// Anything else before the acknowledgement is noise, not a fault.
	}
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if fields := protocol.Fields(line); len(fields) > 0 && fields[0] == token {
			return nil
		}
	}
}

// readLine reads one trimmed line, honoring the context. A timed-out
// read leaves a goroutine blocked on the pipe, so callers treat any
// readLine error as fatal to the session and replace it.
func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		return res.line, nil
	}
}
