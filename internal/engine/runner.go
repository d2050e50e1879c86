package engine

import (
	"bufio"
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/protocol"
)

// Runner feeds a Session from a line stream until EOF or cancellation.
// Protocol faults are logged and never stop the loop.
type Runner struct {
	session *Session
	in      io.Reader
}

// NewRunner wires a session to its inbound stream, normally stdin.
func NewRunner(session *Session, in io.Reader) *Runner {
	return &Runner{session: session, in: in}
}

// Run consumes lines until the stream ends. It returns nil on EOF, the
// scan error on a broken stream, and the context error on cancellation.
// Any in-flight decision is drained before returning.
func (r *Runner) Run(ctx context.Context) error {
	defer r.session.Close()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return err
				}
				obslog.L().Info("stream_closed")
				return nil
			}
			if err := r.session.Handle(ctx, line); err != nil {
				if kind, classified := protocol.KindOf(err); classified {
					obslog.L().Warn("protocol_fault",
						zap.String("kind", kind.String()),
						zap.String("line", line),
						zap.Error(err))
				} else {
					obslog.L().Warn("protocol_fault", zap.String("line", line), zap.Error(err))
				}
			}
		}
	}
}
