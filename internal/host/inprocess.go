package host

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/Frojdholm/reversi-tournament/internal/engine"
)

// NewInProcessSession runs a full engine session inside this process,
// wired to the host over in-memory pipes. The arena and the end-to-end
// tests use it to exercise the real wire protocol with no subprocesses.
func NewInProcessSession(ctx context.Context, label string, info engine.Info, searcher engine.Searcher) (*Session, error) {
	hostIn, engineOut := io.Pipe()
	engineIn, hostOut := io.Pipe()

	runner := engine.NewRunner(engine.NewSession(info, searcher, engineOut), engineIn)
	runCtx, cancel := context.WithCancel(ctx)

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(runCtx)
		_ = engineOut.Close()
	}()

	s := &Session{
		label:  label,
		stdin:  hostOut,
		stdout: bufio.NewReader(hostIn),
		stop: func() error {
			// Closing the pipes first unblocks any engine write still
			// waiting for a reader, otherwise Run could never return.
			cancel()
			_ = engineIn.Close()
			_ = hostIn.Close()
			err := <-done
			if errors.Is(err, context.Canceled) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		},
	}
	if err := s.handshake(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
