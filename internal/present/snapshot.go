package present

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/host"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/render"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Snapshotter writes one final-board PNG per finished game into a
// directory. Failures are logged and never stop the series.
type Snapshotter struct {
	host.NopObserver
	renderer render.BoardRenderer
	dir      string
}

// NewSnapshotter creates the snapshot directory if needed.
func NewSnapshotter(renderer render.BoardRenderer, dir string) (*Snapshotter, error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required for snapshots")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Snapshotter{renderer: renderer, dir: dir}, nil
}

func (s *Snapshotter) GameFinished(ctx context.Context, g *domain.Game) {
	moves, err := reversi.ParseMoves(g.Moves)
	if err != nil {
		s.warn(g, "snapshot_parse_failed", err)
		return
	}
	pos, err := reversi.Replay(moves)
	if err != nil {
		s.warn(g, "snapshot_replay_failed", err)
		return
	}

	opts := render.Options{
		Header: fmt.Sprintf("%s vs %s", g.Black, g.White),
		Status: resultLine(g),
	}
	if n := len(moves); n > 0 {
		opts.LastMove = &moves[n-1]
	}

	png, err := s.renderer.RenderPNG(ctx, pos.Board(), opts)
	if err != nil {
		s.warn(g, "snapshot_render_failed", err)
		return
	}
	path := filepath.Join(s.dir, g.ID+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		s.warn(g, "snapshot_write_failed", err)
	}
}

func (s *Snapshotter) warn(g *domain.Game, event string, err error) {
	obslog.L().Warn(event, zap.String("game", g.ID), zap.Error(err))
}

func resultLine(g *domain.Game) string {
	if g.Draw() {
		return fmt.Sprintf("drawn %d-%d", g.BlackDiscs, g.WhiteDiscs)
	}
	return fmt.Sprintf("%s wins %d-%d", g.Winner, g.BlackDiscs, g.WhiteDiscs)
}
