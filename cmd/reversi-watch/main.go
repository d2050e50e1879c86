// Command reversi-watch is the terminal spectator. It subscribes to a
// running reversi-server's websocket feed and prints game events as
// they happen, optionally drawing the followed game's board with the
// glyphs from the saved watch config. The connection reconnects with
// backoff when the feed drops.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Frojdholm/reversi-tournament/internal/config"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
	"github.com/Frojdholm/reversi-tournament/pkg/matchdto"
)

var (
	serverURL    = flag.String("url", "", "server base URL (default: saved watch config)")
	showBoard    = flag.Bool("board", false, "redraw the followed game's board after every move")
	maxAttempts  = flag.Int("reconnect", 5, "reconnect attempts before giving up")
	saveDefaults = flag.Bool("save", false, "write the effective config to the XDG config directory and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.InitWatchConfig()
	if err != nil {
		log.Fatalf("watch config error: %v", err)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *saveDefaults {
		if err := cfg.Save(); err != nil {
			log.Fatalf("save config error: %v", err)
		}
		fmt.Printf("saved watch config for %s\n", cfg.ServerURL)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &watcher{cfg: cfg, url: feedURL(cfg.ServerURL), board: *showBoard}
	if err := w.run(ctx, *maxAttempts); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("watch error: %v", err)
	}
}

// feedURL turns the HTTP base into the websocket endpoint; https
// becomes wss the same way.
func feedURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	return "ws" + strings.TrimPrefix(base, "http") + "/ws"
}

type watcher struct {
	cfg   *config.WatchConfig
	url   string
	board bool

	// followed is the game whose board is drawn. Position is nil when
	// the feed was joined mid-game; it resyncs on the next game start.
	followed string
	pos      *reversi.Position
}

// run dials the feed and pumps events until the context ends. Each
// successful connect resets the reconnect budget.
func (w *watcher) run(ctx context.Context, maxAttempts int) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		connected, err := w.pump(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		if connected {
			attempt = 0
		}

		attempt++
		if attempt > maxAttempts {
			return fmt.Errorf("feed lost after %d reconnect attempts: %w", maxAttempts, err)
		}
		wait := backoffDuration(attempt)
		fmt.Printf("feed dropped (%v), reconnecting in %s (%d/%d)\n", err, wait, attempt, maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// pump holds one connection open and prints its events. The bool
// reports whether the dial succeeded; a nil error means the server
// closed the feed normally.
func (w *watcher) pump(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, w.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", w.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	fmt.Printf("watching %s\n", w.url)

	// Joined mid-game: the board cannot be reconstructed from move
	// deltas alone.
	w.pos = nil

	for {
		var env matchdto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ctx.Err() != nil {
				return true, context.Canceled
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return true, nil
			}
			return true, err
		}
		w.handle(env)
	}
}

func (w *watcher) handle(env matchdto.Envelope) {
	switch env.T {
	case matchdto.EventGameStarted:
		var g matchdto.GameSummary
		if env.Decode(&g) != nil {
			return
		}
		fmt.Printf("game %d [%s]: %s (black) vs %s (white)\n", g.Round, g.ID, g.Black, g.White)
		w.followed = g.ID
		w.pos = reversi.StartPosition()
		w.drawBoard()
	case matchdto.EventMovePlayed:
		var m matchdto.MoveEvent
		if env.Decode(&m) != nil {
			return
		}
		fmt.Printf("  [%s] %-3s %5dms  %d:%d\n", m.GameID, m.Move, m.ThinkMS, m.BlackDiscs, m.WhiteDiscs)
		w.applyMove(m)
	case matchdto.EventGameFinished:
		var g matchdto.GameSummary
		if env.Decode(&g) != nil {
			return
		}
		if g.Winner == "" {
			fmt.Printf("game %d [%s]: drawn %d-%d\n", g.Round, g.ID, g.BlackDiscs, g.WhiteDiscs)
		} else {
			fmt.Printf("game %d [%s]: %s wins %d-%d (%s)\n", g.Round, g.ID, g.Winner, g.BlackDiscs, g.WhiteDiscs, g.Reason)
		}
	case matchdto.EventStandings:
		var s matchdto.StandingsSnapshot
		if env.Decode(&s) != nil {
			return
		}
		fmt.Printf("standings: %s\n", s.Name)
		for i, row := range s.Scores {
			fmt.Printf("  %d. %-20s %5.1f pts  (%dW %dD %dL)\n", i+1, row.Engine, row.Points, row.Wins, row.Draws, row.Losses)
		}
	}
}

func (w *watcher) applyMove(m matchdto.MoveEvent) {
	if !w.board || m.GameID != w.followed || w.pos == nil {
		return
	}
	move, err := reversi.ParseMove(m.Move)
	if err != nil {
		w.pos = nil
		return
	}
	if err := w.pos.Play(move); err != nil {
		// Dropped frames leave the local board behind the game. Stop
		// drawing it rather than showing a wrong position.
		w.pos = nil
		return
	}
	w.drawBoard()
}

func (w *watcher) drawBoard() {
	if !w.board || w.pos == nil {
		return
	}
	board := w.pos.Board()
	var b strings.Builder
	b.WriteString("    a b c d e f g h\n")
	for rank := 0; rank < 8; rank++ {
		fmt.Fprintf(&b, "  %d", rank+1)
		for file := 0; file < 8; file++ {
			sq, err := reversi.NewSquare(file, rank)
			if err != nil {
				return
			}
			glyph := w.cfg.EmptyGlyph
			switch board.At(sq) {
			case reversi.Black:
				glyph = w.cfg.BlackGlyph
			case reversi.White:
				glyph = w.cfg.WhiteGlyph
			}
			b.WriteString(" " + glyph)
		}
		b.WriteString("\n")
	}
	fmt.Print(b.String())
}

func backoffDuration(attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}
