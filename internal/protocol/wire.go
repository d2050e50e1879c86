// Package protocol implements the reversi_v1 line protocol: the message
// grammar spoken between a referee (or any controlling UI) and an engine
// process over stdin/stdout. Both the engine loop and the referee's
// engine client parse and render messages through this package so the
// two sides cannot drift apart.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Message heads and fixed replies. Every message is a single line; fields
// are separated by arbitrary runs of whitespace.
const (
	CmdHandshake = "reversi_v1"
	CmdNewGame   = "newgame"
	CmdIsReady   = "isready"
	CmdPosition  = "position"
	CmdGo        = "go"

	ReplyHandshakeOK = "reversi_v1_ok"
	ReplyReadyOK     = "readyok"
	ReplyID          = "id"
	ReplyBestMove    = "bestmove"

	TokenStartpos = "startpos"
	TokenPass     = "pass"
)

// Fields splits a raw line into whitespace-separated fields. Empty lines
// yield a nil slice.
func Fields(line string) []string {
	return strings.Fields(line)
}

// IDNameLine renders the engine-name handshake reply.
func IDNameLine(name string) string {
	return ReplyID + " name " + name
}

// IDAuthorLine renders the engine-author handshake reply.
func IDAuthorLine(author string) string {
	return ReplyID + " author " + author
}

// ParseIDLine decodes an `id name …` or `id author …` reply. ok is false
// for lines that are not id replies.
func ParseIDLine(line string) (field, value string, ok bool) {
	parts := strings.Fields(line)
	if len(parts) < 3 || parts[0] != ReplyID {
		return "", "", false
	}
	switch parts[1] {
	case "name", "author":
		return parts[1], strings.Join(parts[2:], " "), true
	default:
		return "", "", false
	}
}

// NewGameLine renders `newgame b` or `newgame w`.
func NewGameLine(c reversi.Color) string {
	return CmdNewGame + " " + c.Letter()
}

// ParseNewGame decodes the arguments of a newgame command: exactly one
// color letter.
func ParseNewGame(args []string) (reversi.Color, error) {
	if len(args) != 1 {
		return reversi.Empty, Errorf(KindMalformed, "newgame wants 1 argument, got %d", len(args))
	}
	c, err := reversi.ParseColor(args[0])
	if err != nil {
		return reversi.Empty, Errorf(KindMalformed, "newgame: %v", err)
	}
	return c, nil
}

// PositionLine renders `position startpos` followed by the chronological
// move tokens.
func PositionLine(moves []reversi.Move) string {
	var sb strings.Builder
	sb.WriteString(CmdPosition)
	sb.WriteByte(' ')
	sb.WriteString(TokenStartpos)
	for _, m := range moves {
		sb.WriteByte(' ')
		sb.WriteString(m.String())
	}
	return sb.String()
}

// ParsePosition decodes the arguments of a position command. The first
// argument must be the literal `startpos`; the rest are move tokens in
// chronological order. Token-level grammar violations are malformed
// messages; whether the sequence replays legally is the caller's concern.
func ParsePosition(args []string) ([]reversi.Move, error) {
	if len(args) == 0 || args[0] != TokenStartpos {
		return nil, Errorf(KindMalformed, "position wants %q as first argument", TokenStartpos)
	}
	moves, err := reversi.ParseMoves(args[1:])
	if err != nil {
		return nil, Errorf(KindMalformed, "position: %v", err)
	}
	return moves, nil
}

// TimeControl carries the clock state sent with every go command: each
// side's remaining budget and per-move increment.
type TimeControl struct {
	BlackRemaining time.Duration
	WhiteRemaining time.Duration
	BlackIncrement time.Duration
	WhiteIncrement time.Duration
}

// Remaining returns the budget left for c.
func (tc TimeControl) Remaining(c reversi.Color) time.Duration {
	if c == reversi.White {
		return tc.WhiteRemaining
	}
	return tc.BlackRemaining
}

// Increment returns the per-move increment for c.
func (tc TimeControl) Increment(c reversi.Color) time.Duration {
	if c == reversi.White {
		return tc.WhiteIncrement
	}
	return tc.BlackIncrement
}

// WithMoveMade returns the clock state after c spent elapsed on a move:
// the side's remaining budget is reduced by elapsed and topped up with
// its increment. The result can go negative; the caller decides what a
// flag fall means.
func (tc TimeControl) WithMoveMade(c reversi.Color, elapsed time.Duration) TimeControl {
	if c == reversi.White {
		tc.WhiteRemaining = tc.WhiteRemaining - elapsed + tc.WhiteIncrement
	} else {
		tc.BlackRemaining = tc.BlackRemaining - elapsed + tc.BlackIncrement
	}
	return tc
}

// GoLine renders the go command with all four clock fields in
// milliseconds.
func (tc TimeControl) GoLine() string {
	return fmt.Sprintf("%s btime=%d wtime=%d binc=%d winc=%d",
		CmdGo,
		tc.BlackRemaining.Milliseconds(),
		tc.WhiteRemaining.Milliseconds(),
		tc.BlackIncrement.Milliseconds(),
		tc.WhiteIncrement.Milliseconds())
}

// ParseGo decodes the arguments of a go command. All four keys btime,
// wtime, binc and winc must appear exactly once, in any order, each as
// key=value with a non-negative integer millisecond value.
func ParseGo(args []string) (TimeControl, error) {
	var tc TimeControl
	seen := make(map[string]bool, 4)
	for _, arg := range args {
		key, raw, found := strings.Cut(arg, "=")
		if !found {
			return TimeControl{}, Errorf(KindMalformed, "go: argument %q is not key=value", arg)
		}
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return TimeControl{}, Errorf(KindMalformed, "go: %s value %q is not an integer", key, raw)
		}
		if ms < 0 {
			return TimeControl{}, Errorf(KindMalformed, "go: %s must be >= 0, got %d", key, ms)
		}
		if seen[key] {
			return TimeControl{}, Errorf(KindMalformed, "go: duplicate key %s", key)
		}
		d := time.Duration(ms) * time.Millisecond
		switch key {
		case "btime":
			tc.BlackRemaining = d
		case "wtime":
			tc.WhiteRemaining = d
		case "binc":
			tc.BlackIncrement = d
		case "winc":
			tc.WhiteIncrement = d
		default:
			return TimeControl{}, Errorf(KindMalformed, "go: unknown key %s", key)
		}
		seen[key] = true
	}
	for _, key := range []string{"btime", "wtime", "binc", "winc"} {
		if !seen[key] {
			return TimeControl{}, Errorf(KindMalformed, "go: missing key %s", key)
		}
	}
	return tc, nil
}

// BestMoveLine renders the bestmove reply for a placement.
func BestMoveLine(m reversi.Move) string {
	return ReplyBestMove + " " + m.String()
}

// BestMovePassLine renders the bestmove reply an engine emits when it has
// no legal placement. Referees never solicit this; it exists so a search
// asked to move in a dead position still answers something parseable.
func BestMovePassLine() string {
	return ReplyBestMove + " " + TokenPass
}

// ParseBestMove decodes a bestmove reply. pass reports the no-move
// sentinel; when pass is false the returned move carries the placement.
func ParseBestMove(line string) (m reversi.Move, pass bool, err error) {
	parts := strings.Fields(line)
	if len(parts) != 2 || parts[0] != ReplyBestMove {
		return reversi.Move{}, false, Errorf(KindMalformed, "not a bestmove reply: %q", line)
	}
	if parts[1] == TokenPass {
		return reversi.Move{}, true, nil
	}
	m, perr := reversi.ParseMove(parts[1])
	if perr != nil {
		return reversi.Move{}, false, Errorf(KindMalformed, "bestmove: %v", perr)
	}
	return m, false, nil
}
