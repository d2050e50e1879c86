package host

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/protocol"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Player is the referee's view of one engine. Session implements it;
// tests substitute scripted fakes.
type Player interface {
	Label() string
	NewGame(ctx context.Context, c reversi.Color) error
	SendPosition(moves []reversi.Move) error
	Go(ctx context.Context, tc protocol.TimeControl, side reversi.Color) (reversi.Move, bool, error)
	Close() error
}

// GameOptions parameterize one refereed game.
type GameOptions struct {
	Initial   time.Duration
	Increment time.Duration

	// Opening is replayed onto the board before the engines take over.
	// Opening moves are recorded with zero think time.
	Opening []reversi.Move

	// EnforceFlag forfeits a side whose reply lands after its clock ran
	// out. Off, the clock still ticks but flag falls are only logged.
	EnforceFlag bool

	Pacing Pacing

	// OnMove, when set, observes every engine move as it lands.
	OnMove func(m reversi.Move, thinkTime time.Duration, pos *reversi.Position)
}

// PlayGame referees one game and returns its record with transcript,
// winner, reason, per-move timings, and final disc counts. Rule and
// clock violations end the game as a forfeit, not an error; a non-nil
// error means the outer context ended and no result exists.
func PlayGame(ctx context.Context, black, white Player, opt GameOptions) (*domain.Game, error) {
	g := &domain.Game{
		Black:     black.Label(),
		White:     white.Label(),
		StartedAt: time.Now(),
	}
	pos := reversi.StartPosition()
	tc := protocol.TimeControl{
		BlackRemaining: opt.Initial,
		WhiteRemaining: opt.Initial,
		BlackIncrement: opt.Increment,
		WhiteIncrement: opt.Increment,
	}

	finish := func(winner reversi.Color, reason domain.Reason) *domain.Game {
		board := pos.Board()
		g.BlackDiscs = board.Count(reversi.Black)
		g.WhiteDiscs = board.Count(reversi.White)
		g.Reason = reason
		g.EndedAt = time.Now()
		switch winner {
		case reversi.Black:
			g.Winner = g.Black
		case reversi.White:
			g.Winner = g.White
		}
		return g
	}

	if err := black.NewGame(ctx, reversi.Black); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		obslog.L().Error("newgame_failed", zap.String("engine", black.Label()), zap.Error(err))
		return finish(reversi.White, domain.ReasonProtocol), nil
	}
	if err := white.NewGame(ctx, reversi.White); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		obslog.L().Error("newgame_failed", zap.String("engine", white.Label()), zap.Error(err))
		return finish(reversi.Black, domain.ReasonProtocol), nil
	}

	for _, m := range opt.Opening {
		if err := pos.Play(m); err != nil {
			obslog.L().Warn("opening_truncated", zap.String("move", m.String()), zap.Error(err))
			break
		}
		g.Moves = append(g.Moves, m.String())
		g.MoveTimes = append(g.MoveTimes, 0)
	}

	for !pos.Over() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		side := pos.ToMove()
		mover := black
		if side == reversi.White {
			mover = white
		}

		if err := mover.SendPosition(pos.History()); err != nil {
			obslog.L().Error("position_send_failed", zap.String("engine", mover.Label()), zap.Error(err))
			return finish(side.Opponent(), domain.ReasonProtocol), nil
		}

		started := time.Now()
		move, pass, err := mover.Go(ctx, tc, side)
		elapsed := time.Since(started)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			obslog.L().Error("bestmove_failed", zap.String("engine", mover.Label()), zap.Error(err))
			return finish(side.Opponent(), domain.ReasonProtocol), nil
		}

		if elapsed > tc.Remaining(side) {
			obslog.L().Warn("flag_fell",
				zap.String("engine", mover.Label()),
				zap.Duration("elapsed", elapsed),
				zap.Duration("remaining", tc.Remaining(side)))
			if opt.EnforceFlag {
				return finish(side.Opponent(), domain.ReasonTimeout), nil
			}
		}
		tc = tc.WithMoveMade(side, elapsed)

		// The side to move always has a legal move here, so a pass claim
		// is a rule violation.
		if pass {
			obslog.L().Warn("illegal_pass", zap.String("engine", mover.Label()))
			return finish(side.Opponent(), domain.ReasonIllegalMove), nil
		}
		if err := pos.Play(move); err != nil {
			obslog.L().Warn("illegal_move",
				zap.String("engine", mover.Label()),
				zap.String("move", move.String()),
				zap.Error(err))
			return finish(side.Opponent(), domain.ReasonIllegalMove), nil
		}

		g.Moves = append(g.Moves, move.String())
		g.MoveTimes = append(g.MoveTimes, elapsed)
		if opt.OnMove != nil {
			opt.OnMove(move, elapsed, pos.Clone())
		}
		if err := opt.Pacing.SleepMove(ctx); err != nil {
			return nil, err
		}
	}

	return finish(pos.Board().Winner(), domain.ReasonScore), nil
}
