package host

import (
	"context"
	"math/rand"
	"time"
)

// Pacing slows a series down for spectators. The zero value disables
// all delays, which is what headless runs and tests want.
type Pacing struct {
	// MoveDelay is the pause after every engine move.
	MoveDelay time.Duration
	// GameDelay is the pause between consecutive games.
	GameDelay time.Duration
	// Jitter spreads each delay by up to the given fraction of its base,
	// in both directions, so long series do not feel metronomic.
	Jitter float64
}

// SleepMove pauses for the per-move delay.
func (p Pacing) SleepMove(ctx context.Context) error { return p.sleep(ctx, p.MoveDelay) }

// SleepGame pauses for the between-games delay.
func (p Pacing) SleepGame(ctx context.Context) error { return p.sleep(ctx, p.GameDelay) }

func (p Pacing) sleep(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	d := base
	if p.Jitter > 0 {
		spread := float64(base) * p.Jitter
		d += time.Duration((rand.Float64()*2 - 1) * spread)
		if d < 0 {
			d = 0
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
