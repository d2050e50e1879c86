// Package notify delivers tournament announcements to external sinks.
package notify

import (
	"context"
	"errors"
)

// Event is one announcement. Text is the rendered human-readable
// message; the ids let receivers correlate events without parsing it.
type Event struct {
	Kind         string `json:"kind"`
	Text         string `json:"text"`
	TournamentID string `json:"tournament_id,omitempty"`
	GameID       string `json:"game_id,omitempty"`
	Round        int    `json:"round,omitempty"`
}

// Event kinds.
const (
	KindTournamentStarted  = "tournament_started"
	KindGameFinished       = "game_finished"
	KindTournamentFinished = "tournament_finished"
)

type Notifier interface {
	Post(ctx context.Context, e Event) error
}

// Nop swallows every event.
type Nop struct{}

func (Nop) Post(context.Context, Event) error { return nil }

type fanout []Notifier

// Combine posts each event to every sink in order, skipping nils. All
// sinks are attempted even when an earlier one fails.
func Combine(sinks ...Notifier) Notifier {
	var fo fanout
	for _, s := range sinks {
		if s != nil {
			fo = append(fo, s)
		}
	}
	if len(fo) == 0 {
		return Nop{}
	}
	if len(fo) == 1 {
		return fo[0]
	}
	return fo
}

func (fo fanout) Post(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range fo {
		if err := s.Post(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
