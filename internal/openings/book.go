// Package openings carries a small catalog of named opening lines and
// answers two questions about a game in progress: which book moves
// continue it, and which named line it is currently following.
package openings

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

//go:embed catalog.yaml
var rawCatalog []byte

var (
	bookOnce sync.Once
	book     *Book
	bookErr  error
)

// Entry is one named line as written in the catalog.
type Entry struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Moves  string `yaml:"moves"`
	Weight int    `yaml:"weight"`
}

type catalogFile struct {
	Openings []Entry `yaml:"openings"`
}

type line struct {
	Entry
	moves []reversi.Move
}

// Book is the parsed catalog with every line verified to replay legally
// from the start.
type Book struct {
	lines []line
	byKey map[string]*line
}

// Load parses the embedded catalog once and reuses it afterwards.
func Load() (*Book, error) {
	bookOnce.Do(func() {
		book, bookErr = parseCatalog(rawCatalog)
	})
	return book, bookErr
}

func parseCatalog(raw []byte) (*Book, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse opening catalog: %w", err)
	}
	lines := make([]line, 0, len(file.Openings))
	seen := make(map[string]bool, len(file.Openings))
	for _, e := range file.Openings {
		key := normalizeToken(e.Key)
		if key == "" {
			return nil, fmt.Errorf("opening %q has no key", e.Name)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate opening key %q", e.Key)
		}
		if e.Weight <= 0 {
			return nil, fmt.Errorf("opening %q must have positive weight", e.Key)
		}
		moves, err := reversi.ParseMoves(strings.Fields(e.Moves))
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", e.Key, err)
		}
		if len(moves) == 0 {
			return nil, fmt.Errorf("opening %q has no moves", e.Key)
		}
		if _, err := reversi.Replay(moves); err != nil {
			return nil, fmt.Errorf("opening %q does not replay: %w", e.Key, err)
		}
		lines = append(lines, line{Entry: e, moves: moves})
		seen[key] = true
	}
	b := &Book{lines: lines, byKey: make(map[string]*line, len(lines))}
	for i := range b.lines {
		b.byKey[normalizeToken(b.lines[i].Key)] = &b.lines[i]
	}
	return b, nil
}

// FindByKey returns the catalog entry for a key, case-insensitively.
func (b *Book) FindByKey(key string) (Entry, bool) {
	if b == nil {
		return Entry{}, false
	}
	l, ok := b.byKey[normalizeToken(key)]
	if !ok {
		return Entry{}, false
	}
	return l.Entry, true
}

// Len returns the number of catalog lines.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.lines)
}

// Suggestion is one book continuation for a position, with the weights
// of every line proposing it added together.
type Suggestion struct {
	Move   reversi.Move
	Key    string
	Name   string
	Weight int
}

// Lookup returns the book continuations of history: each catalog line
// that extends the played moves contributes its next move. maxPly bounds
// how deep into a game the book still answers; suggestions below
// minWeight are dropped. The result is sorted by weight, heaviest first.
func (b *Book) Lookup(history []reversi.Move, maxPly, minWeight int) []Suggestion {
	if b == nil {
		return nil
	}
	if maxPly > 0 && len(history) >= maxPly {
		return nil
	}
	acc := make(map[reversi.Move]*Suggestion)
	top := make(map[reversi.Move]int)
	for i := range b.lines {
		l := &b.lines[i]
		if len(l.moves) <= len(history) || !movesExtend(l.moves, history) {
			continue
		}
		next := l.moves[len(history)]
		s, ok := acc[next]
		if !ok {
			s = &Suggestion{Move: next}
			acc[next] = s
		}
		s.Weight += l.Weight
		// The heaviest contributing line names the suggestion.
		if l.Weight > top[next] {
			top[next] = l.Weight
			s.Key, s.Name = l.Key, l.Name
		}
	}
	out := make([]Suggestion, 0, len(acc))
	for _, s := range acc {
		if s.Weight >= minWeight {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Move.String() < out[j].Move.String()
	})
	return out
}

// Identify returns the longest named line the played moves are following
// exactly, if any.
func (b *Book) Identify(history []reversi.Move) (Entry, bool) {
	if b == nil {
		return Entry{}, false
	}
	var (
		best    *line
		bestLen int
	)
	for i := range b.lines {
		l := &b.lines[i]
		if len(l.moves) > len(history) || !movesExtend(history, l.moves) {
			continue
		}
		if len(l.moves) > bestLen || (len(l.moves) == bestLen && best != nil && l.Weight > best.Weight) {
			best = l
			bestLen = len(l.moves)
		}
	}
	if best == nil {
		return Entry{}, false
	}
	return best.Entry, true
}

// RandomLine draws one whole catalog line weight-proportionally and
// returns its entry plus a copy of its moves. Tournaments use it to
// assign both engines of a pairing the same forced opening.
func (b *Book) RandomLine(r *rand.Rand) (Entry, []reversi.Move, bool) {
	if b == nil || len(b.lines) == 0 {
		return Entry{}, nil, false
	}
	total := 0
	for i := range b.lines {
		total += b.lines[i].Weight
	}
	if total <= 0 {
		return Entry{}, nil, false
	}
	threshold := r.Intn(total)
	for i := range b.lines {
		threshold -= b.lines[i].Weight
		if threshold < 0 {
			l := &b.lines[i]
			return l.Entry, append([]reversi.Move(nil), l.moves...), true
		}
	}
	l := &b.lines[len(b.lines)-1]
	return l.Entry, append([]reversi.Move(nil), l.moves...), true
}

// Pick chooses one suggestion weight-proportionally.
func Pick(suggestions []Suggestion, r *rand.Rand) (Suggestion, bool) {
	if len(suggestions) == 0 {
		return Suggestion{}, false
	}
	total := 0
	for _, s := range suggestions {
		total += s.Weight
	}
	if total <= 0 {
		return Suggestion{}, false
	}
	threshold := r.Intn(total)
	for _, s := range suggestions {
		threshold -= s.Weight
		if threshold < 0 {
			return s, true
		}
	}
	return suggestions[len(suggestions)-1], true
}

// movesExtend reports whether prefix is a prefix of moves.
func movesExtend(moves, prefix []reversi.Move) bool {
	if len(moves) < len(prefix) {
		return false
	}
	for i, m := range prefix {
		if moves[i] != m {
			return false
		}
	}
	return true
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
