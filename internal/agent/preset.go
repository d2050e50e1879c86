package agent

import (
	"fmt"
	"strings"
)

// Preset shapes how an agent turns its candidate ranking into an actual
// choice: how many of the top candidates stay in play, their sampling
// weights, the cosmetic score jitter, and how eagerly the opening book
// is consulted.
type Preset struct {
	Name             string
	PrimaryChoices   int
	CandidateWeights []float64
	ScoreNoise       int
	BookProbability  float64
}

var DefaultPresets = map[string]Preset{
	"casual": {
		Name:             "casual",
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.5, 0.3, 0.2},
		ScoreNoise:       3,
		BookProbability:  0.35,
	},
	"club": {
		Name:             "club",
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.8, 0.2},
		ScoreNoise:       1,
		BookProbability:  0.75,
	},
	"master": {
		Name:             "master",
		PrimaryChoices:   1,
		CandidateWeights: []float64{1.0},
		ScoreNoise:       0,
		BookProbability:  1.0,
	},
}

// GetPreset resolves a preset by name, accepting a few aliases.
func GetPreset(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "beginner":
		key = "casual"
	case "intermediate":
		key = "club"
	case "strong", "tournament":
		key = "master"
	}
	p, ok := DefaultPresets[key]
	if !ok {
		return Preset{}, fmt.Errorf("unknown agent preset: %s", name)
	}
	return p, nil
}

func ValidatePreset(p Preset) error {
	switch {
	case p.PrimaryChoices <= 0:
		return fmt.Errorf("primary choices must be > 0: %d", p.PrimaryChoices)
	case len(p.CandidateWeights) == 0:
		return fmt.Errorf("candidate weights must not be empty")
	case len(p.CandidateWeights) < p.PrimaryChoices:
		return fmt.Errorf("candidate weights (%d) must cover primary choices (%d)", len(p.CandidateWeights), p.PrimaryChoices)
	case p.ScoreNoise < 0:
		return fmt.Errorf("score noise must be >= 0: %d", p.ScoreNoise)
	case p.BookProbability < 0 || p.BookProbability > 1:
		return fmt.Errorf("book probability must be in [0,1]: %f", p.BookProbability)
	}

	sum := 0.0
	for i := 0; i < p.PrimaryChoices; i++ {
		w := p.CandidateWeights[i]
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	return nil
}
