package agent

import (
	"errors"
	"math"
	"math/rand"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Candidate is one ranked move with the score its agent gave it.
// Candidates are ordered best first.
type Candidate struct {
	Move   reversi.Move
	Score  int
	Forced bool
}

// SelectCandidate picks from ranked candidates. A Forced candidate
// inside the primary window wins outright; otherwise the window is
// sampled by the preset's weights. Score noise jitters the reported
// score of the chosen candidate only, never the choice itself.
func SelectCandidate(p Preset, candidates []Candidate, r *rand.Rand) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, errors.New("no candidates to choose from")
	}
	if err := ValidatePreset(p); err != nil {
		return Candidate{}, err
	}

	primaryLimit := p.PrimaryChoices
	if primaryLimit > len(candidates) {
		primaryLimit = len(candidates)
	}

	for i := 0; i < primaryLimit; i++ {
		if candidates[i].Forced {
			return jitterScore(p, candidates[i], r), nil
		}
	}

	totalWeight := 0.0
	for i := 0; i < primaryLimit; i++ {
		totalWeight += p.CandidateWeights[i]
	}
	if totalWeight == 0 {
		return Candidate{}, errors.New("candidate weights sum to zero")
	}

	threshold := r.Float64() * totalWeight
	index := 0
	for i := 0; i < primaryLimit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			index = i
			break
		}
	}

	return jitterScore(p, candidates[index], r), nil
}

func jitterScore(p Preset, c Candidate, r *rand.Rand) Candidate {
	if p.ScoreNoise > 0 {
		offset := r.Intn(2*p.ScoreNoise+1) - p.ScoreNoise
		c.Score = saturatingAdd(c.Score, offset)
	}
	return c
}

func saturatingAdd(a, b int) int {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt {
		return math.MaxInt
	}
	if sum < math.MinInt {
		return math.MinInt
	}
	return int(sum)
}
