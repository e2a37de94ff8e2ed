// Package resolve reconciles divergent mutation sets produced by two
// independent lines of work. The resolver is a pure scoring function over
// declared quality signals; it never mutates persisted state itself, and
// its output is applied only through the transaction coordinator.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edictlabs/edict/pkg/models"
)

// Resolver scores conflict cases with injected weight policy. Weights are
// configuration, not constants: e.g. purity 0.6, test_coverage 0.4.
type Resolver struct {
	weights   map[string]float64
	threshold float64
}

// New creates a Resolver. threshold is the minimum score difference for
// auto-resolution; a difference exactly at the threshold escalates
// (exclusive bound).
func New(weights map[string]float64, threshold float64) *Resolver {
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Resolver{weights: w, threshold: threshold}
}

// Threshold returns the configured auto-resolution threshold.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Score computes the scalar preference score for a quality vector: the
// weighted sum over the configured signals. Signals missing from the
// vector contribute zero.
func (r *Resolver) Score(v models.QualityVector) float64 {
	score := 0.0
	for signal, weight := range r.weights {
		score += weight * v[signal]
	}
	return score
}

// Resolve decides one conflict case. The decision is a pure function of
// the two quality vectors, the injected weights and the threshold:
// identical inputs always yield the identical Resolution.
func (r *Resolver) Resolve(c models.ConflictCase) models.Resolution {
	left := r.Score(c.Left.Quality)
	right := r.Score(c.Right.Quality)

	diff := left - right
	if diff < 0 {
		diff = -diff
	}

	if diff > r.threshold {
		winner, loser := c.Left, c.Right
		winScore, loseScore := left, right
		if right > left {
			winner, loser = c.Right, c.Left
			winScore, loseScore = right, left
		}
		return models.Resolution{
			Outcome:    models.ResolutionAuto,
			Winner:     winner.Label,
			LeftScore:  left,
			RightScore: right,
			Rationale: fmt.Sprintf(
				"entity %s: preferred %s (%.3f) over %s (%.3f); difference %.3f exceeds threshold %.3f under weights %s",
				c.Entity, winner.Label, winScore, loser.Label, loseScore, diff, r.threshold, r.describeWeights()),
		}
	}

	return models.Resolution{
		Outcome:    models.ResolutionEscalated,
		LeftScore:  left,
		RightScore: right,
		Rationale: fmt.Sprintf(
			"entity %s: %s (%.3f) and %s (%.3f) are within threshold %.3f (difference %.3f); human decision required",
			c.Entity, c.Left.Label, left, c.Right.Label, right, r.threshold, diff),
	}
}

// describeWeights renders the weight policy deterministically for
// rationales.
func (r *Resolver) describeWeights() string {
	signals := make([]string, 0, len(r.weights))
	for s := range r.weights {
		signals = append(signals, s)
	}
	sort.Strings(signals)

	parts := make([]string, 0, len(signals))
	for _, s := range signals {
		parts = append(parts, fmt.Sprintf("%s=%.2f", s, r.weights[s]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
