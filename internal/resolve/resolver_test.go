package resolve

import (
	"strings"
	"testing"

	"github.com/edictlabs/edict/pkg/models"
)

func testWeights() map[string]float64 {
	return map[string]float64{"purity": 0.6, "test_coverage": 0.4}
}

func conflictCase(left, right models.QualityVector) models.ConflictCase {
	return models.ConflictCase{
		Entity: "task/t1",
		Left:   models.ConflictSide{Label: "ours", Quality: left},
		Right:  models.ConflictSide{Label: "theirs", Quality: right},
	}
}

func TestScoreWeightedSum(t *testing.T) {
	r := New(testWeights(), 0.3)

	v := models.QualityVector{"purity": 0.5, "test_coverage": 1.0}
	want := 0.6*0.5 + 0.4*1.0
	if got := r.Score(v); got != want {
		t.Errorf("Score = %v, want %v", got, want)
	}

	// Signals missing from the vector contribute zero.
	if got := r.Score(models.QualityVector{"purity": 1.0}); got != 0.6 {
		t.Errorf("Score with missing signal = %v, want 0.6", got)
	}
	if got := r.Score(models.QualityVector{}); got != 0 {
		t.Errorf("Score of empty vector = %v, want 0", got)
	}

	// Signals outside the weight policy are ignored.
	if got := r.Score(models.QualityVector{"vibes": 1.0}); got != 0 {
		t.Errorf("Score of unweighted signal = %v, want 0", got)
	}
}

func TestResolveAutoResolvesWideGap(t *testing.T) {
	// Uniform weight on one signal keeps the arithmetic transparent.
	r := New(map[string]float64{"purity": 1.0}, 0.3)

	res := r.Resolve(conflictCase(
		models.QualityVector{"purity": 0.9},
		models.QualityVector{"purity": 0.4},
	))
	if res.Outcome != models.ResolutionAuto {
		t.Fatalf("Outcome = %q, want auto-resolved", res.Outcome)
	}
	if res.Winner != "ours" {
		t.Errorf("Winner = %q, want ours", res.Winner)
	}
	if res.LeftScore != 0.9 || res.RightScore != 0.4 {
		t.Errorf("scores = %v/%v, want 0.9/0.4", res.LeftScore, res.RightScore)
	}
	if res.Rationale == "" {
		t.Error("auto-resolution must record a rationale")
	}
}

func TestResolveEscalatesNarrowGap(t *testing.T) {
	r := New(map[string]float64{"purity": 1.0}, 0.3)

	res := r.Resolve(conflictCase(
		models.QualityVector{"purity": 0.55},
		models.QualityVector{"purity": 0.50},
	))
	if res.Outcome != models.ResolutionEscalated {
		t.Fatalf("Outcome = %q, want escalated", res.Outcome)
	}
	if res.Winner != "" {
		t.Errorf("escalated resolution should not name a winner, got %q", res.Winner)
	}
	// Both sides and scores surface for the human decision.
	if !strings.Contains(res.Rationale, "ours") || !strings.Contains(res.Rationale, "theirs") {
		t.Errorf("rationale should surface both sides: %q", res.Rationale)
	}
}

func TestResolveExactlyAtThresholdEscalates(t *testing.T) {
	r := New(map[string]float64{"purity": 1.0}, 0.5)

	res := r.Resolve(conflictCase(
		models.QualityVector{"purity": 1.0},
		models.QualityVector{"purity": 0.5},
	))
	if res.Outcome != models.ResolutionEscalated {
		t.Errorf("difference exactly at threshold should escalate, got %q", res.Outcome)
	}
}

func TestResolvePrefersRightSide(t *testing.T) {
	r := New(map[string]float64{"purity": 1.0}, 0.3)

	res := r.Resolve(conflictCase(
		models.QualityVector{"purity": 0.2},
		models.QualityVector{"purity": 0.9},
	))
	if res.Outcome != models.ResolutionAuto || res.Winner != "theirs" {
		t.Errorf("Resolution = %+v, want auto-resolved toward theirs", res)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := New(testWeights(), 0.3)
	c := conflictCase(
		models.QualityVector{"purity": 0.9, "test_coverage": 0.2},
		models.QualityVector{"purity": 0.1, "test_coverage": 0.3},
	)

	first := r.Resolve(c)
	for i := 0; i < 10; i++ {
		if got := r.Resolve(c); got != first {
			t.Fatalf("run %d: Resolution %+v != %+v", i, got, first)
		}
	}
}

func TestWeightsAreInjectedPolicy(t *testing.T) {
	c := conflictCase(
		models.QualityVector{"purity": 1.0, "test_coverage": 0.0},
		models.QualityVector{"purity": 0.0, "test_coverage": 1.0},
	)

	purist := New(map[string]float64{"purity": 1.0}, 0.3)
	if res := purist.Resolve(c); res.Winner != "ours" {
		t.Errorf("purity-only weights: winner = %q, want ours", res.Winner)
	}

	tester := New(map[string]float64{"test_coverage": 1.0}, 0.3)
	if res := tester.Resolve(c); res.Winner != "theirs" {
		t.Errorf("coverage-only weights: winner = %q, want theirs", res.Winner)
	}
}

func TestNewCopiesWeights(t *testing.T) {
	weights := testWeights()
	r := New(weights, 0.3)
	weights["purity"] = 0

	if got := r.Score(models.QualityVector{"purity": 1.0}); got != 0.6 {
		t.Errorf("mutating the caller's map changed the resolver: Score = %v", got)
	}
}
