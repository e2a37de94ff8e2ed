package models

// QualityVector maps declared quality signals (e.g. "purity",
// "test_coverage") to values in [0,1].
type QualityVector map[string]float64

// ConflictSide is one of the two competing mutation sets in a conflict.
type ConflictSide struct {
	// Label identifies the side, typically a branch name.
	Label string `json:"label"`
	// Mutations is the side's proposed mutation set.
	Mutations []PendingMutation `json:"mutations"`
	// Quality is the side's declared quality vector.
	Quality QualityVector `json:"quality"`
}

// ConflictCase is two competing mutation sets for one logical entity.
// It exists only during a merge and is discarded after resolution.
type ConflictCase struct {
	// Entity is the logical entity both sides mutate.
	Entity string `json:"entity"`
	// Left and Right are the competing sides.
	Left  ConflictSide `json:"left"`
	Right ConflictSide `json:"right"`
}

// ResolutionOutcome is how a conflict case was decided.
type ResolutionOutcome string

const (
	// ResolutionAuto means the resolver preferred one side.
	ResolutionAuto ResolutionOutcome = "auto-resolved"
	// ResolutionEscalated means the scores were too close to decide;
	// a human must choose before any state changes.
	ResolutionEscalated ResolutionOutcome = "escalated"
)

// Resolution is the resolver's decision for one conflict case. It is a
// pure function of the quality vectors, the injected weights and the
// threshold; identical inputs always produce an identical Resolution.
type Resolution struct {
	// Outcome is the decision class.
	Outcome ResolutionOutcome `json:"outcome"`
	// Winner is the preferred side's label when auto-resolved.
	Winner string `json:"winner,omitempty"`
	// LeftScore and RightScore are the computed preference scores.
	LeftScore  float64 `json:"left_score"`
	RightScore float64 `json:"right_score"`
	// Rationale is the human-readable explanation of the decision.
	Rationale string `json:"rationale"`
}

// Auto returns true when the resolver decided without human input.
func (r Resolution) Auto() bool {
	return r.Outcome == ResolutionAuto
}
