package models

import "time"

// Outcome is the class of result a caller must branch on. Recoverable
// outcomes are values, never errors, so callers cannot accidentally
// ignore them.
type Outcome string

const (
	// OutcomeSuccess means the workflow completed and its transaction
	// committed.
	OutcomeSuccess Outcome = "success"
	// OutcomeNeedsClarification means routing could not pick a directive
	// with enough confidence; the caller must ask and re-route.
	OutcomeNeedsClarification Outcome = "needs-clarification"
	// OutcomeEscalated means the workflow suspended for human input and
	// no decision arrived; nothing was committed.
	OutcomeEscalated Outcome = "escalated"
	// OutcomeFatal means the workflow failed; the transaction rolled back.
	OutcomeFatal Outcome = "fatal-error"
)

// Valid returns true if the outcome is a known value.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeNeedsClarification, OutcomeEscalated, OutcomeFatal:
		return true
	default:
		return false
	}
}

// Escalation is a first-class, non-error outcome requiring human input.
// It always carries a human-readable rationale and the minimum data
// needed to decide.
type Escalation struct {
	// Directive is the directive that escalated.
	Directive string `json:"directive"`
	// Reason is the human-readable rationale.
	Reason string `json:"reason"`
	// KnownFailure is the matching entry from the directive's failure
	// catalog, if one matched.
	KnownFailure *KnownFailure `json:"known_failure,omitempty"`
	// Attempts is the number of on-failure attempts already made.
	Attempts int `json:"attempts,omitempty"`
	// Raised is when the escalation was created.
	Raised time.Time `json:"raised"`
}

// ExecutionResult is the outcome of executing a directive.
type ExecutionResult struct {
	// Outcome is the result class the caller must branch on.
	Outcome Outcome `json:"outcome"`
	// Directive is the top-level directive that ran.
	Directive string `json:"directive"`
	// Payload holds terminal-action output values.
	Payload map[string]string `json:"payload,omitempty"`
	// Err describes the failure when Outcome is fatal-error.
	Err *EngineError `json:"error,omitempty"`
	// Escalation is set when Outcome is escalated.
	Escalation *Escalation `json:"escalation,omitempty"`
	// Mutations is the audit list of mutations buffered during the run.
	// They are durable only when Outcome is success.
	Mutations []MutationRecord `json:"mutations,omitempty"`
	// NextActions are recommended follow-ups for the caller.
	NextActions []string `json:"next_actions,omitempty"`
}

// Success returns true when the workflow completed and committed.
func (r *ExecutionResult) Success() bool {
	return r.Outcome == OutcomeSuccess
}
