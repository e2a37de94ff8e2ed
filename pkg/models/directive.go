package models

import "strings"

// DirectiveKind classifies a directive within the rule catalog.
type DirectiveKind string

const (
	// KindPolicy is a coding-policy rule applied to incoming work.
	KindPolicy DirectiveKind = "policy-rule"
	// KindLifecycle is a workflow-lifecycle rule with a hierarchy level.
	KindLifecycle DirectiveKind = "lifecycle-rule"
	// KindPreference is a per-project preference rule.
	KindPreference DirectiveKind = "preference-rule"
)

// Valid returns true if the kind is a known value.
func (k DirectiveKind) Valid() bool {
	switch k {
	case KindPolicy, KindLifecycle, KindPreference:
		return true
	default:
		return false
	}
}

// ActionKind classifies what a workflow action does when executed.
type ActionKind string

const (
	// ActionTerminal produces a result and ends the workflow.
	ActionTerminal ActionKind = "terminal"
	// ActionMutation buffers pending mutations into the active transaction.
	ActionMutation ActionKind = "mutation"
	// ActionInvocation invokes another directive as a nested call.
	ActionInvocation ActionKind = "invocation"
)

// Valid returns true if the action kind is a known value.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionTerminal, ActionMutation, ActionInvocation:
		return true
	default:
		return false
	}
}

// Branch is one conditional step of a workflow. The first branch whose
// predicate evaluates true is executed; later branches are skipped.
type Branch struct {
	// If is the predicate expression guarding this branch.
	If string `json:"if" yaml:"if"`
	// Then is the name of the registered action to execute.
	Then string `json:"then" yaml:"then"`
	// Detail carries action-specific parameters.
	Detail map[string]string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Workflow is the trunk/branches/fallback graph executed for a directive.
// Every workflow has exactly one trunk and exactly one fallback.
type Workflow struct {
	// Trunk is the action that always runs first.
	Trunk string `json:"trunk" yaml:"trunk"`
	// Branches are evaluated in declaration order after the trunk.
	Branches []Branch `json:"branches,omitempty" yaml:"branches,omitempty"`
	// Fallback runs when no branch predicate matches.
	Fallback string `json:"fallback" yaml:"fallback"`
	// OnFailure runs when the trunk, a branch, or a nested call fails.
	OnFailure string `json:"on_failure" yaml:"on_failure"`
}

// KnownFailure documents a failure mode the directive's authors have seen
// before, with the recommended resolution and escalation target.
type KnownFailure struct {
	// Issue is a short description matched against failure messages.
	Issue string `json:"issue" yaml:"issue"`
	// Resolution is the recommended fix.
	Resolution string `json:"resolution" yaml:"resolution"`
	// EscalateTo names who should be consulted if the resolution fails.
	EscalateTo string `json:"escalate_to,omitempty" yaml:"escalate_to,omitempty"`
}

// Directive is a named rule record: a workflow graph plus the routing
// metadata used to select it. Directives are immutable after catalog load.
type Directive struct {
	// Name uniquely identifies the directive within the catalog.
	Name string `json:"name" yaml:"name"`
	// Kind is the directive's tagged variant.
	Kind DirectiveKind `json:"kind" yaml:"kind"`
	// Level is the hierarchy level for lifecycle-rules; zero otherwise.
	Level int `json:"level,omitempty" yaml:"level,omitempty"`
	// Workflow is the executable graph.
	Workflow Workflow `json:"workflow" yaml:"workflow"`
	// Keywords maps intent keywords to routing weights.
	Keywords map[string]float64 `json:"keywords" yaml:"keywords"`
	// Threshold is the minimum routing score at which this directive
	// may be executed without clarification, in [0,1].
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// KnownFailures is the directive's failure catalog.
	KnownFailures []KnownFailure `json:"known_failures,omitempty" yaml:"known_failures,omitempty"`
}

// MaxKeywordWeight returns the sum of all keyword weights, which is the
// highest routing score attainable before normalization.
func (d *Directive) MaxKeywordWeight() float64 {
	total := 0.0
	for _, w := range d.Keywords {
		total += w
	}
	return total
}

// MatchKnownFailure returns the first known failure whose issue text is a
// case-insensitive substring of the given message, or nil.
func (d *Directive) MatchKnownFailure(message string) *KnownFailure {
	for i := range d.KnownFailures {
		if containsFold(message, d.KnownFailures[i].Issue) {
			return &d.KnownFailures[i]
		}
	}
	return nil
}

// containsFold reports whether substr occurs in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
