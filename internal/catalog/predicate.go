package catalog

import (
	"fmt"
	"strings"

	"github.com/edictlabs/edict/pkg/models"
)

// PredicateOp is the comparison a branch predicate performs.
type PredicateOp string

const (
	// OpAlways matches unconditionally.
	OpAlways PredicateOp = "always"
	// OpEquals matches when the context value equals the literal.
	OpEquals PredicateOp = "=="
	// OpNotEquals matches when the context value differs from the literal.
	OpNotEquals PredicateOp = "!="
	// OpExists matches when the context key is present.
	OpExists PredicateOp = "exists"
	// OpMissing matches when the context key is absent.
	OpMissing PredicateOp = "missing"
)

// Predicate is a parsed branch guard. Predicates are data, not code: the
// catalog parses them at load time and the engine evaluates them against
// the execution context's value map.
type Predicate struct {
	Raw   string
	Op    PredicateOp
	Key   string
	Value string
}

// ParsePredicate parses a predicate expression. Supported forms:
//
//	always
//	<key> exists
//	<key> missing
//	<key> == <value>
//	<key> != <value>
func ParsePredicate(expr string) (Predicate, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Predicate{}, models.NewError(models.ErrWorkflowStructure, "empty predicate")
	}
	if trimmed == string(OpAlways) {
		return Predicate{Raw: trimmed, Op: OpAlways}, nil
	}

	fields := strings.Fields(trimmed)
	switch len(fields) {
	case 2:
		switch fields[1] {
		case string(OpExists):
			return Predicate{Raw: trimmed, Op: OpExists, Key: fields[0]}, nil
		case string(OpMissing):
			return Predicate{Raw: trimmed, Op: OpMissing, Key: fields[0]}, nil
		}
	case 3:
		switch fields[1] {
		case string(OpEquals):
			return Predicate{Raw: trimmed, Op: OpEquals, Key: fields[0], Value: fields[2]}, nil
		case string(OpNotEquals):
			return Predicate{Raw: trimmed, Op: OpNotEquals, Key: fields[0], Value: fields[2]}, nil
		}
	}
	return Predicate{}, models.NewError(models.ErrWorkflowStructure, "unparseable predicate %q", expr)
}

// Eval evaluates the predicate against a context value map.
func (p Predicate) Eval(values map[string]string) bool {
	switch p.Op {
	case OpAlways:
		return true
	case OpExists:
		_, ok := values[p.Key]
		return ok
	case OpMissing:
		_, ok := values[p.Key]
		return !ok
	case OpEquals:
		v, ok := values[p.Key]
		return ok && v == p.Value
	case OpNotEquals:
		v, ok := values[p.Key]
		return ok && v != p.Value
	default:
		return false
	}
}

// CanOverlap reports whether both predicates can be true for the same
// context. Used by the load-time ordering-ambiguity pass; it errs on the
// side of reporting overlap.
func (p Predicate) CanOverlap(other Predicate) bool {
	if p.Op == OpAlways || other.Op == OpAlways {
		return true
	}
	if p.Key != other.Key {
		return true
	}
	// Same key: rule out the provably exclusive combinations.
	switch {
	case p.Op == OpEquals && other.Op == OpEquals:
		return p.Value == other.Value
	case p.Op == OpEquals && other.Op == OpNotEquals,
		p.Op == OpNotEquals && other.Op == OpEquals:
		eq, neq := p, other
		if p.Op == OpNotEquals {
			eq, neq = other, p
		}
		return eq.Value != neq.Value
	case p.Op == OpEquals && other.Op == OpMissing,
		p.Op == OpMissing && other.Op == OpEquals:
		return false
	case p.Op == OpExists && other.Op == OpMissing,
		p.Op == OpMissing && other.Op == OpExists:
		return false
	case p.Op == OpNotEquals && other.Op == OpMissing,
		p.Op == OpMissing && other.Op == OpNotEquals:
		return false
	default:
		return true
	}
}

// String returns the original expression text.
func (p Predicate) String() string {
	if p.Raw != "" {
		return p.Raw
	}
	return fmt.Sprintf("%s %s %s", p.Key, p.Op, p.Value)
}
