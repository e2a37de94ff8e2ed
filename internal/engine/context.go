package engine

import (
	"github.com/edictlabs/edict/internal/txn"
	"github.com/edictlabs/edict/pkg/models"
)

// ExecutionContext is the per-invocation ambient state. It is created for
// a top-level call and shared by every nested invocation: children push
// onto the same stack and buffer into the same transaction.
type ExecutionContext struct {
	// Project is the project the invocation runs against.
	Project string
	// Tx is the active transaction shared by the whole invocation.
	Tx *txn.Tx
	// Prefs holds the merged preference overrides, read-only.
	Prefs map[string]string

	maxDepth int
	stack    []string
	values   map[string]string
}

// NewExecutionContext creates a context for one top-level invocation.
// Preference overrides are exposed to branch predicates under "pref." keys.
func NewExecutionContext(project string, tx *txn.Tx, prefs map[string]string, maxDepth int) *ExecutionContext {
	values := make(map[string]string, len(prefs))
	for k, v := range prefs {
		values["pref."+k] = v
	}
	return &ExecutionContext{
		Project:  project,
		Tx:       tx,
		Prefs:    prefs,
		maxDepth: maxDepth,
		stack:    make([]string, 0, maxDepth),
		values:   values,
	}
}

// Push adds a directive to the call stack, enforcing the depth bound.
// A breach is a hard error carrying the full attempted chain; the stack is
// never silently truncated.
func (c *ExecutionContext) Push(directive string) error {
	if len(c.stack) >= c.maxDepth {
		chain := append(c.Stack(), directive)
		return &models.EngineError{
			Kind:      models.ErrCallDepthExceeded,
			Message:   "directive call depth exceeded",
			CallChain: chain,
		}
	}
	c.stack = append(c.stack, directive)
	return nil
}

// Pop removes the innermost directive from the call stack.
func (c *ExecutionContext) Pop() {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// Stack returns a copy of the in-flight directive names, outermost first.
func (c *ExecutionContext) Stack() []string {
	out := make([]string, len(c.stack))
	copy(out, c.stack)
	return out
}

// Depth returns the current call depth.
func (c *ExecutionContext) Depth() int {
	return len(c.stack)
}

// SetValue stores a context value visible to branch predicates.
func (c *ExecutionContext) SetValue(key, value string) {
	c.values[key] = value
}

// Value returns a context value.
func (c *ExecutionContext) Value(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Values returns a copy of the context value map.
func (c *ExecutionContext) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// recordResult stores an action's payload under role-scoped keys, e.g.
// "trunk.ok" and "trunk.<field>". The innermost directive's trunk result
// overwrites its parent's while the child runs; the parent's values are
// restored on return.
func (c *ExecutionContext) recordResult(role string, payload map[string]string, ok bool) {
	status := "false"
	if ok {
		status = "true"
	}
	c.values[role+".ok"] = status
	for k, v := range payload {
		c.values[role+"."+k] = v
	}
}

// snapshotValues captures the value map so a nested invocation can restore
// its parent's view.
func (c *ExecutionContext) snapshotValues() map[string]string {
	return c.Values()
}

// restoreValues reinstates a snapshot taken before a nested invocation.
func (c *ExecutionContext) restoreValues(snapshot map[string]string) {
	c.values = snapshot
}
