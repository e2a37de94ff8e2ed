package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures. Recoverable outcomes
// (needs-clarification, conflict escalation) are not error kinds; they
// are returned as typed values.
type ErrorKind string

const (
	// ErrUnknownDirective is a lookup miss (a caller bug), fatal.
	ErrUnknownDirective ErrorKind = "unknown_directive"
	// ErrWorkflowStructure is a malformed graph. It fails at catalog
	// load time, never at runtime.
	ErrWorkflowStructure ErrorKind = "workflow_structure"
	// ErrCallDepthExceeded is the recursion guard tripping. Fatal,
	// surfaced with the full call chain.
	ErrCallDepthExceeded ErrorKind = "call_depth_exceeded"
	// ErrMutationOrderingCycle is an unsatisfiable write order. Fatal,
	// the transaction rolls back.
	ErrMutationOrderingCycle ErrorKind = "mutation_ordering_cycle"
	// ErrProjectBusy means another top-level invocation holds the
	// project's advisory lock.
	ErrProjectBusy ErrorKind = "project_busy"
	// ErrMergeBusy means another merge into the same target is running.
	ErrMergeBusy ErrorKind = "merge_busy"
	// ErrTransactionClosed means a buffered write arrived after commit
	// or rollback.
	ErrTransactionClosed ErrorKind = "transaction_closed"
	// ErrActionFailed is a workflow-local action failure, eligible for
	// the directive's on-failure retry path.
	ErrActionFailed ErrorKind = "action_failed"
	// ErrStorage is an underlying store failure.
	ErrStorage ErrorKind = "storage"
)

// EngineError is a classified engine failure.
type EngineError struct {
	// Kind is the failure class.
	Kind ErrorKind `json:"kind"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// CallChain is the directive call stack at failure time, outermost
	// first. Set for call-depth errors.
	CallChain []string `json:"call_chain,omitempty"`
	// Wrapped is the underlying cause, if any.
	Wrapped error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if len(e.CallChain) > 0 {
		msg += " (chain: " + strings.Join(e.CallChain, " -> ") + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Wrapped
}

// NewError creates an EngineError with the given kind and message.
func NewError(kind ErrorKind, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an EngineError wrapping an underlying cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// IsKind reports whether err is (or wraps) an EngineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

// AsEngineError extracts an EngineError from err, wrapping unclassified
// errors as the given default kind.
func AsEngineError(err error, defaultKind ErrorKind) *EngineError {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return &EngineError{Kind: defaultKind, Message: err.Error(), Wrapped: err}
}
