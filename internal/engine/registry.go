package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/edictlabs/edict/pkg/models"
)

// ActionInput is what an action receives when it runs.
type ActionInput struct {
	// Ctx is the current execution context.
	Ctx *ExecutionContext
	// Detail is the branch's detail bag; nil for trunk, fallback and
	// on-failure actions.
	Detail map[string]string
}

// ActionOutcome is what an action produces. Exactly which fields are
// meaningful depends on the action's kind.
type ActionOutcome struct {
	// Payload carries terminal output values.
	Payload map[string]string
	// Mutations are buffered into the active transaction by the
	// interpreter (mutation actions only).
	Mutations []models.PendingMutation
	// Invoke names the directive a nested call targets (invocation
	// actions only).
	Invoke string
	// Escalation marks the outcome as requiring human input.
	Escalation *models.Escalation
	// NextActions are recommended follow-ups for the caller.
	NextActions []string
}

// ActionFunc is the behavior behind a registered action name.
type ActionFunc func(in ActionInput) (*ActionOutcome, error)

// Action pairs a registered name with its kind and behavior. Directives
// hold only data; all behavior lives here, dispatched by name.
type Action struct {
	Name string
	Kind models.ActionKind
	Run  ActionFunc
}

// Registry is the flat, name-indexed action registry. It is assembled
// before catalog load and read-only afterwards, so catalog validation can
// reject workflows referencing undefined actions.
type Registry struct {
	actions map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action. Duplicate names and unknown kinds are errors.
func (r *Registry) Register(a Action) error {
	if a.Name == "" {
		return fmt.Errorf("action has no name")
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("action %q has unknown kind %q", a.Name, a.Kind)
	}
	if a.Run == nil {
		return fmt.Errorf("action %q has no behavior", a.Name)
	}
	if _, dup := r.actions[a.Name]; dup {
		return fmt.Errorf("action %q already registered", a.Name)
	}
	r.actions[a.Name] = a
	return nil
}

// MustRegister registers an action, panicking on error. For use in
// process-start wiring only.
func (r *Registry) MustRegister(a Action) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// Get returns the named action.
func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// HasAction reports whether an action name is registered. Part of the
// catalog's Vocabulary contract.
func (r *Registry) HasAction(name string) bool {
	_, ok := r.actions[name]
	return ok
}

// ActionKind returns the registered action's kind. Part of the catalog's
// Vocabulary contract.
func (r *Registry) ActionKind(name string) (models.ActionKind, bool) {
	a, ok := r.actions[name]
	if !ok {
		return "", false
	}
	return a.Kind, true
}

// RegisterBuiltins adds the actions every catalog can rely on:
//
//	inspect  - trunk no-op that records the context for branch predicates
//	complete - terminal success
//	escalate - terminal escalation awaiting human input
//	record   - mutation built from the branch detail bag
//	invoke   - nested call to the directive named in the detail bag
func RegisterBuiltins(r *Registry) {
	r.MustRegister(Action{
		Name: "inspect",
		Kind: models.ActionTerminal,
		Run: func(in ActionInput) (*ActionOutcome, error) {
			return &ActionOutcome{Payload: map[string]string{"status": "ok"}}, nil
		},
	})
	r.MustRegister(Action{
		Name: "complete",
		Kind: models.ActionTerminal,
		Run: func(in ActionInput) (*ActionOutcome, error) {
			payload := map[string]string{"status": "done"}
			for k, v := range in.Detail {
				payload[k] = v
			}
			return &ActionOutcome{Payload: payload}, nil
		},
	})
	r.MustRegister(Action{
		Name: "escalate",
		Kind: models.ActionTerminal,
		Run: func(in ActionInput) (*ActionOutcome, error) {
			// An empty reason is deliberate: the interpreter fills in
			// a description of how the workflow got here.
			return &ActionOutcome{
				Escalation: &models.Escalation{Reason: in.Detail["reason"], Raised: time.Now()},
			}, nil
		},
	})
	r.MustRegister(Action{
		Name: "record",
		Kind: models.ActionMutation,
		Run:  runRecord,
	})
	r.MustRegister(Action{
		Name: "invoke",
		Kind: models.ActionInvocation,
		Run: func(in ActionInput) (*ActionOutcome, error) {
			target := in.Detail["directive"]
			if target == "" {
				return nil, fmt.Errorf("invoke action has no directive detail")
			}
			return &ActionOutcome{Invoke: target}, nil
		},
	})
}

// runRecord builds one mutation from the branch detail bag: entity, key,
// op, plus field values under "field." prefixed keys.
func runRecord(in ActionInput) (*ActionOutcome, error) {
	entity := in.Detail["entity"]
	key := in.Detail["key"]
	op := models.MutationOp(in.Detail["op"])
	if entity == "" || key == "" {
		return nil, fmt.Errorf("record action needs entity and key details")
	}
	if op == "" {
		op = models.OpInsert
	}
	if !op.Valid() {
		return nil, fmt.Errorf("record action has invalid op %q", op)
	}

	fields := make(map[string]string)
	for k, v := range in.Detail {
		if rest, ok := strings.CutPrefix(k, "field."); ok {
			fields[rest] = v
		}
	}

	return &ActionOutcome{
		Mutations: []models.PendingMutation{{
			Entity: entity,
			Key:    key,
			Op:     op,
			Fields: fields,
		}},
	}, nil
}
