package engine

import (
	"testing"

	"github.com/edictlabs/edict/pkg/models"
)

func TestRegisterValidation(t *testing.T) {
	noop := func(in ActionInput) (*ActionOutcome, error) { return nil, nil }

	tests := []struct {
		name   string
		action Action
	}{
		{"no name", Action{Kind: models.ActionTerminal, Run: noop}},
		{"unknown kind", Action{Name: "x", Kind: "coroutine", Run: noop}},
		{"no behavior", Action{Name: "x", Kind: models.ActionTerminal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if err := r.Register(tt.action); err == nil {
				t.Error("expected a registration error")
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	a := Action{Name: "x", Kind: models.ActionTerminal,
		Run: func(in ActionInput) (*ActionOutcome, error) { return nil, nil }}
	if err := r.Register(a); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(a); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	kinds := map[string]models.ActionKind{
		"inspect":  models.ActionTerminal,
		"complete": models.ActionTerminal,
		"escalate": models.ActionTerminal,
		"record":   models.ActionMutation,
		"invoke":   models.ActionInvocation,
	}
	for name, want := range kinds {
		if !r.HasAction(name) {
			t.Errorf("builtin %q not registered", name)
			continue
		}
		kind, _ := r.ActionKind(name)
		if kind != want {
			t.Errorf("builtin %q kind = %q, want %q", name, kind, want)
		}
	}

	if r.HasAction("ghost") {
		t.Error("HasAction(ghost) = true")
	}
	if _, ok := r.ActionKind("ghost"); ok {
		t.Error("ActionKind(ghost) reported a kind")
	}
}

func TestRecordActionBuildsMutation(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	record, _ := r.Get("record")

	out, err := record.Run(ActionInput{Detail: map[string]string{
		"entity":       "task",
		"key":          "t1",
		"op":           "insert",
		"field.title":  "fix auth",
		"field.status": "open",
	}})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(out.Mutations) != 1 {
		t.Fatalf("got %d mutations, want 1", len(out.Mutations))
	}
	m := out.Mutations[0]
	if m.Entity != "task" || m.Key != "t1" || m.Op != models.OpInsert {
		t.Errorf("unexpected mutation %+v", m)
	}
	if m.Fields["title"] != "fix auth" || m.Fields["status"] != "open" {
		t.Errorf("unexpected fields %v", m.Fields)
	}
}

func TestRecordActionDefaultsToInsert(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	record, _ := r.Get("record")

	out, err := record.Run(ActionInput{Detail: map[string]string{"entity": "task", "key": "t1"}})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if out.Mutations[0].Op != models.OpInsert {
		t.Errorf("Op = %q, want insert", out.Mutations[0].Op)
	}
}

func TestRecordActionRejectsBadDetail(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	record, _ := r.Get("record")

	if _, err := record.Run(ActionInput{Detail: map[string]string{"key": "t1"}}); err == nil {
		t.Error("record without entity should fail")
	}
	if _, err := record.Run(ActionInput{Detail: map[string]string{
		"entity": "task", "key": "t1", "op": "upsert",
	}}); err == nil {
		t.Error("record with invalid op should fail")
	}
}

func TestInvokeActionNeedsTarget(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	invoke, _ := r.Get("invoke")

	if _, err := invoke.Run(ActionInput{Detail: nil}); err == nil {
		t.Error("invoke without a directive detail should fail")
	}
	out, err := invoke.Run(ActionInput{Detail: map[string]string{"directive": "child"}})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.Invoke != "child" {
		t.Errorf("Invoke = %q, want child", out.Invoke)
	}
}
