package engine

import (
	"testing"

	"github.com/edictlabs/edict/pkg/models"
)

func TestPushEnforcesDepthBound(t *testing.T) {
	ctx := NewExecutionContext("proj", nil, nil, 3)

	for _, name := range []string{"a", "b", "c"} {
		if err := ctx.Push(name); err != nil {
			t.Fatalf("Push(%s): %v", name, err)
		}
	}
	if ctx.Depth() != 3 {
		t.Fatalf("Depth = %d, want 3", ctx.Depth())
	}

	err := ctx.Push("d")
	if !models.IsKind(err, models.ErrCallDepthExceeded) {
		t.Fatalf("Push beyond bound: %v, want call_depth_exceeded", err)
	}

	// The error carries the full attempted chain, outermost first.
	ee := models.AsEngineError(err, "")
	want := []string{"a", "b", "c", "d"}
	if len(ee.CallChain) != len(want) {
		t.Fatalf("CallChain = %v, want %v", ee.CallChain, want)
	}
	for i := range want {
		if ee.CallChain[i] != want[i] {
			t.Errorf("CallChain[%d] = %q, want %q", i, ee.CallChain[i], want[i])
		}
	}

	// The stack itself is untouched by the refused push.
	if ctx.Depth() != 3 {
		t.Errorf("Depth after refused push = %d, want 3", ctx.Depth())
	}
}

func TestPushPop(t *testing.T) {
	ctx := NewExecutionContext("proj", nil, nil, 5)

	ctx.Push("outer")
	ctx.Push("inner")
	stack := ctx.Stack()
	if len(stack) != 2 || stack[0] != "outer" || stack[1] != "inner" {
		t.Errorf("Stack = %v", stack)
	}

	ctx.Pop()
	if ctx.Depth() != 1 {
		t.Errorf("Depth after pop = %d, want 1", ctx.Depth())
	}
	ctx.Pop()
	ctx.Pop() // popping an empty stack is a no-op
	if ctx.Depth() != 0 {
		t.Errorf("Depth = %d, want 0", ctx.Depth())
	}
}

func TestPrefsExposedAsValues(t *testing.T) {
	ctx := NewExecutionContext("proj", nil, map[string]string{"reviewer": "alice"}, 5)

	v, ok := ctx.Value("pref.reviewer")
	if !ok || v != "alice" {
		t.Errorf("Value(pref.reviewer) = %q, %v", v, ok)
	}
}

func TestRecordResult(t *testing.T) {
	ctx := NewExecutionContext("proj", nil, nil, 5)
	ctx.recordResult("trunk", map[string]string{"status": "ok", "count": "3"}, true)

	if v, _ := ctx.Value("trunk.ok"); v != "true" {
		t.Errorf("trunk.ok = %q, want true", v)
	}
	if v, _ := ctx.Value("trunk.status"); v != "ok" {
		t.Errorf("trunk.status = %q, want ok", v)
	}
	if v, _ := ctx.Value("trunk.count"); v != "3" {
		t.Errorf("trunk.count = %q, want 3", v)
	}
}

func TestSnapshotRestore(t *testing.T) {
	ctx := NewExecutionContext("proj", nil, nil, 5)
	ctx.SetValue("trunk.status", "parent")

	snapshot := ctx.snapshotValues()
	ctx.SetValue("trunk.status", "child")
	ctx.SetValue("child.only", "x")
	ctx.restoreValues(snapshot)

	if v, _ := ctx.Value("trunk.status"); v != "parent" {
		t.Errorf("restored trunk.status = %q, want parent", v)
	}
	if _, ok := ctx.Value("child.only"); ok {
		t.Error("child-only value survived the restore")
	}
}
