package engine

import (
	"testing"

	"github.com/edictlabs/edict/pkg/models"
)

func TestProjectLocks(t *testing.T) {
	locks := newProjectLocks()

	if err := locks.TryAcquire("proj-a"); err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !locks.Held("proj-a") {
		t.Error("lock should be held after acquire")
	}

	err := locks.TryAcquire("proj-a")
	if !models.IsKind(err, models.ErrProjectBusy) {
		t.Errorf("second acquire: %v, want project_busy", err)
	}

	// Distinct projects are independent.
	if err := locks.TryAcquire("proj-b"); err != nil {
		t.Errorf("TryAcquire on another project: %v", err)
	}

	locks.Release("proj-a")
	if locks.Held("proj-a") {
		t.Error("lock should be free after release")
	}
	if err := locks.TryAcquire("proj-a"); err != nil {
		t.Errorf("re-acquire after release: %v", err)
	}
}
