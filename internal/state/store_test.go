package state

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/edictlabs/edict/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewStore(db)
}

func TestApplyInsertAndGet(t *testing.T) {
	s := newTestStore(t)

	err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t1", Op: models.OpInsert,
			Fields: map[string]string{"title": "fix auth", "status": "open"}},
	})
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	fields, err := s.Get("proj", "task", "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fields["title"] != "fix auth" || fields["status"] != "open" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestApplyUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)

	if err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t1", Op: models.OpInsert,
			Fields: map[string]string{"title": "fix auth", "status": "open"}},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m2", Entity: "task", Key: "t1", Op: models.OpUpdate,
			Fields: map[string]string{"status": "done"}},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	fields, err := s.Get("proj", "task", "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fields["status"] != "done" {
		t.Errorf("status = %q, want done", fields["status"])
	}
	if fields["title"] != "fix auth" {
		t.Errorf("update should preserve untouched fields, got %v", fields)
	}
}

func TestApplyDelete(t *testing.T) {
	s := newTestStore(t)

	if err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t1", Op: models.OpInsert, Fields: map[string]string{}},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m2", Entity: "task", Key: "t1", Op: models.OpDelete},
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.Get("proj", "task", "t1"); err == nil {
		t.Error("deleted row should not be readable")
	}
}

func TestApplyAllIsAtomic(t *testing.T) {
	s := newTestStore(t)

	// The second mutation updates a row that does not exist, so the whole
	// batch must revert, including the valid insert before it.
	err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t1", Op: models.OpInsert, Fields: map[string]string{}},
		{ID: "m2", Entity: "task", Key: "missing", Op: models.OpUpdate,
			Fields: map[string]string{"status": "done"}},
	})
	if err == nil {
		t.Fatal("expected the batch to fail")
	}
	if !strings.Contains(err.Error(), "task/missing") {
		t.Errorf("error should name the failing mutation: %v", err)
	}

	if _, err := s.Get("proj", "task", "t1"); err == nil {
		t.Error("failed batch left a partial write behind")
	}
	n, err := s.CommitCount("proj")
	if err != nil {
		t.Fatalf("CommitCount: %v", err)
	}
	if n != 0 {
		t.Errorf("CommitCount = %d after failed batch, want 0", n)
	}
}

func TestApplyDuplicateInsertFails(t *testing.T) {
	s := newTestStore(t)

	if err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t1", Op: models.OpInsert, Fields: map[string]string{}},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m2", Entity: "task", Key: "t1", Op: models.OpInsert, Fields: map[string]string{}},
	})
	if err == nil {
		t.Error("duplicate insert should fail")
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t2", Op: models.OpInsert, Fields: map[string]string{}},
		{ID: "m2", Entity: "task", Key: "t1", Op: models.OpInsert, Fields: map[string]string{}},
		{ID: "m3", Entity: "review", Key: "r1", Op: models.OpInsert, Fields: map[string]string{}},
	})
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	keys, err := s.List("proj", "task")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "t1" || keys[1] != "t2" {
		t.Errorf("List = %v, want [t1 t2]", keys)
	}

	empty, err := s.List("proj", "ghost")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("List of unknown collection = %v, want empty", empty)
	}
}

func TestProjectsAreIsolated(t *testing.T) {
	s := newTestStore(t)

	if err := s.ApplyAll("proj-a", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t1", Op: models.OpInsert, Fields: map[string]string{}},
	}); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	if _, err := s.Get("proj-b", "task", "t1"); err == nil {
		t.Error("rows must not leak across projects")
	}
}

func TestCommitCount(t *testing.T) {
	s := newTestStore(t)

	err := s.ApplyAll("proj", []models.PendingMutation{
		{ID: "m1", Entity: "task", Key: "t1", Op: models.OpInsert, Fields: map[string]string{}},
		{ID: "m2", Entity: "task", Key: "t1", Op: models.OpUpdate, Fields: map[string]string{"s": "x"}},
	})
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	n, err := s.CommitCount("proj")
	if err != nil {
		t.Fatalf("CommitCount: %v", err)
	}
	if n != 2 {
		t.Errorf("CommitCount = %d, want 2", n)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}
