package txn

import (
	"errors"
	"testing"

	"github.com/edictlabs/edict/pkg/models"
)

// fakeApplier records applied batches and can be told to fail.
type fakeApplier struct {
	batches [][]models.PendingMutation
	fail    error
}

func (f *fakeApplier) ApplyAll(project string, muts []models.PendingMutation) error {
	if f.fail != nil {
		return f.fail
	}
	batch := make([]models.PendingMutation, len(muts))
	copy(batch, muts)
	f.batches = append(f.batches, batch)
	return nil
}

func TestBufferAssignsIDAndSeq(t *testing.T) {
	c := New(&fakeApplier{})
	tx := c.Begin("proj")

	for i := 0; i < 3; i++ {
		err := c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpUpdate})
		if err != nil {
			t.Fatalf("Buffer: %v", err)
		}
	}

	pending := tx.Pending()
	if len(pending) != 3 {
		t.Fatalf("Pending = %d mutations, want 3", len(pending))
	}
	for i, m := range pending {
		if m.Seq != i {
			t.Errorf("mutation %d Seq = %d, want %d", i, m.Seq, i)
		}
		if m.ID == "" {
			t.Errorf("mutation %d has no id", i)
		}
	}
}

func TestBufferRejectsInvalidOp(t *testing.T) {
	c := New(&fakeApplier{})
	tx := c.Begin("proj")

	err := c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: "upsert"})
	if !models.IsKind(err, models.ErrActionFailed) {
		t.Errorf("Buffer error = %v, want action_failed", err)
	}
}

func TestCommitAppliesInOrder(t *testing.T) {
	store := &fakeApplier{}
	c := New(store)
	tx := c.Begin("proj")

	c.Buffer(tx, models.PendingMutation{Entity: "review", Key: "r1", Op: models.OpInsert,
		Fields: map[string]string{"task": "ref:task/t1"}})
	c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpInsert})

	if err := c.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tx.Open() {
		t.Error("committed transaction should not be open")
	}
	if len(store.batches) != 1 {
		t.Fatalf("applied %d batches, want 1", len(store.batches))
	}
	batch := store.batches[0]
	if batch[0].Entity != "task" || batch[1].Entity != "review" {
		t.Errorf("commit order = %s/%s then %s/%s, want the referenced insert first",
			batch[0].Entity, batch[0].Key, batch[1].Entity, batch[1].Key)
	}
}

func TestCommitEmptyTransaction(t *testing.T) {
	store := &fakeApplier{}
	c := New(store)
	tx := c.Begin("proj")

	if err := c.Commit(tx); err != nil {
		t.Fatalf("Commit of empty tx: %v", err)
	}
	if len(store.batches) != 0 {
		t.Error("empty commit should not touch the store")
	}
}

func TestCommitCycleRollsBack(t *testing.T) {
	store := &fakeApplier{}
	c := New(store)
	tx := c.Begin("proj")

	c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpInsert,
		Fields: map[string]string{"peer": "ref:task/t2"}})
	c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t2", Op: models.OpInsert,
		Fields: map[string]string{"peer": "ref:task/t1"}})

	err := c.Commit(tx)
	if !models.IsKind(err, models.ErrMutationOrderingCycle) {
		t.Fatalf("Commit error = %v, want mutation_ordering_cycle", err)
	}
	if tx.Open() {
		t.Error("failed commit should close the transaction")
	}
	if len(store.batches) != 0 {
		t.Error("nothing may reach the store when ordering fails")
	}
}

func TestCommitStoreFailureRollsBack(t *testing.T) {
	store := &fakeApplier{fail: errors.New("disk gone")}
	c := New(store)
	tx := c.Begin("proj")

	c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpInsert})

	err := c.Commit(tx)
	if !models.IsKind(err, models.ErrStorage) {
		t.Fatalf("Commit error = %v, want storage", err)
	}
	if tx.Open() {
		t.Error("failed commit should close the transaction")
	}
	if len(tx.Pending()) != 0 {
		t.Error("rolled-back transaction should hold no mutations")
	}
}

func TestBufferAfterCloseFails(t *testing.T) {
	c := New(&fakeApplier{})
	tx := c.Begin("proj")

	if err := c.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	err := c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpInsert})
	if !models.IsKind(err, models.ErrTransactionClosed) {
		t.Errorf("Buffer error = %v, want transaction_closed", err)
	}
	if err := c.Commit(tx); !models.IsKind(err, models.ErrTransactionClosed) {
		t.Errorf("double Commit error = %v, want transaction_closed", err)
	}
}

func TestRollbackDiscardsMutations(t *testing.T) {
	store := &fakeApplier{}
	c := New(store)
	tx := c.Begin("proj")

	c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpInsert})
	c.Rollback(tx)

	if tx.Open() {
		t.Error("rolled-back transaction should not be open")
	}
	if len(tx.Pending()) != 0 {
		t.Error("rollback should discard buffered mutations")
	}
	if len(store.batches) != 0 {
		t.Error("rollback must not touch the store")
	}

	// Rollback of a finished transaction is a no-op.
	c.Rollback(tx)
}

func TestRecords(t *testing.T) {
	c := New(&fakeApplier{})
	tx := c.Begin("proj")

	c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpInsert})
	c.Buffer(tx, models.PendingMutation{Entity: "task", Key: "t1", Op: models.OpDelete})

	records := tx.Records()
	if len(records) != 2 {
		t.Fatalf("Records = %d, want 2", len(records))
	}
	if records[0].Op != models.OpInsert || records[1].Op != models.OpDelete {
		t.Errorf("unexpected records %+v", records)
	}
}
