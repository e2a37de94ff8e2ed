// Package txn provides the transaction coordinator: it buffers pending
// mutations for one top-level invocation and applies them atomically
// through the persistent store on commit. Nested directive invocations
// share their parent's transaction and never commit independently.
package txn

import (
	"sync"

	"github.com/google/uuid"

	"github.com/edictlabs/edict/pkg/models"
)

// Applier applies an ordered mutation batch all-or-nothing. Any failure
// mid-batch must leave none of the batch visible.
type Applier interface {
	ApplyAll(project string, muts []models.PendingMutation) error
}

type txState int

const (
	txOpen txState = iota
	txCommitted
	txRolledBack
)

// Tx is a transaction handle. It buffers mutations in memory; nothing is
// durable or visible to readers until Commit succeeds.
type Tx struct {
	// ID uniquely identifies the transaction.
	ID string
	// Project is the project the transaction belongs to.
	Project string

	mu    sync.Mutex
	state txState
	muts  []models.PendingMutation
	seq   int
}

// Coordinator hands out transactions and commits them against the store.
type Coordinator struct {
	store Applier
}

// New creates a Coordinator over the given store.
func New(store Applier) *Coordinator {
	return &Coordinator{store: store}
}

// Begin opens a transaction for the project.
func (c *Coordinator) Begin(project string) *Tx {
	return &Tx{
		ID:      uuid.NewString(),
		Project: project,
	}
}

// Buffer adds a mutation to the transaction, assigning its id and
// buffering-order key. Buffering into a finished transaction is an error.
func (c *Coordinator) Buffer(tx *Tx, mut models.PendingMutation) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != txOpen {
		return models.NewError(models.ErrTransactionClosed, "transaction %s is closed", tx.ID)
	}
	if !mut.Op.Valid() {
		return models.NewError(models.ErrActionFailed, "invalid mutation op %q", mut.Op)
	}

	if mut.ID == "" {
		mut.ID = uuid.NewString()
	}
	mut.Seq = tx.seq
	tx.seq++
	tx.muts = append(tx.muts, mut)
	return nil
}

// Commit orders the buffered mutations and applies them all-or-nothing.
// An unsatisfiable ordering (reference cycle) rolls the transaction back
// and returns a mutation-ordering-cycle error.
func (c *Coordinator) Commit(tx *Tx) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != txOpen {
		return models.NewError(models.ErrTransactionClosed, "transaction %s is closed", tx.ID)
	}

	ordered, err := Order(tx.muts)
	if err != nil {
		tx.state = txRolledBack
		tx.muts = nil
		return err
	}

	if len(ordered) > 0 {
		if err := c.store.ApplyAll(tx.Project, ordered); err != nil {
			tx.state = txRolledBack
			tx.muts = nil
			return models.WrapError(models.ErrStorage, err, "commit transaction %s", tx.ID)
		}
	}

	tx.state = txCommitted
	return nil
}

// Rollback discards every buffered mutation. Safe to call on a finished
// transaction.
func (c *Coordinator) Rollback(tx *Tx) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state == txOpen {
		tx.state = txRolledBack
		tx.muts = nil
	}
}

// Open reports whether the transaction can still buffer mutations.
func (tx *Tx) Open() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state == txOpen
}

// Pending returns a copy of the buffered mutations in buffering order.
func (tx *Tx) Pending() []models.PendingMutation {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	out := make([]models.PendingMutation, len(tx.muts))
	copy(out, tx.muts)
	return out
}

// Records returns the audit records for the buffered mutations.
func (tx *Tx) Records() []models.MutationRecord {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	records := make([]models.MutationRecord, 0, len(tx.muts))
	for _, m := range tx.muts {
		records = append(records, models.MutationRecord{ID: m.ID, Entity: m.Entity, Key: m.Key, Op: m.Op})
	}
	return records
}
