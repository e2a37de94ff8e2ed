package models

import "strings"

// MutationOp is the operation a pending mutation performs on its entity.
type MutationOp string

const (
	// OpInsert creates a new row.
	OpInsert MutationOp = "insert"
	// OpUpdate modifies an existing row.
	OpUpdate MutationOp = "update"
	// OpDelete removes a row.
	OpDelete MutationOp = "delete"
)

// Valid returns true if the operation is a known value.
func (op MutationOp) Valid() bool {
	switch op {
	case OpInsert, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}

// RefPrefix marks a field value that references another row within the
// same transaction, in the form "ref:<entity>/<key>". References to rows
// inserted later in the buffer are resolved by the commit ordering pass.
const RefPrefix = "ref:"

// PendingMutation is a buffered, not-yet-durable write. It becomes visible
// to readers only when its transaction commits.
type PendingMutation struct {
	// ID uniquely identifies the mutation within its transaction.
	ID string `json:"id"`
	// Entity is the target entity collection.
	Entity string `json:"entity"`
	// Key identifies the row within the collection.
	Key string `json:"key"`
	// Op is the operation to perform.
	Op MutationOp `json:"op"`
	// Fields holds the field values written by the mutation.
	Fields map[string]string `json:"fields,omitempty"`
	// Seq is the buffering-order key assigned by the coordinator.
	Seq int `json:"seq"`
}

// Refs returns the (entity, key) pairs this mutation's field values
// reference via the ref: convention.
func (m *PendingMutation) Refs() []EntityRef {
	var refs []EntityRef
	for _, v := range m.Fields {
		if !strings.HasPrefix(v, RefPrefix) {
			continue
		}
		entity, key, ok := strings.Cut(strings.TrimPrefix(v, RefPrefix), "/")
		if !ok || entity == "" || key == "" {
			continue
		}
		refs = append(refs, EntityRef{Entity: entity, Key: key})
	}
	return refs
}

// EntityRef identifies a single row in an entity collection.
type EntityRef struct {
	Entity string `json:"entity"`
	Key    string `json:"key"`
}

// MutationRecord is the audit form of a mutation carried in an
// ExecutionResult.
type MutationRecord struct {
	ID     string     `json:"id"`
	Entity string     `json:"entity"`
	Key    string     `json:"key"`
	Op     MutationOp `json:"op"`
}
