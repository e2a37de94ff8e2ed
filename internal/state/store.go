package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edictlabs/edict/pkg/models"
)

// Store applies committed mutation batches and serves reads of committed
// rows. It implements the coordinator's Applier contract: a batch applies
// inside one database transaction, so a mid-batch failure reverts every
// mutation applied in that attempt.
type Store struct {
	db *DB
}

// NewStore creates a Store over an opened, migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// ApplyAll applies an ordered mutation batch all-or-nothing.
func (s *Store) ApplyAll(project string, muts []models.PendingMutation) error {
	now := formatTime(time.Now())
	return s.db.Transaction(func(tx *sql.Tx) error {
		for _, m := range muts {
			if err := applyOne(tx, project, m, now); err != nil {
				return fmt.Errorf("apply %s %s/%s: %w", m.Op, m.Entity, m.Key, err)
			}
			_, err := tx.Exec(`
				INSERT INTO commit_log (mutation_id, project, collection, key, op, applied_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, m.ID, project, m.Entity, m.Key, string(m.Op), now)
			if err != nil {
				return fmt.Errorf("record mutation %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// applyOne applies a single mutation inside the batch transaction.
func applyOne(tx *sql.Tx, project string, m models.PendingMutation, now string) error {
	switch m.Op {
	case models.OpInsert:
		fields, err := encodeFields(m.Fields)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO entities (project, collection, key, fields, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, project, m.Entity, m.Key, fields, now, now)
		return err

	case models.OpUpdate:
		existing, err := readFields(tx, project, m.Entity, m.Key)
		if err != nil {
			return err
		}
		for k, v := range m.Fields {
			existing[k] = v
		}
		fields, err := encodeFields(existing)
		if err != nil {
			return err
		}
		res, err := tx.Exec(`
			UPDATE entities SET fields = ?, updated_at = ?
			WHERE project = ? AND collection = ? AND key = ?
		`, fields, now, project, m.Entity, m.Key)
		if err != nil {
			return err
		}
		return requireRow(res)

	case models.OpDelete:
		res, err := tx.Exec(`
			DELETE FROM entities
			WHERE project = ? AND collection = ? AND key = ?
		`, project, m.Entity, m.Key)
		if err != nil {
			return err
		}
		return requireRow(res)

	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
}

// Get returns the committed field values for one row.
func (s *Store) Get(project, collection, key string) (map[string]string, error) {
	var raw string
	row := s.db.QueryRow(`
		SELECT fields FROM entities
		WHERE project = ? AND collection = ? AND key = ?
	`, project, collection, key)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no row %s/%s in project %s", collection, key, project)
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return decodeFields(raw)
}

// List returns the committed keys of one collection, key-ascending.
func (s *Store) List(project, collection string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT key FROM entities
		WHERE project = ? AND collection = ?
		ORDER BY key ASC
	`, project, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// CommitCount returns the number of mutations recorded for a project.
func (s *Store) CommitCount(project string) (int, error) {
	var n int
	row := s.db.QueryRow("SELECT COUNT(*) FROM commit_log WHERE project = ?", project)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count commits: %w", err)
	}
	return n, nil
}

// readFields loads a row's fields within the batch transaction.
func readFields(tx *sql.Tx, project, collection, key string) (map[string]string, error) {
	var raw string
	row := tx.QueryRow(`
		SELECT fields FROM entities
		WHERE project = ? AND collection = ? AND key = ?
	`, project, collection, key)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no row to update")
		}
		return nil, err
	}
	return decodeFields(raw)
}

// requireRow fails when a statement affected no rows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no matching row")
	}
	return nil
}

func encodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(raw string) (map[string]string, error) {
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}
