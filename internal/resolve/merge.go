package resolve

import (
	"sync"

	"github.com/edictlabs/edict/internal/txn"
	"github.com/edictlabs/edict/pkg/models"
)

// MergeResult is the outcome of reconciling one divergent branch pair.
type MergeResult struct {
	// Resolutions holds one resolution per conflict case, in input order.
	Resolutions []models.Resolution
	// Escalated counts the cases requiring human input.
	Escalated int
	// Applied is true when every case auto-resolved and the winning
	// mutation sets were committed.
	Applied bool
}

// Merger hosts conflict resolution for merges between two lines of work.
// It consumes read-only conflict cases built from the two branches' state
// snapshots and applies auto-resolutions through the transaction
// coordinator, never directly. Merges into the same target are exclusive.
type Merger struct {
	coord    *txn.Coordinator
	resolver *Resolver

	// notify, when set, receives each resolution as it is decided, e.g.
	// for the source-control host to mirror.
	notify func(models.Resolution)

	mu       sync.Mutex
	inflight map[string]bool
}

// NewMerger creates a Merger applying through the given coordinator.
func NewMerger(coord *txn.Coordinator, resolver *Resolver, notify func(models.Resolution)) *Merger {
	return &Merger{
		coord:    coord,
		resolver: resolver,
		notify:   notify,
		inflight: make(map[string]bool),
	}
}

// Merge reconciles the conflict cases for a merge into target. If every
// case auto-resolves, the winning mutation sets are buffered into one
// transaction and committed; if any case escalates, no state changes at
// all until a human decides. A concurrent merge into the same target
// fails fast with a busy error.
func (m *Merger) Merge(project, target string, cases []models.ConflictCase) (*MergeResult, error) {
	if err := m.acquire(target); err != nil {
		return nil, err
	}
	defer m.release(target)

	result := &MergeResult{Resolutions: make([]models.Resolution, 0, len(cases))}
	winners := make([][]models.PendingMutation, 0, len(cases))

	for _, c := range cases {
		res := m.resolver.Resolve(c)
		result.Resolutions = append(result.Resolutions, res)
		if m.notify != nil {
			m.notify(res)
		}
		if !res.Auto() {
			result.Escalated++
			continue
		}
		if res.Winner == c.Left.Label {
			winners = append(winners, c.Left.Mutations)
		} else {
			winners = append(winners, c.Right.Mutations)
		}
	}

	if result.Escalated > 0 {
		return result, nil
	}

	tx := m.coord.Begin(project)
	for _, set := range winners {
		for _, mut := range set {
			if err := m.coord.Buffer(tx, mut); err != nil {
				m.coord.Rollback(tx)
				return result, err
			}
		}
	}
	if err := m.coord.Commit(tx); err != nil {
		return result, err
	}

	result.Applied = true
	return result, nil
}

// acquire takes the target's merge lock, failing fast when a merge into
// the same target is already running.
func (m *Merger) acquire(target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[target] {
		return models.NewError(models.ErrMergeBusy, "merge into %q already in progress", target)
	}
	m.inflight[target] = true
	return nil
}

func (m *Merger) release(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, target)
}
