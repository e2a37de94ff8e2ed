package engine

import (
	"sync"

	"github.com/edictlabs/edict/pkg/models"
)

// projectLocks is the per-project advisory lock set. At most one top-level
// invocation runs per project; the call stack and buffered mutations are
// not safe to share across concurrent invocations. Distinct projects are
// fully independent.
type projectLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newProjectLocks() *projectLocks {
	return &projectLocks{held: make(map[string]bool)}
}

// TryAcquire takes the project's lock, failing fast with a busy error when
// another invocation holds it.
func (l *projectLocks) TryAcquire(project string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[project] {
		return models.NewError(models.ErrProjectBusy, "project %q has an invocation in flight", project)
	}
	l.held[project] = true
	return nil
}

// Release frees the project's lock.
func (l *projectLocks) Release(project string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, project)
}

// Held reports whether the project's lock is taken.
func (l *projectLocks) Held(project string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[project]
}
