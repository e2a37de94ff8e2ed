package txn

import (
	"sort"
	"strings"

	"github.com/edictlabs/edict/pkg/models"
)

// Order arranges mutations for commit: buffering order grouped per
// entity, with a topological pass hoisting inserts that later mutations
// reference. A reference cycle is unsatisfiable and returns a
// mutation-ordering-cycle error.
func Order(muts []models.PendingMutation) ([]models.PendingMutation, error) {
	if len(muts) <= 1 {
		return muts, nil
	}

	// Base order: entities in first-appearance order, buffer order
	// within each entity.
	groupIndex := make(map[string]int)
	for _, m := range muts {
		if _, ok := groupIndex[m.Entity]; !ok {
			groupIndex[m.Entity] = len(groupIndex)
		}
	}
	base := make([]int, len(muts))
	for i := range muts {
		base[i] = i
	}
	sort.SliceStable(base, func(a, b int) bool {
		ma, mb := muts[base[a]], muts[base[b]]
		if ma.Entity != mb.Entity {
			return groupIndex[ma.Entity] < groupIndex[mb.Entity]
		}
		return ma.Seq < mb.Seq
	})

	// Dependency edges: a mutation referencing a row inserted in this
	// transaction must apply after that insert.
	inserts := make(map[models.EntityRef]int)
	for i, m := range muts {
		if m.Op == models.OpInsert {
			inserts[models.EntityRef{Entity: m.Entity, Key: m.Key}] = i
		}
	}
	deps := make(map[int][]int)     // mutation -> inserts it needs first
	indegree := make(map[int]int)   // insert count still unapplied
	dependents := make(map[int][]int)
	for i := range muts {
		for _, ref := range muts[i].Refs() {
			j, ok := inserts[ref]
			if !ok || j == i {
				continue
			}
			deps[i] = append(deps[i], j)
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}

	// Kahn's algorithm over the base order keeps the result
	// deterministic: among ready mutations the base order wins.
	applied := make([]bool, len(muts))
	ordered := make([]models.PendingMutation, 0, len(muts))
	ready := func(i int) bool { return !applied[i] && indegree[i] == 0 }

	for len(ordered) < len(muts) {
		progressed := false
		for _, i := range base {
			if !ready(i) {
				continue
			}
			applied[i] = true
			ordered = append(ordered, muts[i])
			for _, dep := range dependents[i] {
				indegree[dep]--
			}
			progressed = true
		}
		if !progressed {
			return nil, cycleError(muts, applied, deps)
		}
	}
	return ordered, nil
}

// cycleError builds a mutation-ordering-cycle error naming the rows still
// blocked when ordering stalled.
func cycleError(muts []models.PendingMutation, applied []bool, deps map[int][]int) *models.EngineError {
	var stuck []string
	for i := range muts {
		if !applied[i] && len(deps[i]) > 0 {
			stuck = append(stuck, muts[i].Entity+"/"+muts[i].Key)
		}
	}
	sort.Strings(stuck)
	return models.NewError(models.ErrMutationOrderingCycle,
		"reference cycle among mutations: %s", strings.Join(stuck, ", "))
}
