package catalog

import (
	"fmt"

	"github.com/edictlabs/edict/pkg/models"
)

// validateDirective checks a directive's structure and parses its branch
// predicates. Every problem here is a WorkflowStructureError: it fails the
// load, never a later execution.
func validateDirective(d *models.Directive, vocab Vocabulary) ([]Predicate, error) {
	if d.Name == "" {
		return nil, models.NewError(models.ErrWorkflowStructure, "directive has no name")
	}
	if !d.Kind.Valid() {
		return nil, models.NewError(models.ErrWorkflowStructure, "directive %q has unknown kind %q", d.Name, d.Kind)
	}
	if d.Kind != models.KindLifecycle && d.Level != 0 {
		return nil, models.NewError(models.ErrWorkflowStructure, "directive %q: level is only valid for lifecycle-rules", d.Name)
	}
	if d.Threshold < 0 || d.Threshold > 1 {
		return nil, models.NewError(models.ErrWorkflowStructure, "directive %q: threshold %v outside [0,1]", d.Name, d.Threshold)
	}
	for kw, w := range d.Keywords {
		if w < 0 {
			return nil, models.NewError(models.ErrWorkflowStructure, "directive %q: keyword %q has negative weight", d.Name, kw)
		}
	}

	if err := validateWorkflow(d, vocab); err != nil {
		return nil, err
	}

	preds := make([]Predicate, 0, len(d.Workflow.Branches))
	for i, b := range d.Workflow.Branches {
		p, err := ParsePredicate(b.If)
		if err != nil {
			return nil, models.NewError(models.ErrWorkflowStructure, "directive %q branch %d: %v", d.Name, i, err)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// validateWorkflow checks the trunk/branches/fallback graph. Exactly one
// trunk and one fallback per workflow; every referenced action must be
// registered.
func validateWorkflow(d *models.Directive, vocab Vocabulary) error {
	w := d.Workflow
	if w.Trunk == "" {
		return models.NewError(models.ErrWorkflowStructure, "directive %q: workflow has no trunk", d.Name)
	}
	if w.Fallback == "" {
		return models.NewError(models.ErrWorkflowStructure, "directive %q: workflow has no fallback", d.Name)
	}
	if w.OnFailure == "" {
		return models.NewError(models.ErrWorkflowStructure, "directive %q: workflow has no on-failure action", d.Name)
	}

	for _, ref := range []struct{ role, action string }{
		{"trunk", w.Trunk},
		{"fallback", w.Fallback},
		{"on-failure", w.OnFailure},
	} {
		if !vocab.HasAction(ref.action) {
			return models.NewError(models.ErrWorkflowStructure,
				"directive %q: %s references undefined action %q", d.Name, ref.role, ref.action)
		}
	}
	// Nested calls are branch actions only: the trunk must produce a
	// result for predicates, and the fallback/on-failure anchors must be
	// able to end the workflow on their own.
	for _, ref := range []struct{ role, action string }{
		{"trunk", w.Trunk},
		{"fallback", w.Fallback},
		{"on-failure", w.OnFailure},
	} {
		if kind, _ := vocab.ActionKind(ref.action); kind == models.ActionInvocation {
			return models.NewError(models.ErrWorkflowStructure,
				"directive %q: %s action %q may not be an invocation", d.Name, ref.role, ref.action)
		}
	}

	for i, b := range w.Branches {
		if !vocab.HasAction(b.Then) {
			return models.NewError(models.ErrWorkflowStructure,
				"directive %q branch %d references undefined action %q", d.Name, i, b.Then)
		}
		kind, _ := vocab.ActionKind(b.Then)
		if kind == models.ActionInvocation && b.Detail["directive"] == "" {
			return models.NewError(models.ErrWorkflowStructure,
				"directive %q branch %d: invocation action %q has no directive detail", d.Name, i, b.Then)
		}
	}
	return nil
}

// overlapWarnings reports branch pairs whose predicates can be
// simultaneously true. First-match-wins resolves such pairs silently at
// runtime; the warning surfaces the ordering dependence to the directive's
// authors. Warnings never fail the load.
func overlapWarnings(d *models.Directive, preds []Predicate) []string {
	var warnings []string
	for i := 0; i < len(preds); i++ {
		for j := i + 1; j < len(preds); j++ {
			if preds[i].CanOverlap(preds[j]) {
				warnings = append(warnings, fmt.Sprintf(
					"directive %q: branches %d (%s) and %d (%s) can match the same context; branch %d wins by declaration order",
					d.Name, i, preds[i], j, preds[j], i))
			}
		}
	}
	return warnings
}
