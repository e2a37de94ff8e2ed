// Package catalog provides the read-only directive catalog. Directives are
// loaded once from declarative YAML definitions at process start; malformed
// definitions fail the whole load, and nothing mutates the catalog at
// runtime.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edictlabs/edict/pkg/models"
)

// Vocabulary exposes the engine's registered action names to load-time
// validation, so a workflow referencing an undefined action fails at load
// rather than at execution.
type Vocabulary interface {
	// HasAction reports whether an action name is registered.
	HasAction(name string) bool
	// ActionKind returns the registered action's kind.
	ActionKind(name string) (models.ActionKind, bool)
}

// Catalog is the immutable set of loaded directives.
type Catalog struct {
	directives map[string]*models.Directive
	predicates map[string][]Predicate
	names      []string
	warnings   []string
}

// Load reads every directive definition under dir (*.yaml, *.yml), one
// directive per file, validates each against the vocabulary, and returns
// the catalog. Any structural error aborts the entire load; partial
// catalogs are forbidden.
func Load(dir string, vocab Vocabulary) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}

	cat := &Catalog{
		directives: make(map[string]*models.Directive),
		predicates: make(map[string][]Predicate),
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read directive file %s: %w", entry.Name(), err)
		}

		var d models.Directive
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, models.WrapError(models.ErrWorkflowStructure, err, "parse %s", entry.Name())
		}

		preds, err := validateDirective(&d, vocab)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if _, dup := cat.directives[d.Name]; dup {
			return nil, models.NewError(models.ErrWorkflowStructure, "duplicate directive %q in %s", d.Name, entry.Name())
		}

		cat.directives[d.Name] = &d
		cat.predicates[d.Name] = preds
		cat.warnings = append(cat.warnings, overlapWarnings(&d, preds)...)
	}

	// Invocation targets must exist; checked after all files are in.
	for name, d := range cat.directives {
		for _, target := range invocationTargets(d, vocab) {
			if _, ok := cat.directives[target]; !ok {
				return nil, models.NewError(models.ErrWorkflowStructure,
					"directive %q invokes undefined directive %q", name, target)
			}
		}
	}

	for name := range cat.directives {
		cat.names = append(cat.names, name)
	}
	sort.Strings(cat.names)

	return cat, nil
}

// Lookup returns the named directive, or an unknown-directive error.
func (c *Catalog) Lookup(name string) (*models.Directive, error) {
	d, ok := c.directives[name]
	if !ok {
		return nil, models.NewError(models.ErrUnknownDirective, "no directive named %q", name)
	}
	return d, nil
}

// Predicates returns the parsed branch predicates for a directive, in
// branch declaration order.
func (c *Catalog) Predicates(name string) []Predicate {
	return c.predicates[name]
}

// Names returns all directive names in ascending order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// List returns all directives of the given kind, name-ascending. An empty
// kind returns everything.
func (c *Catalog) List(kind models.DirectiveKind) []*models.Directive {
	var out []*models.Directive
	for _, name := range c.names {
		d := c.directives[name]
		if kind == "" || d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the load-time advisory warnings (branch ordering
// ambiguity). Warnings never fail a load.
func (c *Catalog) Warnings() []string {
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Len returns the number of loaded directives.
func (c *Catalog) Len() int {
	return len(c.directives)
}

// Match is one ranked search result.
type Match struct {
	// Directive is the matched directive.
	Directive *models.Directive
	// Score is the normalized keyword score in [0,1].
	Score float64
}

// Search ranks directives of the given kind (empty = all) against the
// keywords, using the same scoring as the intent router so search and
// route order identically. Zero-score directives are omitted.
func (c *Catalog) Search(keywords []string, kind models.DirectiveKind) []Match {
	tokens := make([]string, 0, len(keywords))
	for _, k := range keywords {
		tokens = append(tokens, strings.ToLower(k))
	}

	var matches []Match
	for _, d := range c.List(kind) {
		score := Score(d, tokens)
		if score > 0 {
			matches = append(matches, Match{Directive: d, Score: score})
		}
	}
	SortMatches(matches)
	return matches
}

// invocationTargets returns the directive names a workflow invokes.
func invocationTargets(d *models.Directive, vocab Vocabulary) []string {
	var targets []string
	for _, b := range d.Workflow.Branches {
		kind, ok := vocab.ActionKind(b.Then)
		if !ok || kind != models.ActionInvocation {
			continue
		}
		if target := b.Detail["directive"]; target != "" {
			targets = append(targets, target)
		}
	}
	return targets
}
