// Package router maps free-text input to ranked directive candidates.
// Routing is fully deterministic: identical input and catalog always
// produce the identical candidate order.
package router

import (
	"fmt"

	"github.com/edictlabs/edict/internal/catalog"
	"github.com/edictlabs/edict/pkg/models"
)

// Candidate is one ranked routing result.
type Candidate struct {
	// Directive is the candidate directive.
	Directive *models.Directive
	// Score is the normalized keyword score in [0,1].
	Score float64
}

// Decision is the router's outcome. NeedsClarification is a first-class
// result the caller must branch on; the router never silently defaults to
// a best guess below the top candidate's own confidence threshold.
type Decision struct {
	// NeedsClarification is true when no candidate cleared its own
	// confidence threshold (or nothing scored above the floor).
	NeedsClarification bool
	// Reason explains a needs-clarification decision.
	Reason string
	// Candidates are ranked by descending score; ties order by fewer
	// total keywords, then name ascending.
	Candidates []Candidate
}

// Top returns the best candidate, or nil when there are none.
func (d Decision) Top() *Candidate {
	if len(d.Candidates) == 0 {
		return nil
	}
	return &d.Candidates[0]
}

// Router scores free text against the directive catalog.
type Router struct {
	cat   *catalog.Catalog
	floor float64
}

// New creates a Router. Candidates scoring below floor are dropped before
// ranking.
func New(cat *catalog.Catalog, floor float64) *Router {
	return &Router{cat: cat, floor: floor}
}

// Route ranks all directives against the input text.
func (r *Router) Route(text string) Decision {
	return r.RouteKind(text, "")
}

// RouteKind ranks directives of one kind (empty = all) against the input
// text. Tokenizes the input, sums keyword-hit weights per directive,
// normalizes by that directive's maximum attainable weight, and drops
// anything below the configured floor.
func (r *Router) RouteKind(text string, kind models.DirectiveKind) Decision {
	tokens := catalog.Tokenize(text)

	var matches []catalog.Match
	for _, d := range r.cat.List(kind) {
		score := catalog.Score(d, tokens)
		if score < r.floor {
			continue
		}
		matches = append(matches, catalog.Match{Directive: d, Score: score})
	}
	catalog.SortMatches(matches)

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, Candidate{Directive: m.Directive, Score: m.Score})
	}

	if len(candidates) == 0 {
		return Decision{
			NeedsClarification: true,
			Reason:             fmt.Sprintf("no directive scored at or above the routing floor %.2f", r.floor),
		}
	}

	top := candidates[0]
	if top.Score < top.Directive.Threshold {
		return Decision{
			NeedsClarification: true,
			Reason: fmt.Sprintf("top candidate %q scored %.2f, below its confidence threshold %.2f",
				top.Directive.Name, top.Score, top.Directive.Threshold),
			Candidates: candidates,
		}
	}

	return Decision{Candidates: candidates}
}
