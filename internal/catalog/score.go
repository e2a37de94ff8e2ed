package catalog

import (
	"sort"
	"strings"
	"unicode"

	"github.com/edictlabs/edict/pkg/models"
)

// Tokenize lowercases text and splits it on non-alphanumeric runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Score computes a directive's normalized keyword score against a token
// list: the sum of hit weights divided by the directive's maximum
// attainable weight. The result is in [0,1]; a directive with no keywords
// scores zero.
func Score(d *models.Directive, tokens []string) float64 {
	return scoreKeywords(d.Keywords, tokens)
}

// scoreKeywords is the shared scoring core. The denominator is clamped at
// 1.0 so a directive with little total keyword mass cannot claim full
// confidence from a single weak hit.
func scoreKeywords(keywords map[string]float64, tokens []string) float64 {
	max := 0.0
	for _, w := range keywords {
		max += w
	}
	if max <= 0 {
		return 0
	}
	if max < 1 {
		max = 1
	}

	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		seen[t] = true
	}

	hit := 0.0
	for kw, w := range keywords {
		if seen[strings.ToLower(kw)] {
			hit += w
		}
	}

	score := hit / max
	if score > 1 {
		score = 1
	}
	return score
}

// SortMatches orders matches by descending score, breaking ties by fewer
// total keywords, then by name ascending. The ordering is fully
// deterministic and reproducible across runs.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		ni, nj := len(matches[i].Directive.Keywords), len(matches[j].Directive.Keywords)
		if ni != nj {
			return ni < nj
		}
		return matches[i].Directive.Name < matches[j].Directive.Name
	})
}
