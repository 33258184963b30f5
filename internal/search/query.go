// Package search answers free-text queries over the catalog: full-text
// first, then a fuzzy scan when the index has nothing useful to say.
package search

import (
	"strings"
	"unicode"
)

// SanitizeQuery reduces q to its letter/digit tokens, lower-cased, each with
// a prefix wildcard, ready for an FTS5 MATCH. It returns "" when nothing
// searchable is left.
func SanitizeQuery(q string) string {
	fields := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = f + "*"
	}
	return strings.Join(fields, " ")
}

// NormalizeRanks rescales FTS ranks to 0..100 scores. The best (smallest)
// rank maps to 100 and the worst to 0; when every rank is equal they all
// map to 100.
func NormalizeRanks(ranks []float64) []float64 {
	if len(ranks) == 0 {
		return nil
	}
	lo, hi := ranks[0], ranks[0]
	for _, r := range ranks[1:] {
		lo = min(lo, r)
		hi = max(hi, r)
	}
	out := make([]float64, len(ranks))
	for i, r := range ranks {
		if hi == lo {
			out[i] = 100
			continue
		}
		out[i] = 100 * (hi - r) / (hi - lo)
	}
	return out
}
