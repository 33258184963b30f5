// Package textmatch canonicalizes free-text labels and scores their
// similarity. The reconciler and the catalog search share it so that scores
// from both call sites are comparable.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped as whole tokens: connectors, the platform's
// container words (lesson/track/project/workshop) and short Portuguese
// articles and prepositions.
var stopwords = map[string]struct{}{
	"e": {}, "and": {},
	"aula": {}, "aulas": {}, "lesson": {}, "lessons": {},
	"trilha": {}, "trilhas": {}, "track": {}, "tracks": {},
	"projeto": {}, "projetos": {}, "project": {}, "projects": {},
	"workshop": {}, "workshops": {},
	"a": {}, "o": {}, "as": {}, "os": {},
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {},
	"the": {}, "of": {},
}

// Normalize lower-cases s, folds accents, turns every non letter/digit rune
// into a separator, drops stopwords and collapses whitespace.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = foldAccents(s)

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// NormalizeValue normalizes v when it is a string and returns "" otherwise.
func NormalizeValue(v any) string {
	switch s := v.(type) {
	case string:
		return Normalize(s)
	case *string:
		if s == nil {
			return ""
		}
		return Normalize(*s)
	default:
		return ""
	}
}

func foldAccents(s string) string {
	// transformers carry state, so each call builds its own chain
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
