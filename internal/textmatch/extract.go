package textmatch

// Match is the winning choice of ExtractOne.
type Match struct {
	Choice string
	Index  int
	Score  int
}

// ExtractOne scores query against every choice and returns the best one.
// Ties keep the earliest choice, so callers get a stable answer for a given
// input order. ok is false when there are no choices.
func ExtractOne(query string, choices []string, scorer Scorer) (m Match, ok bool) {
	m.Index = -1
	for i, c := range choices {
		s := scorer(query, c)
		if m.Index < 0 || s > m.Score {
			m = Match{Choice: c, Index: i, Score: s}
		}
	}
	return m, m.Index >= 0
}
