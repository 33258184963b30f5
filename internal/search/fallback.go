package search

import (
	"sort"
	"strings"

	"github.com/stolpe22/plano-jornada/internal/textmatch"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

// SearchableText is the normalized concatenation of a row's course, module,
// lesson, summary and content text.
func SearchableText(r models.LessonRecord) string {
	content := models.StringValue(r.Content)
	if strings.ContainsRune(content, '<') {
		content = textmatch.StripHTML(content)
	}
	parts := []string{
		textmatch.Normalize(r.CourseName),
		textmatch.NormalizeValue(r.ModuleName),
		textmatch.NormalizeValue(r.LessonName),
		textmatch.NormalizeValue(r.Summary),
		textmatch.Normalize(content),
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// Fallback scores rows against text without an index. Multi-word queries are
// scored as a phrase (token-set overlap) and retried word by word when
// nothing passes; single-word queries go the other way round. Only rows
// scoring at least sensitivity are kept, best first.
func Fallback(rows []models.LessonRecord, text string, sensitivity int) []Hit {
	q := textmatch.Normalize(text)
	if q == "" || len(rows) == 0 {
		return nil
	}

	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = SearchableText(r)
	}

	first, second := textmatch.WordScore, textmatch.TokenSetRatio
	if len(strings.Fields(q)) > 1 {
		first, second = textmatch.TokenSetRatio, textmatch.WordScore
	}

	hits := scoreRows(rows, texts, q, first, sensitivity)
	if len(hits) == 0 {
		hits = scoreRows(rows, texts, q, second, sensitivity)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

func scoreRows(rows []models.LessonRecord, texts []string, q string, scorer textmatch.Scorer, sensitivity int) []Hit {
	var hits []Hit
	for i, r := range rows {
		s := scorer(q, texts[i])
		if s < sensitivity {
			continue
		}
		hits = append(hits, Hit{LessonRecord: r, Score: float64(s), Method: MethodFuzzy})
	}
	return hits
}

// FilterTracks keeps the rows of the given tracks; no tracks keeps all.
func FilterTracks(rows []models.LessonRecord, tracks []string) []models.LessonRecord {
	if len(tracks) == 0 {
		return rows
	}
	want := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		want[t] = struct{}{}
	}
	var out []models.LessonRecord
	for _, r := range rows {
		if _, ok := want[r.TrackName]; ok {
			out = append(out, r)
		}
	}
	return out
}
