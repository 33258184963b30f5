// Package reconcile attaches catalog lessons to study plan entries by fuzzy
// matching their track and module labels.
package reconcile

import (
	"github.com/stolpe22/plano-jornada/internal/textmatch"
	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

const (
	StrategyNone   = "none"
	StrategyModule = "module"
	StrategyCourse = "course"
)

// Result explains how one plan entry was resolved.
type Result struct {
	Entry       models.PlanEntry     `json:"entry"`
	Matched     bool                 `json:"matched"`
	Track       string               `json:"track,omitempty"`
	TrackScore  int                  `json:"track_score"`
	ModuleScore int                  `json:"module_score"`
	CourseScore int                  `json:"course_score"`
	Strategy    string               `json:"strategy"`
	Lesson      *models.LessonRecord `json:"lesson,omitempty"`
}

type Reconciler struct {
	trackThreshold int // best track score below this is no match
	poolThreshold  int // module/course scores must exceed this
}

func New(cfg utils.MatchConfig) *Reconciler {
	r := &Reconciler{trackThreshold: cfg.TrackThreshold, poolThreshold: cfg.PoolThreshold}
	if r.trackThreshold <= 0 {
		r.trackThreshold = 80
	}
	if r.poolThreshold <= 0 {
		r.poolThreshold = 65
	}
	return r
}

// Reconcile returns entries with their lesson link re-resolved and their
// completion merged. Ids, labels and order are preserved.
func (r *Reconciler) Reconcile(entries []models.PlanEntry, catalog []models.LessonRecord) []models.PlanEntry {
	results := r.Explain(entries, catalog)
	out := make([]models.PlanEntry, len(results))
	for i, res := range results {
		out[i] = res.Entry
	}
	return out
}

// Explain is Reconcile with the scores and strategy behind every entry.
func (r *Reconciler) Explain(entries []models.PlanEntry, catalog []models.LessonRecord) []Result {
	idx := buildIndex(catalog)
	out := make([]Result, len(entries))
	for i, e := range entries {
		out[i] = r.resolve(e, idx)
	}
	return out
}

func (r *Reconciler) resolve(e models.PlanEntry, idx *index) Result {
	res := Result{Strategy: StrategyNone}

	var match *models.LessonRecord
	if tm, ok := textmatch.ExtractOne(textmatch.Normalize(e.TrackLabel), idx.trackKeys, textmatch.TokenSetRatio); ok {
		res.TrackScore = tm.Score
		if tm.Score >= r.trackThreshold {
			t := idx.tracks[tm.Index]
			res.Track = t.label
			module := textmatch.Normalize(e.ModuleLabel)

			modRow, modScore := r.bestInPool(module, t.modules, t.rows)
			curRow, curScore := r.bestInPool(module, t.courses, t.rows)
			res.ModuleScore, res.CourseScore = modScore, curScore

			// the module wins ties, but only when it was accepted itself
			switch {
			case modRow != nil && modScore >= curScore:
				match, res.Strategy = modRow, StrategyModule
			case curRow != nil:
				match, res.Strategy = curRow, StrategyCourse
			}
		}
	}

	e.LessonLink = nil
	if match != nil {
		res.Matched = true
		res.Lesson = match
		e.LessonLink = copyString(match.LessonLink)
		e.Completed = e.Completed || (match.Completed != nil && *match.Completed)
	}
	res.Entry = e
	return res
}

// bestInPool returns the first row of the best pool label, or nil when the
// best score does not exceed the pool threshold. The score is reported only
// for accepted matches.
func (r *Reconciler) bestInPool(label string, p pool, rows []models.LessonRecord) (*models.LessonRecord, int) {
	m, ok := textmatch.ExtractOne(label, p.keys, textmatch.TokenSetRatio)
	if !ok || m.Score <= r.poolThreshold {
		return nil, 0
	}
	row := rows[p.firstRow[m.Index]]
	return &row, m.Score
}

type pool struct {
	keys     []string // distinct normalized labels, first-seen order
	firstRow []int    // index into the track's rows, parallel to keys
}

func (p *pool) add(key string, row int, seen map[string]struct{}) {
	if key == "" {
		return
	}
	if _, dup := seen[key]; dup {
		return
	}
	seen[key] = struct{}{}
	p.keys = append(p.keys, key)
	p.firstRow = append(p.firstRow, row)
}

type trackGroup struct {
	label   string
	rows    []models.LessonRecord
	modules pool
	courses pool
}

type index struct {
	trackKeys []string
	tracks    []*trackGroup
}

// buildIndex groups usable catalog rows by normalized track label. Rows
// missing a track, module, course, link or completion flag cannot be
// matched and are left out. Track labels that normalize alike share a
// group, labelled by the first one seen.
func buildIndex(catalog []models.LessonRecord) *index {
	idx := &index{}
	byKey := map[string]*trackGroup{}
	for _, rec := range catalog {
		if !candidate(rec) {
			continue
		}
		key := textmatch.Normalize(rec.TrackName)
		g, ok := byKey[key]
		if !ok {
			g = &trackGroup{label: rec.TrackName}
			byKey[key] = g
			idx.trackKeys = append(idx.trackKeys, key)
			idx.tracks = append(idx.tracks, g)
		}
		g.rows = append(g.rows, rec)
	}

	for _, g := range idx.tracks {
		modSeen, curSeen := map[string]struct{}{}, map[string]struct{}{}
		for i, rec := range g.rows {
			g.modules.add(textmatch.Normalize(*rec.ModuleName), i, modSeen)
			g.courses.add(textmatch.Normalize(rec.CourseName), i, curSeen)
		}
	}
	return idx
}

func candidate(r models.LessonRecord) bool {
	return r.TrackName != "" &&
		r.CourseName != "" &&
		r.ModuleName != nil && *r.ModuleName != "" &&
		r.LessonLink != nil && *r.LessonLink != "" &&
		r.Completed != nil
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
