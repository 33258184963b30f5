package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

// Filter narrows catalog listings. An empty Tracks slice means every track.
type Filter struct {
	Tracks []string
	Limit  int // 0 = no limit
	Offset int
}

// RankedRecord is a full-text hit. Rank is the FTS5 rank: more negative is a
// better match.
type RankedRecord struct {
	models.LessonRecord
	Rank float64 `json:"rank"`
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const lessonColumns = `track_name, course_name, course_link, module_id, module_name, lesson_id,
	lesson_name, lesson_slug, lesson_link, completed, summary, content`

// ReplaceAll swaps the whole catalog for recs in one transaction. Readers
// see either the previous catalog or the new one.
func (r *Repo) ReplaceAll(ctx context.Context, recs []models.LessonRecord) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons`); err != nil {
		return fmt.Errorf("clear lessons: %w", database.Classify(err))
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lessons (`+lessonColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			rec.TrackName, rec.CourseName, rec.CourseLink,
			nullable(rec.ModuleID), nullable(rec.ModuleName), nullable(rec.LessonID),
			nullable(rec.LessonName), nullable(rec.LessonSlug), nullable(rec.LessonLink),
			nullable(rec.Completed), nullable(rec.Summary), nullable(rec.Content),
		); err != nil {
			return fmt.Errorf("insert lesson row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// List returns catalog rows in crawl order.
func (r *Repo) List(ctx context.Context, f Filter) ([]models.LessonRecord, error) {
	q := `SELECT ` + lessonColumns + ` FROM lessons`
	where, args := trackClause("track_name", f.Tracks)
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY row_id"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, max(f.Offset, 0))
	}

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", database.Classify(err))
	}
	defer rows.Close()

	var out []models.LessonRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, f Filter) (int, error) {
	q := `SELECT COUNT(*) FROM lessons`
	where, args := trackClause("track_name", f.Tracks)
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count lessons: %w", database.Classify(err))
	}
	return n, nil
}

// Tracks lists distinct track names in the order the crawl met them.
func (r *Repo) Tracks(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT track_name FROM lessons
		GROUP BY track_name
		ORDER BY MIN(row_id)
	`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", database.Classify(err))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("tracks scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FullText runs an FTS5 MATCH expression over course, module and lesson
// names, summaries and content, ordered by rank.
func (r *Repo) FullText(ctx context.Context, match string, tracks []string, limit int) ([]RankedRecord, error) {
	q := `SELECT ` + prefixed("l.", lessonColumns) + `, lessons_fts.rank
		FROM lessons_fts
		JOIN lessons l ON l.row_id = lessons_fts.rowid
		WHERE lessons_fts MATCH ?`
	args := []any{match}
	if where, targs := trackClause("l.track_name", tracks); where != "" {
		q += " AND " + where
		args = append(args, targs...)
	}
	q += " ORDER BY lessons_fts.rank"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("full text query: %w", database.Classify(err))
	}
	defer rows.Close()

	var out []RankedRecord
	for rows.Next() {
		var rr RankedRecord
		rec, err := scanRecord(rows, &rr.Rank)
		if err != nil {
			return nil, fmt.Errorf("full text scan: %w", err)
		}
		rr.LessonRecord = rec
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) SaveRun(ctx context.Context, run models.CrawlRun) error {
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO crawl_runs (id, started_at, finished_at, tracks, courses, lessons, failed_units, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  finished_at = excluded.finished_at,
		  tracks = excluded.tracks,
		  courses = excluded.courses,
		  lessons = excluded.lessons,
		  failed_units = excluded.failed_units,
		  status = excluded.status
	`, run.ID.String(), run.StartedAt.UTC().Format(time.RFC3339), finished,
		run.Tracks, run.Courses, run.Lessons, run.FailedUnits, run.Status)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, database.Classify(err))
	}
	return nil
}

// LatestRun returns the most recently started crawl, or nil when none ran.
func (r *Repo) LatestRun(ctx context.Context) (*models.CrawlRun, error) {
	var (
		run      models.CrawlRun
		id       string
		started  string
		finished sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, tracks, courses, lessons, failed_units, status
		FROM crawl_runs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&id, &started, &finished, &run.Tracks, &run.Courses, &run.Lessons, &run.FailedUnits, &run.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", database.Classify(err))
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		t, err := time.Parse(time.RFC3339, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner, extra ...any) (models.LessonRecord, error) {
	var (
		rec        models.LessonRecord
		moduleID   sql.NullInt64
		moduleName sql.NullString
		lessonID   sql.NullInt64
		lessonName sql.NullString
		slug       sql.NullString
		link       sql.NullString
		completed  sql.NullBool
		summary    sql.NullString
		content    sql.NullString
	)
	dest := []any{
		&rec.TrackName, &rec.CourseName, &rec.CourseLink,
		&moduleID, &moduleName, &lessonID, &lessonName, &slug, &link,
		&completed, &summary, &content,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return rec, err
	}

	rec.ModuleID = ptrInt(moduleID)
	rec.ModuleName = ptrString(moduleName)
	rec.LessonID = ptrInt(lessonID)
	rec.LessonName = ptrString(lessonName)
	rec.LessonSlug = ptrString(slug)
	rec.LessonLink = ptrString(link)
	if completed.Valid {
		v := completed.Bool
		rec.Completed = &v
	}
	rec.Summary = ptrString(summary)
	rec.Content = ptrString(content)
	return rec, nil
}

func trackClause(column string, tracks []string) (string, []any) {
	var (
		marks []string
		args  []any
	)
	for _, t := range tracks {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		marks = append(marks, "?")
		args = append(args, t)
	}
	if len(marks) == 0 {
		return "", nil
	}
	return column + " IN (" + strings.Join(marks, ", ") + ")", args
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func ptrInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}
