package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

var ErrNotFound = errors.New("plan entry not found")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Import replaces the whole plan with entries. Ids are reassigned 1..n in
// input order, links cleared and completion reset.
func (r *Repo) Import(ctx context.Context, entries []models.PlanEntry) ([]models.PlanEntry, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_entries`); err != nil {
		return nil, fmt.Errorf("clear plan: %w", database.Classify(err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plan_entries (id, track_label, module_label, workload_hours, objective, lesson_link, completed)
		VALUES (?, ?, ?, ?, ?, NULL, 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	out := make([]models.PlanEntry, len(entries))
	for i, e := range entries {
		e.ID = int64(i + 1)
		e.LessonLink = nil
		e.Completed = false
		if _, err := stmt.ExecContext(ctx, e.ID, e.TrackLabel, e.ModuleLabel, e.WorkloadHours, e.Objective); err != nil {
			return nil, fmt.Errorf("insert plan entry %d: %w", e.ID, err)
		}
		out[i] = e
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context) ([]models.PlanEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, track_label, module_label, workload_hours, objective, lesson_link, completed
		FROM plan_entries
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list plan: %w", database.Classify(err))
	}
	defer rows.Close()

	var out []models.PlanEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*models.PlanEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, track_label, module_label, workload_hours, objective, lesson_link, completed
		FROM plan_entries
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan entry: %w", database.Classify(err))
	}
	return &e, nil
}

// SaveReconciled writes back link and completion for every entry, keyed by id.
// A stored completed flag is never cleared, even if it was set after entries
// were read.
func (r *Repo) SaveReconciled(ctx context.Context, entries []models.PlanEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE plan_entries SET lesson_link = ?, completed = (completed OR ?) WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", database.Classify(err))
	}
	defer stmt.Close()

	for _, e := range entries {
		var link sql.NullString
		if e.LessonLink != nil {
			link = sql.NullString{String: *e.LessonLink, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, link, e.Completed, e.ID); err != nil {
			return fmt.Errorf("update plan entry %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SetCompleted is the manual checkbox edit. Returns ErrNotFound for an
// unknown id.
func (r *Repo) SetCompleted(ctx context.Context, id int64, completed bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE plan_entries SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return fmt.Errorf("set completed: %w", database.Classify(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Progress(ctx context.Context) (models.PlanProgress, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return Summarize(nil), err
	}
	return Summarize(entries), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.PlanEntry, error) {
	var (
		e    models.PlanEntry
		link sql.NullString
		done sql.NullBool
	)
	if err := s.Scan(&e.ID, &e.TrackLabel, &e.ModuleLabel, &e.WorkloadHours, &e.Objective, &link, &done); err != nil {
		return e, err
	}
	if link.Valid {
		v := link.String
		e.LessonLink = &v
	}
	e.Completed = done.Valid && done.Bool
	return e, nil
}
