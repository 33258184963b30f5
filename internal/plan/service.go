package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/reconcile"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

// ErrNoCatalog means there is nothing to reconcile against yet.
var ErrNoCatalog = errors.New("catalog is empty")

// ErrNoPlan means no plan has been imported.
var ErrNoPlan = errors.New("plan is empty")

type CatalogReader interface {
	List(ctx context.Context, f catalog.Filter) ([]models.LessonRecord, error)
}

// Summary reports how many entries ended up with a lesson link.
type Summary struct {
	Linked int `json:"linked"`
	Total  int `json:"total"`
}

func (s Summary) String() string {
	return fmt.Sprintf("links found %d of %d", s.Linked, s.Total)
}

type Service struct {
	Plan       *Repo
	Catalog    CatalogReader
	Reconciler *reconcile.Reconciler
	Log        *logger.Logger
}

func NewService(plan *Repo, cat CatalogReader, rec *reconcile.Reconciler, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{Plan: plan, Catalog: cat, Reconciler: rec, Log: log}
}

// Reconcile re-resolves every plan entry against the stored catalog and
// persists links and completion.
func (s *Service) Reconcile(ctx context.Context) ([]models.PlanEntry, Summary, error) {
	entries, err := s.Plan.List(ctx)
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		return nil, Summary{}, fmt.Errorf("load plan: %w", err)
	}
	if len(entries) == 0 {
		return nil, Summary{}, ErrNoPlan
	}

	rows, err := s.Catalog.List(ctx, catalog.Filter{})
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		return nil, Summary{}, fmt.Errorf("load catalog: %w", err)
	}
	if len(rows) == 0 {
		return nil, Summary{}, ErrNoCatalog
	}

	out := s.Reconciler.Reconcile(entries, rows)
	if err := s.Plan.SaveReconciled(ctx, out); err != nil {
		return nil, Summary{}, fmt.Errorf("save plan: %w", err)
	}
	// edits made while reconciling are only visible in the store
	if saved, err := s.Plan.List(ctx); err == nil && len(saved) == len(out) {
		out = saved
	}

	sum := Summary{Total: len(out)}
	for _, e := range out {
		if e.LessonLink != nil {
			sum.Linked++
		}
	}
	s.Log.Info("plan reconciled", "linked", sum.Linked, "total", sum.Total, "catalog_rows", len(rows))
	return out, sum, nil
}
