package search

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

const (
	MethodFullText = "fts"
	MethodFuzzy    = "fuzzy"

	defaultLimit = 200
)

// Catalog is the read side of the catalog store used by the searcher.
type Catalog interface {
	FullText(ctx context.Context, match string, tracks []string, limit int) ([]catalog.RankedRecord, error)
	List(ctx context.Context, f catalog.Filter) ([]models.LessonRecord, error)
}

type Query struct {
	Text        string
	Tracks      []string // empty = all tracks
	Sensitivity int      // 0 = configured default
}

// Hit is one search result. Score is 0..100 for both methods.
type Hit struct {
	models.LessonRecord
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}

type Results struct {
	Method string `json:"method,omitempty"`
	Hits   []Hit  `json:"hits"`
}

type Searcher struct {
	catalog Catalog
	cfg     utils.SearchConfig
	log     *logger.Logger
}

func NewSearcher(c Catalog, cfg utils.SearchConfig, log *logger.Logger) *Searcher {
	if log == nil {
		log = logger.Nop()
	}
	cfg.Sensitivity = utils.ClampSensitivity(cfg.Sensitivity)
	return &Searcher{catalog: c, cfg: cfg, log: log}
}

// Search runs the full-text path and falls back to fuzzy scoring over the
// track-filtered catalog when the index returns nothing, or only hits
// weaker than the configured minimum rank. A query with nothing searchable
// and a missing store both yield empty results without error.
func (s *Searcher) Search(ctx context.Context, q Query) (Results, error) {
	match := SanitizeQuery(q.Text)
	if match == "" {
		return Results{Hits: []Hit{}}, nil
	}

	ranked, err := s.catalog.FullText(ctx, match, q.Tracks, defaultLimit)
	if errors.Is(err, database.ErrStoreUnavailable) {
		s.log.Warn("catalog store unavailable", "error", err)
		return Results{Hits: []Hit{}}, nil
	}
	if err != nil {
		return Results{}, fmt.Errorf("full text search: %w", err)
	}

	if len(ranked) > 0 && !s.weak(ranked[0].Rank) {
		ranks := make([]float64, len(ranked))
		for i, r := range ranked {
			ranks[i] = r.Rank
		}
		scores := NormalizeRanks(ranks)
		hits := make([]Hit, len(ranked))
		for i, r := range ranked {
			hits[i] = Hit{LessonRecord: r.LessonRecord, Score: scores[i], Method: MethodFullText}
		}
		return Results{Method: MethodFullText, Hits: hits}, nil
	}

	rows, err := s.catalog.List(ctx, catalog.Filter{Tracks: q.Tracks})
	if errors.Is(err, database.ErrStoreUnavailable) {
		return Results{Hits: []Hit{}}, nil
	}
	if err != nil {
		return Results{}, fmt.Errorf("load catalog for fallback: %w", err)
	}

	sens := q.Sensitivity
	if sens == 0 {
		sens = s.cfg.Sensitivity
	}
	hits := Fallback(rows, q.Text, utils.ClampSensitivity(sens))
	s.log.Debug("fuzzy fallback", "query", q.Text, "primary_hits", len(ranked), "hits", len(hits))
	if hits == nil {
		hits = []Hit{}
	}
	return Results{Method: MethodFuzzy, Hits: hits}, nil
}

func (s *Searcher) weak(bestRank float64) bool {
	return s.cfg.MinPrimaryRank > 0 && math.Abs(bestRank) < s.cfg.MinPrimaryRank
}
