package scraper

import (
	"context"
	"fmt"

	"github.com/stolpe22/plano-jornada/pkg/models"
)

// Store is the catalog side the crawler writes to.
type Store interface {
	ReplaceAll(ctx context.Context, records []models.LessonRecord) error
	SaveRun(ctx context.Context, run models.CrawlRun) error
}

// Persist replaces the catalog with the crawl's rows and records the run.
// A failed run leaves the previous catalog in place; only its bookkeeping
// row is written.
func Persist(ctx context.Context, store Store, res CrawlResult) error {
	if res.Run.Status == models.RunSucceeded {
		if err := store.ReplaceAll(ctx, res.Records); err != nil {
			res.Run.Status = models.RunFailed
			if serr := store.SaveRun(ctx, res.Run); serr != nil {
				return fmt.Errorf("replace catalog: %w (save run: %v)", err, serr)
			}
			return fmt.Errorf("replace catalog: %w", err)
		}
	}
	if err := store.SaveRun(ctx, res.Run); err != nil {
		return fmt.Errorf("save run %s: %w", res.Run.ID, err)
	}
	return nil
}
