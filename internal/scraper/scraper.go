package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stolpe22/plano-jornada/internal/textmatch"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

// Progress receives crawl events as the run advances. Publish must not block
// for long; the crawler calls it inline.
type Progress interface {
	Publish(models.CrawlEvent)
}

type Option func(*Crawler)

func WithProgress(p Progress) Option {
	return func(c *Crawler) { c.progress = p }
}

// Crawler walks tracks, courses, modules and lessons of an authenticated
// session and flattens them into catalog rows.
type Crawler struct {
	cfg      utils.PlatformConfig
	log      *logger.Logger
	progress Progress
	now      func() time.Time
}

func NewCrawler(cfg utils.PlatformConfig, log *logger.Logger, opts ...Option) *Crawler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 15
	}
	c := &Crawler{cfg: cfg, log: log, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CrawlResult is the outcome of one full crawl.
type CrawlResult struct {
	Run      models.CrawlRun
	Records  []models.LessonRecord
	Failures []*UnitError
}

// Crawl visits every course once, in landing-page order. A course that fails
// or yields no lessons becomes a single placeholder row; the crawl only
// aborts when the landing page cannot be read or the context ends.
func (c *Crawler) Crawl(ctx context.Context, s *Session) (CrawlResult, error) {
	res := CrawlResult{Run: models.CrawlRun{
		ID:        uuid.New(),
		StartedAt: c.now().UTC(),
		Status:    models.RunRunning,
	}}
	c.publish(res.Run, models.CrawlEvent{Type: models.EventRunStarted})

	tracks, err := c.Discover(ctx, s)
	if err != nil {
		c.finish(&res, models.RunFailed, err.Error())
		return res, err
	}

	total := 0
	for _, t := range tracks {
		total += len(t.Courses)
	}
	res.Run.Tracks = len(tracks)
	c.log.Info("tracks discovered", "run", res.Run.ID, "tracks", len(tracks), "courses", total)

	seen := make(map[int64]struct{})
	done := 0
	for _, track := range tracks {
		c.publish(res.Run, models.CrawlEvent{Type: models.EventTrackStarted, Track: track.Name, Done: done, Total: total})

		for _, course := range track.Courses {
			done++
			link := s.Resolve(course.Link)

			recs, failures, err := c.crawlCourse(ctx, s, track.Name, course.Name, link)
			if ctx.Err() != nil {
				c.finish(&res, models.RunFailed, ctx.Err().Error())
				return res, ctx.Err()
			}
			if err != nil {
				failures = append(failures, &UnitError{Kind: UnitCourse, Ref: link, Err: err})
			}
			for _, f := range failures {
				c.log.Warn("crawl unit failed", "run", res.Run.ID, "kind", f.Kind, "ref", f.Ref, "error", f.Err)
				c.publish(res.Run, models.CrawlEvent{Type: models.EventUnitFailed, Track: track.Name, Course: course.Name, Message: f.Error()})
			}
			res.Failures = append(res.Failures, failures...)

			kept := 0
			for _, r := range recs {
				if _, dup := seen[*r.LessonID]; dup {
					continue
				}
				seen[*r.LessonID] = struct{}{}
				res.Records = append(res.Records, r)
				kept++
			}
			// a course whose lessons were all kept under an earlier course
			// still has lessons and gets no placeholder
			if len(recs) == 0 {
				res.Records = append(res.Records, models.SentinelRecord(track.Name, course.Name, link))
			}
			res.Run.Courses++
			res.Run.Lessons += kept

			c.publish(res.Run, models.CrawlEvent{
				Type: models.EventCourseDone, Track: track.Name, Course: course.Name,
				Done: done, Total: total, Lessons: kept,
			})
			c.log.Info("course crawled", "run", res.Run.ID, "progress", fmt.Sprintf("%d/%d", done, total), "course", course.Name, "lessons", kept)

			if err := sleepCtx(ctx, c.cfg.CourseDelay); err != nil {
				c.finish(&res, models.RunFailed, err.Error())
				return res, err
			}
		}
	}

	c.finish(&res, models.RunSucceeded, "")
	return res, nil
}

// Discover reads the landing page and lists its tracks.
func (c *Crawler) Discover(ctx context.Context, s *Session) ([]TrackListing, error) {
	body, _, err := s.get(ctx, s.Resolve(landingPath))
	if err != nil {
		return nil, fmt.Errorf("%w: load landing page: %v", ErrCrawlFailed, err)
	}
	doc, err := parseHTML(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse landing page: %v", ErrCrawlFailed, err)
	}
	tracks := parseLanding(doc)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks found", ErrCrawlFailed)
	}
	return tracks, nil
}

// crawlCourse returns the lessons of one course. Module and lesson failures
// are reported in the returned slice and skipped; a non-nil error fails the
// whole course.
func (c *Crawler) crawlCourse(ctx context.Context, s *Session, track, course, link string) ([]models.LessonRecord, []*UnitError, error) {
	body, _, err := s.get(ctx, link)
	if err != nil {
		return nil, nil, fmt.Errorf("load course page: %w", err)
	}
	page, err := parseHTML(string(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse course page: %w", err)
	}
	csrf, ok := csrfToken(page)
	if !ok {
		return nil, nil, errors.New("course page has no csrf token")
	}
	states := componentStates(page)
	if len(states) == 0 {
		return nil, nil, errors.New("course page has no component state")
	}

	initResp, err := s.call(ctx, states[0], csrf, link, states[0].method("init"))
	if err != nil {
		return nil, nil, fmt.Errorf("init %s: %w", componentLearningCenter, err)
	}
	if initResp.Effects.HTML == "" {
		return nil, nil, errors.New("init returned no html")
	}
	center, err := parseHTML(initResp.Effects.HTML)
	if err != nil {
		return nil, nil, fmt.Errorf("parse course html: %w", err)
	}

	var (
		modules      []ComponentState
		activeLesson *ComponentState
	)
	for _, st := range componentStates(center) {
		switch st.Name {
		case componentModuleCard:
			modules = append(modules, st)
		case componentActiveLesson:
			if activeLesson == nil {
				activeLesson = &st
			}
		}
	}
	if len(modules) == 0 {
		c.log.Debug("course has no modules", "course", course)
		return nil, nil, nil
	}
	if activeLesson == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingField, componentActiveLesson)
	}

	var (
		records  []models.LessonRecord
		failures []*UnitError
	)
	for _, mod := range modules {
		modID, err := mod.ModuleID()
		if err != nil {
			failures = append(failures, &UnitError{Kind: UnitModule, Ref: mod.ID, Err: err})
			continue
		}
		ref := strconv.FormatInt(modID, 10)

		resp, err := s.call(ctx, mod, csrf, link, mod.method("loadLessons"), mod.method("$set", "expanded", true))
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			failures = append(failures, &UnitError{Kind: UnitModule, Ref: ref, Err: err})
			continue
		}
		list, err := parseHTML(resp.Effects.HTML)
		if err != nil {
			failures = append(failures, &UnitError{Kind: UnitModule, Ref: ref, Err: err})
			continue
		}
		stubs := parseLessonList(list)
		if len(stubs) == 0 {
			continue
		}
		c.log.Debug("fetching lesson details", "course", course, "module", modID, "lessons", len(stubs))

		details, lessonFailures, err := c.fetchDetails(ctx, s, *activeLesson, csrf, link, stubs)
		if err != nil {
			return nil, nil, err
		}
		failures = append(failures, lessonFailures...)

		completed := make(map[int64]bool, len(stubs))
		for _, st := range stubs {
			completed[st.ID] = st.Completed
		}
		for _, d := range details {
			if d == nil {
				continue
			}
			records = append(records, buildRecord(track, course, link, d, completed[d.ID]))
		}
	}
	return records, failures, nil
}

// fetchDetails loads lesson details concurrently, bounded by the configured
// worker count. Results keep the order of stubs; failed lessons leave a nil
// slot and an entry in the returned failures.
func (c *Crawler) fetchDetails(ctx context.Context, s *Session, comp ComponentState, csrf, link string, stubs []lessonStub) ([]*LessonDetail, []*UnitError, error) {
	details := make([]*LessonDetail, len(stubs))
	errs := make([]error, len(stubs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, st := range stubs {
		i, st := i, st
		g.Go(func() error {
			resp, err := s.call(gctx, comp, csrf, link, comp.method("loadLesson", st.ID))
			if err == nil {
				details[i], err = resp.activeLesson()
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				errs[i] = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failures []*UnitError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &UnitError{Kind: UnitLesson, Ref: strconv.FormatInt(stubs[i].ID, 10), Err: err})
		}
	}
	return details, failures, nil
}

func buildRecord(track, course, link string, d *LessonDetail, completed bool) models.LessonRecord {
	id := d.ID
	rec := models.LessonRecord{
		TrackName:  track,
		CourseName: course,
		CourseLink: link,
		ModuleID:   d.ModuleID,
		LessonID:   &id,
		LessonName: d.Name,
		LessonSlug: d.Slug,
		Completed:  &completed,
		Summary:    d.Summary,
	}
	if d.Module != nil {
		rec.ModuleName = d.Module.Name
	}
	if d.Slug != nil {
		rec.LessonLink = models.LessonLink(link, *d.Slug)
	}
	if d.HTMLContent != nil {
		text := textmatch.StripHTML(*d.HTMLContent)
		rec.Content = &text
	}
	return rec
}

func (c *Crawler) finish(res *CrawlResult, status, msg string) {
	at := c.now().UTC()
	res.Run.FinishedAt = &at
	res.Run.Status = status
	res.Run.FailedUnits = len(res.Failures)
	c.publish(res.Run, models.CrawlEvent{
		Type: models.EventRunFinished, Done: res.Run.Courses, Lessons: res.Run.Lessons,
		Message: firstNonEmpty(msg, status),
	})
	c.log.Info("crawl finished", "run", res.Run.ID, "status", status,
		"courses", res.Run.Courses, "lessons", res.Run.Lessons, "failed_units", res.Run.FailedUnits)
}

func (c *Crawler) publish(run models.CrawlRun, ev models.CrawlEvent) {
	if c.progress == nil {
		return
	}
	ev.RunID = run.ID.String()
	ev.At = c.now().UTC()
	c.progress.Publish(ev)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
