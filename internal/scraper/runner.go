package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

// ErrCrawlRunning is returned by Start while another crawl is in flight.
var ErrCrawlRunning = errors.New("crawl already running")

// Runner ties authentication, crawling and persistence together and allows
// one crawl at a time.
type Runner struct {
	Auth    *Authenticator
	Crawler *Crawler
	Store   Store
	Log     *logger.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewRunner(auth *Authenticator, crawler *Crawler, store Store, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{Auth: auth, Crawler: crawler, Store: store, Log: log}
}

// Run performs a full crawl synchronously. The catalog is replaced only when
// the crawl succeeds; the run row is written either way.
func (r *Runner) Run(ctx context.Context, creds utils.Credentials) (CrawlResult, error) {
	if creds.Email == "" || creds.Password == "" {
		return CrawlResult{}, fmt.Errorf("%w: email and password required", ErrAuthFailed)
	}
	s, err := r.Auth.Authenticate(ctx, creds)
	if err != nil {
		return CrawlResult{}, err
	}
	defer s.Close()

	res, crawlErr := r.Crawler.Crawl(ctx, s)
	// bookkeeping must land even when ctx was cancelled mid-crawl
	if err := Persist(context.WithoutCancel(ctx), r.Store, res); err != nil {
		return res, errors.Join(crawlErr, err)
	}
	return res, crawlErr
}

// Start launches Run in the background and returns immediately.
func (r *Runner) Start(ctx context.Context, creds utils.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrCrawlRunning
	}
	r.running = true
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()
		res, err := r.Run(ctx, creds)
		if err != nil {
			r.Log.Error("background crawl failed", "run", res.Run.ID, "error", err)
			return
		}
		r.Log.Info("background crawl finished", "run", res.Run.ID, "lessons", res.Run.Lessons)
	}()
	return nil
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wait blocks until a background crawl, if any, returns.
func (r *Runner) Wait() {
	r.wg.Wait()
}
