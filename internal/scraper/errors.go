package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed is returned when the platform rejects the login or the
	// login flow cannot be completed.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrCrawlFailed means the crawl could not start: the landing page was
	// unreachable or listed no tracks.
	ErrCrawlFailed = errors.New("crawl failed")
	// ErrMissingField is returned when a component state lacks a key the
	// crawler depends on.
	ErrMissingField = errors.New("component state: missing field")
)

// Unit kinds reported by UnitError.
const (
	UnitCourse = "course"
	UnitModule = "module"
	UnitLesson = "lesson"
)

// UnitError records a failure confined to one course, module or lesson.
// The crawl continues past it.
type UnitError struct {
	Kind string
	Ref  string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Ref, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
