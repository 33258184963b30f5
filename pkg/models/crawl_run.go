package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

type CrawlRun struct {
	ID          uuid.UUID  `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Tracks      int        `json:"tracks"`
	Courses     int        `json:"courses"`
	Lessons     int        `json:"lessons"`
	FailedUnits int        `json:"failed_units"`
	Status      string     `json:"status"`
}

// Crawl event kinds published while a run is in progress.
const (
	EventRunStarted   = "crawl.started"
	EventTrackStarted = "crawl.track"
	EventCourseDone   = "crawl.course"
	EventUnitFailed   = "crawl.unit_failed"
	EventRunFinished  = "crawl.finished"
)

type CrawlEvent struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id"`
	Track   string    `json:"track,omitempty"`
	Course  string    `json:"course,omitempty"`
	Done    int       `json:"done,omitempty"`
	Total   int       `json:"total,omitempty"`
	Lessons int       `json:"lessons,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}
