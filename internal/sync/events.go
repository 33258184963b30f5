package sync

import (
	"time"

	"github.com/stolpe22/plano-jornada/pkg/models"
)

// Feed-level message kinds. Crawl events keep their own models.Event* types.
const (
	EventWelcome = "welcome"
)

type welcome struct {
	Type      string    `json:"type"`
	Transport string    `json:"transport"`
	Clients   int       `json:"clients"`
	LastRun   string    `json:"last_run,omitempty"`
	At        time.Time `json:"at"`
}

// history keeps the most recent crawl events so late subscribers can see
// where the current run stands.
type history struct {
	buf  []models.CrawlEvent
	next int
	full bool
}

func newHistory(size int) *history {
	return &history{buf: make([]models.CrawlEvent, size)}
}

func (h *history) add(ev models.CrawlEvent) {
	if len(h.buf) == 0 {
		return
	}
	if ev.Type == models.EventRunStarted {
		h.next, h.full = 0, false
	}
	h.buf[h.next] = ev
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// events returns the retained events oldest first.
func (h *history) events() []models.CrawlEvent {
	if !h.full {
		return append([]models.CrawlEvent(nil), h.buf[:h.next]...)
	}
	out := make([]models.CrawlEvent, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

func (h *history) lastRun() string {
	ev := h.events()
	if len(ev) == 0 {
		return ""
	}
	return ev[len(ev)-1].RunID
}
