package search

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/stolpe22/plano-jornada/pkg/utils"
)

const (
	filtersSession = "jornada-filters"
	filtersKey     = "filters"
)

// Filters is the per-browser state of the catalog explorer.
type Filters struct {
	Tracks      []string `json:"tracks"`
	SelectAll   bool     `json:"select_all"`
	Text        string   `json:"text"`
	Sensitivity int      `json:"sensitivity"`
}

func DefaultFilters() Filters {
	return Filters{SelectAll: true, Sensitivity: utils.ClampSensitivity(0)}
}

// Reset restores the defaults: every track, no text, default sensitivity.
func (f *Filters) Reset() {
	*f = DefaultFilters()
}

// Query converts the filters into a search query. ok is false when the user
// deselected every track, which means there is nothing to show.
func (f Filters) Query() (q Query, ok bool) {
	q = Query{Text: f.Text, Sensitivity: utils.ClampSensitivity(f.Sensitivity)}
	if f.SelectAll {
		return q, true
	}
	if len(f.Tracks) == 0 {
		return q, false
	}
	q.Tracks = f.Tracks
	return q, true
}

// FilterStore keeps Filters in a signed cookie session.
type FilterStore struct {
	store sessions.Store
}

func NewFilterStore(secret []byte) *FilterStore {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &FilterStore{store: cs}
}

// Load returns the stored filters, or the defaults for a new or unreadable
// session.
func (fs *FilterStore) Load(r *http.Request) Filters {
	sess, err := fs.store.Get(r, filtersSession)
	if err != nil {
		return DefaultFilters()
	}
	raw, ok := sess.Values[filtersKey].(string)
	if !ok {
		return DefaultFilters()
	}
	f := DefaultFilters()
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return DefaultFilters()
	}
	f.Sensitivity = utils.ClampSensitivity(f.Sensitivity)
	return f
}

func (fs *FilterStore) Save(w http.ResponseWriter, r *http.Request, f Filters) error {
	f.Sensitivity = utils.ClampSensitivity(f.Sensitivity)
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	// a stale or tampered cookie yields a fresh session, which is fine to overwrite
	sess, _ := fs.store.Get(r, filtersSession)
	sess.Values[filtersKey] = string(b)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save filters session: %w", err)
	}
	return nil
}
