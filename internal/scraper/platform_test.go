package scraper

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "secret"
	loginToken   = "tok-login"
	courseToken  = "tok-course"
)

// fakePlatform serves just enough of the learning platform for the
// authenticator and crawler: a login form, the contents landing page, course
// pages and the three Livewire endpoints.
type fakePlatform struct {
	t   *testing.T
	srv *httptest.Server

	noCSRF  bool
	landing string
	// module-card calls from a course page whose path ends with this fail
	failModulesOf string

	mu    sync.Mutex
	calls map[string]int
}

type lessonFixture struct {
	name, slug, html string
	module           int64
	moduleName       string
}

var fixtureLessons = map[int64]lessonFixture{
	11: {name: "Introdução", slug: "intro", html: "<p>Olá <b>mundo</b></p>", module: 101, moduleName: "Fundamentos"},
	12: {name: "Consultas", slug: "consultas", html: "<p>SELECT</p>", module: 101, moduleName: "Fundamentos"},
	14: {name: "Inner Join", slug: "inner-join", html: "<div>join</div>", module: 102, moduleName: "Joins"},
}

// keyed by the module id as echoed back in serverMemo, number or string
var moduleLessons = map[string]string{
	"101": `<ul><li wire:key="lesson.11" x-data="{ finished: true }">a</li><li wire:key="lesson.12" x-data="{ finished: false }">b</li></ul>`,
	"102": "<ul><li wire:key=\"lesson.13\" x-data=\"{}\">c</li><li wire:key=\"lesson.14\" x-data=\"{ finished:\n  true }\">d</li></ul>",
}

const defaultLanding = `<html><body>
<div class="section">
  <div class="header"><div class="title"><h4 id="category-title-1"> Dados </h4></div></div>
  <div class="cards">
    <a href="/c/cursos/sql?ref=home"><img alt="SQL Básico" src="sql.png"></a>
    <a href="/c/cursos/broken"><img alt="Curso Quebrado" src="b.png"></a>
    <a href="/outro"><img alt="Fora" src="o.png"></a>
  </div>
</div>
<div class="section">
  <div class="header"><div class="title"><h4 id="category-title-2">Python</h4></div></div>
  <div class="cards"><a href="/c/cursos/empty"><img alt="Python Zero"></a></div>
</div>
<div class="section">
  <div class="header"><div class="title"><h4 id="category-title-3">Vazia</h4></div></div>
  <div class="cards"><a href="/blog">blog</a></div>
</div>
</body></html>`

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	fp := &fakePlatform{t: t, landing: defaultLanding, calls: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/s/login", fp.login)
	mux.HandleFunc("/s/conteudos", fp.authed(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fp.landing)
	}))
	mux.HandleFunc("/c/cursos/", fp.authed(fp.coursePage))
	mux.HandleFunc("/livewire/message/", fp.authed(fp.livewire))

	fp.srv = httptest.NewServer(mux)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakePlatform) config() utils.PlatformConfig {
	return utils.PlatformConfig{
		BaseURL:   fp.srv.URL,
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
		Workers:   3,
	}
}

func (fp *fakePlatform) count(key string) int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.calls[key]
}

func (fp *fakePlatform) hit(key string) {
	fp.mu.Lock()
	fp.calls[key]++
	fp.mu.Unlock()
}

func (fp *fakePlatform) login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if fp.noCSRF {
			fmt.Fprint(w, `<html><head></head><body>login</body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><head><meta name="csrf-token" content="%s"></head><body>login</body></html>`, loginToken)
	case http.MethodPost:
		if r.FormValue("_token") != loginToken || r.FormValue("email") != testEmail || r.FormValue("password") != testPassword {
			http.Redirect(w, r, "/s/login?failed=1", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "jornada_session", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/s/conteudos", http.StatusFound)
	}
}

func (fp *fakePlatform) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("jornada_session"); err != nil || c.Value != "ok" {
			http.Redirect(w, r, "/s/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

func componentAttr(id, name string, memo any) string {
	b, _ := json.Marshal(map[string]any{
		"fingerprint": map[string]any{"id": id, "name": name, "locale": "pt"},
		"serverMemo":  memo,
	})
	return html.EscapeString(string(b))
}

func (fp *fakePlatform) coursePage(w http.ResponseWriter, r *http.Request) {
	fp.hit(r.URL.Path)
	if r.URL.Path == "/c/cursos/broken" {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, `<html><head><meta name="csrf-token" content="%s"></head><body>
<div wire:initial-data="%s"></div>
<div wire:initial-data="%s"></div>
</body></html>`,
		courseToken,
		componentAttr("lc-"+strings.TrimPrefix(r.URL.Path, "/c/cursos/"), componentLearningCenter, map[string]any{"data": map[string]any{}}),
		componentAttr("other", "v2.portal.header", map[string]any{}),
	)
}

type fakeRequest struct {
	Fingerprint struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"fingerprint"`
	ServerMemo struct {
		DataMeta struct {
			Models struct {
				Module struct {
					ID any `json:"id"`
				} `json:"module"`
			} `json:"models"`
		} `json:"dataMeta"`
	} `json:"serverMemo"`
	Updates []struct {
		Type    string `json:"type"`
		Payload struct {
			ID     string            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		} `json:"payload"`
	} `json:"updates"`
}

func (fp *fakePlatform) livewire(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-CSRF-TOKEN") != courseToken || r.Header.Get("X-Livewire") != "true" {
		http.Error(w, "page expired", 419)
		return
	}
	var req fakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Updates) == 0 {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if req.Updates[0].Payload.ID != req.Fingerprint.ID {
		http.Error(w, "id mismatch", http.StatusBadRequest)
		return
	}
	component := strings.TrimPrefix(r.URL.Path, "/livewire/message/")
	fp.hit(component)
	w.Header().Set("Content-Type", "application/json")

	switch component {
	case componentLearningCenter:
		if !strings.Contains(r.Header.Get("Referer"), "/c/cursos/sql") {
			writeEffects(w, `<div>Sem módulos</div>`, nil)
			return
		}
		body := fmt.Sprintf(`<div>
<div wire:initial-data="%s"></div>
<div wire:initial-data="%s"></div>
<div wire:initial-data="%s"></div>
</div>`,
			componentAttr("mod-101", componentModuleCard, map[string]any{"dataMeta": map[string]any{"models": map[string]any{"module": map[string]any{"id": 101}}}}),
			componentAttr("mod-102", componentModuleCard, map[string]any{"dataMeta": map[string]any{"models": map[string]any{"module": map[string]any{"id": "102"}}}}),
			componentAttr("active", componentActiveLesson, map[string]any{"data": map[string]any{"lesson": nil}}),
		)
		writeEffects(w, body, nil)

	case componentModuleCard:
		if fp.failModulesOf != "" && strings.HasSuffix(refererPath(r), fp.failModulesOf) {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if len(req.Updates) != 2 || req.Updates[0].Payload.Method != "loadLessons" || req.Updates[1].Payload.Method != "$set" {
			http.Error(w, "unexpected updates", http.StatusBadRequest)
			return
		}
		writeEffects(w, moduleLessons[fmt.Sprint(req.ServerMemo.DataMeta.Models.Module.ID)], nil)

	case componentActiveLesson:
		var id int64
		if len(req.Updates[0].Payload.Params) != 1 || json.Unmarshal(req.Updates[0].Payload.Params[0], &id) != nil {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		l, ok := fixtureLessons[id]
		if !ok {
			http.Error(w, "lesson not found", http.StatusInternalServerError)
			return
		}
		writeEffects(w, "", []map[string]any{
			{"event": "other", "params": []any{}},
			{"event": "setActiveLesson", "params": []any{map[string]any{
				"id": id, "name": l.name, "slug": l.slug, "summary": "resumo " + l.slug,
				"html_content": l.html, "module_id": l.module,
				"module": map[string]any{"name": l.moduleName},
			}}},
		})

	default:
		http.NotFound(w, r)
	}
}

func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil {
		return ""
	}
	return ref.Path
}

func writeEffects(w http.ResponseWriter, htmlBody string, emits []map[string]any) {
	effects := map[string]any{"html": htmlBody}
	if emits != nil {
		effects["emits"] = emits
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"effects": effects})
}

// recorder collects published crawl events.
type recorder struct {
	mu     sync.Mutex
	events []models.CrawlEvent
}

func (r *recorder) Publish(ev models.CrawlEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}
