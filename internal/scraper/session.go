package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

const (
	loginPath   = "/s/login"
	landingPath = "/s/conteudos"

	// cap on any single response body
	maxBody = 16 << 20
)

// Session is an authenticated client for the platform. It carries the login
// cookies and is shared read-only by the crawler's workers.
type Session struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func newSession(cfg utils.PlatformConfig) (*Session, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = max(cfg.Workers, 2)
	return &Session{
		base:      base,
		client:    &http.Client{Jar: jar, Transport: transport},
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}, nil
}

// Close drops idle connections held by the session.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

// Resolve turns a platform-relative reference into an absolute URL.
func (s *Session) Resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return s.base.ResolveReference(u).String()
}

// get fetches rawURL and returns the body and the final URL after redirects.
func (s *Session) get(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	return s.do(req)
}

func (s *Session) do(req *http.Request) ([]byte, *url.URL, error) {
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return body, resp.Request.URL, nil
}

// Authenticator opens sessions against the platform's login form.
type Authenticator struct {
	cfg utils.PlatformConfig
	log *logger.Logger
}

func NewAuthenticator(cfg utils.PlatformConfig, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.Nop()
	}
	return &Authenticator{cfg: cfg, log: log}
}

// Authenticate logs in with creds. It succeeds only when the platform lands
// the client on its contents area; every other outcome wraps ErrAuthFailed.
func (a *Authenticator) Authenticate(ctx context.Context, creds utils.Credentials) (*Session, error) {
	s, err := newSession(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	authenticated := false
	defer func() {
		if !authenticated {
			s.Close()
		}
	}()
	loginURL := s.Resolve(loginPath)

	body, _, err := s.get(ctx, loginURL)
	if err != nil {
		return nil, fmt.Errorf("%w: load login page: %v", ErrAuthFailed, err)
	}
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse login page: %v", ErrAuthFailed, err)
	}
	token, ok := csrfToken(doc)
	if !ok {
		return nil, fmt.Errorf("%w: login page has no csrf token", ErrAuthFailed)
	}

	form := url.Values{}
	form.Set("_token", token)
	form.Set("email", creds.Email)
	form.Set("password", creds.Password)

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(pctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build login request: %v", ErrAuthFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", loginURL)

	_, final, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: submit login: %v", ErrAuthFailed, err)
	}
	if !strings.Contains(final.Path, "/conteudos") {
		a.log.Warn("login did not reach contents", "landed", final.Path)
		return nil, fmt.Errorf("%w: landed on %s", ErrAuthFailed, final.Path)
	}

	a.log.Info("authenticated", "base", s.base.Host, "email", creds.Email)
	authenticated = true
	return s, nil
}
