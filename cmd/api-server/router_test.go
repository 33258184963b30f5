package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	synchub "github.com/stolpe22/plano-jornada/internal/sync"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := utils.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "api.db")
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg.API.OperatorPasswordHash = string(hash)

	db, err := database.Open(database.FromSettings(cfg.Database))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	r, _ := newRouter(deps{base: context.Background(), cfg: cfg, db: db, hub: synchub.NewHub(nil)})
	return r
}

func serve(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", "").Code)

	w := serve(r, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
}

func TestMutatingRoutesNeedToken(t *testing.T) {
	r := testRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/plan/import"},
		{http.MethodPost, "/plan/reconcile"},
		{http.MethodPatch, "/plan/1/completed"},
		{http.MethodPost, "/crawl"},
	} {
		w := serve(r, route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}

	w := serve(r, http.MethodPost, "/auth/token", `{"password":"operator-pass"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))

	w = serve(r, http.MethodPost, "/plan/reconcile", "", tok.Token)
	assert.Equal(t, http.StatusConflict, w.Code, "authorized, but there is no plan yet")

	w = serve(r, http.MethodPost, "/crawl", `{}`, tok.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicReads(t *testing.T) {
	r := testRouter(t)
	for _, path := range []string{"/catalog", "/catalog/tracks", "/catalog/search?q=sql", "/catalog/filters", "/plan", "/plan/progress", "/crawl/status"} {
		w := serve(r, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
