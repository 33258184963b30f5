package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(repo *Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(repo, nil).RegisterRoutes(r.Group("/catalog"))
	return r
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler_ListAndTracks(t *testing.T) {
	repo := NewRepo(openTestDB(t, true))
	require.NoError(t, repo.ReplaceAll(context.Background(), sampleCatalog()))
	r := newRouter(repo)

	w := get(t, r, "/catalog?tracks=Python,Outra")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int `json:"total"`
		Items []struct {
			CourseName string `json:"course_name"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "pandas", page.Items[0].CourseName)

	w = get(t, r, "/catalog/tracks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tracks":["Dados","Python"]}`, w.Body.String())

	w = get(t, r, "/catalog/export?tracks=Dados")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, strings.Count(w.Body.String(), "\n"), "header plus three Dados rows")

	w = get(t, r, "/catalog/runs/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_MissingStoreIsEmpty(t *testing.T) {
	r := newRouter(NewRepo(openTestDB(t, false)))

	w := get(t, r, "/catalog")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":0,"limit":50,"offset":0,"items":[]}`, w.Body.String())

	w = get(t, r, "/catalog/tracks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tracks":[]}`, w.Body.String())
}
