package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/reconcile"
	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

const planCSV = "Trilha,Módulo,Carga Horária (h),Objetivo\n" +
	"Análise de Dados,Introdução a SQL,4,consultas\n" +
	"Engenharia de Software,Testes,2,\n"

func catalogRows() []models.LessonRecord {
	link := "https://x/c/cursos/sql"
	row := func(id int64, module, slug string, done bool) models.LessonRecord {
		return models.LessonRecord{
			TrackName:  "Trilha Análise de Dados",
			CourseName: "SQL para Análise",
			CourseLink: link,
			ModuleName: ptr(module),
			LessonID:   ptr(id),
			LessonName: ptr(slug),
			LessonSlug: ptr(slug),
			LessonLink: models.LessonLink(link, slug),
			Completed:  ptr(done),
		}
	}
	return []models.LessonRecord{
		row(1, "Introdução a SQL", "um", true),
		row(2, "Introdução a SQL", "dois", false),
		row(3, "Joins", "tres", false),
	}
}

type fixture struct {
	router  *gin.Engine
	plan    *Repo
	catalog *catalog.Repo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := openTestDB(t, true)
	f := fixture{plan: NewRepo(db), catalog: catalog.NewRepo(db)}

	svc := NewService(f.plan, f.catalog, reconcile.New(utils.MatchConfig{}), nil)
	gin.SetMode(gin.TestMode)
	f.router = gin.New()
	g := f.router.Group("/plan")
	NewHandler(svc, nil).RegisterRoutes(g, g)
	return f
}

func (f fixture) do(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	svc := NewService(f.plan, f.catalog, reconcile.New(utils.MatchConfig{}), nil)
	_, _, err := svc.Reconcile(ctx)
	assert.ErrorIs(t, err, ErrNoPlan)

	entries, err := ReadCSV(strings.NewReader(planCSV))
	require.NoError(t, err)
	_, err = f.plan.Import(ctx, entries)
	require.NoError(t, err)

	_, _, err = svc.Reconcile(ctx)
	assert.ErrorIs(t, err, ErrNoCatalog)

	require.NoError(t, f.catalog.ReplaceAll(ctx, catalogRows()))
	out, sum, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Linked: 1, Total: 2}, sum)
	assert.Equal(t, "links found 1 of 2", sum.String())
	require.Len(t, out, 2)
	assert.Equal(t, "https://x/c/cursos/sql?lessonSlug=um", *out[0].LessonLink)
	assert.True(t, out[0].Completed)
	assert.Nil(t, out[1].LessonLink)

	stored, err := f.plan.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, out, stored)
}

func TestHandler_Flow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.catalog.ReplaceAll(ctx, catalogRows()))

	w := f.do(t, http.MethodGet, "/plan", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":0,"items":[]}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/plan/reconcile", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// multipart upload
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "plano_de_estudos.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(planCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w = f.do(t, http.MethodPost, "/plan/import", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/plan/reconcile", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "links found 1 of 2", rec.Message)

	w = f.do(t, http.MethodPatch, "/plan/2/completed", "application/json", []byte(`{"completed":true}`))
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/plan/progress", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.PlanProgress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 2, p.Completed)
	assert.Equal(t, 0, p.Pending)

	w = f.do(t, http.MethodGet, "/plan/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ExportFilename)
	assert.True(t, strings.HasPrefix(w.Body.String(), "\ufeffid,Trilha"))
}

func TestHandler_RawBodyImportAndBadRequests(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/plan/import", "text/csv", []byte(planCSV))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/plan/import", "text/csv", []byte("Trilha\nx\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/plan/import", "text/csv", []byte("Trilha,Módulo,Carga Horária (h)\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/plan/abc/completed", "application/json", []byte(`{"completed":true}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/plan/1/completed", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/plan/99/completed", "application/json", []byte(`{"completed":true}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/plan/2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var e models.PlanEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, int64(2), e.ID)
	assert.Equal(t, "Testes", e.ModuleLabel)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/plan/99", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/plan/abc", "", nil).Code)
}

// editingCatalog marks a plan entry done while the service is between its
// plan read and its write-back.
type editingCatalog struct {
	*catalog.Repo
	plan *Repo
	id   int64
}

func (c editingCatalog) List(ctx context.Context, f catalog.Filter) ([]models.LessonRecord, error) {
	if err := c.plan.SetCompleted(ctx, c.id, true); err != nil {
		return nil, err
	}
	return c.Repo.List(ctx, f)
}

func TestService_ReconcileKeepsConcurrentCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entries, err := ReadCSV(strings.NewReader(planCSV))
	require.NoError(t, err)
	_, err = f.plan.Import(ctx, entries)
	require.NoError(t, err)
	require.NoError(t, f.catalog.ReplaceAll(ctx, catalogRows()))

	svc := NewService(f.plan, editingCatalog{Repo: f.catalog, plan: f.plan, id: 2}, reconcile.New(utils.MatchConfig{}), nil)
	out, _, err := svc.Reconcile(ctx)
	require.NoError(t, err)

	got, err := f.plan.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Completed)
	assert.Nil(t, got.LessonLink)
	assert.True(t, out[1].Completed)
}
