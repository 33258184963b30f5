package grpcserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/plan"
	"github.com/stolpe22/plano-jornada/internal/search"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr[T any](v T) *T { return &v }

func newClient(t *testing.T) (*Client, *catalog.Repo, *plan.Repo) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "grpc.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	cat := catalog.NewRepo(db)
	plans := plan.NewRepo(db)
	srv := NewServer(search.NewSearcher(cat, utils.SearchConfig{}, nil), cat, plans)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	Register(gs, srv)
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		gs.Stop()
	})
	return NewClient(conn), cat, plans
}

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	c, cat, _ := newClient(t)

	tracks, err := c.Tracks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tracks.Tracks)

	link := "https://x/c/cursos/sql"
	require.NoError(t, cat.ReplaceAll(ctx, []models.LessonRecord{
		{TrackName: "Dados", CourseName: "SQL Básico", CourseLink: link, ModuleName: ptr("Fundamentos"),
			LessonID: ptr(int64(1)), LessonName: ptr("Introdução ao SQL"), LessonSlug: ptr("intro"),
			LessonLink: models.LessonLink(link, "intro"), Completed: ptr(false)},
		{TrackName: "Python", CourseName: "Pandas", CourseLink: "https://x/c/cursos/pandas", ModuleName: ptr("DataFrames"),
			LessonID: ptr(int64(2)), LessonName: ptr("Series"), Completed: ptr(true)},
	}))

	tracks, err = c.Tracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dados", "Python"}, tracks.Tracks)

	res, err := c.Search(ctx, &SearchRequest{Query: "introducao"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, search.MethodFullText, res.Method)
	assert.Equal(t, "SQL Básico", res.Hits[0].CourseName)

	_, err = c.Search(ctx, &SearchRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPlanService(t *testing.T) {
	ctx := context.Background()
	c, _, plans := newClient(t)

	list, err := c.PlanList(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	_, err = plans.Import(ctx, []models.PlanEntry{
		{TrackLabel: "Dados", ModuleLabel: "SQL", WorkloadHours: 3},
		{TrackLabel: "Python", ModuleLabel: "Pandas", WorkloadHours: 1},
	})
	require.NoError(t, err)
	require.NoError(t, plans.SetCompleted(ctx, 1, true))

	list, err = c.PlanList(ctx)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.True(t, list.Items[0].Completed)

	p, err := c.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Progress.Total)
	assert.Equal(t, 1, p.Progress.Completed)
	assert.Equal(t, 1.0, p.Progress.HoursRemaining)
}
