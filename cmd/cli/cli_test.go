package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchFromCSV(t *testing.T) {
	t.Setenv("JORNADA_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))

	link := "https://x/c/cursos/sql"
	path := filepath.Join(t.TempDir(), "catalogo.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, catalog.WriteCSV(f, []models.LessonRecord{
		{TrackName: "Dados", CourseName: "SQL Básico", CourseLink: link, ModuleName: ptr("Fundamentos"),
			LessonID: ptr(int64(1)), LessonName: ptr("Introdução ao SQL"), LessonSlug: ptr("intro"),
			LessonLink: models.LessonLink(link, "intro"), Completed: ptr(false)},
		{TrackName: "Python", CourseName: "Pandas", CourseLink: "https://x/c/cursos/pandas", ModuleName: ptr("DataFrames"),
			LessonID: ptr(int64(2)), LessonName: ptr("Series"), Completed: ptr(false)},
	}))
	require.NoError(t, f.Close())

	out, err := run(t, "", "search", "--from-csv", path, "introdução", "sql")
	require.NoError(t, err)
	assert.Contains(t, out, "SQL Básico")
	assert.Contains(t, out, "via fuzzy")
	assert.NotContains(t, out, "Pandas")

	out, err = run(t, "", "search", "--from-csv", path, "--tracks", "Python", "introdução sql")
	require.NoError(t, err)
	assert.Contains(t, out, "no results")
}

func TestProgressAndReconcileOnEmptyDB(t *testing.T) {
	t.Setenv("JORNADA_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))

	out, err := run(t, "", "progress")
	require.NoError(t, err)
	assert.Contains(t, out, "completed 0 of 0 lessons")

	_, err = run(t, "", "reconcile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plan imported")

	out, err = run(t, "", "tracks")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "operator-pass\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("operator-pass")))

	_, err = run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestWatchCopiesFeed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("{\"type\":\"welcome\"}\n{\"type\":\"run_started\"}\n"))
		_ = conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var out bytes.Buffer
	require.NoError(t, watch(ctx, ln.Addr().String(), &out))
	assert.Equal(t, "{\"type\":\"welcome\"}\n{\"type\":\"run_started\"}\n", out.String())
}

func TestDialable(t *testing.T) {
	assert.Equal(t, "127.0.0.1:9090", dialable(":9090"))
	assert.Equal(t, "feed.local:9090", dialable("feed.local:9090"))
}
