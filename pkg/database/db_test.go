package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "data.db"), Driver: DriverPure})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	// idempotent
	require.NoError(t, Migrate(db))

	for _, table := range []string{"lessons", "lessons_fts", "plan_entries", "crawl_runs"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestFullTextTriggersFollowLessons(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "data.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO lessons (track_name, course_name, course_link, lesson_id, lesson_name)
		VALUES ('Dados', 'SQL Básico', '/c/cursos/sql', 1, 'Introdução')`)
	require.NoError(t, err)

	count := func(match string) int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM lessons_fts WHERE lessons_fts MATCH ?`, match).Scan(&n))
		return n
	}
	assert.Equal(t, 1, count("introducao"), "diacritics are folded by the tokenizer")

	_, err = db.Exec(`UPDATE lessons SET lesson_name = 'Joins' WHERE lesson_id = 1`)
	require.NoError(t, err)
	assert.Equal(t, 0, count("introducao"))
	assert.Equal(t, 1, count("joins"))

	_, err = db.Exec(`DELETE FROM lessons`)
	require.NoError(t, err)
	assert.Equal(t, 0, count("joins"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.True(t, errors.Is(Classify(errors.New("SQL logic error: no such table: lessons (1)")), ErrStoreUnavailable))

	other := errors.New("constraint failed")
	assert.Equal(t, other, Classify(other))
}
