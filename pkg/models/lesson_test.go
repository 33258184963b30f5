package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonLink(t *testing.T) {
	link := LessonLink("https://x.test/c/cursos/sql?tab=modules", "select-basico")
	require.NotNil(t, link)
	assert.Equal(t, "https://x.test/c/cursos/sql?lessonSlug=select-basico", *link)

	assert.Nil(t, LessonLink("https://x.test/c/cursos/sql", ""))
	assert.Nil(t, LessonLink("https://x.test/c/cursos/sql", "  "))
}

func TestSentinelRecord(t *testing.T) {
	r := SentinelRecord("Dados", "SQL", "/c/cursos/sql")
	assert.True(t, r.IsSentinel())
	assert.Equal(t, SentinelName, StringValue(r.ModuleName))
	assert.Equal(t, SentinelName, StringValue(r.LessonName))
	assert.Nil(t, r.LessonLink)
	assert.Nil(t, r.Completed)
	assert.Nil(t, r.ModuleID)
}
