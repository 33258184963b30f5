package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"course", "SQL", "csrf_token", "abc", "Password", "hunter2", "dangling"})
	assert.Equal(t, []interface{}{"course", "SQL", "csrf_token", "[REDACTED]", "Password", "[REDACTED]", "dangling"}, got)
}

func TestLoggerRedactsCredentials(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("email", "me@example.com").Info("authenticated", "landing", "/s/conteudos")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "[REDACTED]", fields["email"])
		assert.Equal(t, "/s/conteudos", fields["landing"])
	}
}
