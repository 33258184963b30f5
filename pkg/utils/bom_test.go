package utils

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripBOM(t *testing.T) {
	for in, want := range map[string]string{
		BOM + "id,Trilha\n": "id,Trilha\n",
		"id,Trilha\n":       "id,Trilha\n",
		"":                  "",
		BOM:                 "",
	} {
		b, err := io.ReadAll(StripBOM(strings.NewReader(in)))
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}
