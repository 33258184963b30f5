package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExportImport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleCatalog()))
	assert.True(t, strings.HasPrefix(buf.String(), "\ufefftrilha_nome,"))
	assert.Contains(t, buf.String(), "Introdução ao SQL")

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog(), got)
}

func TestReadCSV_WidenedIntegers(t *testing.T) {
	in := "trilha_nome,curso_nome,curso_link,modulo_id,aula_id,aula_concluida\n" +
		"Dados,SQL,https://x/c/cursos/sql,101.0,11.0,True\n" +
		"Dados,Vazio,https://x/c/cursos/vazio,,,\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(101), *got[0].ModuleID)
	assert.Equal(t, int64(11), *got[0].LessonID)
	assert.True(t, *got[0].Completed)
	assert.True(t, got[1].IsSentinel())
	assert.Nil(t, got[1].Completed)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("curso_nome,curso_link\nx,y\n"))
	assert.ErrorContains(t, err, "trilha_nome")

	_, err = ReadCSV(strings.NewReader("trilha_nome,curso_nome,curso_link,aula_id\nT,C,L,1.5\n"))
	assert.Error(t, err)
}
