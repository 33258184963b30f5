package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

// CSV column names of the flat catalog export.
var csvHeader = []string{
	"trilha_nome", "curso_nome", "curso_link",
	"modulo_id", "modulo_nome",
	"aula_id", "aula_nome", "aula_slug", "aula_link", "aula_concluida",
	"aula_sumario", "aula_conteudo",
}

// WriteCSV writes recs as UTF-8 CSV with a byte order mark, so spreadsheet
// tools keep accented names intact.
func WriteCSV(w io.Writer, recs []models.LessonRecord) error {
	if _, err := io.WriteString(w, utils.BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range recs {
		row := []string{
			r.TrackName, r.CourseName, r.CourseLink,
			intField(r.ModuleID), strField(r.ModuleName),
			intField(r.LessonID), strField(r.LessonName), strField(r.LessonSlug), strField(r.LessonLink),
			boolField(r.Completed),
			strField(r.Summary), strField(r.Content),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a flat catalog export. Track, course and course link are
// required columns; the rest may be absent or blank.
func ReadCSV(r io.Reader) ([]models.LessonRecord, error) {
	cr := csv.NewReader(utils.StripBOM(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, req := range []string{"trilha_nome", "curso_nome", "curso_link"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}

	var out []models.LessonRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := models.LessonRecord{
			TrackName:  get("trilha_nome"),
			CourseName: get("curso_nome"),
			CourseLink: get("curso_link"),
			ModuleName: optString(get("modulo_nome")),
			LessonName: optString(get("aula_nome")),
			LessonSlug: optString(get("aula_slug")),
			LessonLink: optString(get("aula_link")),
			Summary:    optString(get("aula_sumario")),
			Content:    optString(get("aula_conteudo")),
		}
		if rec.ModuleID, err = optInt(get("modulo_id")); err != nil {
			return nil, fmt.Errorf("line %d modulo_id: %w", line, err)
		}
		if rec.LessonID, err = optInt(get("aula_id")); err != nil {
			return nil, fmt.Errorf("line %d aula_id: %w", line, err)
		}
		if rec.Completed, err = optBool(get("aula_concluida")); err != nil {
			return nil, fmt.Errorf("line %d aula_concluida: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func strField(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intField(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func boolField(p *bool) string {
	if p == nil {
		return ""
	}
	return strconv.FormatBool(*p)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optInt also accepts whole floats ("101.0"), as written by tools that widen
// integer columns holding blanks.
func optInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	n := int64(f)
	return &n, nil
}

func optBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
