package plan

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

// ExportFilename is what download endpoints suggest to the browser.
const ExportFilename = "plano_de_estudos_com_links.csv"

var exportHeader = []string{"id", "Trilha", "Módulo", "Carga Horária (h)", "Objetivo", "aula_link", "aula_concluida"}

// Accepted spellings per column, compared after lowercasing.
var (
	trackCols     = []string{"trilha", "track"}
	moduleCols    = []string{"módulo", "modulo", "module"}
	workloadCols  = []string{"carga horária (h)", "carga horaria (h)", "workload_hours", "hours"}
	objectiveCols = []string{"objetivo", "objective"}
)

// ReadCSV parses a study plan. Track, module and workload columns are
// required; objective is optional. Unparseable workloads count as zero.
func ReadCSV(r io.Reader) ([]models.PlanEntry, error) {
	cr := csv.NewReader(utils.StripBOM(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := col[key]; !dup {
			col[key] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := col[n]; ok {
				return i
			}
		}
		return -1
	}

	track, module, workload, objective := find(trackCols), find(moduleCols), find(workloadCols), find(objectiveCols)
	switch {
	case track < 0:
		return nil, fmt.Errorf("missing column %q", "Trilha")
	case module < 0:
		return nil, fmt.Errorf("missing column %q", "Módulo")
	case workload < 0:
		return nil, fmt.Errorf("missing column %q", "Carga Horária (h)")
	}

	var out []models.PlanEntry
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if isBlank(row) {
			continue
		}
		out = append(out, models.PlanEntry{
			TrackLabel:    get(track),
			ModuleLabel:   get(module),
			WorkloadHours: parseHours(get(workload)),
			Objective:     get(objective),
		})
	}
	return out, nil
}

// WriteCSV writes the enriched plan with a byte order mark.
func WriteCSV(w io.Writer, entries []models.PlanEntry) error {
	if _, err := io.WriteString(w, utils.BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.TrackLabel,
			e.ModuleLabel,
			strconv.FormatFloat(e.WorkloadHours, 'f', -1, 64),
			e.Objective,
			models.StringValue(e.LessonLink),
			strconv.FormatBool(e.Completed),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseHours(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

