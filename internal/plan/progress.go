package plan

import (
	"math"
	"sort"

	"github.com/stolpe22/plano-jornada/pkg/models"
)

// Summarize computes the dashboard numbers for a plan. Tracks are listed
// alphabetically; their percentages are rounded to one decimal.
func Summarize(entries []models.PlanEntry) models.PlanProgress {
	p := models.PlanProgress{Tracks: []models.TrackProgress{}}
	byTrack := map[string]*models.TrackProgress{}

	for _, e := range entries {
		hours := e.WorkloadHours
		if math.IsNaN(hours) || math.IsInf(hours, 0) {
			hours = 0
		}
		p.Total++
		p.HoursTotal += hours
		if e.Completed {
			p.Completed++
		} else {
			p.HoursRemaining += hours
		}

		tp, ok := byTrack[e.TrackLabel]
		if !ok {
			tp = &models.TrackProgress{Track: e.TrackLabel}
			byTrack[e.TrackLabel] = tp
		}
		tp.Total++
		if e.Completed {
			tp.Completed++
		}
	}

	p.Pending = p.Total - p.Completed
	p.Percent = percent(p.Completed, p.Total)

	for _, tp := range byTrack {
		tp.Percent = math.Round(percent(tp.Completed, tp.Total)*10) / 10
		p.Tracks = append(p.Tracks, *tp)
	}
	sort.Slice(p.Tracks, func(i, j int) bool { return p.Tracks[i].Track < p.Tracks[j].Track })
	return p
}

func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
