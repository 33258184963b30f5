package plan

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolpe22/plano-jornada/pkg/models"
)

func TestSummarize(t *testing.T) {
	entries := []models.PlanEntry{
		{TrackLabel: "Python", WorkloadHours: 6, Completed: true},
		{TrackLabel: "Análise de Dados", WorkloadHours: 4, Completed: true},
		{TrackLabel: "Análise de Dados", WorkloadHours: 2.5},
		{TrackLabel: "Análise de Dados", WorkloadHours: math.NaN()},
		{TrackLabel: "Python", WorkloadHours: 1},
		{TrackLabel: "Python", WorkloadHours: 1},
	}

	got := Summarize(entries)

	want := models.PlanProgress{
		Total:          6,
		Completed:      2,
		Pending:        4,
		Percent:        100.0 * 2 / 6,
		HoursTotal:     14.5,
		HoursRemaining: 4.5,
		Tracks: []models.TrackProgress{
			{Track: "Análise de Dados", Total: 3, Completed: 1, Percent: 33.3},
			{Track: "Python", Total: 3, Completed: 1, Percent: 33.3},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_Empty(t *testing.T) {
	p := Summarize(nil)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 0.0, p.Percent)
	assert.Empty(t, p.Tracks)
	assert.NotNil(t, p.Tracks)
}

func TestRepoProgress(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(openTestDB(t, true))
	_, err := repo.Import(ctx, samplePlan())
	require.NoError(t, err)
	require.NoError(t, repo.SetCompleted(ctx, 3, true))

	p, err := repo.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 1, p.Completed)
	assert.InDelta(t, 12.5, p.HoursTotal, 1e-9)
	assert.InDelta(t, 6.5, p.HoursRemaining, 1e-9)
	require.Len(t, p.Tracks, 2)
	assert.Equal(t, 100.0, p.Tracks[1].Percent)
}
