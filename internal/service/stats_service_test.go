package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type statsScenario struct {
	f     *fixture
	user  primitive.ObjectID
	squat *domain.Assignment
	lunge *domain.Assignment
}

// twoDays records Monday (squat pain 2) and Tuesday (squat pain 3, lunge pain 5).
func twoDays(t *testing.T) *statsScenario {
	t.Helper()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	lunges := f.ladder(t, "Lunges", fullLadder()...)
	s := &statsScenario{f: f, user: f.patient(t)}
	s.squat = f.assign(t, s.user, squats[domain.DifficultyIntermediate])
	s.lunge = f.assign(t, s.user, lunges[domain.DifficultyIntermediate])

	f.complete(t, s.user, s.squat, 2)
	f.nextDay()
	f.complete(t, s.user, s.squat, 3)
	f.complete(t, s.user, s.lunge, 5)
	return s
}

func TestAdherenceStats_SingleCompletionOfTwo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	lunges := f.ladder(t, "Lunges", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])
	f.assign(t, user, lunges[domain.DifficultyIntermediate])
	f.complete(t, user, a, 2)

	report, err := f.stats.GetAdherenceStats(ctx, user, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tue", "Wed", "Thu", "Fri", "Sat", "Sun", "Mon"}, report.Labels)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 50}, report.Values)
	assert.Equal(t, 50.0, report.Average)

	require.Len(t, report.History, 1)
	h := report.History[0]
	assert.Equal(t, "Mon, Oct 19", h.DisplayDate)
	assert.Equal(t, "1/2", h.Ratio)
	assert.Equal(t, 1, h.Completed)
	assert.Equal(t, 2, h.Total)
	assert.Equal(t, 2.0, h.PainLevel)
}

func TestAdherenceStats_AcrossDays(t *testing.T) {
	ctx := context.Background()
	s := twoDays(t)

	report, err := s.f.stats.GetAdherenceStats(ctx, s.user, nil)
	require.NoError(t, err)
	assert.Equal(t, clock.Today(s.f.clock), report.End)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 50, 100}, report.Values)
	assert.Equal(t, 75.0, report.Average)

	require.Len(t, report.History, 2)
	assert.Equal(t, "Tue, Oct 20", report.History[0].DisplayDate)
	assert.Equal(t, "2/2", report.History[0].Ratio)
	assert.Equal(t, "Mon, Oct 19", report.History[1].DisplayDate)
	assert.Equal(t, "1/2", report.History[1].Ratio)

	monday := day0
	report, err = s.f.stats.GetAdherenceStats(ctx, s.user, &monday)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 50}, report.Values)
	assert.Len(t, report.History, 1)
}

func TestAdherenceStats_DeactivatedDayIsNotCounted(t *testing.T) {
	ctx := context.Background()
	s := twoDays(t)
	s.f.nextDay()

	require.NoError(t, s.f.assignments.Deactivate(ctx, s.f.reload(t, s.lunge.ID)))
	s.f.complete(t, s.user, s.squat, 1)

	report, err := s.f.stats.GetAdherenceStats(ctx, s.user, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 50, 100, 100}, report.Values)
	assert.Equal(t, "1/1", report.History[0].Ratio)
}

func TestAdherenceStats_ReactivationKeepsPastDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	f.complete(t, user, a, 2)
	f.nextDay()
	require.NoError(t, f.assignments.Deactivate(ctx, f.reload(t, a.ID)))
	f.nextDay()
	_, err := f.assignments.Reactivate(ctx, user, a.ID)
	require.NoError(t, err)

	monday := day0
	report, err := f.stats.GetAdherenceStats(ctx, user, &monday)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 100}, report.Values)
	require.Len(t, report.History, 1)
	assert.Equal(t, "1/1", report.History[0].Ratio)

	again, err := f.assignments.UpsertAtDifficulty(ctx, user, squats[domain.DifficultyBeginner], nil)
	require.NoError(t, err)
	assert.Equal(t, clock.Day(day0, f.clock.Location()), again.DateActivated)
}

func TestAdherenceStats_Empty(t *testing.T) {
	f := newFixture(t)
	report, err := f.stats.GetAdherenceStats(context.Background(), f.patient(t), nil)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 7), report.Values)
	assert.Len(t, report.Labels, 7)
	assert.Zero(t, report.Average)
	assert.Empty(t, report.History)
}

func TestPainStats(t *testing.T) {
	ctx := context.Background()
	s := twoDays(t)

	report, err := s.f.stats.GetPainStats(ctx, s.user, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 2, 4}, report.Values)
	assert.Equal(t, 3.3, report.Average)

	require.Len(t, report.History, 2)
	assert.Equal(t, 2, report.History[0].EntryCount)
	assert.Equal(t, 4.0, report.History[0].PainLevel)
	assert.Equal(t, 1, report.History[1].EntryCount)
}

func TestExerciseHistory(t *testing.T) {
	ctx := context.Background()
	s := twoDays(t)
	_, err := s.f.sessions.UpdateNotes(ctx, s.user, s.f.sessions.Today(), "better today")
	require.NoError(t, err)

	history, err := s.f.stats.GetExerciseHistory(ctx, s.user, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	latest := history[0]
	assert.Equal(t, "2026-10-20", latest.Date)
	assert.Equal(t, "Tuesday, October 20, 2026", latest.FormattedDate)
	assert.Equal(t, "better today", latest.Notes)
	assert.Equal(t, 4.0, latest.PainLevel)
	require.Len(t, latest.Exercises, 2)
	assert.Equal(t, ExerciseDetail{Name: "Intermediate Squats", CompletedSets: 3, CompletedReps: 10, PainLevel: 3}, latest.Exercises[0])
	assert.Equal(t, "Intermediate Lunges", latest.Exercises[1].Name)

	assert.Equal(t, "Monday, October 19, 2026", history[1].FormattedDate)

	history, err = s.f.stats.GetExerciseHistory(ctx, s.user, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
