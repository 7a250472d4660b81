package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCompletion_OneSessionPerDayWithMeanPain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	lunges := f.ladder(t, "Lunges", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])
	b := f.assign(t, user, lunges[domain.DifficultyIntermediate])

	f.complete(t, user, a, 2)
	f.complete(t, user, b, 6)

	today := clock.Today(f.clock)
	session, err := f.store.Sessions().GetByUserAndDate(ctx, user, today)
	require.NoError(t, err)
	assert.Equal(t, 4.0, session.PainLevel)

	entries, err := f.store.Sessions().ListEntries(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a.ID, entries[0].AssignmentID)
	assert.Equal(t, b.ID, entries[1].AssignmentID)

	// A second completion of the same assignment overwrites its entry.
	_, err = f.completion.RecordCompletion(ctx, user, a.ID, 1, 5, 3, true)
	require.NoError(t, err)
	entries, err = f.store.Sessions().ListEntries(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a.ID, entries[0].AssignmentID, "entry keeps its position")
	assert.Equal(t, 3, entries[0].PainLevel)
	assert.Equal(t, 1, entries[0].CompletedSets)

	session, err = f.store.Sessions().GetByUserAndDate(ctx, user, today)
	require.NoError(t, err)
	assert.Equal(t, 4.5, session.PainLevel)

	got := f.reload(t, a.ID)
	assert.True(t, got.Completed)
	assert.Equal(t, 3, got.PainLevel)
}

func TestRecordCompletion_ConcurrentCompletionsShareSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.patient(t)

	var assignments []*domain.Assignment
	for i := 0; i < 6; i++ {
		ladder := f.ladder(t, fmt.Sprintf("Exercise %d", i), domain.DifficultyIntermediate)
		assignments = append(assignments, f.assign(t, user, ladder[domain.DifficultyIntermediate]))
	}

	var wg sync.WaitGroup
	for i, a := range assignments {
		wg.Add(1)
		go func(a *domain.Assignment, pain int) {
			defer wg.Done()
			_, err := f.completion.RecordCompletion(ctx, user, a.ID, 3, 10, pain, true)
			assert.NoError(t, err)
		}(a, i%4)
	}
	wg.Wait()

	sessions, err := f.store.Sessions().ListRecent(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	entries, err := f.store.Sessions().ListEntries(ctx, sessions[0].ID)
	require.NoError(t, err)
	assert.Len(t, entries, len(assignments))
	assert.InDelta(t, domain.MeanPain(entries), sessions[0].PainLevel, 1e-9)
}

func TestRecordCompletion_NotCompletedRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])

	res, err := f.completion.RecordCompletion(ctx, user, a.ID, 0, 0, 9, false)
	require.NoError(t, err)
	assert.Equal(t, CompletionFlags{}, res.Flags)

	_, err = f.store.Sessions().GetByUserAndDate(ctx, user, clock.Today(f.clock))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, f.reload(t, a.ID).Completed)
}

func TestRecordCompletion_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user, other := f.patient(t), f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])

	tests := []struct {
		name    string
		sets    int
		reps    int
		pain    int
		wantErr error
	}{
		{"pain above range", 3, 10, 11, ErrValidation},
		{"negative pain", 3, 10, -1, ErrValidation},
		{"negative sets", -1, 10, 2, ErrValidation},
		{"negative reps", 3, -2, 2, ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.completion.RecordCompletion(ctx, user, a.ID, tc.sets, tc.reps, tc.pain, true)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err := f.completion.RecordCompletion(ctx, other, a.ID, 3, 10, 2, true)
	assert.ErrorIs(t, err, ErrAssignmentAccessDenied)

	require.NoError(t, f.assignments.Deactivate(ctx, a))
	_, err = f.completion.RecordCompletion(ctx, user, a.ID, 3, 10, 2, true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmTransition_DeclineChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])
	f.complete(t, user, a, 9)

	out, err := f.completion.ConfirmTransition(ctx, user, a.ID, domain.DirectionDecrease, false)
	require.NoError(t, err)
	assert.Equal(t, "No changes made", out.Message)
	assert.Nil(t, out.Assignment)
	assert.True(t, f.reload(t, a.ID).IsActive)

	_, err = f.completion.ConfirmTransition(ctx, user, a.ID, domain.Direction("sideways"), true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.patient(t)
	today := f.sessions.Today()

	session, err := f.sessions.UpdateNotes(ctx, user, today, "knee felt stiff")
	require.NoError(t, err)
	assert.Equal(t, "knee felt stiff", session.Notes)

	stored, err := f.store.Sessions().GetByUserAndDate(ctx, user, today)
	require.NoError(t, err)
	assert.Equal(t, "knee felt stiff", stored.Notes)
	assert.Equal(t, session.ID, stored.ID)

	_, err = f.sessions.UpdateNotes(ctx, user, today, strings.Repeat("x", maxNotesLength+1))
	assert.ErrorIs(t, err, ErrValidation)

	// The limit counts characters, not bytes.
	accented := strings.Repeat("é", maxNotesLength)
	session, err = f.sessions.UpdateNotes(ctx, user, today, accented)
	require.NoError(t, err)
	assert.Equal(t, accented, session.Notes)

	_, err = f.sessions.UpdateNotes(ctx, user, today, accented+"é")
	assert.ErrorIs(t, err, ErrValidation)
}
