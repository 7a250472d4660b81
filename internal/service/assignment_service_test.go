package service

import (
	"alcyxob/rehab-app/internal/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReactivate_CategoryConflictLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)

	beginner := f.assign(t, user, squats[domain.DifficultyBeginner])
	require.NoError(t, f.assignments.Deactivate(ctx, beginner))
	f.assign(t, user, squats[domain.DifficultyIntermediate])
	before := f.reload(t, beginner.ID)

	_, err := f.assignments.Reactivate(ctx, user, beginner.ID)
	var conflict *CategoryConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "You already have an active Squats exercise at Intermediate level", conflict.Error())
	assert.Equal(t, before, f.reload(t, beginner.ID))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CounterCategoryConflicts))
}

func TestReactivate_NoConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	lunges := f.ladder(t, "Lunges", fullLadder()...)
	user := f.patient(t)

	a := f.assign(t, user, squats[domain.DifficultyBeginner])
	f.assign(t, user, lunges[domain.DifficultyBeginner])
	require.NoError(t, f.assignments.Deactivate(ctx, a))

	activated := a.DateActivated
	f.nextDay()
	details, err := f.assignments.Reactivate(ctx, user, a.ID)
	require.NoError(t, err)
	assert.True(t, details.Assignment.IsActive)
	assert.Nil(t, details.Assignment.DateDeactivated)
	assert.Equal(t, activated, details.Assignment.DateActivated)
	assert.Equal(t, "Beginner Squats", details.Variant.Name)
	assert.Equal(t, "Squats", details.Category.Name)

	again, err := f.assignments.Reactivate(ctx, user, a.ID)
	require.NoError(t, err)
	assert.Equal(t, details.Assignment.ID, again.Assignment.ID)
}

func TestReactivate_ForeignAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	owner, other := f.patient(t), f.patient(t)
	a := f.assign(t, owner, squats[domain.DifficultyBeginner])

	_, err := f.assignments.Reactivate(ctx, other, a.ID)
	assert.ErrorIs(t, err, ErrAssignmentAccessDenied)

	_, err = f.assignments.Reactivate(ctx, owner, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestDeactivate_KeepsOriginalDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", domain.DifficultyBeginner)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	require.NoError(t, f.assignments.Deactivate(ctx, a))
	first := *f.reload(t, a.ID).DateDeactivated

	f.nextDay()
	again := f.reload(t, a.ID)
	require.NoError(t, f.assignments.Deactivate(ctx, again))
	assert.Equal(t, first, *f.reload(t, a.ID).DateDeactivated)
}

func TestResetDaily_OncePerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", domain.DifficultyBeginner)
	lunges := f.ladder(t, "Lunges", domain.DifficultyBeginner)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])
	dormant := f.assign(t, user, lunges[domain.DifficultyBeginner])

	reset, err := f.assignments.ResetDaily(ctx, user)
	require.NoError(t, err)
	assert.True(t, reset, "first reset ever")

	f.complete(t, user, a, 2)
	f.complete(t, user, dormant, 3)
	require.NoError(t, f.assignments.Deactivate(ctx, f.reload(t, dormant.ID)))

	f.clock.Advance(time.Hour)
	reset, err = f.assignments.ResetDaily(ctx, user)
	require.NoError(t, err)
	assert.False(t, reset)
	got := f.reload(t, a.ID)
	assert.True(t, got.Completed)
	assert.Equal(t, 2, got.PainLevel)

	u, err := f.store.Users().GetByID(ctx, user)
	require.NoError(t, err)
	stamp := *u.LastReset

	f.nextDay()
	reset, err = f.assignments.ResetDaily(ctx, user)
	require.NoError(t, err)
	assert.True(t, reset)
	got = f.reload(t, a.ID)
	assert.False(t, got.Completed)
	assert.Equal(t, 0, got.PainLevel)
	assert.Equal(t, 3, f.reload(t, dormant.ID).PainLevel, "inactive rows are left alone")

	u, err = f.store.Users().GetByID(ctx, user)
	require.NoError(t, err)
	assert.True(t, u.LastReset.After(stamp))

	reset, err = f.assignments.ResetDaily(ctx, user)
	require.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CounterResets))
}

func TestResetDaily_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.assignments.ResetDaily(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProvision_OneAssignmentPerCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	lunges := f.ladder(t, "Lunges", fullLadder()...)
	user := f.patient(t)

	injury, err := f.catalog.CreateInjuryType(ctx, "Knee sprain", "", []primitive.ObjectID{
		squats[domain.DifficultyIntermediate].ID,
		squats[domain.DifficultyBeginner].ID,
		lunges[domain.DifficultyBeginner].ID,
	})
	require.NoError(t, err)

	created, err := f.assignments.Provision(ctx, user, injury.ID)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, squats[domain.DifficultyIntermediate].ID, created[0].VariantID)
	assert.Equal(t, lunges[domain.DifficultyBeginner].ID, created[1].VariantID)
	assert.Equal(t, 3, created[0].Sets)
	assert.Equal(t, 10, created[0].Reps)

	again, err := f.assignments.Provision(ctx, user, injury.ID)
	require.NoError(t, err)
	assert.Empty(t, again, "categories with an active assignment are skipped")

	_, err = f.assignments.Provision(ctx, user, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrInjuryTypeNotFound)
}

func TestGetActive_ByVariantName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	got, err := f.assignments.GetActive(ctx, user, "Beginner Squats")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, f.assignments.Deactivate(ctx, got))
	got, err = f.assignments.GetActive(ctx, user, "Beginner Squats")
	require.NoError(t, err)
	assert.Nil(t, got)
}
