package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProgression_PromotesAfterThreeLowPainDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	a.Sets = 5
	require.NoError(t, f.assignments.Save(ctx, a))

	res := f.complete(t, user, a, 2)
	assert.Equal(t, CompletionFlags{}, res.Flags)
	f.nextDay()
	res = f.complete(t, user, a, 1)
	assert.Equal(t, CompletionFlags{}, res.Flags)
	f.nextDay()
	res = f.complete(t, user, a, 2)
	assert.Equal(t, CompletionFlags{ShouldIncrease: true}, res.Flags)
	assert.False(t, res.Transitioned)
	assert.True(t, f.reload(t, a.ID).IsActive, "flags alone change nothing")

	ok, err := f.completion.CanIncrease(ctx, user, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := f.completion.ConfirmTransition(ctx, user, a.ID, domain.DirectionIncrease, true)
	require.NoError(t, err)
	require.NotNil(t, out.Assignment)
	assert.Equal(t, squats[domain.DifficultyIntermediate].ID, out.Assignment.VariantID)
	assert.True(t, out.Assignment.IsActive)
	assert.Equal(t, 5, out.Assignment.Sets, "prescription is copied from the source")
	assert.Equal(t, 0, out.Assignment.PainLevel)
	assert.Equal(t, clock.Today(f.clock), out.Assignment.DateActivated)

	old := f.reload(t, a.ID)
	assert.False(t, old.IsActive)
	require.NotNil(t, old.DateDeactivated)
	assert.Equal(t, clock.Today(f.clock), *old.DateDeactivated)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CounterTransitions.WithLabelValues("increase")))
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.CounterCompletions))
}

func TestProgression_HighPainAtIntermediateSuggestsDecrease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])

	res := f.complete(t, user, a, 7)
	assert.Equal(t, CompletionFlags{ShouldDecrease: true}, res.Flags)

	out, err := f.completion.ConfirmTransition(ctx, user, a.ID, domain.DirectionDecrease, true)
	require.NoError(t, err)
	require.NotNil(t, out.Assignment)
	assert.Equal(t, squats[domain.DifficultyBeginner].ID, out.Assignment.VariantID)
	assert.False(t, f.reload(t, a.ID).IsActive)
}

func TestProgression_ThresholdIsInclusive(t *testing.T) {
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyAdvanced])

	res := f.complete(t, user, a, 4)
	assert.Equal(t, CompletionFlags{ShouldDecrease: true}, res.Flags)

	f.nextDay()
	res = f.complete(t, user, a, 3)
	assert.Equal(t, CompletionFlags{}, res.Flags)
}

func TestProgression_AutoApplyMovesImmediately(t *testing.T) {
	f := newFixture(t, fixtureOpts{autoApply: true})
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])

	res := f.complete(t, user, a, 7)
	assert.True(t, res.Flags.ShouldDecrease)
	assert.True(t, res.Transitioned)
	require.NotNil(t, res.Assignment)
	assert.Equal(t, squats[domain.DifficultyBeginner].ID, res.Assignment.VariantID)
	assert.False(t, f.reload(t, a.ID).IsActive)
}

func TestProgression_BeginnerHighPainOnlyFlagsRemoval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{autoApply: true})
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	res := f.complete(t, user, a, 8)
	assert.Equal(t, CompletionFlags{ShouldRemove: true}, res.Flags)
	assert.False(t, res.Transitioned)

	got := f.reload(t, a.ID)
	assert.True(t, got.IsActive)
	assert.Equal(t, squats[domain.DifficultyBeginner].ID, got.VariantID)

	active, err := f.assignments.ListActive(ctx, user)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	out, err := f.completion.ConfirmTransition(ctx, user, a.ID, domain.DirectionRemove, true)
	require.NoError(t, err)
	require.NotNil(t, out.Assignment)
	assert.False(t, out.Assignment.IsActive)

	inactive, err := f.assignments.ListInactive(ctx, user)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, a.ID, inactive[0].Assignment.ID)
	assert.Equal(t, "Squats", inactive[0].Category.Name)
}

func TestProgression_AdvancedIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyAdvanced])

	for i := 0; i < 3; i++ {
		res := f.complete(t, user, a, 1)
		assert.Equal(t, CompletionFlags{}, res.Flags)
		f.nextDay()
	}

	ok, err := f.completion.CanIncrease(ctx, user, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	out, err := f.completion.ConfirmTransition(ctx, user, a.ID, domain.DirectionIncrease, true)
	require.NoError(t, err)
	assert.Nil(t, out.Assignment)
	assert.True(t, f.reload(t, a.ID).IsActive)
}

func TestProgression_FewerThanWindowNeverPromotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	f.complete(t, user, a, 0)
	f.nextDay()
	res := f.complete(t, user, a, 0)
	assert.False(t, res.Flags.ShouldIncrease)

	low, err := f.engine.HasConsistentLowPain(ctx, f.reload(t, a.ID))
	require.NoError(t, err)
	assert.False(t, low)

	out, err := f.completion.ConfirmTransition(ctx, user, a.ID, domain.DirectionIncrease, true)
	require.NoError(t, err)
	assert.Equal(t, "Not eligible to increase difficulty yet", out.Message)
	assert.Nil(t, out.Assignment)
	assert.True(t, f.reload(t, a.ID).IsActive)
}

func TestProgression_SameDayCompletionsCountOnce(t *testing.T) {
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	for i := 0; i < 3; i++ {
		res := f.complete(t, user, a, 1)
		assert.False(t, res.Flags.ShouldIncrease)
	}
}

func TestProgression_WindowUsesNewestReadings(t *testing.T) {
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	pains := []int{1, 1, 5, 1, 1, 1}
	var res *CompletionResult
	for i, p := range pains {
		res = f.complete(t, user, a, p)
		if i < len(pains)-1 {
			assert.False(t, res.Flags.ShouldIncrease, "day %d", i)
		}
		f.nextDay()
	}
	assert.True(t, res.Flags.ShouldIncrease)
}

func TestProgression_CatalogGapIsANoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lunges := f.ladder(t, "Lunges", domain.DifficultyBeginner, domain.DifficultyAdvanced)
	user := f.patient(t)
	beginner := f.assign(t, user, lunges[domain.DifficultyBeginner])
	advanced := f.assign(t, user, lunges[domain.DifficultyAdvanced])

	for i := 0; i < 3; i++ {
		res := f.complete(t, user, beginner, 1)
		assert.Equal(t, CompletionFlags{}, res.Flags)
		f.nextDay()
	}

	res := f.complete(t, user, advanced, 9)
	assert.Equal(t, CompletionFlags{}, res.Flags)

	out, err := f.completion.ConfirmTransition(ctx, user, advanced.ID, domain.DirectionDecrease, true)
	require.NoError(t, err)
	assert.Nil(t, out.Assignment)
	assert.True(t, f.reload(t, advanced.ID).IsActive)
}

func TestProgression_ReturningReusesDormantRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyBeginner])

	for i := 0; i < 3; i++ {
		f.complete(t, user, a, 1)
		f.nextDay()
	}
	up, err := f.completion.ConfirmTransition(ctx, user, a.ID, domain.DirectionIncrease, true)
	require.NoError(t, err)
	require.NotNil(t, up.Assignment)

	f.complete(t, user, up.Assignment, 6)
	down, err := f.completion.ConfirmTransition(ctx, user, up.Assignment.ID, domain.DirectionDecrease, true)
	require.NoError(t, err)
	require.NotNil(t, down.Assignment)

	assert.Equal(t, a.ID, down.Assignment.ID)
	assert.True(t, down.Assignment.IsActive)
	assert.Nil(t, down.Assignment.DateDeactivated)
	assert.Equal(t, 0, down.Assignment.PainLevel)
	assert.False(t, down.Assignment.Completed)

	all, err := f.store.Assignments().ListByUser(ctx, user, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProgression_ProgressDecidesAndApplies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	user := f.patient(t)
	a := f.assign(t, user, squats[domain.DifficultyIntermediate])

	next, decision, err := f.engine.Progress(ctx, user, "Intermediate Squats", 6)
	require.NoError(t, err)
	assert.Equal(t, DecisionDecrease, decision.Kind)
	assert.Equal(t, domain.DifficultyIntermediate, decision.From)
	require.NotNil(t, next)
	assert.Equal(t, squats[domain.DifficultyBeginner].ID, next.VariantID)
	assert.False(t, f.reload(t, a.ID).IsActive)

	next, decision, err = f.engine.Progress(ctx, user, "Unknown", 6)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, DecisionNone, decision.Kind)

	_, _, err = f.engine.Progress(ctx, user, "Beginner Squats", 11)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestProgression_MissingVariantIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	orphan := &domain.Assignment{ID: primitive.NewObjectID(), VariantID: primitive.NewObjectID(), IsActive: true}

	d, err := f.engine.Decide(ctx, orphan, 9)
	require.NoError(t, err)
	assert.Equal(t, DecisionNone, d.Kind)

	next, err := f.engine.NextVariant(ctx, orphan, domain.DirectionDecrease)
	require.NoError(t, err)
	assert.Nil(t, next)

	_, err = f.catalog.FindVariant(ctx, primitive.NewObjectID(), domain.DifficultyBeginner)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
