package jobs

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/lock"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/repository/memory"
	"alcyxob/rehab-app/internal/service"
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := clock.NewFake(time.Date(2026, time.October, 19, 23, 0, 0, 0, time.UTC))
	m := metrics.NewTestManager()
	assignments := service.NewAssignmentService(
		store.Assignments(), store.Variants(), store.Categories(), store.InjuryTypes(), store.Users(),
		lock.NewLocal(), clk, m, logger.NewNop(),
	)

	for i := 0; i < 5; i++ {
		_, err := store.Users().Create(ctx, &domain.User{
			Name:         gofakeit.Name(),
			Email:        gofakeit.Email(),
			PasswordHash: "hash",
			Role:         domain.RolePatient,
		})
		require.NoError(t, err)
	}

	report, err := ResetAll(ctx, store.Users(), assignments, 2, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ResetReport{Users: 5, Reset: 5}, report)

	report, err = ResetAll(ctx, store.Users(), assignments, 2, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ResetReport{Users: 5}, report, "second run on the same day is a no-op")

	clk.Advance(2 * time.Hour)
	report, err = ResetAll(ctx, store.Users(), assignments, 0, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Reset)
	assert.Equal(t, 10.0, testutil.ToFloat64(m.CounterResets))
}

func TestResetAllCancelled(t *testing.T) {
	store := memory.New()
	clk := clock.NewFake(time.Now())
	assignments := service.NewAssignmentService(
		store.Assignments(), store.Variants(), store.Categories(), store.InjuryTypes(), store.Users(),
		lock.NewLocal(), clk, metrics.NewTestManager(), logger.NewNop(),
	)
	_, err := store.Users().Create(context.Background(), &domain.User{Name: "a", Email: "a@example.com", PasswordHash: "hash", Role: domain.RolePatient})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ResetAll(ctx, store.Users(), assignments, 1, logger.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
