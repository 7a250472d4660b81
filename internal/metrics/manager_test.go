package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRegistersOnOwnRegistry(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterCompletions.Inc()
	m.CounterTransitions.WithLabelValues("increase").Inc()
	m.CounterTransitions.WithLabelValues("increase").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterCompletions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterTransitions.WithLabelValues("increase")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// A second manager on a fresh registry must not panic on duplicate registration.
	assert.NotPanics(t, func() { NewTestManager() })
}
