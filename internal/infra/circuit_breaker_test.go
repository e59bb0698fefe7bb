package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "erp",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	require.NoError(t, cb.Execute(func() error { return nil }))
	_ = cb.Execute(func() error { return errBoom })

	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}

	clock = clock.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	clock = clock.Add(2 * time.Minute)

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, CBOpen, cb.State())
	assert.Equal(t, "open", cb.State().String())
}
