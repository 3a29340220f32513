package circuit_breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_circuitBreaker_Call(t *testing.T) {
	t.Parallel()

	successfulService := func() error { return nil }
	errService := errors.New("service error")
	failingService := func() error { return errService }

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cb := newWithClock(10, 2*time.Second, 0.3, 2, clock)

	for i := 0; i < 20; i++ {
		require.NoError(t, cb.Call(successfulService))
	}
	require.Equal(t, Closed, cb.State())

	// 3 failures out of a window of 10 reach the 0.3 threshold
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Call(failingService), errService)
	}
	require.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrOpenCB)
	require.False(t, called)

	now = now.Add(3 * time.Second)
	require.NoError(t, cb.Call(successfulService))
	require.Equal(t, HalfOpen, cb.State())

	require.ErrorIs(t, cb.Call(failingService), errService)
	require.Equal(t, Open, cb.State())

	now = now.Add(3 * time.Second)
	require.NoError(t, cb.Call(successfulService))
	require.NoError(t, cb.Call(successfulService))
	require.Equal(t, Closed, cb.State())
}

func Test_circuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := New(2, time.Minute, 0.5, 1)
	_ = cb.Call(func() error { return errors.New("boom") })
	require.Equal(t, Open, cb.State())

	cb.Reset()
	require.Equal(t, Closed, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))
}
