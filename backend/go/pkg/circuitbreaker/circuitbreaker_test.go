package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func fail() (string, error) { return "", errBackend }
func ok() (string, error)   { return "ok", nil }

func TestBreakerTripsAndRecovers(t *testing.T) {
	cb := New(2, 1, time.Minute).(*breaker)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	_, err := Do(cb, fail)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, Closed, cb.State())

	_, err = Do(cb, fail)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, Open, cb.State())

	_, err = Do(cb, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, HalfOpen, cb.State())

	res, err := Do(cb, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, Closed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 2, time.Second).(*breaker)
	now := time.Now()
	cb.now = func() time.Time { return now }

	_, _ = Do(cb, fail)
	now = now.Add(2 * time.Second)
	_, err := Do(cb, fail)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, Open, cb.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	cb := New(1, 1, time.Minute)
	_, err := Do(cb, func() (int, error) { return 0, context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, cb.State())
}

func TestDisabled(t *testing.T) {
	cb := Disabled()
	for i := 0; i < 10; i++ {
		_, _ = Do(cb, fail)
	}
	assert.Equal(t, Closed, cb.State())
}
