package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(Settings{Name: "discord", MaxFailures: 2, Timeout: time.Minute})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	calls := 0
	failing := func() error { calls++; return boom }
	ok := func() error { calls++; return nil }

	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(ok), ErrOpen)
	assert.Equal(t, 2, calls)

	now = now.Add(time.Minute)
	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, StateOpen, cb.State(), "failed probe reopens")

	now = now.Add(time.Minute)
	assert.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 4, calls)
}
