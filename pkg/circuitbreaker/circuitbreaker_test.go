package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var transitions []State
	cb := NewCircuitBreaker(Settings{
		Name:        "test",
		MaxFailures: 2,
		Timeout:     time.Second,
		OnStateChange: func(_ string, _, to State) {
			transitions = append(transitions, to)
		},
	})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	calls := 0
	failing := func() error { calls++; return boom }

	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(failing), ErrOpen)
	assert.Equal(t, 2, calls)

	// A failed probe reopens immediately.
	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(failing), boom)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{MaxFailures: 2})
	boom := errors.New("boom")

	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, StateClosed, cb.State())
}
