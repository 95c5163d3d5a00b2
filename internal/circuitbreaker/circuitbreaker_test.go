package circuitbreaker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/paypal-checkout/internal/circuitbreaker"
)

const (
	testHost    = "api-m.sandbox.paypal.com"
	anotherHost = "api-m.paypal.com"
)

func TestNewCircuitBreaker(t *testing.T) {
	t.Run("Default config", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
		require.NotNil(t, cb)
		for i := 0; i < 4; i++ {
			cb.RecordFailure(testHost)
		}
		assert.True(t, cb.AllowRequest(testHost), "Should still be closed after 4 failures")
		cb.RecordFailure(testHost)
		assert.False(t, cb.AllowRequest(testHost), "Should be open after 5 failures with default config")
	})

	t.Run("Custom config", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 2, ResetTimeout: time.Minute})
		cb.RecordFailure(testHost)
		assert.True(t, cb.AllowRequest(testHost))
		cb.RecordFailure(testHost)
		assert.False(t, cb.AllowRequest(testHost))
		assert.True(t, cb.AllowRequest(anotherHost), "hosts are tracked independently")
	})
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	cfg := circuitbreaker.Config{
		FailureThreshold:         2,
		ResetTimeout:             50 * time.Millisecond, // Short for testing
		HalfOpenSuccessThreshold: 2,
	}

	t.Run("Closed_To_Open", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		state, failures := cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateClosed, state)
		assert.Equal(t, 0, failures)

		cb.RecordFailure(testHost)
		state, failures = cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateClosed, state)
		assert.Equal(t, 1, failures)

		cb.RecordFailure(testHost)
		state, _ = cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateOpen, state)
		assert.False(t, cb.AllowRequest(testHost))
	})

	t.Run("Open_To_HalfOpen_To_Closed", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		cb.RecordFailure(testHost)
		cb.RecordFailure(testHost)
		time.Sleep(cfg.ResetTimeout + 20*time.Millisecond)

		assert.True(t, cb.AllowRequest(testHost), "Should move to HalfOpen after the reset timeout")
		state, _ := cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateHalfOpen, state)

		cb.RecordSuccess(testHost)
		state, _ = cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateHalfOpen, state, "one success is below the threshold")
		cb.RecordSuccess(testHost)
		state, failures := cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateClosed, state)
		assert.Equal(t, 0, failures)
	})

	t.Run("HalfOpen_Failure_Reopens", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		cb.RecordFailure(testHost)
		cb.RecordFailure(testHost)
		time.Sleep(cfg.ResetTimeout + 20*time.Millisecond)
		require.True(t, cb.AllowRequest(testHost))

		cb.RecordFailure(testHost)
		state, _ := cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateOpen, state)
		assert.False(t, cb.AllowRequest(testHost))
	})

	t.Run("Success_Resets_Failures", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		cb.RecordFailure(testHost)
		cb.RecordSuccess(testHost)
		cb.RecordFailure(testHost)
		state, failures := cb.GetHostStatus(testHost)
		assert.Equal(t, circuitbreaker.StateClosed, state)
		assert.Equal(t, 1, failures)
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", circuitbreaker.StateClosed.String())
	assert.Equal(t, "open", circuitbreaker.StateOpen.String())
	assert.Equal(t, "half-open", circuitbreaker.StateHalfOpen.String())
}
