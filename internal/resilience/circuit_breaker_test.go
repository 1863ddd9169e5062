package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/workforce-ml/internal/resilience"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errFail = errors.New("fail")

func fail(context.Context) error    { return errFail }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        resilience.CircuitBreakerConfig
		setup         func(cb *resilience.CircuitBreaker, clock *fakeClock)
		expectedState resilience.State
	}{
		{
			name:   "successful execution stays closed",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				cb.Execute(context.Background(), succeed)
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "opens after max failures",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.Execute(context.Background(), fail)
				}
			},
			expectedState: resilience.StateOpen,
		},
		{
			name:   "success resets failure streak",
			config: resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				cb.Execute(context.Background(), fail)
				cb.Execute(context.Background(), succeed)
				cb.Execute(context.Background(), fail)
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "half-open trial success closes",
			config: resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				cb.Execute(context.Background(), fail)
				clock.advance(2 * time.Minute)
				cb.Execute(context.Background(), succeed)
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "half-open trial failure reopens",
			config: resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				cb.Execute(context.Background(), fail)
				clock.advance(2 * time.Minute)
				cb.Execute(context.Background(), fail)
			},
			expectedState: resilience.StateOpen,
		},
		{
			name:   "cancelled calls do not count",
			config: resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "reset returns to closed",
			config: resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				cb.Execute(context.Background(), fail)
				cb.Reset()
			},
			expectedState: resilience.StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			tt.config.Now = clock.now
			cb := resilience.NewCircuitBreaker(tt.config)

			tt.setup(cb, clock)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_RejectsWhileOpen(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 1,
		Timeout:     time.Minute,
		Now:         clock.now,
	})

	cb.Execute(context.Background(), fail)

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", resilience.StateClosed.String())
	assert.Equal(t, "open", resilience.StateOpen.String())
	assert.Equal(t, "half-open", resilience.StateHalfOpen.String())
	assert.Equal(t, "unknown", resilience.State(9).String())
}
