package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/resilience"
)

// ResilientSource retries transient fetch failures and trips a circuit
// breaker when the backing store keeps failing.
type ResilientSource struct {
	source         Source
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientSourceConfig struct {
	Source        Source
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSource(cfg ResilientSourceConfig) *ResilientSource {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "datasource",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientSource{
		source:         cfg.Source,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (s *ResilientSource) FetchTabular(ctx context.Context, q Query) (*frame.Frame, error) {
	var result *frame.Frame

	err := s.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var lastErr error
		for attempt := 1; attempt <= s.retryAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			f, err := s.source.FetchTabular(ctx, q)
			if err == nil {
				result = f
				return nil
			}
			// a missing dataset will not appear on retry
			if errors.Is(err, ErrUnknownDataset) {
				return err
			}

			lastErr = err
			logger.WithField("dataset", q.Name).Warnf(
				"Fetch attempt %d/%d failed: %v",
				attempt, s.retryAttempts, err,
			)

			if attempt < s.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ResilientSource) HealthCheck(ctx context.Context) error {
	return s.source.HealthCheck(ctx)
}

func (s *ResilientSource) Close() error {
	return s.source.Close()
}

func (s *ResilientSource) CircuitState() resilience.State {
	return s.circuitBreaker.State()
}

func (s *ResilientSource) ResetCircuit() {
	s.circuitBreaker.Reset()
}
