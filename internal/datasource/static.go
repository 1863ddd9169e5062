package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/simulator"
)

// StaticSource serves fixed frames by dataset name. Tests use it the way a
// mock collector is used; it can also be told to fail.
type StaticSource struct {
	mu           sync.RWMutex
	frames       map[string]*frame.Frame
	shouldFail   bool
	failureError error
	fetches      map[string]int
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		frames:  make(map[string]*frame.Frame),
		fetches: make(map[string]int),
	}
}

func (s *StaticSource) Set(name string, f *frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[name] = f
}

func (s *StaticSource) SetShouldFail(shouldFail bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = shouldFail
	s.failureError = err
}

func (s *StaticSource) Fetches(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches[name]
}

func (s *StaticSource) FetchTabular(ctx context.Context, q Query) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches[q.Name]++
	if s.shouldFail {
		if s.failureError != nil {
			return nil, s.failureError
		}
		return nil, ErrFetchFailed
	}

	f, ok := s.frames[q.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, q.Name)
	}
	return f, nil
}

func (s *StaticSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shouldFail {
		return ErrFetchFailed
	}
	return nil
}

func (s *StaticSource) Close() error {
	return nil
}

// SyntheticSource serves the generated workforce datasets.
type SyntheticSource struct {
	sim *simulator.Simulator
}

func NewSyntheticSource(sim *simulator.Simulator) *SyntheticSource {
	return &SyntheticSource{sim: sim}
}

func (s *SyntheticSource) FetchTabular(ctx context.Context, q Query) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.sim.Dataset(q.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownDataset, err)
	}
	return f, nil
}

func (s *SyntheticSource) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *SyntheticSource) Close() error {
	return nil
}
