package datasource_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/internal/datasource"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/resilience"
	"github.com/OldStager01/workforce-ml/internal/simulator"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

func TestStaticSource(t *testing.T) {
	src := datasource.NewStaticSource()
	src.Set("roster", frame.FromRows([]frame.Row{{"employee_id": "E1"}}))

	f, err := src.FetchTabular(context.Background(), datasource.Query{Name: "roster"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())

	_, err = src.FetchTabular(context.Background(), datasource.Query{Name: "other"})
	assert.ErrorIs(t, err, datasource.ErrUnknownDataset)
	assert.Equal(t, 1, src.Fetches("roster"))
}

func TestResilientSource_RetriesThenSucceeds(t *testing.T) {
	flaky := &flakySource{failures: 2, frame: frame.New("a")}
	src := datasource.NewResilientSource(datasource.ResilientSourceConfig{
		Source:        flaky,
		MaxFailures:   5,
		Timeout:       time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	f, err := src.FetchTabular(context.Background(), datasource.Query{Name: "x"})
	require.NoError(t, err)
	assert.Same(t, flaky.frame, f)
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, resilience.StateClosed, src.CircuitState())
}

func TestResilientSource_OpensCircuit(t *testing.T) {
	static := datasource.NewStaticSource()
	static.SetShouldFail(true, errors.New("connection refused"))

	src := datasource.NewResilientSource(datasource.ResilientSourceConfig{
		Source:        static,
		MaxFailures:   2,
		Timeout:       time.Hour,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		_, err := src.FetchTabular(context.Background(), datasource.Query{Name: "x"})
		assert.Error(t, err)
	}

	_, err := src.FetchTabular(context.Background(), datasource.Query{Name: "x"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, static.Fetches("x"))

	src.ResetCircuit()
	assert.Equal(t, resilience.StateClosed, src.CircuitState())
}

func TestResilientSource_UnknownDatasetNotRetried(t *testing.T) {
	static := datasource.NewStaticSource()
	src := datasource.NewResilientSource(datasource.ResilientSourceConfig{
		Source:        static,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	_, err := src.FetchTabular(context.Background(), datasource.Query{Name: "missing"})
	assert.ErrorIs(t, err, datasource.ErrUnknownDataset)
	assert.Equal(t, 1, static.Fetches("missing"))
}

func TestSyntheticSource(t *testing.T) {
	sim := simulator.New(simulator.Config{Employees: 50, Seed: 1})
	src := datasource.NewSyntheticSource(sim)

	f, err := src.FetchTabular(context.Background(), datasource.Query{Name: models.DatasetEmployeeRoster})
	require.NoError(t, err)
	assert.Equal(t, 50, f.Len())
	assert.NoError(t, src.HealthCheck(context.Background()))
}

type flakySource struct {
	failures int
	calls    int
	frame    *frame.Frame
}

func (s *flakySource) FetchTabular(ctx context.Context, q datasource.Query) (*frame.Frame, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, datasource.ErrFetchFailed
	}
	return s.frame, nil
}

func (s *flakySource) HealthCheck(ctx context.Context) error { return nil }
func (s *flakySource) Close() error                          { return nil }
