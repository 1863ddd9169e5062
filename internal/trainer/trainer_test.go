package trainer

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/events"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

type fakeModel struct {
	frame    *frame.Frame
	loadErr  error
	trainErr error
	panicMsg string
	entered  chan struct{}
	block    chan struct{}
	calls    int
}

func (m *fakeModel) ID() string            { return "absenteeism_risk" }
func (m *fakeModel) Name() string          { return "Absenteeism risk" }
func (m *fakeModel) Version() string       { return "v1" }
func (m *fakeModel) PrimaryMetric() string { return "roc_auc" }

func (m *fakeModel) LoadTrainingFrame(ctx context.Context, params Params) (*frame.Frame, error) {
	return m.frame, m.loadErr
}

func (m *fakeModel) RunTraining(ctx context.Context, f *frame.Frame, params Params) (*Output, error) {
	m.calls++
	if m.entered != nil {
		close(m.entered)
	}
	if m.block != nil {
		<-m.block
	}
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.trainErr != nil {
		return nil, m.trainErr
	}

	y := make([]int, f.Len())
	for i, r := range f.Rows {
		y[i], _ = r.Int("label")
	}
	p := estimator.NewPipeline([]string{"x"}, nil, true)
	if err := p.Fit(f, y); err != nil {
		return nil, err
	}
	return &Output{
		Estimator: p,
		Metrics: map[string]interface{}{
			"roc_auc": params.Float("fake_auc", 0.8),
			"undef":   math.NaN(),
		},
		Artifacts: map[string]interface{}{"curve": []float64{0, math.Inf(1), 1}},
	}, nil
}

func trainingFrame() *frame.Frame {
	f := frame.New("x", "label")
	for i := 0; i < 30; i++ {
		label := 0
		if i%3 == 0 {
			label = 1
		}
		f.Append(frame.Row{"x": float64(label*4 + i%4), "label": label})
	}
	return f
}

type fixture struct {
	trainer *Trainer
	model   *fakeModel
	store   *artifacts.Store
	metrics *metrics.Metrics
	events  <-chan *models.Event
	bus     *events.EventBus
}

func newFixture(t *testing.T, model *fakeModel) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := artifacts.New(filepath.Join(dir, "models"), filepath.Join(dir, "metrics"))
	m := metrics.New()
	bus := events.NewEventBus(50)
	t.Cleanup(bus.Close)

	clock := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}

	return &fixture{
		trainer: New(model, store, Options{Publisher: events.NewPublisher(bus), Metrics: m, Now: now}),
		model:   model,
		store:   store,
		metrics: m,
		events:  bus.SubscribeAll(),
		bus:     bus,
	}
}

func (fx *fixture) eventTypes() []models.EventType {
	var out []models.EventType
	for {
		select {
		case ev := <-fx.events:
			out = append(out, ev.Type)
		default:
			return out
		}
	}
}

func TestTrainer_TrainSuccess(t *testing.T) {
	fx := newFixture(t, &fakeModel{frame: trainingFrame()})

	result, err := fx.trainer.Train(context.Background(), Params{"fake_auc": 0.9})
	require.NoError(t, err)

	assert.Equal(t, "absenteeism_risk", result.ModelID)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, time.UTC, result.TrainedAt.Location())
	assert.Equal(t, int64(500), result.DurationMs)
	assert.Equal(t, 0.9, result.Metrics["roc_auc"])
	assert.Nil(t, result.Metrics["undef"])
	assert.Equal(t, []interface{}{0.0, nil, 1.0}, result.Artifacts["curve"])
	assert.FileExists(t, result.ModelPath)
	assert.FileExists(t, result.MetricsPath)
	assert.FileExists(t, result.HistoryPath)

	assert.Equal(t, int64(1), fx.metrics.TrainingRuns("absenteeism_risk"))
	assert.Equal(t, []models.EventType{
		models.EventTypeTrainingStarted,
		models.EventTypeTrainingCompleted,
	}, fx.eventTypes())

	summary := fx.trainer.LatestSummary()
	assert.Equal(t, result.RunID, summary.RunID)
	assert.Equal(t, "v1", summary.ModelVersion)
	assert.True(t, summary.TrainedAt.Equal(result.TrainedAt))
}

func TestTrainer_EmptyFrameIsDataUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{name: "nil frame", model: &fakeModel{}},
		{name: "no rows", model: &fakeModel{frame: frame.New("x", "label")}},
		{name: "fetch error", model: &fakeModel{loadErr: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.model)

			_, err := fx.trainer.Train(context.Background(), nil)
			assert.ErrorIs(t, err, ErrDataUnavailable)
			assert.Zero(t, tt.model.calls)
			assert.Equal(t, int64(1), fx.metrics.TrainingFailures("absenteeism_risk", "data_unavailable"))
			summary := fx.trainer.LatestSummary()
			assert.True(t, summary.IsEmpty())
		})
	}
}

func TestTrainer_ErrorPropagation(t *testing.T) {
	cause := errors.New("singular matrix")

	tests := []struct {
		name    string
		model   *fakeModel
		wantErr error
		kind    string
	}{
		{
			name:    "insufficient labels propagate unchanged",
			model:   &fakeModel{frame: trainingFrame(), trainErr: ErrInsufficientLabels},
			wantErr: ErrInsufficientLabels,
			kind:    "insufficient_labels",
		},
		{
			name:    "estimator errors become training failures",
			model:   &fakeModel{frame: trainingFrame(), trainErr: cause},
			wantErr: cause,
			kind:    "training_failure",
		},
		{
			name:    "panics become training failures",
			model:   &fakeModel{frame: trainingFrame(), panicMsg: "index out of range"},
			wantErr: ErrTrainingFailure,
			kind:    "training_failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.model)

			_, err := fx.trainer.Train(context.Background(), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, Kind(err))

			assert.Equal(t, []models.EventType{
				models.EventTypeTrainingStarted,
				models.EventTypeTrainingFailed,
			}, fx.eventTypes())

			_, err = fx.trainer.LoadEstimator()
			assert.ErrorIs(t, err, ErrArtifactMissing)
		})
	}
}

func TestTrainer_OverlappingTrainRejected(t *testing.T) {
	model := &fakeModel{
		frame:   trainingFrame(),
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	fx := newFixture(t, model)

	done := make(chan error, 1)
	go func() {
		_, err := fx.trainer.Train(context.Background(), nil)
		done <- err
	}()
	<-model.entered

	_, err := fx.trainer.Train(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTrainingInProgress)

	close(model.block)
	require.NoError(t, <-done)
}

func TestTrainer_LoadEstimatorRoundTrip(t *testing.T) {
	fx := newFixture(t, &fakeModel{frame: trainingFrame()})

	_, err := fx.trainer.LoadEstimator()
	require.ErrorIs(t, err, ErrArtifactMissing)

	_, err = fx.trainer.Train(context.Background(), nil)
	require.NoError(t, err)

	est, err := fx.trainer.LoadEstimator()
	require.NoError(t, err)
	clf, ok := est.(estimator.Classifier)
	require.True(t, ok)

	first, err := clf.PredictProba(trainingFrame())
	require.NoError(t, err)
	second, err := clf.PredictProba(trainingFrame())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTrainer_LatestSummaryIdempotent(t *testing.T) {
	fx := newFixture(t, &fakeModel{frame: trainingFrame()})

	summary := fx.trainer.LatestSummary()
	assert.True(t, summary.IsEmpty())

	_, err := fx.trainer.Train(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, fx.trainer.LatestSummary(), fx.trainer.LatestSummary())
}

func TestTrainer_History(t *testing.T) {
	fx := newFixture(t, &fakeModel{frame: trainingFrame()})

	for i := 0; i < 3; i++ {
		_, err := fx.trainer.Train(context.Background(), Params{"fake_auc": float64(i) / 10})
		require.NoError(t, err)
	}

	all, err := fx.trainer.History(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].TrainedAt.After(all[1].TrainedAt))

	limited, err := fx.trainer.History(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	doc, err := fx.trainer.HistoryDocument(all[2].Name)
	require.NoError(t, err)
	assert.Equal(t, 0.0, doc.Metrics["roc_auc"])
}

func TestParams(t *testing.T) {
	p := Params{"a": 1.5, "b": "7", "c": 3, "d": true, "e": "x"}

	assert.Equal(t, 1.5, p.Float("a", 0))
	assert.Equal(t, 7.0, p.Float("b", 0))
	assert.Equal(t, 2.0, p.Float("missing", 2))
	assert.Equal(t, 3, p.Int("c", 0))
	assert.Equal(t, 7, p.Int("b", 0))
	assert.Equal(t, 1, p.Int("a", 0))
	assert.True(t, p.Bool("d", false))
	assert.Equal(t, "x", p.String("e", "y"))
	assert.Equal(t, "y", p.String("missing", "y"))
}
