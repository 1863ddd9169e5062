// Package trainer implements the lifecycle every model follows: load the
// training frame, fit and evaluate, persist the estimator and run document,
// report the result.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/events"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

// Model is the per-model extension point.
type Model interface {
	ID() string
	Name() string
	Version() string
	// PrimaryMetric names the metrics key logged after every run.
	PrimaryMetric() string
	LoadTrainingFrame(ctx context.Context, params Params) (*frame.Frame, error)
	RunTraining(ctx context.Context, f *frame.Frame, params Params) (*Output, error)
}

// Output is what one RunTraining call produces.
type Output struct {
	Estimator estimator.Estimator
	Metrics   map[string]interface{}
	Artifacts map[string]interface{}
}

type Options struct {
	Publisher *events.Publisher
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type Trainer struct {
	model     Model
	store     *artifacts.Store
	publisher *events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time

	// held for the whole of Train; overlapping calls fail fast
	mu sync.Mutex
}

func New(model Model, store *artifacts.Store, opts Options) *Trainer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Trainer{
		model:     model,
		store:     store,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		now:       opts.Now,
	}
}

func (t *Trainer) ID() string      { return t.model.ID() }
func (t *Trainer) Name() string    { return t.model.Name() }
func (t *Trainer) Version() string { return t.model.Version() }
func (t *Trainer) Model() Model    { return t.model }

// Train runs one full training cycle. It returns ErrTrainingInProgress
// immediately if another Train call for the same model is still running.
func (t *Trainer) Train(ctx context.Context, params Params) (*models.TrainingResult, error) {
	if !t.mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrTrainingInProgress, t.ID())
	}
	defer t.mu.Unlock()

	runID := models.NewUUID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.WithModelCtx(ctx, t.ID())
	start := t.now()

	log.Info("Training started")
	t.publisher.TrainingStarted(t.ID(), runID)

	result, err := t.train(ctx, runID, start, params)
	if err != nil {
		elapsed := t.now().Sub(start)
		log.WithField("error_kind", Kind(err)).Errorf("Training failed after %s: %v", elapsed.Round(time.Millisecond), err)
		t.metrics.IncTrainingFailure(t.ID(), Kind(err))
		t.publisher.TrainingFailed(t.ID(), &models.TrainingFailedData{
			RunID:        runID,
			ModelVersion: t.Version(),
			StartedAt:    start.UTC(),
			DurationMs:   elapsed.Milliseconds(),
			Error:        err.Error(),
		})
		return nil, err
	}

	entry := log.WithField("duration_ms", result.DurationMs)
	if key := t.model.PrimaryMetric(); key != "" {
		if v, ok := primaryValue(result.Metrics[key]); ok {
			entry = entry.WithField(key, v)
			t.metrics.SetPrimaryMetric(t.ID(), v)
		}
	}
	entry.Info("Training completed")

	t.metrics.ObserveTraining(t.ID(), time.Duration(result.DurationMs)*time.Millisecond, result.TrainedAt)
	t.publisher.TrainingCompleted(t.ID(), &models.TrainingCompletedData{
		RunID:        runID,
		ModelVersion: t.Version(),
		TrainedAt:    result.TrainedAt,
		DurationMs:   result.DurationMs,
		Metrics:      result.Metrics,
	})
	return result, nil
}

func (t *Trainer) train(ctx context.Context, runID string, start time.Time, params Params) (*models.TrainingResult, error) {
	if params == nil {
		params = Params{}
	}

	f, err := t.model.LoadTrainingFrame(ctx, params)
	if err != nil {
		if isTaxonomy(err) || isContextErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if f == nil || f.Empty() {
		return nil, fmt.Errorf("%w: %s returned no rows", ErrDataUnavailable, t.ID())
	}

	out, err := t.runTraining(ctx, f, params)
	if err != nil {
		if isTaxonomy(err) || isContextErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailure, err)
	}
	if out == nil || out.Estimator == nil {
		return nil, fmt.Errorf("%w: %s produced no estimator", ErrTrainingFailure, t.ID())
	}

	trainedAt := t.now().UTC()
	metricsDoc := sanitizeMap(out.Metrics)
	artifactsDoc := sanitizeMap(out.Artifacts)

	modelPath, err := t.store.PersistEstimator(t.ID(), t.Version(), out.Estimator)
	if err != nil {
		return nil, fmt.Errorf("%w: persist estimator: %w", ErrTrainingFailure, err)
	}

	latestPath, historyPath, err := t.store.PersistRun(models.RunDocument{
		RunID:        runID,
		ModelID:      t.ID(),
		ModelName:    t.Name(),
		ModelVersion: t.Version(),
		TrainedAt:    trainedAt,
		Metrics:      metricsDoc,
		Artifacts:    artifactsDoc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: persist run: %w", ErrTrainingFailure, err)
	}

	return &models.TrainingResult{
		RunID:       runID,
		ModelID:     t.ID(),
		TrainedAt:   trainedAt,
		DurationMs:  t.now().Sub(start).Milliseconds(),
		Metrics:     metricsDoc,
		Artifacts:   artifactsDoc,
		ModelPath:   modelPath,
		MetricsPath: latestPath,
		HistoryPath: historyPath,
	}, nil
}

// runTraining converts a panic inside model code into an error so a bad
// fit cannot take the process down.
func (t *Trainer) runTraining(ctx context.Context, f *frame.Frame, params Params) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrTrainingFailure, r)
		}
	}()
	return t.model.RunTraining(ctx, f, params)
}

// LatestSummary returns the most recent run document, or an empty document
// when the model has never been trained. It never fails.
func (t *Trainer) LatestSummary() models.RunDocument {
	doc, err := t.store.ReadLatest(t.ID())
	if err != nil {
		logger.WithModel(t.ID()).Warnf("Failed to read latest run: %v", err)
		return models.RunDocument{}
	}
	if doc == nil {
		return models.RunDocument{}
	}
	return *doc
}

func (t *Trainer) LoadEstimator() (estimator.Estimator, error) {
	est, err := t.store.LoadEstimator(t.ID(), t.Version())
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrArtifactMissing, t.ID(), t.Version())
		}
		return nil, err
	}
	return est, nil
}

// History lists run history newest first, at most limit entries when
// limit > 0.
func (t *Trainer) History(limit int) ([]artifacts.HistoryEntry, error) {
	entries, err := t.store.ListHistory(t.ID())
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (t *Trainer) HistoryDocument(name string) (*models.RunDocument, error) {
	return t.store.ReadHistory(t.ID(), name)
}

func primaryValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case *float64:
		if x == nil {
			return 0, false
		}
		return *x, !math.IsNaN(*x)
	case int:
		return float64(x), true
	}
	return 0, false
}
