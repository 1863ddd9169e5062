package trainers

import (
	"context"
	"errors"
	"fmt"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/trainer"
)

const (
	colRotationProbability = "rotation_probability"

	ensemblePersisted = "persisted"
	ensembleInMemory  = "in_memory"
)

// resolveEnsemble returns the persisted rotation ensemble, or fits one in
// memory when none has been trained yet. The in-memory ensemble is never
// persisted. The second return value reports which one was used.
func (m *Rotation) resolveEnsemble(ctx context.Context) (*estimator.MultiHorizon, string, error) {
	if m.deps.Store != nil {
		est, err := m.deps.Store.LoadEstimator(m.id, m.version)
		switch {
		case err == nil:
			ens, err := asEnsemble(est)
			if err != nil {
				return nil, "", err
			}
			return ens, ensemblePersisted, nil
		case !errors.Is(err, artifacts.ErrNotFound):
			return nil, "", fmt.Errorf("load rotation ensemble: %w", err)
		}
	}

	logger.WithModelCtx(ctx, m.id).Info("No persisted rotation ensemble, fitting one in memory")
	panel, err := m.LoadTrainingFrame(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", trainer.ErrDataUnavailable, err)
	}
	if panel.Empty() {
		return nil, "", fmt.Errorf("%w: rotation panel is empty", trainer.ErrDataUnavailable)
	}
	fit, err := m.fit(ctx, panel, m.settings(nil))
	if err != nil {
		return nil, "", err
	}
	return fit.ensemble, ensembleInMemory, nil
}

// asEnsemble accepts a multi-horizon ensemble or a single classifier, which
// is treated as the 90 day model.
func asEnsemble(e estimator.Estimator) (*estimator.MultiHorizon, error) {
	switch v := e.(type) {
	case *estimator.MultiHorizon:
		return v, nil
	case estimator.Classifier:
		ens := estimator.NewMultiHorizon([]int{90})
		ens.Set(90, v)
		return ens, nil
	}
	return nil, fmt.Errorf("%w: unsupported rotation artifact %q", trainer.ErrTrainingFailure, e.Kind())
}

// scoreRotation adds the longest-horizon probability to a copy of f.
func scoreRotation(ens *estimator.MultiHorizon, f *frame.Frame) (*frame.Frame, error) {
	scored := prepareRotationFeatures(f)
	proba, err := ens.PredictProba(scored)
	if err != nil {
		return nil, fmt.Errorf("score rotation risk: %w", err)
	}
	h := ens.Horizons[len(ens.Horizons)-1]
	if _, ok := proba[90]; ok {
		h = 90
	}
	for i, r := range scored.Rows {
		r[colRotationProbability] = proba[h][i]
	}
	scored.Columns = append(scored.Columns, colRotationProbability)
	return scored, nil
}
