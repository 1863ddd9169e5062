// Package estimator defines the fit/predict capabilities trainers rely on and
// a small set of concrete estimators that satisfy them. Every estimator is a
// plain struct with exported fields so the codec can persist it as JSON.
package estimator

import (
	"errors"

	"github.com/OldStager01/workforce-ml/internal/frame"
)

var (
	ErrNotFitted         = errors.New("estimator is not fitted")
	ErrEmptyInput        = errors.New("empty training input")
	ErrSingleClass       = errors.New("target has a single class")
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Estimator is anything the artifact store can persist.
type Estimator interface {
	Kind() string
}

// Classifier is a binary probabilistic classifier over frames.
type Classifier interface {
	Estimator
	Fit(f *frame.Frame, y []int) error
	PredictProba(f *frame.Frame) ([]float64, error)
}

// MultiClassifier scores every class label for each row.
type MultiClassifier interface {
	Estimator
	Fit(f *frame.Frame, y []string) error
	PredictProba(f *frame.Frame) (map[string][]float64, error)
	Classes() []string
}

// Regressor predicts a continuous target.
type Regressor interface {
	Estimator
	Fit(f *frame.Frame, y []float64) error
	Predict(f *frame.Frame) ([]float64, error)
}

// Importancer exposes per-feature importances aligned with FeatureNames.
type Importancer interface {
	FeatureNames() []string
	Importances() []float64
}
