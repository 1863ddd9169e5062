package estimator

import (
	"fmt"
	"sort"

	"github.com/OldStager01/workforce-ml/internal/frame"
)

const KindOneVsRest = "one_vs_rest"

// OneVsRest fits one balanced logistic model per class over a shared
// encoding and normalises the per-class scores.
type OneVsRest struct {
	Encoder    *Encoder                       `json:"encoder"`
	ClassNames []string                       `json:"classes"`
	Models     map[string]*LogisticRegression `json:"models"`
}

func NewOneVsRest(numeric, categorical []string) *OneVsRest {
	return &OneVsRest{Encoder: NewEncoder(numeric, categorical)}
}

func (o *OneVsRest) Kind() string { return KindOneVsRest }

func (o *OneVsRest) Classes() []string { return o.ClassNames }

func (o *OneVsRest) Fit(f *frame.Frame, y []string) error {
	if f.Len() != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimensionMismatch, f.Len(), len(y))
	}
	seen := make(map[string]struct{})
	for _, c := range y {
		seen[c] = struct{}{}
	}
	if len(seen) < 2 {
		return ErrSingleClass
	}
	classes := make([]string, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	if err := o.Encoder.Fit(f); err != nil {
		return err
	}
	X, err := o.Encoder.Transform(f)
	if err != nil {
		return err
	}

	o.ClassNames = classes
	o.Models = make(map[string]*LogisticRegression, len(classes))
	for _, c := range classes {
		target := make([]int, len(y))
		for i, v := range y {
			if v == c {
				target[i] = 1
			}
		}
		m := NewLogisticRegression()
		m.PositiveWeight = BalancedPositiveWeight(target)
		if err := m.FitMatrix(X, target); err != nil {
			return fmt.Errorf("class %q: %w", c, err)
		}
		o.Models[c] = m
	}
	return nil
}

func (o *OneVsRest) PredictProba(f *frame.Frame) (map[string][]float64, error) {
	if len(o.Models) == 0 {
		return nil, ErrNotFitted
	}
	X, err := o.Encoder.Transform(f)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64, len(o.ClassNames))
	for _, c := range o.ClassNames {
		scores, err := o.Models[c].PredictMatrix(X)
		if err != nil {
			return nil, err
		}
		out[c] = scores
	}
	for i := range X {
		var total float64
		for _, c := range o.ClassNames {
			total += out[c][i]
		}
		if total == 0 {
			continue
		}
		for _, c := range o.ClassNames {
			out[c][i] /= total
		}
	}
	return out, nil
}

// Predict returns the most probable class per row.
func (o *OneVsRest) Predict(f *frame.Frame) ([]string, error) {
	proba, err := o.PredictProba(f)
	if err != nil {
		return nil, err
	}
	out := make([]string, f.Len())
	for i := range out {
		best := -1.0
		for _, c := range o.ClassNames {
			if p := proba[c][i]; p > best {
				best = p
				out[i] = c
			}
		}
	}
	return out, nil
}

func (o *OneVsRest) FeatureNames() []string {
	return o.Encoder.FeatureNames()
}

// Importances average the normalised absolute coefficients over classes.
func (o *OneVsRest) Importances() []float64 {
	out := make([]float64, o.Encoder.Width())
	if len(o.ClassNames) == 0 {
		return out
	}
	for _, c := range o.ClassNames {
		for j, v := range normalizedAbs(o.Models[c].Weights) {
			out[j] += v / float64(len(o.ClassNames))
		}
	}
	return out
}
