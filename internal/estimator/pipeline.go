package estimator

import (
	"fmt"
	"math"
	"sort"

	"github.com/OldStager01/workforce-ml/internal/frame"
)

const (
	KindPipeline     = "logistic_pipeline"
	KindMultiHorizon = "multi_horizon"
)

// Pipeline encodes a frame and scores it with a logistic model.
type Pipeline struct {
	Encoder  *Encoder            `json:"encoder"`
	Model    *LogisticRegression `json:"model"`
	Balanced bool                `json:"balanced"`
}

func NewPipeline(numeric, categorical []string, balanced bool) *Pipeline {
	return &Pipeline{
		Encoder:  NewEncoder(numeric, categorical),
		Model:    NewLogisticRegression(),
		Balanced: balanced,
	}
}

func (p *Pipeline) Kind() string { return KindPipeline }

func (p *Pipeline) Fit(f *frame.Frame, y []int) error {
	if f.Len() != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimensionMismatch, f.Len(), len(y))
	}
	if err := p.Encoder.Fit(f); err != nil {
		return err
	}
	X, err := p.Encoder.Transform(f)
	if err != nil {
		return err
	}
	if p.Balanced {
		p.Model.PositiveWeight = BalancedPositiveWeight(y)
	}
	return p.Model.FitMatrix(X, y)
}

func (p *Pipeline) PredictProba(f *frame.Frame) ([]float64, error) {
	X, err := p.Encoder.Transform(f)
	if err != nil {
		return nil, err
	}
	return p.Model.PredictMatrix(X)
}

func (p *Pipeline) FeatureNames() []string {
	return p.Encoder.FeatureNames()
}

// Importances are absolute coefficients normalised to sum to one.
func (p *Pipeline) Importances() []float64 {
	return normalizedAbs(p.Model.Weights)
}

// MultiHorizon holds one classifier per horizon, all trained on the same
// feature set.
type MultiHorizon struct {
	Horizons []int              `json:"horizons"`
	Models   map[int]Classifier `json:"-"`
}

func NewMultiHorizon(horizons []int) *MultiHorizon {
	hs := append([]int(nil), horizons...)
	sort.Ints(hs)
	return &MultiHorizon{Horizons: hs, Models: make(map[int]Classifier, len(hs))}
}

func (m *MultiHorizon) Kind() string { return KindMultiHorizon }

func (m *MultiHorizon) Set(h int, c Classifier) {
	if m.Models == nil {
		m.Models = make(map[int]Classifier)
	}
	m.Models[h] = c
}

// PredictProba returns horizon -> positive-class probability per row.
func (m *MultiHorizon) PredictProba(f *frame.Frame) (map[int][]float64, error) {
	out := make(map[int][]float64, len(m.Horizons))
	for _, h := range m.Horizons {
		c, ok := m.Models[h]
		if !ok {
			return nil, fmt.Errorf("%w: no model for horizon %d", ErrNotFitted, h)
		}
		scores, err := c.PredictProba(f)
		if err != nil {
			return nil, fmt.Errorf("horizon %d: %w", h, err)
		}
		out[h] = scores
	}
	return out, nil
}

func normalizedAbs(w []float64) []float64 {
	out := make([]float64, len(w))
	var total float64
	for i, v := range w {
		out[i] = math.Abs(v)
		total += out[i]
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
