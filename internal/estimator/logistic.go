package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogisticRegression is an L2-regularised binary logistic model fitted by
// full-batch gradient descent on an already encoded matrix.
type LogisticRegression struct {
	Weights        []float64 `json:"weights"`
	Bias           float64   `json:"bias"`
	L2             float64   `json:"l2"`
	LearningRate   float64   `json:"learning_rate"`
	Epochs         int       `json:"epochs"`
	PositiveWeight float64   `json:"positive_weight"`
}

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		L2:           1e-3,
		LearningRate: 0.3,
		Epochs:       250,
	}
}

// BalancedPositiveWeight returns max(1, negatives/positives).
func BalancedPositiveWeight(y []int) float64 {
	pos, neg := 0, 0
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 {
		return 1
	}
	return math.Max(1, float64(neg)/float64(pos))
}

func (m *LogisticRegression) FitMatrix(X [][]float64, y []int) error {
	if len(X) == 0 {
		return ErrEmptyInput
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimensionMismatch, len(X), len(y))
	}
	if !hasBothClasses(y) {
		return ErrSingleClass
	}
	if m.Epochs <= 0 {
		m.Epochs = 250
	}
	if m.LearningRate <= 0 {
		m.LearningRate = 0.3
	}
	posWeight := m.PositiveWeight
	if posWeight <= 0 {
		posWeight = 1
	}

	d := len(X[0])
	for i, x := range X {
		if len(x) != d {
			return fmt.Errorf("%w: row %d has %d features, expected %d", ErrDimensionMismatch, i, len(x), d)
		}
	}
	w := make([]float64, d)
	b := 0.0
	grad := make([]float64, d)

	var totalWeight float64
	for _, v := range y {
		if v == 1 {
			totalWeight += posWeight
		} else {
			totalWeight++
		}
	}

	for epoch := 0; epoch < m.Epochs; epoch++ {
		clear(grad)
		gb := 0.0
		for i, x := range X {
			sw := 1.0
			if y[i] == 1 {
				sw = posWeight
			}
			diff := sw * (sigmoid(floats.Dot(w, x)+b) - float64(y[i]))
			floats.AddScaled(grad, diff, x)
			gb += diff
		}
		// w ← w - lr·(grad/total + l2·w)
		floats.Scale(1-m.LearningRate*m.L2, w)
		floats.AddScaled(w, -m.LearningRate/totalWeight, grad)
		b -= m.LearningRate * gb / totalWeight
	}

	m.Weights = w
	m.Bias = b
	return nil
}

func (m *LogisticRegression) PredictMatrix(X [][]float64) ([]float64, error) {
	if m.Weights == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x) != len(m.Weights) {
			return nil, fmt.Errorf("%w: expected %d features, got %d", ErrDimensionMismatch, len(m.Weights), len(x))
		}
		out[i] = sigmoid(floats.Dot(m.Weights, x) + m.Bias)
	}
	return out, nil
}

func hasBothClasses(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
