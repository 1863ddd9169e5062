package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/workforce-ml/internal/frame"
)

const KindRidge = "ridge"

// Ridge is an L2-penalised linear regression solved in closed form on the
// encoded features. The intercept is not penalised.
type Ridge struct {
	Encoder   *Encoder  `json:"encoder"`
	Alpha     float64   `json:"alpha"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

func NewRidge(numeric, categorical []string, alpha float64) *Ridge {
	return &Ridge{Encoder: NewEncoder(numeric, categorical), Alpha: alpha}
}

func (r *Ridge) Kind() string { return KindRidge }

func (r *Ridge) Fit(f *frame.Frame, y []float64) error {
	if f.Len() != len(y) {
		return fmt.Errorf("%w: %d rows, %d targets", ErrDimensionMismatch, f.Len(), len(y))
	}
	if err := r.Encoder.Fit(f); err != nil {
		return err
	}
	X, err := r.Encoder.Transform(f)
	if err != nil {
		return err
	}

	n, d := len(X), r.Encoder.Width()
	yMean := stat.Mean(y, nil)
	if d == 0 {
		r.Weights = []float64{}
		r.Intercept = yMean
		return nil
	}

	data := make([]float64, 0, n*d)
	for _, x := range X {
		data = append(data, x...)
	}
	design := mat.NewDense(n, d, data)
	xMean := make([]float64, d)
	for j := range xMean {
		xMean[j] = stat.Mean(mat.Col(nil, j, design), nil)
	}
	for i := 0; i < n; i++ {
		floats.Sub(design.RawRowView(i), xMean)
	}
	yc := append([]float64(nil), y...)
	floats.AddConst(-yMean, yc)

	// (XcᵀXc + αI) w = Xcᵀyc
	var gram mat.SymDense
	gram.SymOuterK(1, design.T())
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(design.T(), mat.NewVecDense(n, yc))

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return fmt.Errorf("singular ridge system (alpha=%g)", r.Alpha)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return fmt.Errorf("failed to solve ridge system: %w", err)
	}
	r.Weights = mat.Col(nil, 0, &w)
	r.Intercept = yMean - floats.Dot(r.Weights, xMean)
	return nil
}

func (r *Ridge) Predict(f *frame.Frame) ([]float64, error) {
	if r.Weights == nil {
		return nil, ErrNotFitted
	}
	X, err := r.Encoder.Transform(f)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = floats.Dot(r.Weights, x) + r.Intercept
	}
	return out, nil
}

func (r *Ridge) FeatureNames() []string {
	return r.Encoder.FeatureNames()
}

func (r *Ridge) Importances() []float64 {
	return normalizedAbs(r.Weights)
}
