package estimator

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/workforce-ml/internal/frame"
)

// Encoder turns frame rows into a dense design matrix: numeric columns are
// median-imputed and standardised, categorical columns are imputed with the
// most frequent value and one-hot encoded. Categories unseen during Fit
// encode as all zeros.
type Encoder struct {
	Numeric     []string            `json:"numeric"`
	Categorical []string            `json:"categorical"`
	Medians     []float64           `json:"medians"`
	Means       []float64           `json:"means"`
	Scales      []float64           `json:"scales"`
	Modes       []string            `json:"modes"`
	Categories  map[string][]string `json:"categories"`
	Fitted      bool                `json:"fitted"`
}

func NewEncoder(numeric, categorical []string) *Encoder {
	return &Encoder{
		Numeric:     append([]string(nil), numeric...),
		Categorical: append([]string(nil), categorical...),
	}
}

func (e *Encoder) Fit(f *frame.Frame) error {
	if f.Empty() {
		return ErrEmptyInput
	}

	e.Medians = make([]float64, len(e.Numeric))
	e.Means = make([]float64, len(e.Numeric))
	e.Scales = make([]float64, len(e.Numeric))
	for j, col := range e.Numeric {
		values := f.Floats(col)
		e.Medians[j] = median(values)
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = e.Medians[j]
			}
		}
		mean, std := stat.PopMeanStdDev(values, nil)
		if std == 0 {
			std = 1
		}
		e.Means[j] = mean
		e.Scales[j] = std
	}

	e.Modes = make([]string, len(e.Categorical))
	e.Categories = make(map[string][]string, len(e.Categorical))
	for j, col := range e.Categorical {
		counts := make(map[string]int)
		for _, r := range f.Rows {
			if v := normalizeCategory(r.String(col)); v != "" {
				counts[v]++
			}
		}
		mode := ""
		best := -1
		cats := make([]string, 0, len(counts))
		for v, n := range counts {
			cats = append(cats, v)
			if n > best || (n == best && v < mode) {
				mode, best = v, n
			}
		}
		sort.Strings(cats)
		e.Modes[j] = mode
		e.Categories[col] = cats
	}

	e.Fitted = true
	return nil
}

func (e *Encoder) Width() int {
	w := len(e.Numeric)
	for _, col := range e.Categorical {
		w += len(e.Categories[col])
	}
	return w
}

func (e *Encoder) FeatureNames() []string {
	names := append([]string(nil), e.Numeric...)
	for _, col := range e.Categorical {
		for _, v := range e.Categories[col] {
			names = append(names, col+"="+v)
		}
	}
	return names
}

func (e *Encoder) Transform(f *frame.Frame) ([][]float64, error) {
	if !e.Fitted {
		return nil, ErrNotFitted
	}

	width := e.Width()
	X := make([][]float64, f.Len())
	for i, r := range f.Rows {
		x := make([]float64, width)
		for j, col := range e.Numeric {
			v, ok := r.Float(col)
			if !ok {
				v = e.Medians[j]
			}
			x[j] = (v - e.Means[j]) / e.Scales[j]
		}
		offset := len(e.Numeric)
		for j, col := range e.Categorical {
			cats := e.Categories[col]
			v := normalizeCategory(r.String(col))
			if v == "" {
				v = e.Modes[j]
			}
			if k := sort.SearchStrings(cats, v); k < len(cats) && cats[k] == v {
				x[offset+k] = 1
			}
			offset += len(cats)
		}
		X[i] = x
	}
	return X, nil
}

func normalizeCategory(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "none", "null":
		return ""
	}
	return v
}

func median(values []float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return 0
	}
	sort.Float64s(clean)
	mid := len(clean) / 2
	if len(clean)%2 == 0 {
		return (clean[mid-1] + clean[mid]) / 2
	}
	return clean[mid]
}
