package estimator

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/OldStager01/workforce-ml/internal/frame"
)

const KindKMeans = "kmeans"

// KMeans clusters standardised numeric features. Initialisation is
// k-means++ driven by Seed, so a fit is reproducible.
type KMeans struct {
	Encoder   *Encoder    `json:"encoder"`
	K         int         `json:"k"`
	Seed      int64       `json:"seed"`
	MaxIter   int         `json:"max_iter"`
	Centroids [][]float64 `json:"centroids"`
	Inertia   float64     `json:"inertia"`
}

func NewKMeans(features []string, k int, seed int64) *KMeans {
	return &KMeans{
		Encoder: NewEncoder(features, nil),
		K:       k,
		Seed:    seed,
		MaxIter: 100,
	}
}

func (m *KMeans) Kind() string { return KindKMeans }

// Fit clusters f and returns the label of every row.
func (m *KMeans) Fit(f *frame.Frame) ([]int, error) {
	if err := m.Encoder.Fit(f); err != nil {
		return nil, err
	}
	X, err := m.Encoder.Transform(f)
	if err != nil {
		return nil, err
	}
	k := m.K
	if k > len(X) {
		k = len(X)
	}
	if k <= 0 {
		return nil, ErrEmptyInput
	}
	m.K = k

	rng := rand.New(rand.NewSource(m.Seed))
	m.Centroids = initPlusPlus(rng, X, k)

	labels := make([]int, len(X))
	for iter := 0; iter < m.MaxIter; iter++ {
		changed := false
		for i, x := range X {
			if c, _ := nearest(m.Centroids, x); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, len(X[0]))
		}
		for i, x := range X {
			counts[labels[i]]++
			for j, v := range x {
				sums[labels[i]][j] += v
			}
		}
		for c := range sums {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				sums[c][j] /= float64(counts[c])
			}
			m.Centroids[c] = sums[c]
		}
		if !changed && iter > 0 {
			break
		}
	}

	m.Inertia = 0
	for i, x := range X {
		m.Inertia += sqDist(m.Centroids[labels[i]], x)
	}
	return labels, nil
}

func (m *KMeans) Predict(f *frame.Frame) ([]int, error) {
	if len(m.Centroids) == 0 {
		return nil, ErrNotFitted
	}
	X, err := m.Encoder.Transform(f)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, x := range X {
		out[i], _ = nearest(m.Centroids, x)
	}
	return out, nil
}

// Distances returns each row's distance to its nearest centroid.
func (m *KMeans) Distances(f *frame.Frame) ([]float64, error) {
	if len(m.Centroids) == 0 {
		return nil, ErrNotFitted
	}
	X, err := m.Encoder.Transform(f)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		_, d := nearest(m.Centroids, x)
		out[i] = math.Sqrt(d)
	}
	return out, nil
}

// Center returns centroid c in the original feature units.
func (m *KMeans) Center(c int) map[string]float64 {
	out := make(map[string]float64, len(m.Encoder.Numeric))
	for j, col := range m.Encoder.Numeric {
		out[col] = m.Centroids[c][j]*m.Encoder.Scales[j] + m.Encoder.Means[j]
	}
	return out
}

func initPlusPlus(rng *rand.Rand, X [][]float64, k int) [][]float64 {
	centroids := [][]float64{copyVec(X[rng.Intn(len(X))])}
	dists := make([]float64, len(X))
	for len(centroids) < k {
		var total float64
		for i, x := range X {
			_, d := nearest(centroids, x)
			dists[i] = d
			total += d
		}
		if total == 0 {
			centroids = append(centroids, copyVec(X[rng.Intn(len(X))]))
			continue
		}
		target := rng.Float64() * total
		idx := len(X) - 1
		for i, d := range dists {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centroids = append(centroids, copyVec(X[idx]))
	}
	return centroids
}

func nearest(centroids [][]float64, x []float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(centroid, x); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func copyVec(v []float64) []float64 {
	return append([]float64(nil), v...)
}
