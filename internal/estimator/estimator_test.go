package estimator_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/frame"
)

// separable builds a frame where label 1 rows have large x and group "b".
func separable(n int, seed int64) (*frame.Frame, []int) {
	rng := rand.New(rand.NewSource(seed))
	f := frame.New("x", "noise", "group")
	y := make([]int, n)
	for i := 0; i < n; i++ {
		label := 0
		if i%3 == 0 {
			label = 1
		}
		x := rng.NormFloat64()
		group := "a"
		if label == 1 {
			x += 3
			group = "b"
		}
		f.Append(frame.Row{"x": x, "noise": rng.Float64(), "group": group})
		y[i] = label
	}
	return f, y
}

func TestEncoder(t *testing.T) {
	f := frame.FromRows([]frame.Row{
		{"n": 1.0, "c": "x"},
		{"n": nil, "c": "y"},
		{"n": 3.0, "c": "x"},
		{"n": 5.0, "c": ""},
	})
	enc := estimator.NewEncoder([]string{"n"}, []string{"c"})
	require.NoError(t, enc.Fit(f))

	assert.Equal(t, 3.0, enc.Medians[0])
	assert.Equal(t, []string{"n", "c=x", "c=y"}, enc.FeatureNames())

	X, err := enc.Transform(frame.FromRows([]frame.Row{
		{"n": 3.0, "c": "unseen"},
		{"n": 3.0, "c": "nan"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, X[0][1:], "unknown category encodes as zeros")
	assert.Equal(t, []float64{1, 0}, X[1][1:], "missing category imputes the mode")
	assert.InDelta(t, 0, X[0][0], 1e-9)
}

func TestEncoder_NotFitted(t *testing.T) {
	_, err := estimator.NewEncoder([]string{"a"}, nil).Transform(frame.New("a"))
	assert.ErrorIs(t, err, estimator.ErrNotFitted)
}

func TestPipeline_LearnsSeparableData(t *testing.T) {
	f, y := separable(300, 1)
	p := estimator.NewPipeline([]string{"x", "noise"}, []string{"group"}, true)
	require.NoError(t, p.Fit(f, y))

	scores, err := p.PredictProba(f)
	require.NoError(t, err)

	correct := 0
	for i, s := range scores {
		assert.True(t, s >= 0 && s <= 1)
		if (s >= 0.5) == (y[i] == 1) {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(y)), 0.9)

	imp := p.Importances()
	require.Len(t, imp, len(p.FeatureNames()))
	var total float64
	for _, v := range imp {
		total += v
	}
	assert.InDelta(t, 1, total, 1e-9)
}

func TestPipeline_SingleClass(t *testing.T) {
	f, _ := separable(20, 2)
	err := estimator.NewPipeline([]string{"x"}, nil, false).Fit(f, make([]int, 20))
	assert.ErrorIs(t, err, estimator.ErrSingleClass)
}

func TestCodec_MultiHorizonRoundTrip(t *testing.T) {
	f, y := separable(150, 3)
	mh := estimator.NewMultiHorizon([]int{90, 30})
	for _, h := range []int{30, 90} {
		p := estimator.NewPipeline([]string{"x", "noise"}, []string{"group"}, true)
		require.NoError(t, p.Fit(f, y))
		mh.Set(h, p)
	}

	data, err := estimator.Marshal(mh)
	require.NoError(t, err)
	decoded, err := estimator.Unmarshal(data)
	require.NoError(t, err)

	restored, ok := decoded.(*estimator.MultiHorizon)
	require.True(t, ok)
	assert.Equal(t, []int{30, 90}, restored.Horizons)

	want, err := mh.PredictProba(f)
	require.NoError(t, err)
	got, err := restored.PredictProba(f)
	require.NoError(t, err)
	for _, h := range []int{30, 90} {
		require.Len(t, got[h], f.Len())
		for i := range want[h] {
			assert.InDelta(t, want[h][i], got[h][i], 1e-12)
		}
	}
}

func TestCodec_UnknownKind(t *testing.T) {
	_, err := estimator.Unmarshal([]byte(`{"kind":"mystery","payload":{}}`))
	assert.ErrorIs(t, err, estimator.ErrUnknownKind)
}

func TestOneVsRest(t *testing.T) {
	f := frame.New("x", "y")
	var labels []string
	centers := map[string][2]float64{"a": {0, 0}, "b": {5, 0}, "c": {0, 5}}
	rng := rand.New(rand.NewSource(4))
	for _, c := range []string{"a", "b", "c"} {
		for i := 0; i < 40; i++ {
			f.Append(frame.Row{
				"x": centers[c][0] + rng.NormFloat64()*0.5,
				"y": centers[c][1] + rng.NormFloat64()*0.5,
			})
			labels = append(labels, c)
		}
	}

	ovr := estimator.NewOneVsRest([]string{"x", "y"}, nil)
	require.NoError(t, ovr.Fit(f, labels))
	assert.Equal(t, []string{"a", "b", "c"}, ovr.Classes())

	pred, err := ovr.Predict(f)
	require.NoError(t, err)
	correct := 0
	for i := range pred {
		if pred[i] == labels[i] {
			correct++
		}
	}
	assert.Greater(t, correct, 110)

	proba, err := ovr.PredictProba(f)
	require.NoError(t, err)
	assert.InDelta(t, 1, proba["a"][0]+proba["b"][0]+proba["c"][0], 1e-9)
}

func TestKMeans(t *testing.T) {
	f := frame.New("a", "b")
	for i := 0; i < 30; i++ {
		f.Append(frame.Row{"a": float64(i % 3), "b": 0.0})
		f.Append(frame.Row{"a": 100 + float64(i%3), "b": 50.0})
	}

	km := estimator.NewKMeans([]string{"a", "b"}, 2, 7)
	labels, err := km.Fit(f)
	require.NoError(t, err)

	for i := 0; i < len(labels); i += 2 {
		assert.Equal(t, labels[0], labels[i])
		assert.Equal(t, labels[1], labels[i+1])
	}
	assert.NotEqual(t, labels[0], labels[1])

	center := km.Center(labels[1])
	assert.InDelta(t, 101, center["a"], 1e-6)
	assert.InDelta(t, 50, center["b"], 1e-6)

	pred, err := km.Predict(f)
	require.NoError(t, err)
	assert.Equal(t, labels, pred)
}

func TestRidge_RecoversLinearRelation(t *testing.T) {
	f := frame.New("x1", "x2")
	var y []float64
	for i := 0; i < 50; i++ {
		x1, x2 := float64(i), float64(i%7)
		f.Append(frame.Row{"x1": x1, "x2": x2})
		y = append(y, 3*x1-2*x2+10)
	}

	r := estimator.NewRidge([]string{"x1", "x2"}, nil, 1e-8)
	require.NoError(t, r.Fit(f, y))

	pred, err := r.Predict(f)
	require.NoError(t, err)
	for i := range y {
		assert.InDelta(t, y[i], pred[i], 1e-4)
	}
}

func TestRidge_Validation(t *testing.T) {
	f := frame.New("x1")
	f.Append(frame.Row{"x1": 1.0})
	f.Append(frame.Row{"x1": 2.0})

	tests := []struct {
		name    string
		fit     func() error
		wantErr error
	}{
		{
			name:    "target length",
			fit:     func() error { return estimator.NewRidge([]string{"x1"}, nil, 1).Fit(f, []float64{1}) },
			wantErr: estimator.ErrDimensionMismatch,
		},
		{
			name:    "empty frame",
			fit:     func() error { return estimator.NewRidge([]string{"x1"}, nil, 1).Fit(frame.New("x1"), nil) },
			wantErr: estimator.ErrEmptyInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fit(), tt.wantErr)
		})
	}

	_, err := estimator.NewRidge([]string{"x1"}, nil, 1).Predict(f)
	assert.ErrorIs(t, err, estimator.ErrNotFitted)
}

func TestLogisticRegression_FitMatrix(t *testing.T) {
	tests := []struct {
		name    string
		X       [][]float64
		y       []int
		wantErr error
	}{
		{"empty", nil, nil, estimator.ErrEmptyInput},
		{"label count", [][]float64{{1}, {2}}, []int{1}, estimator.ErrDimensionMismatch},
		{"ragged rows", [][]float64{{1, 2}, {3}}, []int{0, 1}, estimator.ErrDimensionMismatch},
		{"single class", [][]float64{{1}, {2}}, []int{1, 1}, estimator.ErrSingleClass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := estimator.NewLogisticRegression().FitMatrix(tt.X, tt.y)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("separable", func(t *testing.T) {
		X := [][]float64{{-2}, {-1.5}, {-1}, {1}, {1.5}, {2}}
		y := []int{0, 0, 0, 1, 1, 1}
		m := estimator.NewLogisticRegression()
		require.NoError(t, m.FitMatrix(X, y))
		assert.Greater(t, m.Weights[0], 0.0)

		probs, err := m.PredictMatrix(X)
		require.NoError(t, err)
		for i, p := range probs {
			assert.Equal(t, y[i] == 1, p > 0.5, "row %d", i)
		}

		_, err = m.PredictMatrix([][]float64{{1, 2}})
		assert.ErrorIs(t, err, estimator.ErrDimensionMismatch)
	})
}

func TestKaplanMeier(t *testing.T) {
	km := &estimator.KaplanMeier{}
	require.NoError(t, km.Fit(
		[]float64{1, 2, 2, 3, 4, 5},
		[]int{1, 1, 0, 1, 0, 1},
	))

	// S(1)=5/6, S(2)=5/6*4/5=2/3, S(3)=2/3*2/3=4/9, S(5)=0
	assert.InDelta(t, 5.0/6, km.SurvivalAt(1), 1e-9)
	assert.InDelta(t, 2.0/3, km.SurvivalAt(2.5), 1e-9)
	assert.InDelta(t, 4.0/9, km.SurvivalAt(4), 1e-9)
	assert.InDelta(t, 0, km.SurvivalAt(5), 1e-9)
	assert.Equal(t, 1.0, km.SurvivalAt(0))

	median, ok := km.MedianSurvival()
	assert.True(t, ok)
	assert.Equal(t, 3.0, median)
}

func TestSeasonalForecaster(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	var dates []time.Time
	var values []float64
	for i := 0; i < 70; i++ {
		d := start.AddDate(0, 0, i)
		v := 10.0
		if d.Weekday() == time.Monday {
			v = 20
		}
		dates = append(dates, d)
		values = append(values, v)
	}

	fc := estimator.NewSeasonalForecaster()
	require.NoError(t, fc.Fit(dates, values))

	next, forecast, err := fc.Forecast(7)
	require.NoError(t, err)
	require.Len(t, forecast, 7)
	for i, d := range next {
		if d.Weekday() == time.Monday {
			assert.Greater(t, forecast[i], forecast[(i+1)%7])
		}
		assert.False(t, math.IsNaN(forecast[i]))
	}

	data, err := estimator.Marshal(fc)
	require.NoError(t, err)
	restored, err := estimator.Unmarshal(data)
	require.NoError(t, err)
	again, err := restored.(*estimator.SeasonalForecaster).Predict(next)
	require.NoError(t, err)
	assert.Equal(t, forecast, again)
}

func TestBundleRoundTrip(t *testing.T) {
	b := estimator.NewBundle()
	overall := &estimator.KaplanMeier{}
	require.NoError(t, overall.Fit([]float64{1, 2, 3}, []int{1, 0, 1}))
	b.Add("overall", overall)

	data, err := estimator.Marshal(b)
	require.NoError(t, err)
	decoded, err := estimator.Unmarshal(data)
	require.NoError(t, err)

	restored := decoded.(*estimator.Bundle)
	assert.Equal(t, []string{"overall"}, restored.Names())
	member, ok := restored.Get("overall")
	require.True(t, ok)
	assert.Equal(t, overall.Curve, member.(*estimator.KaplanMeier).Curve)
}
