package evaluation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/evaluation"
	"github.com/OldStager01/workforce-ml/internal/frame"
)

func TestStratifiedSplit(t *testing.T) {
	y := make([]int, 100)
	for i := 0; i < 10; i++ {
		y[i*10] = 1
	}

	train, test := evaluation.StratifiedSplit(y, 0.2, 42)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	pos, _ := evaluation.CountClasses(evaluation.Subset(y, test))
	assert.Equal(t, 2, pos)

	again, againTest := evaluation.StratifiedSplit(y, 0.2, 42)
	assert.Equal(t, train, again, "split is deterministic for a seed")
	assert.Equal(t, test, againTest)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, seen, 100)
}

func TestStratifiedSplit_SmallClassKeepsBothSides(t *testing.T) {
	y := []int{1, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	train, test := evaluation.StratifiedSplit(y, 0.2, 1)

	trainPos, _ := evaluation.CountClasses(evaluation.Subset(y, train))
	testPos, _ := evaluation.CountClasses(evaluation.Subset(y, test))
	assert.Equal(t, 1, trainPos)
	assert.Equal(t, 1, testPos)
}

func TestStratifiedKFold(t *testing.T) {
	y := make([]int, 50)
	for i := 0; i < 10; i++ {
		y[i] = 1
	}
	folds := evaluation.StratifiedKFold(y, 5, 3)
	require.Len(t, folds, 5)

	total := 0
	for _, f := range folds {
		total += len(f)
		pos, _ := evaluation.CountClasses(evaluation.Subset(y, f))
		assert.Equal(t, 2, pos)
	}
	assert.Equal(t, 50, total)
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		y      []int
		scores []float64
		want   *float64
	}{
		{"perfect", []int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}, evaluation.Float(1)},
		{"inverted", []int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}, evaluation.Float(0)},
		{"ties", []int{0, 1}, []float64{0.5, 0.5}, evaluation.Float(0.5)},
		{"grouped ties", []int{0, 1, 0, 1, 1}, []float64{0.2, 0.2, 0.6, 0.6, 0.9}, evaluation.Float(4.0 / 6)},
		{"sklearn example", []int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}, evaluation.Float(0.75)},
		{"single class", []int{1, 1}, []float64{0.3, 0.6}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluation.ROCAUC(tt.y, tt.scores)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestROCAUC_LeavesInputsUntouched(t *testing.T) {
	y := []int{1, 0, 1, 0}
	scores := []float64{0.9, 0.1, 0.3, 0.7}

	got := evaluation.ROCAUC(y, scores)
	require.NotNil(t, got)
	assert.InDelta(t, 0.75, *got, 1e-9)
	assert.Equal(t, []int{1, 0, 1, 0}, y)
	assert.Equal(t, []float64{0.9, 0.1, 0.3, 0.7}, scores)
}

func TestMeanStd(t *testing.T) {
	tests := []struct {
		name     string
		values   []*float64
		wantMean *float64
		wantStd  *float64
	}{
		{"empty", nil, nil, nil},
		{"all missing", []*float64{nil, nil}, nil, nil},
		{"population std", []*float64{evaluation.Float(1), evaluation.Float(3)}, evaluation.Float(2), evaluation.Float(1)},
		{"skips missing", []*float64{evaluation.Float(0.5), nil, evaluation.Float(0.5)}, evaluation.Float(0.5), evaluation.Float(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := evaluation.MeanStd(tt.values)
			if tt.wantMean == nil {
				assert.Nil(t, mean)
				assert.Nil(t, std)
				return
			}
			require.NotNil(t, mean)
			require.NotNil(t, std)
			assert.InDelta(t, *tt.wantMean, *mean, 1e-9)
			assert.InDelta(t, *tt.wantStd, *std, 1e-9)
		})
	}
}

func TestAveragePrecision(t *testing.T) {
	// matches sklearn.metrics.average_precision_score
	ap := evaluation.AveragePrecision([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	require.NotNil(t, ap)
	assert.InDelta(t, 0.8333333, *ap, 1e-6)

	assert.Nil(t, evaluation.AveragePrecision([]int{0, 0}, []float64{0.1, 0.2}))
}

func TestClassify(t *testing.T) {
	y := []int{1, 1, 0, 0, 0}
	scores := []float64{0.9, 0.4, 0.6, 0.2, 0.1}

	r := evaluation.Classify(y, scores, 0.5)
	assert.Equal(t, evaluation.Confusion{TN: 2, FP: 1, FN: 1, TP: 1}, r.Confusion)
	assert.InDelta(t, 0.5, *r.Precision, 1e-9)
	assert.InDelta(t, 0.5, *r.Recall, 1e-9)
	assert.InDelta(t, 0.5, *r.F1, 1e-9)
	assert.InDelta(t, 2.0/3, *r.Specificity, 1e-9)
	assert.InDelta(t, 1.0/3, *r.FalsePositiveRate, 1e-9)
	assert.InDelta(t, 0.5, *r.FalseNegativeRate, 1e-9)
	assert.InDelta(t, 0.4, r.PositiveRate, 1e-9)
	assert.Equal(t, [][]int{{2, 1}, {1, 1}}, r.Confusion.Matrix())
}

func TestClassify_UndefinedMetricsAreAbsent(t *testing.T) {
	r := evaluation.Classify([]int{0, 0, 0}, []float64{0.1, 0.2, 0.3}, 0.5)
	assert.Nil(t, r.ROCAUC)
	assert.Nil(t, r.Precision, "no predicted positives")
	assert.Nil(t, r.Recall, "no actual positives")
	assert.Nil(t, r.F1)
	assert.NotNil(t, r.Specificity)
}

func TestCurves(t *testing.T) {
	y := []int{0, 1, 0, 1}
	scores := []float64{0.2, 0.9, 0.6, 0.6}

	roc := evaluation.ROCCurve(y, scores)
	require.Len(t, roc, 4)
	assert.Equal(t, 0.0, roc[0].FPR)
	assert.Equal(t, 0.0, roc[0].TPR)
	assert.Greater(t, roc[0].Threshold, 0.9)
	assert.Equal(t, 0.5, roc[1].TPR)
	assert.Equal(t, 1.0, roc[len(roc)-1].FPR)
	assert.Equal(t, 1.0, roc[len(roc)-1].TPR)

	pr := evaluation.PRCurve(y, scores)
	require.Len(t, pr, 3)
	assert.Equal(t, 1.0, pr[0].Precision)
	assert.Equal(t, 0.5, pr[0].Recall)
	assert.Equal(t, 1.0, pr[len(pr)-1].Recall)
}

func TestRegress(t *testing.T) {
	r := evaluation.Regress([]float64{1, 2, 3, 0}, []float64{1, 3, 2, 0})
	assert.InDelta(t, 0.5, r.MAE, 1e-9)
	assert.InDelta(t, 0.7071067, r.RMSE, 1e-6)
	require.NotNil(t, r.R2)
	assert.InDelta(t, 1-2.0/5, *r.R2, 1e-9)
	require.NotNil(t, r.MAPE)
	assert.InDelta(t, (0+0.5+1.0/3)/3, *r.MAPE, 1e-9)
}

func TestCrossValAUC(t *testing.T) {
	f := frame.New("x")
	var y []int
	for i := 0; i < 60; i++ {
		label := 0
		if i%4 == 0 {
			label = 1
		}
		f.Append(frame.Row{"x": float64(label*5 + i%3)})
		y = append(y, label)
	}

	mean, std, err := evaluation.CrossValAUC(context.Background(), f, y, 5, 42, func() estimator.Classifier {
		return estimator.NewPipeline([]string{"x"}, nil, true)
	})
	require.NoError(t, err)
	require.NotNil(t, mean)
	require.NotNil(t, std)
	assert.InDelta(t, 1.0, *mean, 1e-9)
	assert.InDelta(t, 0.0, *std, 1e-9)
}

func TestSilhouette(t *testing.T) {
	X := [][]float64{{0, 0}, {0, 1}, {10, 10}, {10, 11}}

	s := evaluation.Silhouette(X, []int{0, 0, 1, 1})
	require.NotNil(t, s)
	assert.Greater(t, *s, 0.8)

	bad := evaluation.Silhouette(X, []int{0, 1, 0, 1})
	require.NotNil(t, bad)
	assert.Less(t, *bad, 0.0)

	assert.Nil(t, evaluation.Silhouette(X, []int{0, 0, 0, 0}))
	assert.Nil(t, evaluation.Silhouette(X, []int{0, 1, 2, 3}))
}

func TestMultiClass(t *testing.T) {
	actual := []string{"a", "a", "b", "b", "c"}
	predicted := []string{"a", "b", "b", "b", "a"}

	r := evaluation.MultiClass(actual, predicted)
	require.NotNil(t, r.Accuracy)
	assert.InDelta(t, 0.6, *r.Accuracy, 1e-9)

	b := r.Classes["b"]
	assert.Equal(t, 2, b.Support)
	assert.InDelta(t, 2.0/3.0, *b.Precision, 1e-9)
	assert.InDelta(t, 1.0, *b.Recall, 1e-9)

	c := r.Classes["c"]
	assert.Nil(t, c.Precision)
	assert.InDelta(t, 0.0, *c.Recall, 1e-9)
	require.NotNil(t, r.MacroF1)
}
