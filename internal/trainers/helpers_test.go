package trainers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/snapshot"
)

func TestNormalizeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SINDICALIZADO", "Sindicalizados"},
		{"sind. planta", "Sindicalizados"},
		{"CONFIANZA", "Confianza"},
		{"", "Desconocido"},
		{"nan", "Desconocido"},
		{"None", "Desconocido"},
		{"EVENTUAL", "Eventual"},
		{"personal  externo", "Personal Externo"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeSegment(tt.in))
		})
	}
}

func TestRecommendAction(t *testing.T) {
	tests := []struct {
		name string
		row  frame.Row
		want string
	}{
		{"high risk with recent incidents", frame.Row{colRotationProbability: 0.8, snapshot.ColNeg90d: 2.0}, ActionRetentionPlan},
		{"risk plus recurrent absence", frame.Row{colRotationProbability: 0.65, colRecurrentAbsence: 1.0}, ActionMentoring},
		{"moderate risk with recent absence", frame.Row{colRotationProbability: 0.55, colAbsences30d: 1.0}, ActionHRReview},
		{"low risk many incidents", frame.Row{colRotationProbability: 0.1, snapshot.ColNeg90d: 3.0}, ActionDisciplinary},
		{"nothing notable", frame.Row{colRotationProbability: 0.2}, ActionRecognition},
		{"missing cells", frame.Row{}, ActionRecognition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recommendAction(tt.row))
		})
	}
}

func TestPrepareRotationFeatures_CopiesRows(t *testing.T) {
	src := frame.New(snapshot.ColNeg90d, snapshot.ColTotal90d, snapshot.ColNeg365d, snapshot.ColTotal365d)
	src.Append(frame.Row{snapshot.ColNeg90d: 2.0, snapshot.ColTotal90d: 4.0, snapshot.ColNeg365d: 3.0, snapshot.ColTotal365d: 0.0})

	out := prepareRotationFeatures(src)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 0.5, out.Rows[0][colRatioNeg90d])
	assert.Equal(t, 0.0, out.Rows[0][colRatioNeg365d])
	assert.True(t, out.HasColumn(colRatioPermits365d))

	_, leaked := src.Rows[0][colRatioNeg90d]
	assert.False(t, leaked)
	assert.Len(t, src.Columns, 4)
}

func TestAsEnsemble(t *testing.T) {
	single := estimator.NewPipeline([]string{"x"}, nil, false)
	ens, err := asEnsemble(single)
	require.NoError(t, err)
	assert.Equal(t, []int{90}, ens.Horizons)

	multi := estimator.NewMultiHorizon([]int{30, 90})
	got, err := asEnsemble(multi)
	require.NoError(t, err)
	assert.Same(t, multi, got)

	_, err = asEnsemble(&estimator.KaplanMeier{})
	assert.Error(t, err)
}

func TestClassCodesAndDistribution(t *testing.T) {
	codes, classes := classCodes([]string{"b", "a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, classes)
	assert.Equal(t, []int{1, 0, 1, 2}, codes)

	d := distribution([]string{"x", "x", "y", "x"})
	assert.InDelta(t, 0.75, d["x"], 1e-9)
	assert.InDelta(t, 0.25, d["y"], 1e-9)
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.InDelta(t, 3.25, percentile(values, 75), 1e-9)
	assert.InDelta(t, 1.0, percentile(values, 0), 1e-9)
	assert.Equal(t, 0.0, percentile(nil, 50))
	assert.Equal(t, []float64{4, 1, 3, 2}, values)
}
