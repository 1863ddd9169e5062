package evaluation

import "math"

type RegressionReport struct {
	MAE  float64  `json:"mae"`
	RMSE float64  `json:"rmse"`
	R2   *float64 `json:"r2"`
	MAPE *float64 `json:"mape"`
	N    int      `json:"n"`
}

// Regress compares predictions with actual values. MAPE skips zero actuals
// and is nil when every actual is zero.
func Regress(actual, predicted []float64) RegressionReport {
	r := RegressionReport{N: len(actual)}
	if len(actual) == 0 {
		return r
	}

	var absSum, sqSum, mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssTot, apeSum float64
	apeN := 0
	for i, a := range actual {
		d := a - predicted[i]
		absSum += math.Abs(d)
		sqSum += d * d
		ssTot += (a - mean) * (a - mean)
		if a != 0 {
			apeSum += math.Abs(d / a)
			apeN++
		}
	}

	n := float64(len(actual))
	r.MAE = absSum / n
	r.RMSE = math.Sqrt(sqSum / n)
	if ssTot > 0 {
		r.R2 = Float(1 - sqSum/ssTot)
	}
	if apeN > 0 {
		r.MAPE = Float(apeSum / float64(apeN))
	}
	return r
}
