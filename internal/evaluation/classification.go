package evaluation

import (
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Confusion holds binary confusion-matrix counts.
type Confusion struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Matrix returns [[tn, fp], [fn, tp]].
func (c Confusion) Matrix() [][]int {
	return [][]int{{c.TN, c.FP}, {c.FN, c.TP}}
}

// ClassificationReport is the per-horizon metric set. Pointer fields are nil
// when the metric is undefined for the data it was computed on.
type ClassificationReport struct {
	ROCAUC            *float64  `json:"roc_auc"`
	AveragePrecision  *float64  `json:"average_precision"`
	Precision         *float64  `json:"precision"`
	Recall            *float64  `json:"recall"`
	F1                *float64  `json:"f1_score"`
	Specificity       *float64  `json:"specificity"`
	FalsePositiveRate *float64  `json:"false_positive_rate"`
	FalseNegativeRate *float64  `json:"false_negative_rate"`
	Threshold         float64   `json:"threshold"`
	Confusion         Confusion `json:"confusion"`
	Support           int       `json:"support"`
	PositiveRate      float64   `json:"positive_rate"`
}

func Threshold(scores []float64, threshold float64) []int {
	out := make([]int, len(scores))
	for i, s := range scores {
		if s >= threshold {
			out[i] = 1
		}
	}
	return out
}

func ConfusionMatrix(y, pred []int) Confusion {
	var c Confusion
	for i := range y {
		switch {
		case y[i] == 1 && pred[i] == 1:
			c.TP++
		case y[i] == 1:
			c.FN++
		case pred[i] == 1:
			c.FP++
		default:
			c.TN++
		}
	}
	return c
}

// Classify computes every threshold and ranking metric for one test set.
func Classify(y []int, scores []float64, threshold float64) ClassificationReport {
	c := ConfusionMatrix(y, Threshold(scores, threshold))
	r := ClassificationReport{
		ROCAUC:            ROCAUC(y, scores),
		AveragePrecision:  AveragePrecision(y, scores),
		Precision:         ratio(c.TP, c.TP+c.FP),
		Recall:            ratio(c.TP, c.TP+c.FN),
		Specificity:       ratio(c.TN, c.TN+c.FP),
		FalsePositiveRate: ratio(c.FP, c.FP+c.TN),
		FalseNegativeRate: ratio(c.FN, c.FN+c.TP),
		Threshold:         threshold,
		Confusion:         c,
		Support:           len(y),
	}
	if r.Precision != nil && r.Recall != nil {
		p, rec := *r.Precision, *r.Recall
		f1 := 0.0
		if p+rec > 0 {
			f1 = 2 * p * rec / (p + rec)
		}
		r.F1 = &f1
	}
	if len(y) > 0 {
		r.PositiveRate = float64(c.TP+c.FN) / float64(len(y))
	}
	return r
}

// ROCAUC is the trapezoidal area under the ROC curve, which counts tied
// scores half. Nil when only one class is present.
func ROCAUC(y []int, scores []float64) *float64 {
	pos, neg := CountClasses(y)
	if pos == 0 || neg == 0 {
		return nil
	}

	sorted := append([]float64(nil), scores...)
	classes := make([]bool, len(y))
	for i, v := range y {
		classes[i] = v == 1
	}
	stat.SortWeightedLabeled(sorted, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	auc := integrate.Trapezoidal(fpr, tpr)
	return &auc
}

// AveragePrecision is the step-wise area under the precision-recall curve.
func AveragePrecision(y []int, scores []float64) *float64 {
	pos, _ := CountClasses(y)
	if pos == 0 {
		return nil
	}
	points := PRCurve(y, scores)
	ap := 0.0
	prevRecall := 0.0
	for _, p := range points {
		ap += (p.Recall - prevRecall) * p.Precision
		prevRecall = p.Recall
	}
	return &ap
}

type ROCPoint struct {
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
	Threshold float64 `json:"threshold"`
}

type PRPoint struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Threshold float64 `json:"threshold"`
}

// ROCCurve walks distinct score thresholds from high to low. The first point
// is (0,0) at a threshold above every score.
func ROCCurve(y []int, scores []float64) []ROCPoint {
	pos, neg := CountClasses(y)
	if pos == 0 || neg == 0 {
		return nil
	}
	idx := sortedByScore(scores, true)
	points := []ROCPoint{{FPR: 0, TPR: 0, Threshold: scores[idx[0]] + 1}}
	tp, fp := 0, 0
	for i := 0; i < len(idx); {
		t := scores[idx[i]]
		for i < len(idx) && scores[idx[i]] == t {
			if y[idx[i]] == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		points = append(points, ROCPoint{
			FPR:       float64(fp) / float64(neg),
			TPR:       float64(tp) / float64(pos),
			Threshold: t,
		})
	}
	return points
}

// PRCurve walks distinct thresholds from high to low, one point per
// threshold, ordered by increasing recall.
func PRCurve(y []int, scores []float64) []PRPoint {
	pos, _ := CountClasses(y)
	if pos == 0 || len(scores) == 0 {
		return nil
	}
	idx := sortedByScore(scores, true)
	var points []PRPoint
	tp, fp := 0, 0
	for i := 0; i < len(idx); {
		t := scores[idx[i]]
		for i < len(idx) && scores[idx[i]] == t {
			if y[idx[i]] == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		points = append(points, PRPoint{
			Precision: float64(tp) / float64(tp+fp),
			Recall:    float64(tp) / float64(pos),
			Threshold: t,
		})
	}
	return points
}

// MeanStd summarises fold scores; nil when no fold produced a value.
func MeanStd(values []*float64) (*float64, *float64) {
	var vs []float64
	for _, v := range values {
		if v != nil {
			vs = append(vs, *v)
		}
	}
	if len(vs) == 0 {
		return nil, nil
	}
	mean, std := stat.PopMeanStdDev(vs, nil)
	return &mean, &std
}

func sortedByScore(scores []float64, desc bool) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if desc {
			return scores[idx[a]] > scores[idx[b]]
		}
		return scores[idx[a]] < scores[idx[b]]
	})
	return idx
}

func ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

// Float returns a pointer to v, for building optional metric values.
func Float(v float64) *float64 {
	return &v
}
