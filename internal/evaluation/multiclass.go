package evaluation

import "sort"

// ClassScore is the one-vs-rest precision/recall/F1 of one class.
type ClassScore struct {
	Precision *float64 `json:"precision"`
	Recall    *float64 `json:"recall"`
	F1        *float64 `json:"f1_score"`
	Support   int      `json:"support"`
}

// MultiClassReport summarises predictions over string labels.
type MultiClassReport struct {
	Accuracy *float64              `json:"accuracy"`
	MacroF1  *float64              `json:"macro_f1"`
	Classes  map[string]ClassScore `json:"classes"`
}

func MultiClass(actual, predicted []string) MultiClassReport {
	r := MultiClassReport{Classes: make(map[string]ClassScore)}
	if len(actual) == 0 || len(actual) != len(predicted) {
		return r
	}

	labels := make(map[string]struct{})
	correct := 0
	for i := range actual {
		labels[actual[i]] = struct{}{}
		labels[predicted[i]] = struct{}{}
		if actual[i] == predicted[i] {
			correct++
		}
	}
	r.Accuracy = ratio(correct, len(actual))

	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, l)
	}
	sort.Strings(names)

	var f1s []*float64
	for _, c := range names {
		tp, fp, fn := 0, 0, 0
		for i := range actual {
			switch {
			case actual[i] == c && predicted[i] == c:
				tp++
			case predicted[i] == c:
				fp++
			case actual[i] == c:
				fn++
			}
		}
		s := ClassScore{
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   tp + fn,
		}
		s.F1 = f1(s.Precision, s.Recall)
		r.Classes[c] = s
		if s.Support > 0 {
			f1s = append(f1s, s.F1)
		}
	}
	r.MacroF1, _ = MeanStd(f1s)
	return r
}

func f1(precision, recall *float64) *float64 {
	if precision == nil || recall == nil {
		return nil
	}
	if *precision+*recall == 0 {
		return Float(0)
	}
	return Float(2 * *precision * *recall / (*precision + *recall))
}
