package estimator

import (
	"fmt"
	"sort"
)

const KindKaplanMeier = "kaplan_meier"

// SurvivalPoint is one step of a Kaplan-Meier curve.
type SurvivalPoint struct {
	Time     float64 `json:"time"`
	AtRisk   int     `json:"at_risk"`
	Events   int     `json:"events"`
	Survival float64 `json:"survival"`
}

// KaplanMeier is a product-limit survival estimate. Durations are in days,
// an event of 1 marks an observed exit and 0 a censored observation.
type KaplanMeier struct {
	Curve []SurvivalPoint `json:"curve"`
	N     int             `json:"n"`
}

func (k *KaplanMeier) Kind() string { return KindKaplanMeier }

func (k *KaplanMeier) Fit(durations []float64, events []int) error {
	if len(durations) == 0 {
		return ErrEmptyInput
	}
	if len(durations) != len(events) {
		return fmt.Errorf("%w: %d durations, %d events", ErrDimensionMismatch, len(durations), len(events))
	}

	idx := make([]int, len(durations))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return durations[idx[a]] < durations[idx[b]] })

	k.N = len(durations)
	k.Curve = k.Curve[:0]
	atRisk := len(durations)
	survival := 1.0
	for i := 0; i < len(idx); {
		t := durations[idx[i]]
		deaths, removed := 0, 0
		for i < len(idx) && durations[idx[i]] == t {
			if events[idx[i]] == 1 {
				deaths++
			}
			removed++
			i++
		}
		if deaths > 0 {
			survival *= 1 - float64(deaths)/float64(atRisk)
			k.Curve = append(k.Curve, SurvivalPoint{
				Time:     t,
				AtRisk:   atRisk,
				Events:   deaths,
				Survival: survival,
			})
		}
		atRisk -= removed
	}
	return nil
}

// SurvivalAt returns S(t), the probability of remaining past t days.
func (k *KaplanMeier) SurvivalAt(t float64) float64 {
	s := 1.0
	for _, p := range k.Curve {
		if p.Time > t {
			break
		}
		s = p.Survival
	}
	return s
}

// MedianSurvival returns the first time S(t) <= 0.5, or false when the
// curve never drops that far.
func (k *KaplanMeier) MedianSurvival() (float64, bool) {
	for _, p := range k.Curve {
		if p.Survival <= 0.5 {
			return p.Time, true
		}
	}
	return 0, false
}
