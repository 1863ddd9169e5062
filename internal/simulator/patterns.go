package simulator

import (
	"math"
	"math/rand"
	"time"
)

// Pattern shapes the expected number of absences on a given day.
type Pattern interface {
	Apply(base float64, day time.Time) float64
	Name() string
}

var (
	PatternSteady   Pattern = &SteadyPattern{}
	PatternWeekly   Pattern = &WeeklyPattern{}
	PatternSeasonal Pattern = &SeasonalPattern{}
)

func ParsePattern(name string) Pattern {
	switch name {
	case "weekly":
		return PatternWeekly
	case "seasonal":
		return PatternSeasonal
	case "weekly_seasonal":
		return Compose(PatternWeekly, PatternSeasonal)
	default:
		return PatternSteady
	}
}

type SteadyPattern struct{}

func (p *SteadyPattern) Apply(base float64, _ time.Time) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// WeeklyPattern raises absences around the weekend and drops them on Sunday
// when most shifts are off.
type WeeklyPattern struct{}

func (p *WeeklyPattern) Apply(base float64, day time.Time) float64 {
	var modifier float64
	switch day.Weekday() {
	case time.Monday:
		modifier = 1.35
	case time.Friday:
		modifier = 1.2
	case time.Saturday:
		modifier = 0.8
	case time.Sunday:
		modifier = 0.4
	default:
		modifier = 1.0
	}
	return base * modifier
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

// SeasonalPattern is a smooth yearly oscillation peaking in December.
type SeasonalPattern struct {
	Amplitude float64
}

func (p *SeasonalPattern) Apply(base float64, day time.Time) float64 {
	amplitude := p.Amplitude
	if amplitude == 0 {
		amplitude = 0.15
	}
	phase := float64(day.YearDay()-355) / 365.25 * 2 * math.Pi
	return base * (1 + amplitude*math.Cos(phase))
}

func (p *SeasonalPattern) Name() string {
	return "seasonal"
}

type composite []Pattern

func Compose(patterns ...Pattern) Pattern {
	return composite(patterns)
}

func (c composite) Apply(base float64, day time.Time) float64 {
	for _, p := range c {
		base = p.Apply(base, day)
	}
	return base
}

func (c composite) Name() string {
	name := ""
	for i, p := range c {
		if i > 0 {
			name += "+"
		}
		name += p.Name()
	}
	return name
}

// jitter applies multiplicative noise in [1-spread, 1+spread].
func jitter(rng *rand.Rand, v, spread float64) float64 {
	return v * (1 - spread + 2*spread*rng.Float64())
}
