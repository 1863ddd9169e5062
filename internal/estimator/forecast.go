package estimator

import (
	"fmt"
	"math"
	"time"
)

const KindSeasonalForecast = "seasonal_forecast"

// SeasonalForecaster predicts a daily series as the recent level times a
// day-of-week profile learned over the trailing weeks.
type SeasonalForecaster struct {
	ProfileWeeks int        `json:"profile_weeks"`
	LevelDays    int        `json:"level_days"`
	Level        float64    `json:"level"`
	Profile      [7]float64 `json:"profile"`
	LastDate     time.Time  `json:"last_date"`
	Fitted       bool       `json:"fitted"`
}

func NewSeasonalForecaster() *SeasonalForecaster {
	return &SeasonalForecaster{ProfileWeeks: 8, LevelDays: 28}
}

func (s *SeasonalForecaster) Kind() string { return KindSeasonalForecast }

// Fit expects consecutive daily observations ordered by date.
func (s *SeasonalForecaster) Fit(dates []time.Time, values []float64) error {
	if len(dates) == 0 {
		return ErrEmptyInput
	}
	if len(dates) != len(values) {
		return fmt.Errorf("%w: %d dates, %d values", ErrDimensionMismatch, len(dates), len(values))
	}

	window := s.ProfileWeeks * 7
	if window <= 0 || window > len(values) {
		window = len(values)
	}
	recent := values[len(values)-window:]
	recentDates := dates[len(dates)-window:]

	var sums, counts [7]float64
	var total float64
	for i, v := range recent {
		wd := recentDates[i].Weekday()
		sums[wd] += v
		counts[wd]++
		total += v
	}
	overall := total / float64(len(recent))
	for wd := 0; wd < 7; wd++ {
		switch {
		case counts[wd] == 0 || overall == 0:
			s.Profile[wd] = 1
		default:
			s.Profile[wd] = (sums[wd] / counts[wd]) / overall
		}
	}

	levelDays := s.LevelDays
	if levelDays <= 0 || levelDays > len(values) {
		levelDays = len(values)
	}
	var level float64
	for _, v := range values[len(values)-levelDays:] {
		level += v
	}
	s.Level = level / float64(levelDays)
	s.LastDate = dates[len(dates)-1]
	s.Fitted = true
	return nil
}

// Predict forecasts the given dates.
func (s *SeasonalForecaster) Predict(dates []time.Time) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = math.Max(0, s.Level*s.Profile[d.Weekday()])
	}
	return out, nil
}

// Forecast projects the next steps days after the last observed date.
func (s *SeasonalForecaster) Forecast(steps int) ([]time.Time, []float64, error) {
	dates := make([]time.Time, steps)
	for i := range dates {
		dates[i] = s.LastDate.AddDate(0, 0, i+1)
	}
	values, err := s.Predict(dates)
	return dates, values, err
}
