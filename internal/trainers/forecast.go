package trainers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/evaluation"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

const (
	validationDays = 28
	projectionDays = 30
	minHistoryDays = 2 * validationDays
	seasonLength   = 7
)

// AbsenceForecast projects daily absences with a weekly seasonal profile.
type AbsenceForecast struct {
	base
}

func NewAbsenceForecast(deps Deps) *AbsenceForecast {
	return &AbsenceForecast{base: newBase(IDAbsenceForecast, "Daily absence forecast", "mae", deps)}
}

func (m *AbsenceForecast) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	return m.fetch(ctx, models.DatasetDailyAbsences, dailyAbsencesSQL)
}

type dailyPoint struct {
	date  time.Time
	value float64
}

// dailySeries sums absences per calendar day and fills gaps with zero.
func dailySeries(f *frame.Frame) []dailyPoint {
	byDay := make(map[time.Time]float64)
	for _, r := range f.Rows {
		d, ok := r.Time("date")
		if !ok {
			continue
		}
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		byDay[d] += r.FloatOr("absences", 0)
	}
	if len(byDay) == 0 {
		return nil
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var out []dailyPoint
	for d := days[0]; !d.After(days[len(days)-1]); d = d.AddDate(0, 0, 1) {
		out = append(out, dailyPoint{date: d, value: byDay[d]})
	}
	return out
}

func splitSeries(points []dailyPoint) ([]time.Time, []float64) {
	dates := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		dates[i], values[i] = p.date, p.value
	}
	return dates, values
}

// seasonalNaiveMAE is the in-sample error of repeating last week's value.
func seasonalNaiveMAE(values []float64) float64 {
	if len(values) <= seasonLength {
		return 0
	}
	var sum float64
	for i := seasonLength; i < len(values); i++ {
		sum += math.Abs(values[i] - values[i-seasonLength])
	}
	return sum / float64(len(values)-seasonLength)
}

func (m *AbsenceForecast) RunTraining(_ context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	points := dailySeries(f)
	if len(points) < minHistoryDays {
		return nil, fmt.Errorf("%w: %d days of history, need %d", trainer.ErrDataUnavailable, len(points), minHistoryDays)
	}

	history, holdout := points[:len(points)-validationDays], points[len(points)-validationDays:]
	hDates, hValues := splitSeries(history)
	vDates, vValues := splitSeries(holdout)

	validation := estimator.NewSeasonalForecaster()
	if err := validation.Fit(hDates, hValues); err != nil {
		return nil, err
	}
	predicted, err := validation.Predict(vDates)
	if err != nil {
		return nil, err
	}
	report := evaluation.Regress(vValues, predicted)

	var mase *float64
	if scale := seasonalNaiveMAE(hValues); scale > 0 {
		mase = evaluation.Float(report.MAE / scale)
	}

	dates, values := splitSeries(points)
	final := estimator.NewSeasonalForecaster()
	if err := final.Fit(dates, values); err != nil {
		return nil, err
	}
	steps := params.Int("horizon_days", projectionDays)
	fDates, fValues, err := final.Forecast(steps)
	if err != nil {
		return nil, err
	}

	forecast := make([]map[string]interface{}, len(fDates))
	var total float64
	for i := range fDates {
		forecast[i] = map[string]interface{}{
			"date":      fDates[i].Format("2006-01-02"),
			"predicted": round(fValues[i], 2),
		}
		total += fValues[i]
	}
	validationSeries := make([]map[string]interface{}, len(vDates))
	for i := range vDates {
		validationSeries[i] = map[string]interface{}{
			"date":      vDates[i].Format("2006-01-02"),
			"actual":    vValues[i],
			"predicted": round(predicted[i], 2),
		}
	}

	metrics := map[string]interface{}{
		"mae":                 report.MAE,
		"rmse":                report.RMSE,
		"mape":                report.MAPE,
		"mase":                mase,
		"history_days":        len(points),
		"validation_days":     validationDays,
		"mean_daily_absences": mean(values),
		"projected_total":     round(total, 2),
	}
	artifacts := map[string]interface{}{
		"forecast":        forecast,
		"validation":      validationSeries,
		"weekday_profile": final.Profile,
		"level":           final.Level,
	}
	return &trainer.Output{Estimator: final, Metrics: metrics, Artifacts: artifacts}, nil
}
