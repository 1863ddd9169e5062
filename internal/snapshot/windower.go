// Package snapshot turns an employee roster into a point-in-time panel: one
// row per (employee, as-of date) with features known at that date and
// forward-looking termination labels per horizon.
package snapshot

import (
	"sort"
	"time"

	"github.com/OldStager01/workforce-ml/pkg/models"
)

var DefaultHorizons = []int{30, 60, 90}

type Options struct {
	// EmbargoMonths excludes the most recent months whose outcomes are not
	// yet observable.
	EmbargoMonths  int
	LookbackMonths int
	Horizons       []int
	// Today anchors the window. Zero means the current UTC date.
	Today time.Time
}

func DefaultOptions() Options {
	return Options{
		EmbargoMonths:  3,
		LookbackMonths: 12,
		Horizons:       DefaultHorizons,
	}
}

func (o Options) withDefaults() Options {
	if o.EmbargoMonths < 0 {
		o.EmbargoMonths = 0
	}
	if o.LookbackMonths < 0 {
		o.LookbackMonths = 0
	}
	if len(o.Horizons) == 0 {
		o.Horizons = DefaultHorizons
	}
	hs := append([]int(nil), o.Horizons...)
	sort.Ints(hs)
	o.Horizons = hs
	if o.Today.IsZero() {
		o.Today = time.Now().UTC()
	}
	o.Today = Date(o.Today)
	return o
}

// Windower builds snapshot panels.
type Windower struct {
	opts Options
}

func NewWindower(opts Options) *Windower {
	return &Windower{opts: opts.withDefaults()}
}

func (w *Windower) Options() Options {
	return w.opts
}

// AsOfDates returns the monthly as-of dates from today-embargo-lookback
// through today-embargo, both inclusive.
func (w *Windower) AsOfDates() []time.Time {
	end := AddMonths(w.opts.Today, -w.opts.EmbargoMonths)
	start := AddMonths(end, -w.opts.LookbackMonths)

	var dates []time.Time
	for k := 0; ; k++ {
		d := AddMonths(start, k)
		if d.After(end) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

// Build produces the panel. An empty roster yields an empty panel.
func (w *Windower) Build(roster []models.EmployeeRecord) []models.Snapshot {
	if len(roster) == 0 {
		return nil
	}

	var panel []models.Snapshot
	for _, asOf := range w.AsOfDates() {
		for i := range roster {
			if s, ok := w.snapshotAt(&roster[i], asOf); ok {
				panel = append(panel, s)
			}
		}
	}
	return panel
}

func (w *Windower) snapshotAt(e *models.EmployeeRecord, asOf time.Time) (models.Snapshot, bool) {
	hire := Date(e.HireDate)
	if !hire.Before(asOf) {
		return models.Snapshot{}, false
	}

	var term *time.Time
	if e.TerminationDate != nil {
		t := Date(*e.TerminationDate)
		if t.Before(asOf) {
			return models.Snapshot{}, false
		}
		term = &t
	}

	s := models.Snapshot{
		EmployeeID:    e.EmployeeID,
		AsOf:          asOf,
		TenureDays:    DaysBetween(hire, asOf),
		SeniorityDays: DaysBetween(Date(e.SeniorityBase()), asOf),
		Attributes:    e.Attributes,
		Incidents:     e.Incidents,
		Labels:        make(map[int]int, len(w.opts.Horizons)),
	}

	delta := -1
	if term != nil {
		delta = DaysBetween(asOf, *term)
		// termination on the as-of date itself is not a future event
		if delta >= 1 {
			d := delta
			s.DaysUntilTermination = &d
		}
	}
	for _, h := range w.opts.Horizons {
		if delta >= 1 && delta <= h {
			s.Labels[h] = 1
		} else {
			s.Labels[h] = 0
		}
	}
	return s, true
}

// Date truncates t to its UTC calendar date.
func Date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts a date by n calendar months, clamping the day to the
// length of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}
