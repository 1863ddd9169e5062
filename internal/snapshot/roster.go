package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

// Column names shared by the roster dataset and the panel frame.
const (
	ColEmployeeID      = "employee_id"
	ColHireDate        = "hire_date"
	ColSeniorityDate   = "seniority_date"
	ColTerminationDate = "termination_date"
	ColSnapshotDate    = "snapshot_date"
	ColTenureDays      = "tenure_days"
	ColSeniorityDays   = "seniority_days"
	ColDaysUntilTerm   = "days_until_termination"

	ColArea           = "area"
	ColDepartment     = "department"
	ColClassification = "classification"
	ColShift          = "shift"
	ColPayrollType    = "payroll_type"
	ColCompany        = "company"
	ColLocation       = "location"
	ColGender         = "gender"
	ColPosition       = "position"

	ColNeg30d      = "neg_30d"
	ColNeg90d      = "neg_90d"
	ColNeg365d     = "neg_365d"
	ColPermits90d  = "permits_90d"
	ColPermits365d = "permits_365d"
	ColTotal90d    = "total_90d"
	ColTotal365d   = "total_365d"
)

var (
	CategoricalColumns = []string{
		ColGender, ColArea, ColDepartment, ColPosition, ColClassification,
		ColLocation, ColPayrollType, ColShift, ColCompany,
	}
	IncidentColumns = []string{
		ColNeg30d, ColNeg90d, ColNeg365d, ColPermits90d, ColPermits365d,
		ColTotal90d, ColTotal365d,
	}
)

// LabelColumn names the binary target column for horizon h.
func LabelColumn(h int) string {
	return fmt.Sprintf("target_%dd", h)
}

// ParseRoster converts roster rows into records. Rows without an id or hire
// date, or terminated before hire, are skipped and counted.
func ParseRoster(f *frame.Frame) ([]models.EmployeeRecord, int) {
	records := make([]models.EmployeeRecord, 0, f.Len())
	skipped := 0

	for i, r := range f.Rows {
		rec, err := parseRecord(r)
		if err != nil {
			skipped++
			logger.WithFields(map[string]interface{}{
				"row":         i,
				"employee_id": r.String(ColEmployeeID),
			}).Warnf("Skipping roster row: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

func parseRecord(r frame.Row) (models.EmployeeRecord, error) {
	id := strings.TrimSpace(r.String(ColEmployeeID))
	if id == "" {
		return models.EmployeeRecord{}, fmt.Errorf("missing %s", ColEmployeeID)
	}
	hire, ok := r.Time(ColHireDate)
	if !ok {
		return models.EmployeeRecord{}, fmt.Errorf("missing or invalid %s", ColHireDate)
	}

	rec := models.EmployeeRecord{
		EmployeeID: id,
		HireDate:   hire,
		Attributes: models.Attributes{
			Area:           r.String(ColArea),
			Department:     r.String(ColDepartment),
			Classification: r.String(ColClassification),
			Shift:          r.String(ColShift),
			PayrollType:    r.String(ColPayrollType),
			Company:        r.String(ColCompany),
			Location:       r.String(ColLocation),
			Gender:         r.String(ColGender),
			Position:       r.String(ColPosition),
		},
		Incidents: models.IncidentAggregate{
			Neg30d:      r.FloatOr(ColNeg30d, 0),
			Neg90d:      r.FloatOr(ColNeg90d, 0),
			Neg365d:     r.FloatOr(ColNeg365d, 0),
			Permits90d:  r.FloatOr(ColPermits90d, 0),
			Permits365d: r.FloatOr(ColPermits365d, 0),
			Total90d:    r.FloatOr(ColTotal90d, 0),
			Total365d:   r.FloatOr(ColTotal365d, 0),
		},
	}
	if t, ok := r.Time(ColSeniorityDate); ok {
		rec.SeniorityDate = &t
	}
	if t, ok := r.Time(ColTerminationDate); ok {
		rec.TerminationDate = &t
	}
	if !rec.Valid() {
		return models.EmployeeRecord{}, fmt.Errorf("termination before hire")
	}
	return rec, nil
}

// ToFrame flattens a panel into the tabular shape trainers consume.
func ToFrame(panel []models.Snapshot, horizons []int) *frame.Frame {
	cols := []string{ColEmployeeID, ColSnapshotDate, ColTenureDays, ColSeniorityDays}
	cols = append(cols, CategoricalColumns...)
	cols = append(cols, IncidentColumns...)
	for _, h := range horizons {
		cols = append(cols, LabelColumn(h))
	}
	cols = append(cols, ColDaysUntilTerm)

	f := frame.New(cols...)
	for _, s := range panel {
		r := frame.Row{
			ColEmployeeID:     s.EmployeeID,
			ColSnapshotDate:   s.AsOf,
			ColTenureDays:     float64(s.TenureDays),
			ColSeniorityDays:  float64(s.SeniorityDays),
			ColGender:         s.Attributes.Gender,
			ColArea:           s.Attributes.Area,
			ColDepartment:     s.Attributes.Department,
			ColPosition:       s.Attributes.Position,
			ColClassification: s.Attributes.Classification,
			ColLocation:       s.Attributes.Location,
			ColPayrollType:    s.Attributes.PayrollType,
			ColShift:          s.Attributes.Shift,
			ColCompany:        s.Attributes.Company,
			ColNeg30d:         s.Incidents.Neg30d,
			ColNeg90d:         s.Incidents.Neg90d,
			ColNeg365d:        s.Incidents.Neg365d,
			ColPermits90d:     s.Incidents.Permits90d,
			ColPermits365d:    s.Incidents.Permits365d,
			ColTotal90d:       s.Incidents.Total90d,
			ColTotal365d:      s.Incidents.Total365d,
			ColDaysUntilTerm:  nil,
		}
		for _, h := range horizons {
			r[LabelColumn(h)] = float64(s.Label(h))
		}
		if s.DaysUntilTermination != nil {
			r[ColDaysUntilTerm] = float64(*s.DaysUntilTermination)
		}
		f.Append(r)
	}
	return f
}

// CurrentFrame builds one row per active employee as of today, in the panel
// column layout without labels. Scoring uses it.
func CurrentFrame(roster []models.EmployeeRecord, today time.Time) *frame.Frame {
	today = Date(today)
	var panel []models.Snapshot
	for _, e := range roster {
		hire := Date(e.HireDate)
		if !hire.Before(today) {
			continue
		}
		if e.TerminationDate != nil && Date(*e.TerminationDate).Before(today) {
			continue
		}
		panel = append(panel, models.Snapshot{
			EmployeeID:    e.EmployeeID,
			AsOf:          today,
			TenureDays:    DaysBetween(hire, today),
			SeniorityDays: DaysBetween(Date(e.SeniorityBase()), today),
			Attributes:    e.Attributes,
			Incidents:     e.Incidents,
		})
	}
	return ToFrame(panel, nil)
}
