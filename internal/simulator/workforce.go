package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

var (
	areas = map[string][]string{
		"Produccion":     {"Ensamble", "Pintura", "Soldadura"},
		"Almacen":        {"Recibo", "Embarques"},
		"Calidad":        {"Inspeccion", "Laboratorio"},
		"Mantenimiento":  {"Electrico", "Mecanico"},
		"Administracion": {"Nomina", "Compras", "Recursos Humanos"},
	}
	areaNames       = []string{"Produccion", "Almacen", "Calidad", "Mantenimiento", "Administracion"}
	classifications = []string{"SINDICALIZADO", "CONFIANZA", "EVENTUAL"}
	shifts          = []string{"MATUTINO", "VESPERTINO", "NOCTURNO"}
	payrollTypes    = []string{"SEMANAL", "QUINCENAL"}
	companies       = []string{"Planta Norte", "Planta Sur"}
	locations       = []string{"Monterrey", "Saltillo"}
	genders         = []string{"M", "F"}
	hourCosts       = map[string]float64{
		"Operador":   65,
		"Auxiliar":   60,
		"Tecnico":    90,
		"Analista":   120,
		"Supervisor": 150,
	}
	positions = []string{"Operador", "Auxiliar", "Tecnico", "Analista", "Supervisor"}
)

// Employee is a generated roster entry plus the behavioural counts the
// derived datasets need.
type Employee struct {
	models.EmployeeRecord

	Risk             float64
	ReasonType       string
	Absences30d      float64
	Absences90d      float64
	Absences365d     float64
	Late30d          float64
	OvertimeHours    float64
	HourCost         float64
	RecurrentAbsence int
	AbsenceHoursNext float64
}

type Workforce struct {
	Today     time.Time
	Employees []Employee
	seed      int64
}

func NewWorkforce(cfg Config) *Workforce {
	rng := rand.New(rand.NewSource(cfg.Seed))
	w := &Workforce{Today: cfg.Today, seed: cfg.Seed}

	for i := 0; i < cfg.Employees; i++ {
		w.Employees = append(w.Employees, newEmployee(rng, cfg.Today, i))
	}
	return w
}

func newEmployee(rng *rand.Rand, today time.Time, i int) Employee {
	area := pick(rng, areaNames)
	position := pick(rng, positions)
	e := Employee{
		EmployeeRecord: models.EmployeeRecord{
			EmployeeID: fmt.Sprintf("E%05d", i+1),
			Attributes: models.Attributes{
				Area:           area,
				Department:     pick(rng, areas[area]),
				Classification: pick(rng, classifications),
				Shift:          pick(rng, shifts),
				PayrollType:    pick(rng, payrollTypes),
				Company:        pick(rng, companies),
				Location:       pick(rng, locations),
				Gender:         pick(rng, genders),
				Position:       position,
			},
			HireDate: today.AddDate(0, 0, -(60 + rng.Intn(3650))),
		},
	}

	risk := 0.1 + 0.3*rng.Float64()
	switch e.Attributes.Classification {
	case "EVENTUAL":
		risk += 0.25
	case "SINDICALIZADO":
		risk += 0.1
	}
	if e.Attributes.Shift == "NOCTURNO" {
		risk += 0.1
	}
	e.Risk = math.Min(risk, 0.95)

	if rng.Float64() < 0.2 {
		seniority := e.HireDate.AddDate(0, 0, -rng.Intn(730))
		e.SeniorityDate = &seniority
	}

	inc := &e.Incidents
	inc.Neg365d = poisson(rng, 1+8*e.Risk)
	inc.Neg90d = thin(rng, inc.Neg365d, 0.35)
	inc.Neg30d = thin(rng, inc.Neg90d, 0.4)
	inc.Permits365d = poisson(rng, 2+3*e.Risk)
	inc.Permits90d = thin(rng, inc.Permits365d, 0.3)
	inc.Total90d = inc.Neg90d + inc.Permits90d + poisson(rng, 1)
	inc.Total365d = inc.Neg365d + inc.Permits365d + poisson(rng, 4)

	if rng.Float64() < e.Risk*0.6 {
		earliest := e.HireDate.AddDate(0, 0, 30)
		if floor := today.AddDate(0, 0, -730); floor.After(earliest) {
			earliest = floor
		}
		span := int(today.Sub(earliest).Hours() / 24)
		if span > 1 {
			term := earliest.AddDate(0, 0, rng.Intn(span-1))
			e.TerminationDate = &term
			e.ReasonType = reasonType(rng, e)
		}
	}

	e.Absences365d = poisson(rng, 3+10*e.Risk)
	e.Absences90d = thin(rng, e.Absences365d, 0.3)
	e.Absences30d = thin(rng, e.Absences90d, 0.4)
	e.Late30d = poisson(rng, 1+3*e.Risk)
	e.OvertimeHours = poisson(rng, 6+4*(1-e.Risk))
	e.HourCost = math.Round(jitter(rng, hourCosts[position], 0.15)*100) / 100

	p := sigmoid(-2.5 + 0.35*e.Absences90d + 0.3*e.Late30d)
	if rng.Float64() < p {
		e.RecurrentAbsence = 1
	}
	e.AbsenceHoursNext = math.Round(jitter(rng, 8*e.Absences90d+4*inc.Permits90d, 0.25)*10) / 10

	return e
}

func reasonType(rng *rand.Rand, e Employee) string {
	switch {
	case e.Incidents.Neg365d >= 6:
		return "dismissal"
	case e.Attributes.Classification == "EVENTUAL" && rng.Float64() < 0.6:
		return "contract_end"
	case e.Incidents.Neg90d >= 2 && rng.Float64() < 0.5:
		return "job_abandonment"
	default:
		return "voluntary"
	}
}

// Records returns the plain roster.
func (w *Workforce) Records() []models.EmployeeRecord {
	out := make([]models.EmployeeRecord, len(w.Employees))
	for i, e := range w.Employees {
		out[i] = e.EmployeeRecord
	}
	return out
}

func (w *Workforce) active() []Employee {
	var out []Employee
	for _, e := range w.Employees {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	return out
}

func (w *Workforce) tenureDays(e Employee) float64 {
	end := w.Today
	if e.TerminationDate != nil {
		end = *e.TerminationDate
	}
	return math.Floor(end.Sub(e.HireDate).Hours() / 24)
}

func (w *Workforce) RosterFrame() *frame.Frame {
	f := frame.New(
		"employee_id", "hire_date", "seniority_date", "termination_date",
		"area", "department", "classification", "shift", "payroll_type",
		"company", "location", "gender", "position",
		"neg_30d", "neg_90d", "neg_365d", "permits_90d", "permits_365d",
		"total_90d", "total_365d",
	)
	for _, e := range w.Employees {
		r := frame.Row{
			"employee_id":      e.EmployeeID,
			"hire_date":        e.HireDate,
			"seniority_date":   nil,
			"termination_date": nil,
			"area":             e.Attributes.Area,
			"department":       e.Attributes.Department,
			"classification":   e.Attributes.Classification,
			"shift":            e.Attributes.Shift,
			"payroll_type":     e.Attributes.PayrollType,
			"company":          e.Attributes.Company,
			"location":         e.Attributes.Location,
			"gender":           e.Attributes.Gender,
			"position":         e.Attributes.Position,
			"neg_30d":          e.Incidents.Neg30d,
			"neg_90d":          e.Incidents.Neg90d,
			"neg_365d":         e.Incidents.Neg365d,
			"permits_90d":      e.Incidents.Permits90d,
			"permits_365d":     e.Incidents.Permits365d,
			"total_90d":        e.Incidents.Total90d,
			"total_365d":       e.Incidents.Total365d,
		}
		if e.SeniorityDate != nil {
			r["seniority_date"] = *e.SeniorityDate
		}
		if e.TerminationDate != nil {
			r["termination_date"] = *e.TerminationDate
		}
		f.Append(r)
	}
	return f
}

func (w *Workforce) AbsenteeismFrame() *frame.Frame {
	f := frame.New(
		"employee_id", "tenure_days", "absences_30d", "absences_90d", "absences_365d",
		"late_30d", "permits_90d", "classification", "shift", "area",
		"recurrent_absence_next_30d",
	)
	for _, e := range w.active() {
		f.Append(frame.Row{
			"employee_id":                e.EmployeeID,
			"tenure_days":                w.tenureDays(e),
			"absences_30d":               e.Absences30d,
			"absences_90d":               e.Absences90d,
			"absences_365d":              e.Absences365d,
			"late_30d":                   e.Late30d,
			"permits_90d":                e.Incidents.Permits90d,
			"classification":             e.Attributes.Classification,
			"shift":                      e.Attributes.Shift,
			"area":                       e.Attributes.Area,
			"recurrent_absence_next_30d": int64(e.RecurrentAbsence),
		})
	}
	return f
}

// DailyAbsencesFrame covers the 540 days before Today.
func (w *Workforce) DailyAbsencesFrame(pattern Pattern) *frame.Frame {
	rng := rand.New(rand.NewSource(w.seed + 1))
	headcount := float64(len(w.active()))
	base := math.Max(headcount*0.045, 1)

	f := frame.New("date", "absences", "headcount")
	for d := 540; d >= 1; d-- {
		day := w.Today.AddDate(0, 0, -d)
		expected := pattern.Apply(base, day)
		f.Append(frame.Row{
			"date":      day,
			"absences":  math.Round(math.Max(jitter(rng, expected, 0.2), 0)),
			"headcount": headcount,
		})
	}
	return f
}

func (w *Workforce) AttendanceFrame() *frame.Frame {
	f := frame.New(
		"employee_id", "area", "shift", "attendance_rate", "late_rate",
		"absence_rate", "permit_rate", "overtime_hours",
	)
	for _, e := range w.active() {
		f.Append(frame.Row{
			"employee_id":     e.EmployeeID,
			"area":            e.Attributes.Area,
			"shift":           e.Attributes.Shift,
			"attendance_rate": math.Max(0, 1-e.Absences365d/250),
			"late_rate":       e.Late30d / 22,
			"absence_rate":    e.Absences90d / 66,
			"permit_rate":     e.Incidents.Permits90d / 66,
			"overtime_hours":  e.OvertimeHours,
		})
	}
	return f
}

func (w *Workforce) TerminationReasonsFrame() *frame.Frame {
	f := frame.New(
		"employee_id", "reason_type", "tenure_days", "neg_365d", "permits_365d",
		"absences_365d", "classification", "area", "shift", "position",
	)
	for _, e := range w.Employees {
		if e.IsActive() {
			continue
		}
		f.Append(frame.Row{
			"employee_id":    e.EmployeeID,
			"reason_type":    e.ReasonType,
			"tenure_days":    w.tenureDays(e),
			"neg_365d":       e.Incidents.Neg365d,
			"permits_365d":   e.Incidents.Permits365d,
			"absences_365d":  e.Absences365d,
			"classification": e.Attributes.Classification,
			"area":           e.Attributes.Area,
			"shift":          e.Attributes.Shift,
			"position":       e.Attributes.Position,
		})
	}
	return f
}

func (w *Workforce) AbsenceImpactFrame() *frame.Frame {
	f := frame.New(
		"employee_id", "area", "classification", "position", "tenure_days",
		"absences_90d", "permits_90d", "neg_90d", "hour_cost", "absence_hours",
	)
	for _, e := range w.active() {
		f.Append(frame.Row{
			"employee_id":    e.EmployeeID,
			"area":           e.Attributes.Area,
			"classification": e.Attributes.Classification,
			"position":       e.Attributes.Position,
			"tenure_days":    w.tenureDays(e),
			"absences_90d":   e.Absences90d,
			"permits_90d":    e.Incidents.Permits90d,
			"neg_90d":        e.Incidents.Neg90d,
			"hour_cost":      e.HourCost,
			"absence_hours":  e.AbsenceHoursNext,
		})
	}
	return f
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func poisson(rng *rand.Rand, lambda float64) float64 {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return float64(k)
		}
		k++
	}
}

func thin(rng *rand.Rand, n, p float64) float64 {
	kept := 0.0
	for i := 0; i < int(n); i++ {
		if rng.Float64() < p {
			kept++
		}
	}
	return kept
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
