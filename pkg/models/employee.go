package models

import "time"

// Attributes are the categorical descriptors of an employee.
type Attributes struct {
	Area           string `json:"area"`
	Department     string `json:"department"`
	Classification string `json:"classification"`
	Shift          string `json:"shift"`
	PayrollType    string `json:"payroll_type"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	Gender         string `json:"gender"`
	Position       string `json:"position"`
}

// IncidentAggregate holds trailing incident counts computed by the data
// source. The trainers treat them as opaque numeric columns.
type IncidentAggregate struct {
	Neg30d      float64 `json:"neg_30d"`
	Neg90d      float64 `json:"neg_90d"`
	Neg365d     float64 `json:"neg_365d"`
	Permits90d  float64 `json:"permits_90d"`
	Permits365d float64 `json:"permits_365d"`
	Total90d    float64 `json:"total_90d"`
	Total365d   float64 `json:"total_365d"`
}

// EmployeeRecord is one roster row.
type EmployeeRecord struct {
	EmployeeID      string            `json:"employee_id"`
	Attributes      Attributes        `json:"attributes"`
	HireDate        time.Time         `json:"hire_date"`
	SeniorityDate   *time.Time        `json:"seniority_date,omitempty"`
	TerminationDate *time.Time        `json:"termination_date,omitempty"`
	Incidents       IncidentAggregate `json:"incidents"`
}

func (e *EmployeeRecord) IsActive() bool {
	return e.TerminationDate == nil
}

// SeniorityBase returns the seniority date, falling back to the hire date.
func (e *EmployeeRecord) SeniorityBase() time.Time {
	if e.SeniorityDate != nil {
		return *e.SeniorityDate
	}
	return e.HireDate
}

// Valid reports whether the termination date, if any, is not before hire.
func (e *EmployeeRecord) Valid() bool {
	if e.HireDate.IsZero() {
		return false
	}
	return e.TerminationDate == nil || !e.TerminationDate.Before(e.HireDate)
}
