package models

import "time"

// Snapshot is one (employee, as-of date) row of the rotation panel. All
// fields are computed from information available at AsOf; Labels look
// strictly forward.
type Snapshot struct {
	EmployeeID           string            `json:"employee_id"`
	AsOf                 time.Time         `json:"snapshot_date"`
	TenureDays           int               `json:"tenure_days_at_snapshot"`
	SeniorityDays        int               `json:"seniority_days_at_snapshot"`
	Attributes           Attributes        `json:"attributes"`
	Incidents            IncidentAggregate `json:"incidents"`
	Labels               map[int]int       `json:"labels"`
	DaysUntilTermination *int              `json:"days_until_termination,omitempty"`
}

// Label returns the binary label for horizon h (0 when the horizon was not
// computed).
func (s *Snapshot) Label(h int) int {
	return s.Labels[h]
}
