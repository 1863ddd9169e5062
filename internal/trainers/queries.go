package trainers

// SQL run by database backed sources. Each query reads one reporting view
// and aliases its columns to the names the trainers expect.
const (
	rosterSQL = `SELECT employee_id, hire_date, seniority_date, termination_date,
       area, department, classification, shift, payroll_type, company,
       location, gender, position,
       neg_30d, neg_90d, neg_365d, permits_90d, permits_365d, total_90d, total_365d
  FROM ml.v_employee_roster`

	absenteeismSQL = `SELECT employee_id, tenure_days, absences_30d, absences_90d,
       absences_365d, late_30d, permits_90d, classification, shift, area,
       recurrent_absence_next_30d
  FROM ml.v_absenteeism_features`

	dailyAbsencesSQL = `SELECT date, absences, headcount
  FROM ml.v_daily_absences
 ORDER BY date`

	attendanceSQL = `SELECT employee_id, area, shift, attendance_rate, late_rate,
       absence_rate, permit_rate, overtime_hours
  FROM ml.v_attendance_profiles`

	terminationReasonsSQL = `SELECT employee_id, reason_type, tenure_days, neg_365d,
       permits_365d, absences_365d, classification, area, shift, position
  FROM ml.v_termination_reasons`

	absenceImpactSQL = `SELECT employee_id, area, classification, position, tenure_days,
       absences_90d, permits_90d, neg_90d, hour_cost, absence_hours
  FROM ml.v_absence_impact`
)
