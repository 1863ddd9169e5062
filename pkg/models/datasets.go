package models

// Dataset names understood by every data source. The Postgres source runs
// the SQL attached to the query; offline sources resolve by name.
const (
	DatasetEmployeeRoster     = "employee_roster"
	DatasetAbsenteeism        = "absenteeism_features"
	DatasetDailyAbsences      = "daily_absences"
	DatasetAttendanceProfiles = "attendance_profiles"
	DatasetTerminationReasons = "termination_reasons"
	DatasetAbsenceImpact      = "absence_impact"
)
