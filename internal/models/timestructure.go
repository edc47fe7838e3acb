package models

// Semester marks the academic period being planned. Exactly one semester is
// expected to have planning in progress at a time.
type Semester struct {
	ID                 int64  `db:"id" json:"id"`
	Name               string `db:"name" json:"name"`
	PlanningInProgress bool   `db:"planning_in_progress" json:"planning_in_progress"`
}

// WorkingDay is one configured day of the semester's working week. Position
// fixes the document day order.
type WorkingDay struct {
	ID         int64  `db:"id" json:"id"`
	SemesterID int64  `db:"semester_id" json:"semester_id"`
	Name       string `db:"name" json:"name"`
	Position   int    `db:"position" json:"position"`
}

// Interval is a half-open time slot of a working day. Start and end hours are
// stored as raw tokens ("7", "08") and rendered zero-padded by the mapper.
type Interval struct {
	ID           int64  `db:"id" json:"id"`
	WorkingDayID int64  `db:"working_day_id" json:"working_day_id"`
	StartHour    string `db:"start_hour" json:"start_hour"`
	EndHour      string `db:"end_hour" json:"end_hour"`
	Position     int    `db:"position" json:"position"`
}
