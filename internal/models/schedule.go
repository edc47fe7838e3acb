package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NormalizedSchedule is the query-friendly reconstruction of the solver's
// subgroup timetable: subgroup → day → hour, in solver emission order.
type NormalizedSchedule struct {
	Subgroups []Subgroup `json:"subgroups"`
}

// Subgroup is the solver's unit of student grouping. Its label's leading
// token (up to the first space) is the owning group's name.
type Subgroup struct {
	Name string        `json:"name"`
	Days []ScheduleDay `json:"days"`
}

// ScheduleDay groups the hour slots of one working day.
type ScheduleDay struct {
	Name  string         `json:"name"`
	Hours []ScheduleHour `json:"hours"`
}

// ScheduleHour is a single slot. Activity is nil when the solver left the
// slot free.
type ScheduleHour struct {
	Name     string          `json:"name"`
	Activity *PlacedActivity `json:"activity,omitempty"`
}

// PlacedActivity is a solver placement. Teacher and Room are nil when the
// solver did not assign one; absence and emptiness are never conflated.
type PlacedActivity struct {
	ActivityID  int64   `json:"activity_id"`
	Subject     string  `json:"subject"`
	ActivityTag string  `json:"activity_tag"`
	Teacher     *string `json:"teacher,omitempty"`
	Room        *string `json:"room,omitempty"`
}

// ActivityIDs collects the distinct placed activity identifiers in traversal
// order.
func (s NormalizedSchedule) ActivityIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, sub := range s.Subgroups {
		for _, day := range sub.Days {
			for _, hour := range day.Hours {
				if hour.Activity == nil {
					continue
				}
				if _, ok := seen[hour.Activity.ActivityID]; ok {
					continue
				}
				seen[hour.Activity.ActivityID] = struct{}{}
				ids = append(ids, hour.Activity.ActivityID)
			}
		}
	}
	return ids
}

// StoredSchedule is a persisted normalized schedule owned by a user.
type StoredSchedule struct {
	ID          string         `db:"id" json:"id"`
	Description string         `db:"description" json:"description"`
	Payload     types.JSONText `db:"payload" json:"payload,omitempty"`
	UserID      string         `db:"user_id" json:"user_id"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
