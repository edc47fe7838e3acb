package models

// Activity assigns a teacher, subject, room type and student group for a
// number of consecutive hours. Its numeric id is the join key that survives
// the round trip through the external solver.
type Activity struct {
	ID           int64 `db:"id" json:"id"`
	TeacherID    int64 `db:"teacher_id" json:"teacher_id"`
	SubjectID    int64 `db:"subject_id" json:"subject_id"`
	RoomTypeID   int64 `db:"room_type_id" json:"room_type_id"`
	GroupID      int64 `db:"group_id" json:"group_id"`
	Duration     int   `db:"duration" json:"duration"`
	StudentCount int   `db:"student_count" json:"student_count"`
	Active       bool  `db:"active" json:"active"`

	// Joined display fields.
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	RoomTypeName string `db:"room_type_name" json:"room_type_name"`
	GroupName    string `db:"group_name" json:"group_name"`
}

// SubjectLabel renders the composite subject label for this activity.
func (a Activity) SubjectLabel() string {
	return a.SubjectName + " (" + a.SubjectCode + ")"
}

// PreferredSlot pins an activity to a day and hour.
type PreferredSlot struct {
	ID         int64  `db:"id" json:"id"`
	ActivityID int64  `db:"activity_id" json:"activity_id"`
	Day        string `db:"day" json:"day"`
	Hour       string `db:"hour" json:"hour"`
	Weight     int    `db:"weight" json:"weight"`
	Locked     bool   `db:"locked" json:"locked"`
}

// PreferredRoom pins an activity to a named room.
type PreferredRoom struct {
	ID         int64  `db:"id" json:"id"`
	ActivityID int64  `db:"activity_id" json:"activity_id"`
	RoomName   string `db:"room_name" json:"room_name"`
	Weight     int    `db:"weight" json:"weight"`
	Locked     bool   `db:"locked" json:"locked"`
}

// UnavailableHour marks a (day, hour) pair a teacher cannot be scheduled on.
type UnavailableHour struct {
	ID          int64  `db:"id" json:"id"`
	TeacherID   int64  `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	Day         string `db:"day" json:"day"`
	Hour        string `db:"hour" json:"hour"`
}
