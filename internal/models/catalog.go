package models

// Subject is a taught course. Its document label is "Name (CODE)".
type Subject struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// Label renders the composite display label referenced throughout the
// interchange document.
func (s Subject) Label() string {
	return s.Name + " (" + s.Code + ")"
}

// Faculty maps to the document's building list.
type Faculty struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// RoomType classifies rooms and doubles as the document's activity tag.
type RoomType struct {
	ID          int64  `db:"id" json:"id"`
	FacultyID   int64  `db:"faculty_id" json:"faculty_id"`
	Name        string `db:"name" json:"name"`
	FacultyName string `db:"faculty_name" json:"faculty_name"`
}

// Room is a physical space. RoomTypeName and FacultyName are joined in by the
// repository for document projection.
type Room struct {
	ID           int64  `db:"id" json:"id"`
	RoomTypeID   int64  `db:"room_type_id" json:"room_type_id"`
	Name         string `db:"name" json:"name"`
	Capacity     int    `db:"capacity" json:"capacity"`
	RoomTypeName string `db:"room_type_name" json:"room_type_name"`
	FacultyName  string `db:"faculty_name" json:"faculty_name"`
}

// Teacher is a member of the teaching staff.
type Teacher struct {
	ID       int64  `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}
