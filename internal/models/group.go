package models

// Level is an academic year within a career; the document's Year node.
type Level struct {
	ID           int64  `db:"id" json:"id"`
	CareerID     int64  `db:"career_id" json:"career_id"`
	Name         string `db:"name" json:"name"`
	StudentCount int    `db:"student_count" json:"student_count"`
	CareerName   string `db:"career_name" json:"career_name"`
}

// StudentGroup is a section of a level; the document's Group node.
type StudentGroup struct {
	ID           int64  `db:"id" json:"id"`
	LevelID      int64  `db:"level_id" json:"level_id"`
	Name         string `db:"name" json:"name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}
