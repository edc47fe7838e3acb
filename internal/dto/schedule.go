package dto

import (
	"encoding/json"
	"time"
)

// CreateScheduleRequest registers an externally produced schedule payload.
type CreateScheduleRequest struct {
	UserID      string          `json:"user_id" binding:"required,uuid" validate:"required"`
	Description string          `json:"description" binding:"required" validate:"required,max=255"`
	Payload     json.RawMessage `json:"payload" binding:"required" validate:"required"`
}

// UpdateScheduleRequest replaces a stored schedule.
type UpdateScheduleRequest struct {
	UserID      string          `json:"user_id" binding:"required,uuid" validate:"required"`
	Description string          `json:"description" binding:"required" validate:"required,max=255"`
	Payload     json.RawMessage `json:"payload" binding:"required" validate:"required"`
}

// ScheduleResponse is stored schedule metadata.
type ScheduleResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Projection cells keep the JSON keys of the legacy client contract.

// TeacherScheduleCell is one slot of a by-teacher query.
type TeacherScheduleCell struct {
	Subject     string `json:"subject"`
	Room        string `json:"aula"`
	Group       string `json:"grupo"`
	ActivityTag string `json:"tipoAula"`
	Day         string `json:"dia"`
	Hour        string `json:"horario"`
}

// GroupScheduleCell is one slot of a by-group query.
type GroupScheduleCell struct {
	Teacher     string `json:"teacher"`
	Subject     string `json:"subject"`
	ActivityTag string `json:"tipoAula"`
	Day         string `json:"dia"`
	Hour        string `json:"horario"`
	Room        string `json:"aula"`
}

// RoomScheduleCell is one slot of a by-room query.
type RoomScheduleCell struct {
	Teacher     string `json:"teacher"`
	Subject     string `json:"subject"`
	Group       string `json:"grupo"`
	ActivityTag string `json:"tipoAula"`
	Day         string `json:"dia"`
	Hour        string `json:"horario"`
}
