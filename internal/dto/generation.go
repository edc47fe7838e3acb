package dto

import "github.com/acadplan/timetable-api/internal/models"

// GenerateRequest starts a full build-and-solve pipeline.
type GenerateRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid" validate:"required"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

// ProcessRequest runs the pipeline with a caller-supplied interchange
// document, skipping the build stage.
type ProcessRequest struct {
	UserID  string `json:"user_id" binding:"required,uuid" validate:"required"`
	Content string `json:"content" binding:"required" validate:"required"`
}

// JobResponse is the caller-visible state of a generation job.
type JobResponse struct {
	ID           string           `json:"id"`
	Status       models.JobStatus `json:"status"`
	Stage        models.JobStage  `json:"stage"`
	ErrorCode    *string          `json:"error_code,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	ScheduleID   *string          `json:"schedule_id,omitempty"`
}
