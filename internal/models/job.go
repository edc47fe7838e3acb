package models

import (
	"errors"
	"time"
)

// ErrJobFinished is returned by job stores when an update targets a job
// already in a terminal state. COMPLETED, FAILED and CANCELLED are final;
// no transition may overwrite them.
var ErrJobFinished = errors.New("generation job already in a terminal state")

// JobStatus is the caller-visible lifecycle state of a generation job.
type JobStatus string

const (
	JobStatusAccepted  JobStatus = "ACCEPTED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// JobStage names the pipeline stage a job is in. Stages execute strictly in
// this order; every stage can transition to FAILED.
type JobStage string

const (
	StageBuild       JobStage = "BUILD"
	StageWriteInput  JobStage = "WRITE_INPUT"
	StageStageInput  JobStage = "STAGE_INPUT"
	StageRunSolver   JobStage = "RUN_SOLVER"
	StageStageOutput JobStage = "STAGE_OUTPUT"
	StageReadOutput  JobStage = "READ_OUTPUT"
	StageNormalize   JobStage = "NORMALIZE"
	StagePersist     JobStage = "PERSIST"
	StageDone        JobStage = "DONE"
)

// GenerationJob tracks one solver pipeline run. Failures are recorded here so
// the asynchronous pipeline never fails invisibly.
type GenerationJob struct {
	ID           string    `db:"id" json:"id"`
	Status       JobStatus `db:"status" json:"status"`
	Stage        JobStage  `db:"stage" json:"stage"`
	ErrorCode    *string   `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	ScheduleID   *string   `db:"schedule_id" json:"schedule_id,omitempty"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the job reached a final state.
func (j GenerationJob) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
