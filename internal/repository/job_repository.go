package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadplan/timetable-api/internal/models"
)

// JobRepository persists generation job state. Every stage transition lands
// here so background failures stay observable through the status query.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a freshly accepted job.
func (r *JobRepository) Create(ctx context.Context, job *models.GenerationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	const query = `INSERT INTO generation_jobs (id, status, stage, error_code, error_message, schedule_id, created_by, created_at, updated_at)
		VALUES (:id, :status, :stage, :error_code, :error_message, :schedule_id, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create generation job: %w", err)
	}
	return nil
}

// FindByID fetches a job by ID.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.GenerationJob, error) {
	const query = `SELECT id, status, stage, error_code, error_message, schedule_id, created_by, created_at, updated_at
		FROM generation_jobs WHERE id = $1`
	var job models.GenerationJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// Terminal states are never overwritten; every update carries this guard so
// a worker racing a cancellation loses at the database.
const notTerminal = `status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')`

// SetStage records a stage transition on a running job. Returns
// models.ErrJobFinished when the job is already terminal.
func (r *JobRepository) SetStage(ctx context.Context, id string, status models.JobStatus, stage models.JobStage) error {
	const query = `UPDATE generation_jobs SET status = $2, stage = $3, updated_at = $4 WHERE id = $1 AND ` + notTerminal
	res, err := r.db.ExecContext(ctx, query, id, status, stage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set job stage: %w", err)
	}
	return checkUpdated(res, "set job stage")
}

// MarkCompleted records the terminal success state with the created schedule.
func (r *JobRepository) MarkCompleted(ctx context.Context, id, scheduleID string) error {
	const query = `UPDATE generation_jobs SET status = $2, stage = $3, schedule_id = $4, updated_at = $5 WHERE id = $1 AND ` + notTerminal
	res, err := r.db.ExecContext(ctx, query, id, models.JobStatusCompleted, models.StageDone, scheduleID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return checkUpdated(res, "mark job completed")
}

// MarkFailed records a terminal failure with the reason taxonomy code.
func (r *JobRepository) MarkFailed(ctx context.Context, id string, stage models.JobStage, code, message string) error {
	const query = `UPDATE generation_jobs SET status = $2, stage = $3, error_code = $4, error_message = $5, updated_at = $6 WHERE id = $1 AND ` + notTerminal
	res, err := r.db.ExecContext(ctx, query, id, models.JobStatusFailed, stage, code, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return checkUpdated(res, "mark job failed")
}

// MarkCancelled records a best-effort cancellation.
func (r *JobRepository) MarkCancelled(ctx context.Context, id string, stage models.JobStage) error {
	const query = `UPDATE generation_jobs SET status = $2, stage = $3, updated_at = $4 WHERE id = $1 AND ` + notTerminal
	res, err := r.db.ExecContext(ctx, query, id, models.JobStatusCancelled, stage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job cancelled: %w", err)
	}
	return checkUpdated(res, "mark job cancelled")
}

func checkUpdated(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return models.ErrJobFinished
	}
	return nil
}
