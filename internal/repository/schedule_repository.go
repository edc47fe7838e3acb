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

// ScheduleRepository persists stored schedules. Writes are append-only per
// generation run; a run never mutates an existing row.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new stored schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.StoredSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedules (id, description, payload, user_id, created_at)
		VALUES (:id, :description, :payload, :user_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update replaces an existing schedule's description, payload and owner.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.StoredSchedule) error {
	const query = `UPDATE schedules SET description = :description, payload = :payload, user_id = :user_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// List returns schedule metadata without payloads, newest first.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.StoredSchedule, error) {
	const query = `SELECT id, description, user_id, created_at FROM schedules ORDER BY created_at DESC`
	var schedules []models.StoredSchedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// FindByID fetches a schedule including its payload.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.StoredSchedule, error) {
	const query = `SELECT id, description, payload, user_id, created_at FROM schedules WHERE id = $1`
	var schedule models.StoredSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ExistsByDescription checks if another schedule already uses a description.
func (r *ScheduleRepository) ExistsByDescription(ctx context.Context, description, excludeID string) (bool, error) {
	query := "SELECT 1 FROM schedules WHERE description = $1"
	args := []interface{}{description}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check schedule description: %w", err)
	}
	return true, nil
}

// Delete removes a stored schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM schedules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
