package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadplan/timetable-api/internal/models"
)

// TimeStructureRepository reads the semester's working-day configuration.
// Ordering by position is a contract of the mappers, not a storage accident.
type TimeStructureRepository struct {
	db *sqlx.DB
}

// NewTimeStructureRepository constructs a TimeStructureRepository.
func NewTimeStructureRepository(db *sqlx.DB) *TimeStructureRepository {
	return &TimeStructureRepository{db: db}
}

// SemesterInProgress fetches the semester currently being planned.
func (r *TimeStructureRepository) SemesterInProgress(ctx context.Context) (*models.Semester, error) {
	const query = `SELECT id, name, planning_in_progress FROM semesters WHERE planning_in_progress = TRUE LIMIT 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query); err != nil {
		return nil, err
	}
	return &semester, nil
}

// WorkingDays lists the configured days of a semester in document order.
func (r *TimeStructureRepository) WorkingDays(ctx context.Context, semesterID int64) ([]models.WorkingDay, error) {
	const query = `SELECT id, semester_id, name, position FROM working_days WHERE semester_id = $1 ORDER BY position, id`
	var days []models.WorkingDay
	if err := r.db.SelectContext(ctx, &days, query, semesterID); err != nil {
		return nil, fmt.Errorf("list working days: %w", err)
	}
	return days, nil
}

// Intervals lists the time slots of a working day in document order.
func (r *TimeStructureRepository) Intervals(ctx context.Context, workingDayID int64) ([]models.Interval, error) {
	const query = `SELECT id, working_day_id, start_hour, end_hour, position FROM intervals WHERE working_day_id = $1 ORDER BY position, id`
	var intervals []models.Interval
	if err := r.db.SelectContext(ctx, &intervals, query, workingDayID); err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}
	return intervals, nil
}
