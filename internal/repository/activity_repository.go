package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadplan/timetable-api/internal/models"
)

// ActivityRepository reads stored activities with their joined display
// labels. Insertion order is preserved; inactive activities are included.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `a.id, a.teacher_id, a.subject_id, a.room_type_id, a.group_id,
		a.duration, a.student_count, a.active,
		t.full_name AS teacher_name,
		s.name AS subject_name, s.code AS subject_code,
		rt.name AS room_type_name,
		g.name AS group_name`

const activityJoins = `FROM activities a
		JOIN teachers t ON t.id = a.teacher_id
		JOIN subjects s ON s.id = a.subject_id
		JOIN room_types rt ON rt.id = a.room_type_id
		JOIN student_groups g ON g.id = a.group_id`

// List returns every activity, active or not, in insertion order.
func (r *ActivityRepository) List(ctx context.Context) ([]models.Activity, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY a.id", activityColumns, activityJoins)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// ListByTeacher returns one teacher's activities in insertion order; the
// export mapper derives the qualified subject set from these.
func (r *ActivityRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Activity, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.teacher_id = $1 ORDER BY a.id", activityColumns, activityJoins)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, teacherID); err != nil {
		return nil, fmt.Errorf("list activities by teacher: %w", err)
	}
	return activities, nil
}
