package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadplan/timetable-api/internal/models"
)

// ConstraintRepository reads the dynamic scheduling constraints. The pipeline
// treats these as opaque records and only serializes them into the correct
// document section.
type ConstraintRepository struct {
	db *sqlx.DB
}

// NewConstraintRepository constructs a ConstraintRepository.
func NewConstraintRepository(db *sqlx.DB) *ConstraintRepository {
	return &ConstraintRepository{db: db}
}

// ListPreferredSlots returns preferred-starting-time rows in insertion order.
func (r *ConstraintRepository) ListPreferredSlots(ctx context.Context) ([]models.PreferredSlot, error) {
	const query = `SELECT id, activity_id, day, hour, weight, locked FROM activity_preferred_slots ORDER BY id`
	var slots []models.PreferredSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list preferred slots: %w", err)
	}
	return slots, nil
}

// ListPreferredRooms returns preferred-room rows in insertion order.
func (r *ConstraintRepository) ListPreferredRooms(ctx context.Context) ([]models.PreferredRoom, error) {
	const query = `SELECT id, activity_id, room_name, weight, locked FROM activity_preferred_rooms ORDER BY id`
	var rooms []models.PreferredRoom
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list preferred rooms: %w", err)
	}
	return rooms, nil
}

// ListUnavailableHours returns teacher unavailability rows grouped by teacher
// in insertion order.
func (r *ConstraintRepository) ListUnavailableHours(ctx context.Context) ([]models.UnavailableHour, error) {
	const query = `SELECT u.id, u.teacher_id, t.full_name AS teacher_name, u.day, u.hour
		FROM teacher_unavailable_hours u
		JOIN teachers t ON t.id = u.teacher_id
		ORDER BY u.teacher_id, u.id`
	var hours []models.UnavailableHour
	if err := r.db.SelectContext(ctx, &hours, query); err != nil {
		return nil, fmt.Errorf("list unavailable hours: %w", err)
	}
	return hours, nil
}
