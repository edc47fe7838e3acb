package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadplan/timetable-api/internal/models"
)

// CatalogRepository reads the document-facing catalogs: subjects, room types,
// faculties and rooms. Every list query orders by id so the interchange
// document reproduces insertion order.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListSubjects returns all subjects in insertion order.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, code FROM subjects ORDER BY id`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListRoomTypes returns all room types with their owning faculty name.
func (r *CatalogRepository) ListRoomTypes(ctx context.Context) ([]models.RoomType, error) {
	const query = `SELECT rt.id, rt.faculty_id, rt.name, f.name AS faculty_name
		FROM room_types rt
		JOIN faculties f ON f.id = rt.faculty_id
		ORDER BY rt.id`
	var types []models.RoomType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	return types, nil
}

// ListFaculties returns all faculties in insertion order.
func (r *CatalogRepository) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	const query = `SELECT id, name FROM faculties ORDER BY id`
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, query); err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, nil
}

// ListRooms returns all rooms with joined type and faculty names.
func (r *CatalogRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT rm.id, rm.room_type_id, rm.name, rm.capacity,
			rt.name AS room_type_name, f.name AS faculty_name
		FROM rooms rm
		JOIN room_types rt ON rt.id = rm.room_type_id
		JOIN faculties f ON f.id = rt.faculty_id
		ORDER BY rm.id`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListTeachers returns the teaching staff in insertion order.
func (r *CatalogRepository) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, full_name, email FROM teachers ORDER BY id`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}
