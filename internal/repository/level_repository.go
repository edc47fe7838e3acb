package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadplan/timetable-api/internal/models"
)

// LevelRepository reads the level → group hierarchy with owning careers.
type LevelRepository struct {
	db *sqlx.DB
}

// NewLevelRepository constructs a LevelRepository.
func NewLevelRepository(db *sqlx.DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// ListLevels returns all levels with their career name, in insertion order.
func (r *LevelRepository) ListLevels(ctx context.Context) ([]models.Level, error) {
	const query = `SELECT l.id, l.career_id, l.name, l.student_count, c.name AS career_name
		FROM levels l
		JOIN careers c ON c.id = l.career_id
		ORDER BY l.id`
	var levels []models.Level
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

// ListGroupsByLevel returns the groups of one level in insertion order.
func (r *LevelRepository) ListGroupsByLevel(ctx context.Context, levelID int64) ([]models.StudentGroup, error) {
	const query = `SELECT id, level_id, name, student_count FROM student_groups WHERE level_id = $1 ORDER BY id`
	var groups []models.StudentGroup
	if err := r.db.SelectContext(ctx, &groups, query, levelID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}
