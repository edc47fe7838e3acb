package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeStructureRepositorySemesterInProgress(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeStructureRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "planning_in_progress"}).
		AddRow(1, "2026-1", true)
	mock.ExpectQuery("SELECT id, name, planning_in_progress FROM semesters WHERE planning_in_progress = TRUE").
		WillReturnRows(rows)

	semester, err := repo.SemesterInProgress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-1", semester.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeStructureRepositorySemesterInProgressNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeStructureRepository(db)

	mock.ExpectQuery("SELECT id, name, planning_in_progress FROM semesters").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SemesterInProgress(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTimeStructureRepositoryWorkingDaysOrdered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeStructureRepository(db)

	rows := sqlmock.NewRows([]string{"id", "semester_id", "name", "position"}).
		AddRow(1, 1, "LUNES", 1).
		AddRow(2, 1, "MARTES", 2)
	mock.ExpectQuery("SELECT id, semester_id, name, position FROM working_days WHERE semester_id = (.+) ORDER BY position").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	days, err := repo.WorkingDays(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "LUNES", days[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeStructureRepositoryIntervals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeStructureRepository(db)

	rows := sqlmock.NewRows([]string{"id", "working_day_id", "start_hour", "end_hour", "position"}).
		AddRow(1, 1, "7", "8", 1).
		AddRow(2, 1, "08", "09", 2)
	mock.ExpectQuery("SELECT id, working_day_id, start_hour, end_hour, position FROM intervals WHERE working_day_id = (.+) ORDER BY position").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	intervals, err := repo.Intervals(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.Equal(t, "7", intervals[0].StartHour)
	assert.NoError(t, mock.ExpectationsWereMet())
}
