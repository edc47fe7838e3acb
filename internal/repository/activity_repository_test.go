package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var activityTestColumns = []string{
	"id", "teacher_id", "subject_id", "room_type_id", "group_id",
	"duration", "student_count", "active",
	"teacher_name", "subject_name", "subject_code", "room_type_name", "group_name",
}

func TestActivityRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	rows := sqlmock.NewRows(activityTestColumns).
		AddRow(1, 7, 1, 1, 1, 2, 30, true, "Ana Perez", "Calculo I", "MAT101", "Teorica", "1A").
		AddRow(2, 7, 2, 1, 1, 2, 30, false, "Ana Perez", "Fisica I", "FIS101", "Teorica", "1A")
	mock.ExpectQuery("SELECT (.+) FROM activities a").
		WillReturnRows(rows)

	activities, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "Calculo I (MAT101)", activities[0].SubjectLabel())
	// Inactive activities are listed too.
	assert.False(t, activities[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	rows := sqlmock.NewRows(activityTestColumns).
		AddRow(1, 7, 1, 1, 1, 2, 30, true, "Ana Perez", "Calculo I", "MAT101", "Teorica", "1A")
	mock.ExpectQuery("SELECT (.+) FROM activities a (.+) WHERE a.teacher_id = ").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	activities, err := repo.ListByTeacher(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "Ana Perez", activities[0].TeacherName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
