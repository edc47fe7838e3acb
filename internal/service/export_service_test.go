package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadplan/timetable-api/internal/models"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

type mockTimeStructure struct {
	semester    *models.Semester
	semesterErr error
	days        []models.WorkingDay
	intervals   []models.Interval
}

func (m *mockTimeStructure) SemesterInProgress(ctx context.Context) (*models.Semester, error) {
	if m.semesterErr != nil {
		return nil, m.semesterErr
	}
	return m.semester, nil
}

func (m *mockTimeStructure) WorkingDays(ctx context.Context, semesterID int64) ([]models.WorkingDay, error) {
	return m.days, nil
}

func (m *mockTimeStructure) Intervals(ctx context.Context, workingDayID int64) ([]models.Interval, error) {
	return m.intervals, nil
}

type mockCatalogs struct {
	subjects  []models.Subject
	roomTypes []models.RoomType
	faculties []models.Faculty
	rooms     []models.Room
	teachers  []models.Teacher
}

func (m *mockCatalogs) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return m.subjects, nil
}

func (m *mockCatalogs) ListRoomTypes(ctx context.Context) ([]models.RoomType, error) {
	return m.roomTypes, nil
}

func (m *mockCatalogs) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	return m.faculties, nil
}

func (m *mockCatalogs) ListRooms(ctx context.Context) ([]models.Room, error) {
	return m.rooms, nil
}

func (m *mockCatalogs) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return m.teachers, nil
}

type mockLevels struct {
	levels []models.Level
	groups map[int64][]models.StudentGroup
}

func (m *mockLevels) ListLevels(ctx context.Context) ([]models.Level, error) {
	return m.levels, nil
}

func (m *mockLevels) ListGroupsByLevel(ctx context.Context, levelID int64) ([]models.StudentGroup, error) {
	return m.groups[levelID], nil
}

type mockActivities struct {
	all       []models.Activity
	byTeacher map[int64][]models.Activity
}

func (m *mockActivities) List(ctx context.Context) ([]models.Activity, error) {
	return m.all, nil
}

func (m *mockActivities) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Activity, error) {
	return m.byTeacher[teacherID], nil
}

type mockConstraints struct {
	slots       []models.PreferredSlot
	rooms       []models.PreferredRoom
	unavailable []models.UnavailableHour
}

func (m *mockConstraints) ListPreferredSlots(ctx context.Context) ([]models.PreferredSlot, error) {
	return m.slots, nil
}

func (m *mockConstraints) ListPreferredRooms(ctx context.Context) ([]models.PreferredRoom, error) {
	return m.rooms, nil
}

func (m *mockConstraints) ListUnavailableHours(ctx context.Context) ([]models.UnavailableHour, error) {
	return m.unavailable, nil
}

func exportFixture() (*mockTimeStructure, *mockCatalogs, *mockLevels, *mockActivities, *mockConstraints) {
	ts := &mockTimeStructure{
		semester: &models.Semester{ID: 1, Name: "2026-1"},
		days: []models.WorkingDay{
			{ID: 1, Name: "LUNES"},
			{ID: 2, Name: "martes"},
		},
		intervals: []models.Interval{
			{ID: 1, StartHour: "7", EndHour: "8"},
			{ID: 2, StartHour: "08", EndHour: "09"},
			{ID: 3, StartHour: "11", EndHour: "12"},
		},
	}
	catalogs := &mockCatalogs{
		subjects: []models.Subject{
			{ID: 1, Name: "Calculo I", Code: "MAT101"},
			{ID: 2, Name: "Fisica I", Code: "FIS101"},
		},
		roomTypes: []models.RoomType{
			{ID: 1, Name: "Teorica", FacultyName: "Ingenieria"},
		},
		faculties: []models.Faculty{{ID: 1, Name: "Ingenieria"}},
		rooms: []models.Room{
			{ID: 1, Name: "A-101", Capacity: 40, RoomTypeName: "Teorica", FacultyName: "Ingenieria"},
		},
		teachers: []models.Teacher{{ID: 7, FullName: "Ana Perez"}},
	}
	levels := &mockLevels{
		levels: []models.Level{{ID: 1, Name: "Primero", StudentCount: 60, CareerName: "Sistemas"}},
		groups: map[int64][]models.StudentGroup{
			1: {{ID: 1, LevelID: 1, Name: "1A", StudentCount: 30}},
		},
	}
	activity := models.Activity{
		ID: 1, TeacherID: 7, Duration: 2, StudentCount: 30, Active: true,
		TeacherName: "Ana Perez", SubjectName: "Calculo I", SubjectCode: "MAT101",
		RoomTypeName: "Teorica", GroupName: "1A",
	}
	second := activity
	second.ID = 2
	third := activity
	third.ID = 3
	third.SubjectName = "Fisica I"
	third.SubjectCode = "FIS101"
	activities := &mockActivities{
		all:       []models.Activity{activity, second, third},
		byTeacher: map[int64][]models.Activity{7: {activity, second, third}},
	}
	constraints := &mockConstraints{
		slots: []models.PreferredSlot{{ActivityID: 1, Day: "Lunes", Hour: "07-08", Weight: 95, Locked: true}},
		rooms: []models.PreferredRoom{{ActivityID: 1, RoomName: "A-101", Weight: 100, Locked: true}},
		unavailable: []models.UnavailableHour{
			{TeacherID: 7, TeacherName: "Ana Perez", Day: "Lunes", Hour: "07-08"},
			{TeacherID: 7, TeacherName: "Ana Perez", Day: "Martes", Hour: "08-09"},
		},
	}
	return ts, catalogs, levels, activities, constraints
}

func newExportService(ts *mockTimeStructure, c *mockCatalogs, l *mockLevels, a *mockActivities, cons *mockConstraints) *ExportService {
	return NewExportService(ts, c, l, a, cons, zap.NewNop(), ExportConfig{
		University: "Universidad Nacional",
		Faculty:    "Facultad de Ingenieria",
		BreakDay:   "Jueves",
		BreakHours: []string{"11-12", "12-13"},
	})
}

func TestMapTimeStructureLabels(t *testing.T) {
	ts, c, l, a, cons := exportFixture()
	svc := newExportService(ts, c, l, a, cons)

	structure, err := svc.MapTimeStructure(context.Background())
	require.NoError(t, err)

	require.Len(t, structure.Days, 2)
	assert.Equal(t, "Lunes", structure.Days[0].Name)
	assert.Equal(t, "Martes", structure.Days[1].Name)

	require.Len(t, structure.Hours, 3)
	assert.Equal(t, "07-08", structure.Hours[0].Name)
	assert.Equal(t, "08-09", structure.Hours[1].Name)
	assert.Equal(t, "11-12", structure.Hours[2].Name)
}

func TestMapTimeStructureNoSemester(t *testing.T) {
	ts, c, l, a, cons := exportFixture()
	ts.semesterErr = sql.ErrNoRows
	svc := newExportService(ts, c, l, a, cons)

	_, err := svc.MapTimeStructure(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
}

func TestMapTimeStructureNoWorkingDays(t *testing.T) {
	ts, c, l, a, cons := exportFixture()
	ts.days = nil
	svc := newExportService(ts, c, l, a, cons)

	_, err := svc.MapTimeStructure(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
}

func TestMapTeachersQualifiedSubjects(t *testing.T) {
	ts, c, l, a, cons := exportFixture()
	svc := newExportService(ts, c, l, a, cons)

	teachers, err := svc.MapTeachers(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 1)

	// Two activities share a subject; the qualification set is distinct and
	// keeps first-appearance order.
	assert.Equal(t, []string{"Calculo I (MAT101)", "Fisica I (FIS101)"}, teachers[0].QualifiedSubjects.Subjects)
	assert.Equal(t, 10, teachers[0].TargetHours)
}

func TestBuildDocument(t *testing.T) {
	ts, c, l, a, cons := exportFixture()
	svc := newExportService(ts, c, l, a, cons)

	doc, err := svc.BuildDocument(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Universidad Nacional", doc.InstitutionName)
	assert.Equal(t, "Facultad de Ingenieria", doc.Comments)
	assert.Equal(t, 2, doc.Days.NumberOfDays)
	assert.Equal(t, 3, doc.Hours.NumberOfHours)
	assert.Len(t, doc.Activities.Activities, 3)
	assert.Equal(t, "Calculo I (MAT101)", doc.Activities.Activities[0].Subject)

	require.NotNil(t, doc.TimeConstraints.Breaks)
	assert.Equal(t, 2, doc.TimeConstraints.Breaks.NumberOfBreakTimes)
	assert.Equal(t, "Jueves", doc.TimeConstraints.Breaks.BreakTimes[0].Day)

	require.Len(t, doc.TimeConstraints.TeacherNotAvailableList, 1)
	notAvailable := doc.TimeConstraints.TeacherNotAvailableList[0]
	assert.Equal(t, "Ana Perez", notAvailable.Teacher)
	assert.Equal(t, 2, notAvailable.NumberOfNotAvailableTimes)

	require.Len(t, doc.TimeConstraints.PreferredStartingTimes, 1)
	assert.Equal(t, int64(1), doc.TimeConstraints.PreferredStartingTimes[0].ActivityID)
	require.Len(t, doc.SpaceConstraints.PreferredRooms, 1)
	assert.Equal(t, "A-101", doc.SpaceConstraints.PreferredRooms[0].Room)
}

func TestBuildDocumentReferentialInconsistency(t *testing.T) {
	ts, c, l, a, cons := exportFixture()
	// An activity referencing a teacher missing from the roster must fail
	// validation before anything is staged.
	c.teachers = nil
	svc := newExportService(ts, c, l, a, cons)

	_, err := svc.BuildDocument(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferentialInconsistency.Code, appErrors.CodeOf(err))
}
