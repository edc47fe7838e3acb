package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadplan/timetable-api/internal/dto"
	"github.com/acadplan/timetable-api/internal/models"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

type mockScheduleStore struct {
	items   map[string]*models.StoredSchedule
	deleted []string
}

func newMockScheduleStore() *mockScheduleStore {
	return &mockScheduleStore{items: make(map[string]*models.StoredSchedule)}
}

func (m *mockScheduleStore) Create(ctx context.Context, schedule *models.StoredSchedule) error {
	if schedule.ID == "" {
		schedule.ID = "sched-1"
	}
	cp := *schedule
	m.items[schedule.ID] = &cp
	return nil
}

func (m *mockScheduleStore) Update(ctx context.Context, schedule *models.StoredSchedule) error {
	cp := *schedule
	m.items[schedule.ID] = &cp
	return nil
}

func (m *mockScheduleStore) List(ctx context.Context) ([]models.StoredSchedule, error) {
	out := make([]models.StoredSchedule, 0, len(m.items))
	for _, schedule := range m.items {
		cp := *schedule
		cp.Payload = nil
		out = append(out, cp)
	}
	return out, nil
}

func (m *mockScheduleStore) FindByID(ctx context.Context, id string) (*models.StoredSchedule, error) {
	schedule, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *schedule
	return &cp, nil
}

func (m *mockScheduleStore) ExistsByDescription(ctx context.Context, description, excludeID string) (bool, error) {
	for id, schedule := range m.items {
		if schedule.Description == description && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockScheduleStore) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func strPtr(s string) *string { return &s }

func normalizedFixture() models.NormalizedSchedule {
	return models.NormalizedSchedule{Subgroups: []models.Subgroup{
		{
			Name: "1A Sub1",
			Days: []models.ScheduleDay{
				{Name: "Lunes", Hours: []models.ScheduleHour{
					{Name: "07 - 08", Activity: &models.PlacedActivity{
						ActivityID: 1, Subject: "Calculo I (MAT101)", ActivityTag: "Teorica",
						Teacher: strPtr("Ana Perez"), Room: strPtr("A-101"),
					}},
					{Name: "08 - 09"},
				}},
				{Name: "Martes", Hours: []models.ScheduleHour{
					{Name: "07 - 08", Activity: &models.PlacedActivity{
						ActivityID: 2, Subject: "Fisica I (FIS101)", ActivityTag: "Laboratorio",
					}},
				}},
			},
		},
		{
			// Same group, second subgroup, same placement.
			Name: "1A Sub2",
			Days: []models.ScheduleDay{
				{Name: "Lunes", Hours: []models.ScheduleHour{
					{Name: "07 - 08", Activity: &models.PlacedActivity{
						ActivityID: 1, Subject: "Calculo I (MAT101)", ActivityTag: "Teorica",
						Teacher: strPtr("Ana Perez"), Room: strPtr("A-101"),
					}},
				}},
			},
		},
		{
			Name: "1B Sub1",
			Days: []models.ScheduleDay{
				{Name: "Lunes", Hours: []models.ScheduleHour{
					{Name: "09 - 10", Activity: &models.PlacedActivity{
						ActivityID: 3, Subject: "Quimica (QUI101)", ActivityTag: "Teorica",
						Teacher: strPtr("Luis Gomez"), Room: strPtr("B-201"),
					}},
				}},
			},
		},
	}}
}

func newScheduleFixture(t *testing.T) (*ScheduleService, *mockScheduleStore, string) {
	t.Helper()
	store := newMockScheduleStore()
	payload, err := json.Marshal(normalizedFixture())
	require.NoError(t, err)
	schedule := &models.StoredSchedule{
		ID:          "sched-1",
		Description: "Semestre 2026-1",
		Payload:     types.JSONText(payload),
		UserID:      "user-1",
	}
	require.NoError(t, store.Create(context.Background(), schedule))
	svc := NewScheduleService(store, nil, 0, validator.New(), zap.NewNop())
	return svc, store, schedule.ID
}

func TestByTeacherProjection(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	cells, err := svc.ByTeacher(context.Background(), id, "Ana Perez")
	require.NoError(t, err)
	// One cell per subgroup carrying the placement.
	require.Len(t, cells, 2)

	cell := cells[0]
	assert.Equal(t, "CALCULO I (MAT101)", cell.Subject)
	assert.Equal(t, "A-101", cell.Room)
	assert.Equal(t, "1A SUB1", cell.Group)
	assert.Equal(t, "Teorica", cell.ActivityTag)
	assert.Equal(t, "LUNES", cell.Day)
	assert.Equal(t, "07-08", cell.Hour)
	assert.Equal(t, "1A SUB2", cells[1].Group)
}

func TestByTeacherCellJSONKeys(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	cells, err := svc.ByTeacher(context.Background(), id, "Ana Perez")
	require.NoError(t, err)
	require.NotEmpty(t, cells)

	body, err := json.Marshal(cells[0])
	require.NoError(t, err)

	var keys map[string]string
	require.NoError(t, json.Unmarshal(body, &keys))
	for _, key := range []string{"subject", "aula", "grupo", "tipoAula", "dia", "horario"} {
		assert.Contains(t, keys, key)
	}
}

func TestByTeacherCaseInsensitive(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	upper, err := svc.ByTeacher(context.Background(), id, "ANA PEREZ")
	require.NoError(t, err)
	lower, err := svc.ByTeacher(context.Background(), id, "ana perez")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
	require.Len(t, upper, 2)
}

func TestByTeacherKeepsRepeatedCells(t *testing.T) {
	// Stored payloads are caller-supplied; a subgroup label may repeat. The
	// projection walks every hour node and never collapses equal cells.
	store := newMockScheduleStore()
	schedule := normalizedFixture()
	schedule.Subgroups = append(schedule.Subgroups, schedule.Subgroups[0])
	payload, err := json.Marshal(schedule)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), &models.StoredSchedule{
		ID: "sched-1", Description: "Semestre 2026-1", Payload: types.JSONText(payload), UserID: "user-1",
	}))
	svc := NewScheduleService(store, nil, 0, validator.New(), zap.NewNop())

	cells, err := svc.ByTeacher(context.Background(), "sched-1", "Ana Perez")
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.Equal(t, cells[0], cells[2])

	rooms, err := svc.ByRoom(context.Background(), "sched-1", "A-101")
	require.NoError(t, err)
	assert.Len(t, rooms, 3)
}

func TestByTeacherUnknownNameYieldsEmpty(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	cells, err := svc.ByTeacher(context.Background(), id, "Nadie")
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestByTeacherIsIdempotent(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	first, err := svc.ByTeacher(context.Background(), id, "Ana Perez")
	require.NoError(t, err)
	second, err := svc.ByTeacher(context.Background(), id, "Ana Perez")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestByGroupMatchesLeadingToken(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	cells, err := svc.ByGroup(context.Background(), id, "1a")
	require.NoError(t, err)
	// Both subjects of group 1A; the duplicate placement across subgroups
	// collapses to one cell each.
	require.Len(t, cells, 2)
	assert.Equal(t, "CALCULO I (MAT101)", cells[0].Subject)
	assert.Equal(t, "ANA PEREZ", cells[0].Teacher)
	assert.Equal(t, "FISICA I (FIS101)", cells[1].Subject)
	// Unassigned teacher renders as empty, never as a fabricated value.
	assert.Equal(t, "", cells[1].Teacher)

	other, err := svc.ByGroup(context.Background(), id, "1B")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "QUIMICA (QUI101)", other[0].Subject)
}

func TestByRoomProjection(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	cells, err := svc.ByRoom(context.Background(), id, "a-101")
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, "ANA PEREZ", cells[0].Teacher)
	assert.Equal(t, "1A SUB1", cells[0].Group)
	assert.Equal(t, "LUNES", cells[0].Day)
	assert.Equal(t, "1A SUB2", cells[1].Group)
}

func TestQueryUnknownSchedule(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)

	_, err := svc.ByTeacher(context.Background(), "missing", "Ana Perez")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
}

func TestCreateScheduleConflict(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)
	payload, err := json.Marshal(normalizedFixture())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), dto.CreateScheduleRequest{
		UserID:      "user-1",
		Description: "Semestre 2026-1",
		Payload:     payload,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.CodeOf(err))
}

func TestCreateScheduleRejectsBadPayload(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)

	_, err := svc.Create(context.Background(), dto.CreateScheduleRequest{
		UserID:      "user-1",
		Description: "Otro",
		Payload:     []byte(`"not a schedule"`),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err))
}

func TestDeleteSchedule(t *testing.T) {
	svc, store, id := newScheduleFixture(t)

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Equal(t, []string{id}, store.deleted)

	err := svc.Delete(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
}

func TestExportCSV(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	filename, contentType, body, err := svc.Export(context.Background(), id, "csv")
	require.NoError(t, err)
	assert.Equal(t, "schedule-sched-1.csv", filename)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(body), "Calculo I (MAT101)")
	assert.Contains(t, string(body), "Ana Perez")
}

func TestExportUnknownFormat(t *testing.T) {
	svc, _, id := newScheduleFixture(t)

	_, _, _, err := svc.Export(context.Background(), id, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err))
}
