package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadplan/timetable-api/internal/dto"
	"github.com/acadplan/timetable-api/internal/models"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

type scheduleServiceMock struct {
	byTeacher []dto.TeacherScheduleCell
	byErr     error
	deleteErr error
	exportErr error
}

func (m *scheduleServiceMock) Create(ctx context.Context, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	return &dto.ScheduleResponse{ID: "sched-1", Description: req.Description}, nil
}

func (m *scheduleServiceMock) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	return &dto.ScheduleResponse{ID: id, Description: req.Description}, nil
}

func (m *scheduleServiceMock) List(ctx context.Context) ([]dto.ScheduleResponse, error) {
	return []dto.ScheduleResponse{{ID: "sched-1"}}, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string) (*models.StoredSchedule, error) {
	return &models.StoredSchedule{ID: id}, nil
}

func (m *scheduleServiceMock) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func (m *scheduleServiceMock) ByTeacher(ctx context.Context, scheduleID, teacher string) ([]dto.TeacherScheduleCell, error) {
	return m.byTeacher, m.byErr
}

func (m *scheduleServiceMock) ByGroup(ctx context.Context, scheduleID, group string) ([]dto.GroupScheduleCell, error) {
	return nil, m.byErr
}

func (m *scheduleServiceMock) ByRoom(ctx context.Context, scheduleID, room string) ([]dto.RoomScheduleCell, error) {
	return nil, m.byErr
}

func (m *scheduleServiceMock) Export(ctx context.Context, scheduleID, format string) (string, string, []byte, error) {
	if m.exportErr != nil {
		return "", "", nil, m.exportErr
	}
	return "schedule-" + scheduleID + ".csv", "text/csv", []byte("Day,Hour\n"), nil
}

func TestScheduleHandlerByTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{byTeacher: []dto.TeacherScheduleCell{{Subject: "CALCULO I (MAT101)", Day: "LUNES", Hour: "07-08"}}}
	handler := NewScheduleHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/schedules/sched-1/teachers/Ana Perez", nil)
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}, {Key: "name", Value: "Ana Perez"}}

	handler.ByTeacher(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CALCULO I (MAT101)")
	assert.Contains(t, w.Body.String(), `"horario":"07-08"`)
}

func TestScheduleHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "schedule not found")}
	handler := NewScheduleHandler(mockSvc)

	c, w := newGinContext(http.MethodDelete, "/schedules/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})

	c, w := newGinContext(http.MethodGet, "/schedules/sched-1/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule-sched-1.csv")
}

func TestScheduleHandlerExportBadFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{exportErr: appErrors.Clone(appErrors.ErrValidation, `unsupported export format "xlsx"`)}
	handler := NewScheduleHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/schedules/sched-1/export?format=xlsx", nil)
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
