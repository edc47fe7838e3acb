package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadplan/timetable-api/internal/dto"
	"github.com/acadplan/timetable-api/internal/models"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
	"github.com/acadplan/timetable-api/pkg/response"
)

// ScheduleService is the schedule surface the handler depends on.
type ScheduleService interface {
	Create(ctx context.Context, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	List(ctx context.Context) ([]dto.ScheduleResponse, error)
	Get(ctx context.Context, id string) (*models.StoredSchedule, error)
	Delete(ctx context.Context, id string) error
	ByTeacher(ctx context.Context, scheduleID, teacher string) ([]dto.TeacherScheduleCell, error)
	ByGroup(ctx context.Context, scheduleID, group string) ([]dto.GroupScheduleCell, error)
	ByRoom(ctx context.Context, scheduleID, room string) ([]dto.RoomScheduleCell, error)
	Export(ctx context.Context, scheduleID, format string) (string, string, []byte, error)
}

// ScheduleHandler exposes stored schedule CRUD, the projection queries and
// export.
type ScheduleHandler struct {
	schedules ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedules ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Create godoc
// @Summary Register an externally produced schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Schedule"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// List godoc
// @Summary List stored schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules)
}

// Get godoc
// @Summary Fetch a stored schedule including its payload
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// Update godoc
// @Summary Replace a stored schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.UpdateScheduleRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	schedule, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// Delete godoc
// @Summary Delete a stored schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ByTeacher godoc
// @Summary Timetable slots of one teacher
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param name path string true "Teacher name"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/teachers/{name} [get]
func (h *ScheduleHandler) ByTeacher(c *gin.Context) {
	cells, err := h.schedules.ByTeacher(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cells)
}

// ByGroup godoc
// @Summary Timetable slots of one student group
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param name path string true "Group name"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/groups/{name} [get]
func (h *ScheduleHandler) ByGroup(c *gin.Context) {
	cells, err := h.schedules.ByGroup(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cells)
}

// ByRoom godoc
// @Summary Timetable slots of one room
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param name path string true "Room name"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/rooms/{name} [get]
func (h *ScheduleHandler) ByRoom(c *gin.Context) {
	cells, err := h.schedules.ByRoom(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cells)
}

// Export godoc
// @Summary Export a stored schedule as CSV or PDF
// @Tags Schedules
// @Produce octet-stream
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /schedules/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	filename, contentType, body, err := h.schedules.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}
