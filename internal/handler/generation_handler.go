package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadplan/timetable-api/internal/dto"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
	"github.com/acadplan/timetable-api/pkg/response"
)

// GenerationService is the pipeline surface the handler depends on.
type GenerationService interface {
	Generate(ctx context.Context, req dto.GenerateRequest) (*dto.JobResponse, error)
	ProcessDocument(ctx context.Context, req dto.ProcessRequest) (*dto.JobResponse, error)
	Status(ctx context.Context, id string) (*dto.JobResponse, error)
	Cancel(ctx context.Context, id string) (*dto.JobResponse, error)
}

// GenerationHandler exposes the asynchronous timetable generation endpoints.
type GenerationHandler struct {
	generation GenerationService
}

// NewGenerationHandler constructs handler.
func NewGenerationHandler(generation GenerationService) *GenerationHandler {
	return &GenerationHandler{generation: generation}
}

// Generate godoc
// @Summary Start a full build-and-solve timetable generation
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Generation request"
// @Success 202 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	job, err := h.generation.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Process godoc
// @Summary Solve a caller-supplied interchange document
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.ProcessRequest true "Process request"
// @Success 202 {object} response.Envelope
// @Router /timetables/process [post]
func (h *GenerationHandler) Process(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	job, err := h.generation.ProcessDocument(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Generation job status
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *GenerationHandler) Status(c *gin.Context) {
	job, err := h.generation.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Cancel godoc
// @Summary Cancel a running generation job
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [delete]
func (h *GenerationHandler) Cancel(c *gin.Context) {
	job, err := h.generation.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}
