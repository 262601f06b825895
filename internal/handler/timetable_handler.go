package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusgrid/timetable-api/internal/dto"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
	"github.com/campusgrid/timetable-api/pkg/jobs"
	"github.com/campusgrid/timetable-api/pkg/response"
)

// GenerationJobType labels queued generation jobs.
const GenerationJobType = "timetable.generate"

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationRunResponse, error)
	LatestRun(ctx context.Context) (*dto.GenerationRunResponse, error)
}

type timetableViewer interface {
	ClassTimetable(ctx context.Context, classID string) (*dto.ClassTimetableResponse, error)
	TeacherTimetable(ctx context.Context, teacherID string) (*dto.TeacherTimetableResponse, error)
	ExportClassTimetable(ctx context.Context, classID, format string) ([]byte, string, string, error)
}

type generationQueue interface {
	Enqueue(job jobs.Job) error
}

// TimetableHandler exposes generation and timetable view endpoints.
type TimetableHandler struct {
	service timetableGenerator
	views   timetableViewer
	queue   generationQueue
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableGenerator, views timetableViewer, queue generationQueue) *TimetableHandler {
	return &TimetableHandler{service: svc, views: views, queue: queue}
}

// Generate godoc
// @Summary Trigger a timetable generation cycle
// @Tags Timetable
// @Accept json
// @Produce json
// @Param request body dto.GenerateTimetableRequest false "Generation overrides"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request"))
			return
		}
	}

	if req.Sync || h.queue == nil {
		run, err := h.service.Generate(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, run, nil)
		return
	}

	jobID := uuid.NewString()
	err := h.queue.Enqueue(jobs.Job{ID: jobID, Type: GenerationJobType, Payload: req})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "generation queue unavailable"))
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "status": "QUEUED"})
}

// LatestRun godoc
// @Summary Report the latest completed generation run
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/runs/latest [get]
func (h *TimetableHandler) LatestRun(c *gin.Context) {
	run, err := h.service.LatestRun(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// ClassTimetable godoc
// @Summary Get the timetable of a class
// @Tags Timetable
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/classes/{id} [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	view, err := h.views.ClassTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// TeacherTimetable godoc
// @Summary Get the weekly schedule of a teacher
// @Tags Timetable
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/teachers/{id} [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	view, err := h.views.TeacherTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ExportClassTimetable godoc
// @Summary Export the timetable of a class as CSV or PDF
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/classes/{id}/export [get]
func (h *TimetableHandler) ExportClassTimetable(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, filename, err := h.views.ExportClassTimetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}
