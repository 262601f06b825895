package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgrid/timetable-api/internal/dto"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
	"github.com/campusgrid/timetable-api/pkg/response"
)

type studentViewer interface {
	StudentTimetable(ctx context.Context, studentID string) (*dto.StudentTimetableResponse, error)
	StudentPlan(ctx context.Context, studentID string) (*dto.StudentPlanResponse, error)
}

type progressManager interface {
	Update(ctx context.Context, studentID string, req dto.UpdateProgressRequest) (*dto.ProgressEntryResponse, error)
	History(ctx context.Context, studentID string) (*dto.StudentProgressResponse, error)
}

// StudentHandler exposes student timetable, plan and progress endpoints.
type StudentHandler struct {
	views    studentViewer
	progress progressManager
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(views studentViewer, progress progressManager) *StudentHandler {
	return &StudentHandler{views: views, progress: progress}
}

// Timetable godoc
// @Summary Get the merged timetable of a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/timetable [get]
func (h *StudentHandler) Timetable(c *gin.Context) {
	view, err := h.views.StudentTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Plan godoc
// @Summary Get the activity plan of a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/plan [get]
func (h *StudentHandler) Plan(c *gin.Context) {
	plan, err := h.views.StudentPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Progress godoc
// @Summary Get the activity progress history of a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *StudentHandler) Progress(c *gin.Context) {
	history, err := h.progress.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// UpdateProgress godoc
// @Summary Record progress on one activity occurrence
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body dto.UpdateProgressRequest true "Progress update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/progress [put]
func (h *StudentHandler) UpdateProgress(c *gin.Context) {
	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress update"))
		return
	}

	entry, err := h.progress.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
