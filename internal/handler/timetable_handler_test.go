package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusgrid/timetable-api/internal/dto"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
	"github.com/campusgrid/timetable-api/pkg/jobs"
)

type generatorMock struct {
	captured  dto.GenerateTimetableRequest
	generated bool
	latestErr error
}

func (m *generatorMock) Generate(_ context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationRunResponse, error) {
	m.captured = req
	m.generated = true
	return &dto.GenerationRunResponse{RunID: "run-1", Status: "COMPLETED", AssignedCells: 8}, nil
}

func (m *generatorMock) LatestRun(context.Context) (*dto.GenerationRunResponse, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	return &dto.GenerationRunResponse{RunID: "run-1", Status: "COMPLETED"}, nil
}

type viewerMock struct{}

func (viewerMock) ClassTimetable(_ context.Context, classID string) (*dto.ClassTimetableResponse, error) {
	if classID != "c1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found in current timetable")
	}
	return &dto.ClassTimetableResponse{ClassID: classID, ClassName: "10-A"}, nil
}

func (viewerMock) TeacherTimetable(_ context.Context, teacherID string) (*dto.TeacherTimetableResponse, error) {
	return &dto.TeacherTimetableResponse{TeacherID: teacherID}, nil
}

func (viewerMock) ExportClassTimetable(_ context.Context, classID, format string) ([]byte, string, string, error) {
	if format != "csv" {
		return nil, "", "", appErrors.Clone(appErrors.ErrUnsupportedFormat, "")
	}
	return []byte("Day,Time\n"), "text/csv", "timetable-" + classID + ".csv", nil
}

type queueMock struct {
	jobs []jobs.Job
	err  error
}

func (m *queueMock) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func postGenerate(handler *TimetableHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)
	return w
}

func TestGenerateSyncRunsInline(t *testing.T) {
	svc := &generatorMock{}
	queue := &queueMock{}
	handler := NewTimetableHandler(svc, viewerMock{}, queue)

	w := postGenerate(handler, `{"sync":true,"mode":"FILL_ALL_PERIODS"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, svc.generated)
	require.Equal(t, "FILL_ALL_PERIODS", svc.captured.Mode)
	require.Empty(t, queue.jobs)
}

func TestGenerateAsyncEnqueues(t *testing.T) {
	svc := &generatorMock{}
	queue := &queueMock{}
	handler := NewTimetableHandler(svc, viewerMock{}, queue)

	w := postGenerate(handler, `{"mode":"STRICT_WEEKLY_CAPS"}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.False(t, svc.generated)
	require.Len(t, queue.jobs, 1)
	require.Equal(t, GenerationJobType, queue.jobs[0].Type)

	payload, ok := queue.jobs[0].Payload.(dto.GenerateTimetableRequest)
	require.True(t, ok)
	require.Equal(t, "STRICT_WEEKLY_CAPS", payload.Mode)
}

func TestGenerateRejectsMalformedBody(t *testing.T) {
	handler := NewTimetableHandler(&generatorMock{}, viewerMock{}, &queueMock{})

	w := postGenerate(handler, `{"mode":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestRunNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &generatorMock{latestErr: appErrors.Clone(appErrors.ErrNoTimetable, "")}
	handler := NewTimetableHandler(svc, viewerMock{}, &queueMock{})

	req, _ := http.NewRequest(http.MethodGet, "/timetable/runs/latest", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.LatestRun(c)

	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, appErrors.ErrNoTimetable.Code, envelope.Error.Code)
}

func TestExportClassTimetableCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&generatorMock{}, viewerMock{}, &queueMock{})

	req, _ := http.NewRequest(http.MethodGet, "/timetable/classes/c1/export?format=csv", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.ExportClassTimetable(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "timetable-c1.csv")
}
