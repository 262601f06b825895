package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusgrid/timetable-api/internal/dto"
	"github.com/campusgrid/timetable-api/internal/engine"
	"github.com/campusgrid/timetable-api/internal/models"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
	"github.com/campusgrid/timetable-api/pkg/export"
)

type snapshotProvider interface {
	Latest() (*Snapshot, bool)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type progressHistoryLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentProgressRow, error)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ViewService projects the latest generation snapshot into per-class,
// per-teacher and per-student views, caching class and teacher payloads.
// Cache keys embed the run ID, so a regeneration never serves stale rows.
type ViewService struct {
	snapshots snapshotProvider
	students  studentFinder
	progress  progressHistoryLister
	cache     viewCache
	metrics   cacheObserver
	csv       csvRenderer
	pdf       pdfRenderer
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewViewService constructs a ViewService.
func NewViewService(
	snapshots snapshotProvider,
	students studentFinder,
	progress progressHistoryLister,
	cache viewCache,
	metrics cacheObserver,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ViewService{
		snapshots: snapshots,
		students:  students,
		progress:  progress,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// ClassTimetable returns the flattened schedule of one class.
func (s *ViewService) ClassTimetable(ctx context.Context, classID string) (*dto.ClassTimetableResponse, error) {
	snap, ok := s.snapshots.Latest()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNoTimetable, "")
	}

	cacheKey := fmt.Sprintf("views:%s:class:%s", snap.RunID, classID)
	var cached dto.ClassTimetableResponse
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	tt, exists := snap.Result.Timetables[classID]
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found in current timetable")
	}

	resp := &dto.ClassTimetableResponse{
		ClassID:   classID,
		ClassName: tt.ClassName,
		Room:      tt.Room,
		Rows:      engine.ClassView(snap.Result, classID),
	}
	s.cacheSet(ctx, cacheKey, resp)
	return resp, nil
}

// TeacherTimetable returns one teacher's weekly view across all classes.
func (s *ViewService) TeacherTimetable(ctx context.Context, teacherID string) (*dto.TeacherTimetableResponse, error) {
	snap, ok := s.snapshots.Latest()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNoTimetable, "")
	}

	var name string
	for _, teacher := range snap.Result.Teachers {
		if teacher.ID == teacherID {
			name = teacher.Name
			break
		}
	}
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found in current timetable")
	}

	cacheKey := fmt.Sprintf("views:%s:teacher:%s", snap.RunID, teacherID)
	var cached dto.TeacherTimetableResponse
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	resp := &dto.TeacherTimetableResponse{
		TeacherID:   teacherID,
		TeacherName: name,
		Rows:        engine.TeacherView(snap.Result, teacherID),
	}
	s.cacheSet(ctx, cacheKey, resp)
	return resp, nil
}

// StudentTimetable merges the student's class schedule with their activity
// plan and progress history. Progress is read fresh on every call, so it is
// never cached.
func (s *ViewService) StudentTimetable(ctx context.Context, studentID string) (*dto.StudentTimetableResponse, error) {
	snap, ok := s.snapshots.Latest()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNoTimetable, "")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	history, err := s.studentHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return &dto.StudentTimetableResponse{
		StudentID:   student.ID,
		StudentName: student.Name,
		ClassID:     student.ClassID,
		Rows:        engine.StudentView(snap.Result, student.ClassID, snap.Plans[studentID], history),
	}, nil
}

// StudentPlan exposes the raw slot-to-activity plan of one student.
func (s *ViewService) StudentPlan(ctx context.Context, studentID string) (*dto.StudentPlanResponse, error) {
	snap, ok := s.snapshots.Latest()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNoTimetable, "")
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	plan, exists := snap.Plans[studentID]
	if !exists {
		plan = models.StudentActivityPlan{}
	}
	return &dto.StudentPlanResponse{StudentID: studentID, Plan: plan}, nil
}

// ExportClassTimetable renders one class schedule as CSV or PDF.
func (s *ViewService) ExportClassTimetable(ctx context.Context, classID, format string) ([]byte, string, string, error) {
	view, err := s.ClassTimetable(ctx, classID)
	if err != nil {
		return nil, "", "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Day", "Time", "Subject", "Teacher", "Room", "Type"},
		Rows:    make([]map[string]string, 0, len(view.Rows)),
	}
	for _, row := range view.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":     row.Day,
			"Time":    row.Time,
			"Subject": row.Subject,
			"Teacher": row.Teacher,
			"Room":    row.Room,
			"Type":    row.Type,
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv export failed")
		}
		return payload, "text/csv", fmt.Sprintf("timetable-%s.csv", classID), nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Timetable %s", view.ClassName))
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf export failed")
		}
		return payload, "application/pdf", fmt.Sprintf("timetable-%s.pdf", classID), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ViewService) studentHistory(ctx context.Context, studentID string) (map[string]models.ProgressRecord, error) {
	rows, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load progress history")
	}
	history := make(map[string]models.ProgressRecord, len(rows))
	for _, row := range rows {
		history[row.ActivityKey] = models.ProgressRecord{
			Status:      row.Status,
			Notes:       row.Notes,
			LastUpdated: row.LastUpdated,
		}
	}
	return history, nil
}

func (s *ViewService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	start := time.Now()
	err := s.cache.Get(ctx, key, dest)
	hit := err == nil
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, time.Since(start))
	}
	if err != nil && err != appErrors.ErrCacheMiss {
		s.logger.Warn("view cache read failed", zap.String("key", key), zap.Error(err))
	}
	return hit
}

func (s *ViewService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
	}
}
