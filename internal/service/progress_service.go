package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/campusgrid/timetable-api/internal/dto"
	"github.com/campusgrid/timetable-api/internal/engine"
	"github.com/campusgrid/timetable-api/internal/models"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
)

type progressStore interface {
	Upsert(ctx context.Context, row models.StudentProgressRow) error
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentProgressRow, error)
}

// ProgressService records student activity progress. The database is the
// source of truth; the in-memory ledger fronts it so repeated reads within a
// process avoid refetching, and so updates are visible immediately.
type ProgressService struct {
	store    progressStore
	students studentFinder
	ledger   *engine.Ledger
	logger   *zap.Logger
}

// NewProgressService constructs a ProgressService.
func NewProgressService(store progressStore, students studentFinder, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		store:    store,
		students: students,
		ledger:   engine.NewLedger(),
		logger:   logger,
	}
}

// Update upserts one progress record for a student.
func (s *ProgressService) Update(ctx context.Context, studentID string, req dto.UpdateProgressRequest) (*dto.ProgressEntryResponse, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if !strings.Contains(req.ActivityKey, "|") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity_key must be \"{activity}|{slot}\"")
	}

	rec := s.ledger.Update(studentID, req.ActivityKey, req.Status, req.Notes)
	row := models.StudentProgressRow{
		StudentID:   studentID,
		ActivityKey: req.ActivityKey,
		Status:      rec.Status,
		Notes:       rec.Notes,
		LastUpdated: rec.LastUpdated,
	}
	if err := s.store.Upsert(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not persist progress")
	}

	s.logger.Info("progress updated",
		zap.String("student_id", studentID),
		zap.String("activity_key", req.ActivityKey),
		zap.String("status", rec.Status),
	)
	return entryResponse(row), nil
}

// History lists a student's full progress history, newest first.
func (s *ProgressService) History(ctx context.Context, studentID string) (*dto.StudentProgressResponse, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	rows, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load progress history")
	}

	seed := make(map[string]models.ProgressRecord, len(rows))
	entries := make([]dto.ProgressEntryResponse, 0, len(rows))
	for _, row := range rows {
		seed[row.ActivityKey] = models.ProgressRecord{Status: row.Status, Notes: row.Notes, LastUpdated: row.LastUpdated}
		entries = append(entries, *entryResponse(row))
	}
	s.ledger.Seed(studentID, seed)

	return &dto.StudentProgressResponse{StudentID: studentID, Entries: entries}, nil
}

func entryResponse(row models.StudentProgressRow) *dto.ProgressEntryResponse {
	resp := &dto.ProgressEntryResponse{
		ActivityKey: row.ActivityKey,
		Activity:    models.ActivityFromOccurrenceKey(row.ActivityKey),
		Status:      row.Status,
		Notes:       row.Notes,
		LastUpdated: row.LastUpdated,
	}
	if idx := strings.IndexByte(row.ActivityKey, '|'); idx >= 0 {
		resp.SlotKey = row.ActivityKey[idx+1:]
	}
	return resp
}
