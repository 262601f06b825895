package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgrid/timetable-api/internal/dto"
	"github.com/campusgrid/timetable-api/internal/models"
	"github.com/campusgrid/timetable-api/pkg/config"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
)

type stubEntities struct {
	teachers []models.Teacher
	classes  []models.ClassGroup
	subjects []models.Subject
	students []models.Student
}

type stubTeachers struct{ e *stubEntities }

func (s stubTeachers) ListAll(context.Context) ([]models.Teacher, error) { return s.e.teachers, nil }

type stubClasses struct{ e *stubEntities }

func (s stubClasses) ListAll(context.Context) ([]models.ClassGroup, error) { return s.e.classes, nil }

type stubSubjects struct{ e *stubEntities }

func (s stubSubjects) ListAll(context.Context) ([]models.Subject, error) { return s.e.subjects, nil }

type stubStudents struct{ e *stubEntities }

func (s stubStudents) ListAll(context.Context) ([]models.Student, error) { return s.e.students, nil }

type stubRunStore struct {
	created   []models.GenerationRun
	completed []string
	failed    []string
	cells     map[string][]models.TimetableCellRow
	latest    *models.GenerationRun
}

func newStubRunStore() *stubRunStore {
	return &stubRunStore{cells: make(map[string][]models.TimetableCellRow)}
}

func (s *stubRunStore) CreateRun(_ context.Context, mode string) (*models.GenerationRun, error) {
	run := models.GenerationRun{
		ID:     "run-" + mode + "-" + string(rune('a'+len(s.created))),
		Status: models.GenerationRunStatusPending,
		Mode:   mode,
	}
	s.created = append(s.created, run)
	return &run, nil
}

func (s *stubRunStore) CompleteRun(_ context.Context, runID string, assigned, activity, free int, _ types.JSONText) error {
	s.completed = append(s.completed, runID)
	s.latest = &models.GenerationRun{
		ID:            runID,
		Status:        models.GenerationRunStatusCompleted,
		AssignedCells: assigned,
		ActivityCells: activity,
		FreeCells:     free,
	}
	return nil
}

func (s *stubRunStore) FailRun(_ context.Context, runID string, _ types.JSONText) error {
	s.failed = append(s.failed, runID)
	return nil
}

func (s *stubRunStore) LatestCompletedRun(context.Context) (*models.GenerationRun, error) {
	if s.latest == nil {
		return nil, sql.ErrNoRows
	}
	return s.latest, nil
}

func (s *stubRunStore) ReplaceCells(_ context.Context, runID string, cells []models.TimetableCellRow) error {
	s.cells = map[string][]models.TimetableCellRow{runID: cells}
	return nil
}

type stubProgress struct{ rows []models.StudentProgressRow }

func (s stubProgress) ListAll(context.Context) ([]models.StudentProgressRow, error) {
	return s.rows, nil
}

type stubSettings struct{ values map[string]types.JSONText }

func newStubSettings() *stubSettings { return &stubSettings{values: make(map[string]types.JSONText)} }

func (s *stubSettings) Get(_ context.Context, key string) (types.JSONText, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

func (s *stubSettings) Set(_ context.Context, key string, value types.JSONText) error {
	s.values[key] = value
	return nil
}

func feasibleEntities() *stubEntities {
	return &stubEntities{
		teachers: []models.Teacher{
			{ID: "t1", Name: "Ardelia Sunna", Subjects: []string{"math", "sci"}, PrimarySubjects: []string{"math"}, Rating: 4, MaxDailyHours: 4},
			{ID: "t2", Name: "Bram Okonkwo", Subjects: []string{"sci", "math"}, Rating: 3, MaxDailyHours: 4},
		},
		classes: []models.ClassGroup{
			{ID: "c1", Name: "Grade 10A", Room: "R101", Subjects: []string{"math", "sci"}},
		},
		subjects: []models.Subject{
			{ID: "math", Name: "Mathematics", Credits: 3, WeeklySessions: 1},
			{ID: "sci", Name: "Science", Credits: 2, WeeklySessions: 1},
		},
		students: []models.Student{
			{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5, Interests: []string{"Sports"}},
		},
	}
}

func generatorConfig() config.GeneratorConfig {
	return config.GeneratorConfig{
		Days:           []string{"Monday", "Tuesday"},
		StartTime:      "09:00",
		EndTime:        "11:00",
		PeriodDuration: 60,
		Mode:           "STRICT_WEEKLY_CAPS",
		Seed:           42,
	}
}

func newServiceFixture(entities *stubEntities, runs *stubRunStore) *TimetableService {
	return NewTimetableService(
		stubTeachers{entities},
		stubClasses{entities},
		stubSubjects{entities},
		stubStudents{entities},
		runs,
		stubProgress{},
		newStubSettings(),
		nil,
		nil,
		generatorConfig(),
		config.ActivityConfig{Catalog: []string{"Reading", "Sports"}, Strategy: "balanced"},
		nil,
	)
}

func TestTimetableServiceGeneratePublishesSnapshot(t *testing.T) {
	runs := newStubRunStore()
	svc := newServiceFixture(feasibleEntities(), runs)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.Equal(t, 2, resp.AssignedCells)
	assert.Equal(t, 2, resp.ActivityCells)
	assert.Equal(t, 0, resp.FreeCells)

	snap, ok := svc.Latest()
	require.True(t, ok)
	assert.Equal(t, resp.RunID, snap.RunID)
	assert.Contains(t, snap.Plans, "s1")
	assert.Len(t, runs.cells[resp.RunID], 4)
	assert.Equal(t, []string{resp.RunID}, runs.completed)
}

func TestTimetableServiceRegenerationReplacesSnapshot(t *testing.T) {
	runs := newStubRunStore()
	svc := newServiceFixture(feasibleEntities(), runs)

	first, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	require.NotEqual(t, first.RunID, second.RunID)

	snap, ok := svc.Latest()
	require.True(t, ok)
	assert.Equal(t, second.RunID, snap.RunID)

	// Persisted cells hold only the latest run.
	_, hasOld := runs.cells[first.RunID]
	assert.False(t, hasOld)
	assert.Len(t, runs.cells[second.RunID], 4)
}

func TestTimetableServiceGenerateInfeasibleInput(t *testing.T) {
	entities := feasibleEntities()
	entities.teachers = nil
	runs := newStubRunStore()
	svc := newServiceFixture(entities, runs)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInfeasibleInput.Code, appErr.Code)
	assert.Len(t, runs.failed, 1)
	assert.Empty(t, runs.completed)

	_, ok := svc.Latest()
	assert.False(t, ok)
}

func TestTimetableServiceGenerateRejectsBadMode(t *testing.T) {
	svc := newServiceFixture(feasibleEntities(), newStubRunStore())

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Mode: "CHAOS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServicePersistsSpecialPeriodOverrides(t *testing.T) {
	entities := feasibleEntities()
	runs := newStubRunStore()
	settings := newStubSettings()
	svc := NewTimetableService(
		stubTeachers{entities}, stubClasses{entities}, stubSubjects{entities}, stubStudents{entities},
		runs, stubProgress{}, settings, nil, nil,
		generatorConfig(),
		config.ActivityConfig{Strategy: "balanced"},
		nil,
	)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{
		SpecialPeriods: []models.SpecialPeriod{
			{Day: "Monday", StartTime: "10:00", EndTime: "11:00", Type: "Assembly"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, settings.values, SettingSpecialPeriods)

	snap, ok := svc.Latest()
	require.True(t, ok)
	cell := snap.Result.Cell("c1", "Monday_10:00")
	require.NotNil(t, cell)
	assert.True(t, cell.IsSpecialPeriod)
	assert.Equal(t, "Assembly", cell.SpecialType)
}

func TestTimetableServiceLatestRunBeforeGeneration(t *testing.T) {
	svc := newServiceFixture(feasibleEntities(), newStubRunStore())

	_, err := svc.LatestRun(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoTimetable.Code, appErrors.FromError(err).Code)
}
