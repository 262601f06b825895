package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campusgrid/timetable-api/internal/dto"
	"github.com/campusgrid/timetable-api/internal/engine"
	"github.com/campusgrid/timetable-api/internal/models"
	"github.com/campusgrid/timetable-api/pkg/config"
	appErrors "github.com/campusgrid/timetable-api/pkg/errors"
)

type teacherLister interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

type classLister interface {
	ListAll(ctx context.Context) ([]models.ClassGroup, error)
}

type subjectLister interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type studentLister interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type runStore interface {
	CreateRun(ctx context.Context, mode string) (*models.GenerationRun, error)
	CompleteRun(ctx context.Context, runID string, assigned, activity, free int, meta types.JSONText) error
	FailRun(ctx context.Context, runID string, meta types.JSONText) error
	LatestCompletedRun(ctx context.Context) (*models.GenerationRun, error)
	ReplaceCells(ctx context.Context, runID string, cells []models.TimetableCellRow) error
}

type progressLister interface {
	ListAll(ctx context.Context) ([]models.StudentProgressRow, error)
}

type settingsStore interface {
	Get(ctx context.Context, key string) (types.JSONText, error)
	Set(ctx context.Context, key string, value types.JSONText) error
}

type generationObserver interface {
	RecordGeneration(status string, duration time.Duration, assigned, activity, free int)
}

type viewCachePurger interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SettingSpecialPeriods is the settings key holding the persisted special
// period overrides.
const SettingSpecialPeriods = "timetable.special_periods"

// Snapshot is the in-memory product of the latest completed generation cycle.
// View projections read from it; it is replaced wholesale on regeneration.
type Snapshot struct {
	RunID       string
	Result      *engine.Result
	Plans       map[string]models.StudentActivityPlan
	GeneratedAt time.Time
}

// TimetableService orchestrates generation cycles: it loads the entity
// snapshot, runs the engine, backfills activities, plans student activities,
// persists the outcome, and publishes the in-memory snapshot for views.
type TimetableService struct {
	teachers  teacherLister
	classes   classLister
	subjects  subjectLister
	students  studentLister
	runs      runStore
	progress  progressLister
	settings  settingsStore
	metrics   generationObserver
	viewCache viewCachePurger
	generator config.GeneratorConfig
	activity  config.ActivityConfig
	oracle    engine.SuggestionOracle
	validate  *validator.Validate
	logger    *zap.Logger

	// runMu admits one generation cycle at a time. The background queue
	// runs a single worker, so contention only arises when a synchronous
	// request races a queued job; the loser gets GENERATION_IN_PROGRESS.
	runMu sync.Mutex

	snapMu   sync.RWMutex
	snapshot *Snapshot
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(
	teachers teacherLister,
	classes classLister,
	subjects subjectLister,
	students studentLister,
	runs runStore,
	progress progressLister,
	settings settingsStore,
	metrics generationObserver,
	viewCache viewCachePurger,
	generator config.GeneratorConfig,
	activity config.ActivityConfig,
	logger *zap.Logger,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	// The oracle is selected once at startup; with no endpoint configured
	// the planner runs on its local heuristic alone.
	var oracle engine.SuggestionOracle = engine.NullOracle{}
	if activity.OracleURL != "" {
		oracle = engine.NewHTTPOracle(activity.OracleURL, activity.OracleTimeout)
	}
	return &TimetableService{
		teachers:  teachers,
		classes:   classes,
		subjects:  subjects,
		students:  students,
		runs:      runs,
		progress:  progress,
		settings:  settings,
		metrics:   metrics,
		viewCache: viewCache,
		generator: generator,
		activity:  activity,
		oracle:    oracle,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Latest returns the in-memory snapshot of the newest completed cycle.
func (s *TimetableService) Latest() (*Snapshot, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snapshot == nil {
		return nil, false
	}
	return s.snapshot, true
}

// LatestRun reports the most recent completed run from persistence.
func (s *TimetableService) LatestRun(ctx context.Context) (*dto.GenerationRunResponse, error) {
	run, err := s.runs.LatestCompletedRun(ctx)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNoTimetable, "")
	}
	resp := runResponse(run)
	if snap, ok := s.Latest(); ok && snap.RunID == run.ID {
		resp.Feasibility = &dto.FeasibilityResponse{
			SubjectsWithoutTeachers: snap.Result.Feasibility.SubjectsWithoutTeachers,
			FreeCellsByClass:        snap.Result.Feasibility.FreeCellsByClass,
		}
	}
	return resp, nil
}

// Generate runs one full generation cycle and returns the completed run.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationRunResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}

	if !s.runMu.TryLock() {
		return nil, appErrors.Clone(appErrors.ErrGenerationRunning, "")
	}
	defer s.runMu.Unlock()

	engineCfg, seed, err := s.buildEngineConfig(ctx, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	run, err := s.runs.CreateRun(ctx, engineCfg.Mode.String())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not open generation run")
	}

	snapshot, result, err := s.runCycle(ctx, run.ID, engineCfg, seed)
	if err != nil {
		meta, _ := json.Marshal(map[string]string{"error": err.Error()})
		if failErr := s.runs.FailRun(ctx, run.ID, meta); failErr != nil {
			s.logger.Error("could not mark run failed", zap.String("run_id", run.ID), zap.Error(failErr))
		}
		s.observe("failed", started, 0, 0, 0)
		return nil, err
	}

	meta, _ := json.Marshal(result.Feasibility)
	if err := s.runs.CompleteRun(ctx, run.ID, result.AssignedCells, result.ActivityCells, result.FreeCells, meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not close generation run")
	}

	s.snapMu.Lock()
	s.snapshot = snapshot
	s.snapMu.Unlock()
	s.observe("completed", started, result.AssignedCells, result.ActivityCells, result.FreeCells)

	// View cache keys embed the run ID, so entries from earlier runs can never
	// be served again. The purge just reclaims them before their TTL expires.
	if s.viewCache != nil {
		if err := s.viewCache.DeleteByPattern(ctx, "views:*"); err != nil {
			s.logger.Warn("could not purge stale view cache", zap.Error(err))
		}
	}

	now := time.Now().UTC()
	return &dto.GenerationRunResponse{
		RunID:         run.ID,
		Status:        string(models.GenerationRunStatusCompleted),
		Mode:          engineCfg.Mode.String(),
		AssignedCells: result.AssignedCells,
		ActivityCells: result.ActivityCells,
		FreeCells:     result.FreeCells,
		StartedAt:     run.StartedAt,
		CompletedAt:   &now,
		Feasibility: &dto.FeasibilityResponse{
			SubjectsWithoutTeachers: result.Feasibility.SubjectsWithoutTeachers,
			FreeCellsByClass:        result.Feasibility.FreeCellsByClass,
		},
	}, nil
}

func (s *TimetableService) runCycle(ctx context.Context, runID string, engineCfg engine.Config, seed int64) (*Snapshot, *engine.Result, error) {
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load teachers")
	}
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load classes")
	}
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load subjects")
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load students")
	}

	eng := engine.New(engineCfg, teachers, classes, subjects, s.logger)
	result, err := eng.Generate()
	if err != nil {
		var vErr *engine.ValidationError
		if errors.As(err, &vErr) {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInfeasibleInput.Code, appErrors.ErrInfeasibleInput.Status, vErr.Error())
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	histories, err := s.loadHistories(ctx)
	if err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	planner := engine.NewActivityPlanner(engineCfg, s.oracle, rng, s.logger)
	planner.Backfill(result)
	plans := planner.PlanStudents(students, result, histories)

	if err := s.runs.ReplaceCells(ctx, runID, flattenCells(runID, result)); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not persist timetable")
	}

	return &Snapshot{
		RunID:       runID,
		Result:      result,
		Plans:       plans,
		GeneratedAt: time.Now().UTC(),
	}, result, nil
}

// buildEngineConfig merges configured defaults, stored special periods, and
// per-request overrides into the engine configuration.
func (s *TimetableService) buildEngineConfig(ctx context.Context, req dto.GenerateTimetableRequest) (engine.Config, int64, error) {
	cfg := engine.Config{
		Days:             s.generator.Days,
		StartTime:        s.generator.StartTime,
		EndTime:          s.generator.EndTime,
		PeriodDuration:   s.generator.PeriodDuration,
		BranchingLimit:   s.generator.BranchingLimit,
		PerDaySubjectCap: s.generator.PerDaySubjectCap,

		Activities:             s.activity.Catalog,
		ActivityStrategy:       s.activity.Strategy,
		ActivityDailyNoRepeat:  s.activity.DailyNoRepeat,
		ActivityWeeklyNoRepeat: s.activity.WeeklyNoRepeat,
		ActivityWeeklyVariety:  s.activity.WeeklyVariety,
	}
	cfg.Mode = parseMode(s.generator.Mode)

	if stored, err := s.settings.Get(ctx, SettingSpecialPeriods); err == nil && len(stored) > 0 {
		var periods []models.SpecialPeriod
		if err := json.Unmarshal(stored, &periods); err != nil {
			s.logger.Warn("ignoring malformed stored special periods", zap.Error(err))
		} else {
			cfg.SpecialPeriods = periods
		}
	}

	if len(req.Days) > 0 {
		cfg.Days = req.Days
	}
	if req.StartTime != "" {
		cfg.StartTime = req.StartTime
	}
	if req.EndTime != "" {
		cfg.EndTime = req.EndTime
	}
	if req.PeriodDuration > 0 {
		cfg.PeriodDuration = req.PeriodDuration
	}
	if req.Mode != "" {
		cfg.Mode = parseMode(req.Mode)
	}
	if req.BranchingLimit > 0 {
		cfg.BranchingLimit = req.BranchingLimit
	}
	if req.PerDaySubjectCap > 0 {
		cfg.PerDaySubjectCap = req.PerDaySubjectCap
	}
	if len(req.SpecialPeriods) > 0 {
		cfg.SpecialPeriods = req.SpecialPeriods
		if raw, err := json.Marshal(req.SpecialPeriods); err == nil {
			if err := s.settings.Set(ctx, SettingSpecialPeriods, raw); err != nil {
				s.logger.Warn("could not persist special periods", zap.Error(err))
			}
		}
	}

	seed := s.generator.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return cfg, seed, nil
}

func (s *TimetableService) loadHistories(ctx context.Context) (map[string]map[string]models.ProgressRecord, error) {
	rows, err := s.progress.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load progress history")
	}
	histories := make(map[string]map[string]models.ProgressRecord)
	for _, row := range rows {
		if histories[row.StudentID] == nil {
			histories[row.StudentID] = make(map[string]models.ProgressRecord)
		}
		histories[row.StudentID][row.ActivityKey] = models.ProgressRecord{
			Status:      row.Status,
			Notes:       row.Notes,
			LastUpdated: row.LastUpdated,
		}
	}
	return histories, nil
}

func (s *TimetableService) observe(status string, started time.Time, assigned, activity, free int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordGeneration(status, time.Since(started), assigned, activity, free)
}

// flattenCells projects the engine result into persisted rows.
func flattenCells(runID string, result *engine.Result) []models.TimetableCellRow {
	cells := make([]models.TimetableCellRow, 0, len(result.Classes)*len(result.Slots))
	for _, class := range result.Classes {
		tt := result.Timetables[class.ID]
		for _, slot := range result.Slots {
			cell := tt.Schedule[slot.Key()]
			row := models.TimetableCellRow{
				RunID:     runID,
				ClassID:   class.ID,
				SlotKey:   slot.Key(),
				Day:       slot.Day,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Room:      tt.Room,
				IsSpecial: cell.IsSpecialPeriod,
			}
			if cell.SpecialType != "" {
				row.SpecialType = strPtr(cell.SpecialType)
			}
			if cell.Subject != nil {
				row.SubjectID = strPtr(cell.Subject.ID)
				row.SubjectName = strPtr(cell.Subject.Name)
			}
			if cell.Teacher != nil {
				row.TeacherID = strPtr(cell.Teacher.ID)
				row.TeacherName = strPtr(cell.Teacher.Name)
			}
			cells = append(cells, row)
		}
	}
	return cells
}

func runResponse(run *models.GenerationRun) *dto.GenerationRunResponse {
	return &dto.GenerationRunResponse{
		RunID:         run.ID,
		Status:        string(run.Status),
		Mode:          run.Mode,
		AssignedCells: run.AssignedCells,
		ActivityCells: run.ActivityCells,
		FreeCells:     run.FreeCells,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
	}
}

func parseMode(raw string) engine.Mode {
	if raw == engine.ModeFillAllPeriods.String() {
		return engine.ModeFillAllPeriods
	}
	return engine.ModeStrictWeeklyCaps
}

func strPtr(v string) *string { return &v }
