package engine

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/campusgrid/timetable-api/internal/models"
)

// Mode selects the scheduling policy for weekly subject caps.
type Mode int

const (
	// ModeStrictWeeklyCaps stops scheduling a subject once its weekly
	// session target is met, leaving surplus periods free.
	ModeStrictWeeklyCaps Mode = iota
	// ModeFillAllPeriods ignores weekly caps so every non-special slot
	// receives an assignment, repeating subjects if necessary.
	ModeFillAllPeriods
)

func (m Mode) String() string {
	if m == ModeFillAllPeriods {
		return "FILL_ALL_PERIODS"
	}
	return "STRICT_WEEKLY_CAPS"
}

const (
	defaultSlotsPerDay      = 7
	defaultBranchingLimit   = 5
	defaultPerDaySubjectCap = 1
	mrvCountCap             = 4
)

// DefaultActivities is the fallback catalog when none is configured.
var DefaultActivities = []string{"Reading", "Clubs", "Sports", "Library", "Mentorship"}

// Config is the engine's full generation configuration.
type Config struct {
	Days             []string
	StartTime        string
	EndTime          string
	PeriodDuration   int
	SpecialPeriods   []models.SpecialPeriod
	Mode             Mode
	BranchingLimit   int
	PerDaySubjectCap int

	Activities             []string
	ActivityStrategy       string
	ActivityDailyNoRepeat  bool
	ActivityWeeklyNoRepeat bool
	ActivityWeeklyVariety  bool
}

// normalized returns a copy with defaults applied.
func (c Config) normalized() Config {
	out := c
	if out.BranchingLimit <= 0 {
		out.BranchingLimit = defaultBranchingLimit
	}
	if out.PerDaySubjectCap <= 0 {
		out.PerDaySubjectCap = defaultPerDaySubjectCap
	}
	if len(out.Activities) == 0 {
		out.Activities = append([]string(nil), DefaultActivities...)
	}
	if out.ActivityStrategy == "" {
		out.ActivityStrategy = StrategyBalanced
	}
	days := make([]string, 0, len(out.Days))
	for _, d := range out.Days {
		if trimmed := strings.TrimSpace(d); trimmed != "" {
			days = append(days, trimmed)
		}
	}
	out.Days = days
	return out
}

// Result is the complete product of one generation cycle. It carries all
// schedule state; the engine itself holds none between runs.
type Result struct {
	Slots      []models.TimeSlot
	Timetables map[string]*models.ClassTimetable
	Classes    []models.ClassGroup
	Teachers   []models.Teacher
	Subjects   []models.Subject

	AssignedCells int
	FreeCells     int
	ActivityCells int

	Feasibility FeasibilityReport
}

// SlotKeysInOrder returns slot keys in grid order, the stable walk order used
// by planners and views.
func (r *Result) SlotKeysInOrder() []string {
	keys := make([]string, 0, len(r.Slots))
	for _, slot := range r.Slots {
		keys = append(keys, slot.Key())
	}
	return keys
}

// Cell returns the schedule cell for a class and slot key, or nil.
func (r *Result) Cell(classID, slotKey string) *models.ScheduleCell {
	tt, ok := r.Timetables[classID]
	if !ok {
		return nil
	}
	return tt.Schedule[slotKey]
}

// Days lists the distinct days of the grid in order.
func (r *Result) Days() []string {
	var days []string
	seen := make(map[string]bool)
	for _, slot := range r.Slots {
		if !seen[slot.Day] {
			seen[slot.Day] = true
			days = append(days, slot.Day)
		}
	}
	return days
}

// FeasibilityReport surfaces structural problems without changing search
// semantics: the search itself degrades to free slots instead of failing.
type FeasibilityReport struct {
	SubjectsWithoutTeachers []string `json:"subjects_without_teachers"`
	FreeCellsByClass        map[string]int `json:"free_cells_by_class"`
}

// Engine builds class timetables from a fixed snapshot of entities. A fresh
// Engine is constructed per generation cycle; Generate never mutates the
// snapshot it was given.
type Engine struct {
	cfg      Config
	teachers []models.Teacher
	classes  []models.ClassGroup
	subjects []models.Subject
	logger   *zap.Logger
}

// New normalizes the inputs and returns a generator for one cycle.
func New(cfg Config, teachers []models.Teacher, classes []models.ClassGroup, subjects []models.Subject, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalized()
	teachers, classes, subjects = normalizeEntities(cfg, teachers, classes, subjects)
	return &Engine{
		cfg:      cfg,
		teachers: teachers,
		classes:  classes,
		subjects: subjects,
		logger:   logger,
	}
}

// Generate runs validation, the greedy prefill, and the backtracking search,
// returning the populated timetables. Unsatisfiable slots are left free.
func (e *Engine) Generate() (*Result, error) {
	if issues := Validate(e.teachers, e.classes, e.subjects); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	slots, err := BuildTimeSlots(e.cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Slots:      slots,
		Timetables: make(map[string]*models.ClassTimetable, len(e.classes)),
		Classes:    e.classes,
		Teachers:   e.teachers,
		Subjects:   e.subjects,
	}
	for _, class := range e.classes {
		result.Timetables[class.ID] = emptyTimetable(class, slots)
	}
	if len(slots) == 0 {
		e.logger.Info("empty time grid, nothing to schedule")
		return result, nil
	}

	state := newSearchState(e.cfg, e.teachers, e.classes, e.subjects, result)
	state.greedyPrefill()
	pending := state.collectUnassigned()
	state.backtrack(pending)

	e.tally(result)
	result.Feasibility = e.audit(result)
	e.logger.Info("timetable generated",
		zap.Int("classes", len(e.classes)),
		zap.Int("slots", len(slots)),
		zap.Int("assigned_cells", result.AssignedCells),
		zap.Int("free_cells", result.FreeCells),
		zap.String("mode", e.cfg.Mode.String()),
	)
	return result, nil
}

func emptyTimetable(class models.ClassGroup, slots []models.TimeSlot) *models.ClassTimetable {
	tt := &models.ClassTimetable{
		ClassID:   class.ID,
		ClassName: class.Name,
		Room:      class.Room,
		Schedule:  make(map[string]*models.ScheduleCell, len(slots)),
	}
	for _, slot := range slots {
		cell := &models.ScheduleCell{
			Room:            class.Room,
			IsSpecialPeriod: slot.IsSpecialPeriod,
			SpecialType:     slot.SpecialType,
		}
		if slot.IsSpecialPeriod {
			cell.Subject = &models.SubjectRef{
				ID:   models.SpecialSubjectPrefix + slot.SpecialType,
				Name: slot.SpecialType,
			}
		}
		tt.Schedule[slot.Key()] = cell
	}
	return tt
}

func (e *Engine) tally(result *Result) {
	for _, tt := range result.Timetables {
		for _, cell := range tt.Schedule {
			switch {
			case cell.IsSpecialPeriod:
			case cell.IsActivityPeriod():
				result.ActivityCells++
			case cell.Subject != nil:
				result.AssignedCells++
			default:
				result.FreeCells++
			}
		}
	}
}

// audit reports structural infeasibility that the search silently absorbed.
func (e *Engine) audit(result *Result) FeasibilityReport {
	report := FeasibilityReport{FreeCellsByClass: make(map[string]int)}
	for _, subject := range e.subjects {
		qualified := false
		for _, teacher := range e.teachers {
			if teacher.QualifiedFor(subject.ID) {
				qualified = true
				break
			}
		}
		if !qualified {
			report.SubjectsWithoutTeachers = append(report.SubjectsWithoutTeachers, subject.ID)
		}
	}
	sort.Strings(report.SubjectsWithoutTeachers)
	for classID, tt := range result.Timetables {
		free := 0
		for _, cell := range tt.Schedule {
			if cell.IsFree() {
				free++
			}
		}
		if free > 0 {
			report.FreeCellsByClass[classID] = free
		}
	}
	return report
}
