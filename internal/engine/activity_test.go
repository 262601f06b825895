package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgrid/timetable-api/internal/models"
)

func generatedResult(t *testing.T, cfg Config, teachers []models.Teacher, classes []models.ClassGroup, subjects []models.Subject) *Result {
	t.Helper()
	result, err := New(cfg, teachers, classes, subjects, nil).Generate()
	require.NoError(t, err)
	return result
}

func activityFixtureResult(t *testing.T) (*Result, Config) {
	t.Helper()
	cfg := twoDayConfig()
	cfg.Mode = ModeStrictWeeklyCaps
	cfg.PerDaySubjectCap = 4
	subjects := []models.Subject{{ID: "math", Name: "Mathematics", Credits: 3, WeeklySessions: 1}}
	teachers := []models.Teacher{{ID: "t1", Name: "Solo", Subjects: []string{"math"}, Rating: 4, MaxDailyHours: 4}}
	classes := []models.ClassGroup{{ID: "c1", Name: "Grade 10A", Room: "R101", Subjects: []string{"math"}}}
	return generatedResult(t, cfg, teachers, classes, subjects), cfg
}

// singleDayFixtureResult yields one class with a single math lesson; every
// remaining slot in the configured window becomes an activity period.
func singleDayFixtureResult(t *testing.T, cfg Config) *Result {
	t.Helper()
	subjects := []models.Subject{{ID: "math", Name: "Mathematics", Credits: 3, WeeklySessions: 1}}
	teachers := []models.Teacher{{ID: "t1", Name: "Solo", Subjects: []string{"math"}, Rating: 4, MaxDailyHours: 4}}
	classes := []models.ClassGroup{{ID: "c1", Name: "Grade 10A", Subjects: []string{"math"}}}
	return generatedResult(t, cfg, teachers, classes, subjects)
}

// activitiesInSlotOrder walks the grid in order and collects the plan's
// activity picks.
func activitiesInSlotOrder(result *Result, plan models.StudentActivityPlan) []string {
	var out []string
	for _, key := range result.SlotKeysInOrder() {
		if activity, ok := plan[key]; ok {
			out = append(out, activity)
		}
	}
	return out
}

func TestBackfillConvertsFreePeriodsToActivities(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	require.Equal(t, 3, result.FreeCells)

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(1)), nil)
	planner.Backfill(result)

	assert.Equal(t, 0, result.FreeCells)
	assert.Equal(t, 3, result.ActivityCells)

	for _, key := range result.SlotKeysInOrder() {
		cell := result.Cell("c1", key)
		if cell.Subject.ID == "math" {
			continue
		}
		assert.True(t, cell.IsActivityPeriod(), "cell %s should be an activity period", key)
		require.NotNil(t, cell.Teacher)
		assert.Equal(t, models.ActivityTeacherID, cell.Teacher.ID)
	}
}

func TestBackfillCyclesCatalog(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	cfg.Activities = []string{"Reading", "Sports"}

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(1)), nil)
	planner.Backfill(result)

	var names []string
	for _, key := range result.SlotKeysInOrder() {
		cell := result.Cell("c1", key)
		if cell.IsActivityPeriod() {
			names = append(names, cell.Subject.Name)
		}
	}
	assert.Equal(t, []string{"Reading", "Sports", "Reading"}, names)
}

func TestPlanStudentsInterestStrategyWithDailyNoRepeat(t *testing.T) {
	cfg := Config{
		Days:                  []string{"Monday"},
		StartTime:             "09:00",
		EndTime:               "12:00",
		PeriodDuration:        60,
		PerDaySubjectCap:      4,
		Activities:            []string{"Reading", "Sports"},
		ActivityStrategy:      StrategyInterest,
		ActivityDailyNoRepeat: true,
	}
	result := singleDayFixtureResult(t, cfg)

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(9)), nil)
	planner.Backfill(result)

	students := []models.Student{
		{ID: "s1", Name: "Nia", ClassID: "c1", Interests: []string{"Sports"}, SkillLevel: 4},
	}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.Len(t, plan, 2)

	// The interest match wins the first slot; daily no-repeat then forces
	// the rest of the catalog into the second, whatever the seed.
	assert.Equal(t, []string{"Sports", "Reading"}, activitiesInSlotOrder(result, plan))
}

func TestPlanStudentsInterestStrategyIsSoft(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	cfg.Activities = []string{"Reading", "Sports"}
	cfg.ActivityStrategy = StrategyInterest
	cfg.ActivityDailyNoRepeat = true
	cfg.ActivityWeeklyNoRepeat = true

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(7)), nil)
	planner.Backfill(result)

	students := []models.Student{
		{ID: "s1", Name: "Nia", ClassID: "c1", Interests: []string{"sports"}, SkillLevel: 4},
	}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.Len(t, plan, 3)

	// Interests reorder the catalog, they never shrink it: with three
	// activity periods and two catalog entries, Reading must appear.
	picks := activitiesInSlotOrder(result, plan)
	assert.Contains(t, picks, "Reading")
	assert.Contains(t, picks, "Sports")
}

func TestPlanStudentsRemedialStrategyPrefersRemedialSubset(t *testing.T) {
	cfg := Config{
		Days:                  []string{"Monday"},
		StartTime:             "09:00",
		EndTime:               "12:00",
		PeriodDuration:        60,
		PerDaySubjectCap:      4,
		Activities:            []string{"Clubs", "Mentorship"},
		ActivityStrategy:      StrategyRemedial,
		ActivityDailyNoRepeat: true,
	}
	result := singleDayFixtureResult(t, cfg)

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(4)), nil)
	planner.Backfill(result)

	students := []models.Student{
		{ID: "s1", Name: "Kofi", ClassID: "c1", SkillLevel: 2},
	}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.Len(t, plan, 2)

	assert.Equal(t, []string{"Mentorship", "Clubs"}, activitiesInSlotOrder(result, plan))
}

func TestPlanStudentsRemedialStrategySkippedForHighSkill(t *testing.T) {
	cfg := Config{
		Days:             []string{"Monday"},
		StartTime:        "09:00",
		EndTime:          "11:00",
		PeriodDuration:   60,
		PerDaySubjectCap: 4,
		Activities:       []string{"Clubs", "Mentorship"},
		ActivityStrategy: StrategyRemedial,
	}
	result := singleDayFixtureResult(t, cfg)

	planner := NewActivityPlanner(cfg, nil, nil, nil)
	planner.Backfill(result)

	// No shuffle source and no preference: the pool keeps catalog order,
	// so a skill-5 student gets Clubs, not the remedial head start.
	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.Len(t, plan, 1)
	assert.Equal(t, []string{"Clubs"}, activitiesInSlotOrder(result, plan))
}

func TestPlanStudentsDailyNoRepeat(t *testing.T) {
	cfg := Config{
		Days:                  []string{"Monday"},
		StartTime:             "09:00",
		EndTime:               "12:00",
		PeriodDuration:        60,
		PerDaySubjectCap:      4,
		ActivityDailyNoRepeat: true,
	}
	result := singleDayFixtureResult(t, cfg)

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(3)), nil)
	planner.Backfill(result)

	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.Len(t, plan, 2)

	seen := make(map[string]bool)
	for _, activity := range plan {
		assert.False(t, seen[activity], "activity %s repeated within the day", activity)
		seen[activity] = true
	}
}

func TestPlanStudentsWeeklyNoRepeat(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	cfg.Activities = []string{"Reading", "Sports", "Clubs"}
	cfg.ActivityWeeklyNoRepeat = true

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(13)), nil)
	planner.Backfill(result)

	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.Len(t, plan, 3)

	// Catalog size covers the week's activity periods, so nothing repeats.
	seen := make(map[string]bool)
	for key, activity := range plan {
		assert.False(t, seen[activity], "activity %s repeated during the week (slot %s)", activity, key)
		seen[activity] = true
	}
}

func TestPlanStudentsDailyNoRepeatResetsWhenExhausted(t *testing.T) {
	cfg := Config{
		Days:                  []string{"Monday"},
		StartTime:             "08:00",
		EndTime:               "11:00",
		PeriodDuration:        60,
		PerDaySubjectCap:      4,
		Activities:            []string{"Reading"},
		ActivityDailyNoRepeat: true,
	}
	result := singleDayFixtureResult(t, cfg)

	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(3)), nil)
	planner.Backfill(result)

	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.Len(t, plan, 2)
	for _, activity := range plan {
		assert.Equal(t, "Reading", activity)
	}
}

func TestPlanStudentsPrefersLeastUsedFromHistory(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	cfg.Activities = []string{"Reading", "Sports"}
	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(11)), nil)
	planner.Backfill(result)

	histories := map[string]map[string]models.ProgressRecord{
		"s1": {
			models.ActivityOccurrenceKey("Reading", "Monday_09:00"):  {Status: "done"},
			models.ActivityOccurrenceKey("Reading", "Tuesday_09:00"): {Status: "done"},
			models.ActivityOccurrenceKey("Reading", "Tuesday_10:00"): {Status: "done"},
		},
	}
	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, histories)["s1"]
	require.NotEmpty(t, plan)

	// Sports has never been attempted, so it wins every pick.
	for key, activity := range plan {
		assert.Equal(t, "Sports", activity, "slot %s", key)
	}
}

func TestPlanStudentsDeterministicUnderFixedSeed(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	planner := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(42)), nil)
	planner.Backfill(result)
	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	first := planner.PlanStudents(students, result, nil)["s1"]

	replay := NewActivityPlanner(cfg, nil, rand.New(rand.NewSource(42)), nil)
	second := replay.PlanStudents(students, result, nil)["s1"]

	assert.Equal(t, first, second)
}

func TestPlanStudentsUsesOracleSuggestion(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	cfg.Activities = []string{"Reading", "Sports", "Clubs"}
	cfg.ActivityStrategy = StrategyInterest

	oracle := &stubOracle{activity: "Clubs"}
	planner := NewActivityPlanner(cfg, oracle, rand.New(rand.NewSource(5)), nil)
	planner.Backfill(result)

	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", Interests: []string{"Reading"}, SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.NotEmpty(t, plan)

	for key, activity := range plan {
		assert.Equal(t, "Clubs", activity, "slot %s", key)
	}
	require.NotEmpty(t, oracle.strategies)
	assert.Equal(t, StrategyInterest, oracle.strategies[0])
}

func TestPlanStudentsIgnoresOracleAnswerOutsidePool(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	cfg.Activities = []string{"Reading", "Sports"}

	oracle := &stubOracle{activity: "Chess"}
	planner := NewActivityPlanner(cfg, oracle, rand.New(rand.NewSource(5)), nil)
	planner.Backfill(result)

	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.NotEmpty(t, plan)
	for key, activity := range plan {
		assert.Contains(t, []string{"Reading", "Sports"}, activity, "slot %s", key)
	}
}

func TestPlanStudentsFallsBackWhenOracleFails(t *testing.T) {
	result, cfg := activityFixtureResult(t)
	cfg.Activities = []string{"Reading", "Sports"}

	oracle := &stubOracle{err: assert.AnError}
	planner := NewActivityPlanner(cfg, oracle, rand.New(rand.NewSource(5)), nil)
	planner.Backfill(result)

	students := []models.Student{{ID: "s1", Name: "Mira", ClassID: "c1", SkillLevel: 5}}
	plan := planner.PlanStudents(students, result, nil)["s1"]
	require.NotEmpty(t, plan)
	for key, activity := range plan {
		assert.Contains(t, []string{"Reading", "Sports"}, activity, "slot %s", key)
	}
}

type stubOracle struct {
	activity   string
	err        error
	strategies []string
}

func (s *stubOracle) Suggest(_ models.Student, _ []string, _ []string, strategy string) (string, error) {
	s.strategies = append(s.strategies, strategy)
	if s.err != nil {
		return "", s.err
	}
	return s.activity, nil
}
