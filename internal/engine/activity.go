package engine

import (
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/campusgrid/timetable-api/internal/models"
)

// Activity selection strategies. Interest and remedial are soft preferences:
// they move matching activities to the front of the candidate list but never
// shrink it, so the diversity filters always have the full catalog to work
// with.
const (
	StrategyBalanced = "balanced"
	StrategyInterest = "interest"
	StrategyRemedial = "remedial"
)

// remedialActivities is the subset preferred for students whose skill level
// indicates they need foundational support.
var remedialActivities = []string{"Mentorship", "Reading"}

const remedialSkillThreshold = 2

// ActivityPlanner backfills free class periods with enrichment activities and
// produces per-student activity plans. The rand source is injected so plans
// are reproducible under a fixed seed.
type ActivityPlanner struct {
	cfg    Config
	oracle SuggestionOracle
	rng    *rand.Rand
	logger *zap.Logger
}

func NewActivityPlanner(cfg Config, oracle SuggestionOracle, rng *rand.Rand, logger *zap.Logger) *ActivityPlanner {
	if oracle == nil {
		oracle = NullOracle{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityPlanner{cfg: cfg.normalized(), oracle: oracle, rng: rng, logger: logger}
}

// Backfill converts every free non-special cell into an activity period,
// cycling through the catalog so consecutive free periods vary. Activity
// cells carry the shared activity supervisor rather than a subject teacher.
func (p *ActivityPlanner) Backfill(result *Result) {
	catalog := p.cfg.Activities
	if len(catalog) == 0 {
		return
	}
	next := 0
	filled := 0
	for _, class := range result.Classes {
		tt := result.Timetables[class.ID]
		for _, slot := range result.Slots {
			cell := tt.Schedule[slot.Key()]
			if cell == nil || !cell.IsFree() {
				continue
			}
			name := catalog[next%len(catalog)]
			next++
			cell.Subject = &models.SubjectRef{
				ID:   models.ActivitySubjectPrefix + name,
				Name: name,
			}
			cell.Teacher = &models.TeacherRef{ID: models.ActivityTeacherID, Name: "Activity Supervisor"}
			filled++
		}
	}
	if filled > 0 {
		result.ActivityCells += filled
		result.FreeCells -= filled
		p.logger.Debug("backfilled free periods with activities", zap.Int("cells", filled))
	}
}

// PlanStudents builds one activity plan per student: for every activity
// period in the student's class timetable, one concrete activity is chosen
// from the catalog. Each student's own history steers selection toward their
// least-attempted activities.
func (p *ActivityPlanner) PlanStudents(students []models.Student, result *Result, histories map[string]map[string]models.ProgressRecord) map[string]models.StudentActivityPlan {
	plans := make(map[string]models.StudentActivityPlan, len(students))
	for _, student := range students {
		plans[student.ID] = p.planStudent(student, result, histories[student.ID])
	}
	return plans
}

func (p *ActivityPlanner) planStudent(student models.Student, result *Result, history map[string]models.ProgressRecord) models.StudentActivityPlan {
	plan := make(models.StudentActivityPlan)
	tt, ok := result.Timetables[student.ClassID]
	if !ok {
		return plan
	}

	catalog := p.cfg.Activities
	if len(catalog) == 0 {
		return plan
	}
	preferred := p.preferred(student)
	base := moveToFront(catalog, preferred)

	usedThisWeek := make(map[string]bool)
	usedByDay := make(map[string]map[string]bool)

	for _, slot := range result.Slots {
		key := slot.Key()
		cell := tt.Schedule[key]
		if cell == nil || !cell.IsActivityPeriod() {
			continue
		}

		pool := append([]string(nil), base...)
		if p.cfg.ActivityDailyNoRepeat {
			filtered := excludeUsed(pool, usedByDay[slot.Day])
			// A day with more activity periods than catalog entries
			// resets to the full catalog rather than leaving gaps.
			if len(filtered) == 0 {
				filtered = append([]string(nil), catalog...)
			}
			pool = filtered
		}
		if p.cfg.ActivityWeeklyNoRepeat {
			if filtered := excludeUsed(pool, usedThisWeek); len(filtered) > 0 {
				pool = filtered
			}
		}

		choice := p.pick(student, pool, preferred, exclusionList(usedByDay[slot.Day], usedThisWeek), history)
		plan[key] = choice

		usedThisWeek[choice] = true
		if usedByDay[slot.Day] == nil {
			usedByDay[slot.Day] = make(map[string]bool)
		}
		usedByDay[slot.Day][choice] = true
	}
	return plan
}

// preferred resolves the configured strategy into the set of activities to
// favour for this student. Balanced favours nothing.
func (p *ActivityPlanner) preferred(student models.Student) map[string]bool {
	var names []string
	switch p.cfg.ActivityStrategy {
	case StrategyInterest:
		names = intersect(student.Interests, p.cfg.Activities)
	case StrategyRemedial:
		if student.SkillLevel <= remedialSkillThreshold {
			names = intersect(remedialActivities, p.cfg.Activities)
		}
	}
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// pick asks the oracle first; a valid answer naming an activity from the pool
// is used directly. Otherwise the local heuristic applies: shuffle for
// tie-break variety, then a stable sort by ascending historical usage with
// strategy preference deciding among equally-used candidates.
func (p *ActivityPlanner) pick(student models.Student, pool []string, preferred map[string]bool, exclusions []string, history map[string]models.ProgressRecord) string {
	if len(pool) == 1 {
		return pool[0]
	}

	if name, err := p.oracle.Suggest(student, pool, exclusions, p.cfg.ActivityStrategy); err != nil {
		p.logger.Warn("activity oracle unavailable, using local heuristic",
			zap.String("student_id", student.ID), zap.Error(err))
	} else if match := findInPool(pool, name); match != "" {
		return match
	}

	ordered := append([]string(nil), pool...)
	if p.rng != nil {
		shuffle(ordered, p.rng)
	}
	usage := usageCounts(history)
	sort.SliceStable(ordered, func(i, j int) bool {
		if usage[ordered[i]] != usage[ordered[j]] {
			return usage[ordered[i]] < usage[ordered[j]]
		}
		return preferred[ordered[i]] && !preferred[ordered[j]]
	})
	return ordered[0]
}

// usageCounts tallies how many progress entries exist per activity.
func usageCounts(history map[string]models.ProgressRecord) map[string]int {
	counts := make(map[string]int)
	for key := range history {
		counts[models.ActivityFromOccurrenceKey(key)]++
	}
	return counts
}

func shuffle(items []string, rng *rand.Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// moveToFront keeps catalog order within each half: preferred entries first,
// everything else after.
func moveToFront(catalog []string, preferred map[string]bool) []string {
	if len(preferred) == 0 {
		return append([]string(nil), catalog...)
	}
	out := make([]string, 0, len(catalog))
	for _, name := range catalog {
		if preferred[name] {
			out = append(out, name)
		}
	}
	for _, name := range catalog {
		if !preferred[name] {
			out = append(out, name)
		}
	}
	return out
}

func excludeUsed(pool []string, used map[string]bool) []string {
	if len(used) == 0 {
		return pool
	}
	out := make([]string, 0, len(pool))
	for _, name := range pool {
		if !used[name] {
			out = append(out, name)
		}
	}
	return out
}

func exclusionList(daily, weekly map[string]bool) []string {
	out := make([]string, 0, len(daily)+len(weekly))
	seen := make(map[string]bool, len(daily)+len(weekly))
	for name := range daily {
		if !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	for name := range weekly {
		if !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	sort.Strings(out)
	return out
}

func intersect(wanted, catalog []string) []string {
	allowed := make(map[string]string, len(catalog))
	for _, name := range catalog {
		allowed[strings.ToLower(name)] = name
	}
	out := make([]string, 0, len(wanted))
	seen := make(map[string]bool)
	for _, w := range wanted {
		if name, ok := allowed[strings.ToLower(strings.TrimSpace(w))]; ok && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	return out
}

// findInPool resolves a suggested name against the pool case-insensitively,
// returning the canonical pool entry or "".
func findInPool(pool []string, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, entry := range pool {
		if strings.EqualFold(entry, name) {
			return entry
		}
	}
	return ""
}
