package engine

import (
	"strings"

	"github.com/campusgrid/timetable-api/internal/models"
)

// searchState carries the mutable assignment state for one generation cycle.
// Admissibility checks are evaluated combinatorially during search, so every
// constraint lookup is backed by an O(1) cache: a slot-key teacher index for
// double-booking, per-teacher per-day counters for workload, per-class
// subject counters for distribution, and a memoized availability predicate.
type searchState struct {
	cfg      Config
	teachers []models.Teacher
	classes  []models.ClassGroup
	subjects map[string]models.Subject
	result   *Result

	slotTeachers  map[string]map[string]bool          // slotKey -> teacherID -> busy
	dailyHours    map[string]map[string]int           // teacherID -> day -> assigned count
	weeklyCount   map[string]map[string]int           // classID -> subjectID -> weekly count
	dailyCount    map[string]map[string]map[string]int // classID -> day -> subjectID -> count
	availability  map[string]bool                     // teacherID|day|start-end -> admissible
	teachersByID  map[string]models.Teacher
}

func newSearchState(cfg Config, teachers []models.Teacher, classes []models.ClassGroup, subjects []models.Subject, result *Result) *searchState {
	st := &searchState{
		cfg:          cfg,
		teachers:     teachers,
		classes:      classes,
		subjects:     make(map[string]models.Subject, len(subjects)),
		result:       result,
		slotTeachers: make(map[string]map[string]bool),
		dailyHours:   make(map[string]map[string]int),
		weeklyCount:  make(map[string]map[string]int),
		dailyCount:   make(map[string]map[string]map[string]int),
		availability: make(map[string]bool),
		teachersByID: make(map[string]models.Teacher, len(teachers)),
	}
	for _, s := range subjects {
		st.subjects[s.ID] = s
	}
	for _, t := range teachers {
		st.teachersByID[t.ID] = t
	}
	return st
}

// admissible is the full constraint predicate for a candidate assignment.
// It is read-only over search state.
func (st *searchState) admissible(teacher models.Teacher, subject models.Subject, classID string, slot models.TimeSlot) bool {
	if !teacher.QualifiedFor(subject.ID) {
		return false
	}
	if !st.teacherAvailableAt(teacher, slot) {
		return false
	}
	if st.teacherBusy(teacher.ID, slot.Key()) {
		return false
	}
	if !st.workloadOK(teacher, slot.Day) {
		return false
	}
	return st.distributionOK(classID, subject, slot.Day)
}

// teacherAvailableAt checks the teacher's availability windows, memoized per
// (teacher, day, start-end). Teachers without windows never reach this point:
// normalization gives them full-week availability.
func (st *searchState) teacherAvailableAt(teacher models.Teacher, slot models.TimeSlot) bool {
	if len(teacher.Availability) == 0 {
		return true
	}
	key := teacher.ID + "|" + slot.Day + "|" + slot.StartTime + "-" + slot.EndTime
	if ok, cached := st.availability[key]; cached {
		return ok
	}
	ok := false
	for _, window := range teacher.Availability {
		if !strings.EqualFold(window.Day, slot.Day) {
			continue
		}
		if withinWindow(slot.StartTime, slot.EndTime, window.StartTime, window.EndTime) {
			ok = true
		}
		break
	}
	st.availability[key] = ok
	return ok
}

func (st *searchState) teacherBusy(teacherID, slotKey string) bool {
	return st.slotTeachers[slotKey][teacherID]
}

func (st *searchState) workloadOK(teacher models.Teacher, day string) bool {
	if teacher.MaxDailyHours <= 0 {
		return true
	}
	return st.dailyHours[teacher.ID][day] < teacher.MaxDailyHours
}

// distributionOK enforces the per-day subject cap, and the weekly session cap
// unless the engine runs in fill-all-periods mode.
func (st *searchState) distributionOK(classID string, subject models.Subject, day string) bool {
	if st.dailyCount[classID][day][subject.ID] >= st.cfg.PerDaySubjectCap {
		return false
	}
	if st.cfg.Mode == ModeFillAllPeriods {
		return true
	}
	if subject.WeeklySessions > 0 && st.weeklyCount[classID][subject.ID] >= subject.WeeklySessions {
		return false
	}
	return true
}

func (st *searchState) remainingSessions(classID string, subject models.Subject) int {
	remaining := subject.WeeklySessions - st.weeklyCount[classID][subject.ID]
	if remaining < 0 {
		return 0
	}
	return remaining
}

// assign writes the cell and updates every cache.
func (st *searchState) assign(classID string, slot models.TimeSlot, teacher models.Teacher, subject models.Subject) {
	key := slot.Key()
	tt := st.result.Timetables[classID]
	tt.Schedule[key] = &models.ScheduleCell{
		Teacher: &models.TeacherRef{ID: teacher.ID, Name: teacher.Name},
		Subject: &models.SubjectRef{ID: subject.ID, Name: subject.Name},
		Room:    tt.Room,
	}

	if st.slotTeachers[key] == nil {
		st.slotTeachers[key] = make(map[string]bool)
	}
	st.slotTeachers[key][teacher.ID] = true

	if st.dailyHours[teacher.ID] == nil {
		st.dailyHours[teacher.ID] = make(map[string]int)
	}
	st.dailyHours[teacher.ID][slot.Day]++

	if st.weeklyCount[classID] == nil {
		st.weeklyCount[classID] = make(map[string]int)
	}
	st.weeklyCount[classID][subject.ID]++

	if st.dailyCount[classID] == nil {
		st.dailyCount[classID] = make(map[string]map[string]int)
	}
	if st.dailyCount[classID][slot.Day] == nil {
		st.dailyCount[classID][slot.Day] = make(map[string]int)
	}
	st.dailyCount[classID][slot.Day][subject.ID]++
}

// unassign reverts a previous assign, restoring the free cell.
func (st *searchState) unassign(classID string, slot models.TimeSlot, teacher models.Teacher, subject models.Subject) {
	key := slot.Key()
	tt := st.result.Timetables[classID]
	tt.Schedule[key] = &models.ScheduleCell{Room: tt.Room}

	delete(st.slotTeachers[key], teacher.ID)
	if st.dailyHours[teacher.ID][slot.Day] > 0 {
		st.dailyHours[teacher.ID][slot.Day]--
	}
	if st.weeklyCount[classID][subject.ID] > 0 {
		st.weeklyCount[classID][subject.ID]--
	}
	if st.dailyCount[classID][slot.Day][subject.ID] > 0 {
		st.dailyCount[classID][slot.Day][subject.ID]--
	}
}
