package engine

import (
	"sort"

	"github.com/campusgrid/timetable-api/internal/models"
)

// slotRef identifies one unassigned (class, slot) pair during search.
type slotRef struct {
	class models.ClassGroup
	slot  models.TimeSlot
}

// candidate is an admissible (teacher, subject) pair with its priority score.
type candidate struct {
	teacher  models.Teacher
	subject  models.Subject
	priority float64
}

// priorityScore ranks candidates: heavier subjects first, better-rated
// teachers next, with a bonus when the subject is one of the teacher's
// primary subjects.
func priorityScore(subject models.Subject, teacher models.Teacher) float64 {
	score := float64(subject.Credits) * 10
	score += teacher.Rating * 2
	if teacher.PrefersSubject(subject.ID) {
		score += 5
	}
	return score
}

// greedyPrefill walks each class day by day in chronological slot order and
// assigns the highest-priority admissible pair to every empty cell. This
// resolves the easy majority of slots before the search proper begins.
func (st *searchState) greedyPrefill() {
	for _, class := range st.classes {
		for _, day := range st.cfg.Days {
			for _, slot := range st.result.Slots {
				if slot.Day != day {
					continue
				}
				cell := st.result.Cell(class.ID, slot.Key())
				if cell == nil || cell.IsSpecialPeriod || cell.Subject != nil {
					continue
				}
				candidates := st.candidatesFor(class, slot)
				if len(candidates) > 0 {
					best := candidates[0]
					st.assign(class.ID, slot, best.teacher, best.subject)
				}
			}
		}
	}
}

// collectUnassigned lists the remaining free (class, slot) pairs, ordered by
// class priority: heavier curricula first, then broader subject lists.
func (st *searchState) collectUnassigned() []slotRef {
	var pending []slotRef
	for _, class := range st.classes {
		for _, slot := range st.result.Slots {
			cell := st.result.Cell(class.ID, slot.Key())
			if cell.IsFree() {
				pending = append(pending, slotRef{class: class, slot: slot})
			}
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i].class, pending[j].class
		if a.TotalCredits != b.TotalCredits {
			return a.TotalCredits > b.TotalCredits
		}
		return len(a.Subjects) > len(b.Subjects)
	})
	return pending
}

// backtrack fills pending pairs, picking the most constrained pair first and
// trying its best candidates. When no candidate works the slot is left free
// and search continues; a partial schedule is a valid outcome, not a failure.
func (st *searchState) backtrack(pending []slotRef) bool {
	if len(pending) == 0 {
		return true
	}

	idx := st.pickMRV(pending)
	current := pending[idx]
	remaining := make([]slotRef, 0, len(pending)-1)
	remaining = append(remaining, pending[:idx]...)
	remaining = append(remaining, pending[idx+1:]...)

	for _, cand := range st.candidatesFor(current.class, current.slot) {
		st.assign(current.class.ID, current.slot, cand.teacher, cand.subject)
		if st.backtrack(remaining) {
			return true
		}
		st.unassign(current.class.ID, current.slot, cand.teacher, cand.subject)
	}

	// Leave the period free and proceed; this avoids dead-ends when the
	// constraint set is unsatisfiable for this cell.
	return st.backtrack(remaining)
}

// pickMRV returns the index of the pending pair with the fewest admissible
// candidates (minimum remaining values).
func (st *searchState) pickMRV(pending []slotRef) int {
	if len(pending) == 1 {
		return 0
	}
	bestIdx := 0
	bestCount := int(^uint(0) >> 1)
	for i, ref := range pending {
		count := st.candidateCount(ref.class, ref.slot)
		if count < bestCount {
			bestCount = count
			bestIdx = i
		}
	}
	return bestIdx
}

// candidateCount counts admissible pairs, capped early: once four or more are
// found the exact number no longer changes the MRV decision.
func (st *searchState) candidateCount(class models.ClassGroup, slot models.TimeSlot) int {
	count := 0
	for _, subject := range st.prioritySubjects(class) {
		for _, teacher := range st.teachers {
			if st.admissible(teacher, subject, class.ID, slot) {
				count++
				if count > mrvCountCap-1 {
					return mrvCountCap
				}
			}
		}
	}
	return count
}

// candidatesFor enumerates admissible pairs sorted by priority, truncated to
// the branching limit. In strict mode subjects with unmet weekly targets are
// preferred over already-satisfied ones.
func (st *searchState) candidatesFor(class models.ClassGroup, slot models.TimeSlot) []candidate {
	var out []candidate
	for _, subject := range st.prioritySubjects(class) {
		for _, teacher := range st.teachers {
			if st.admissible(teacher, subject, class.ID, slot) {
				out = append(out, candidate{
					teacher:  teacher,
					subject:  subject,
					priority: priorityScore(subject, teacher),
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].priority > out[j].priority
	})
	if st.cfg.Mode != ModeFillAllPeriods {
		sort.SliceStable(out, func(i, j int) bool {
			return st.remainingSessions(class.ID, out[i].subject) > st.remainingSessions(class.ID, out[j].subject)
		})
	}
	limit := st.cfg.BranchingLimit
	if limit > len(out) {
		limit = len(out)
	}
	return out[:limit]
}

// prioritySubjects returns the class curriculum sorted by credits descending.
func (st *searchState) prioritySubjects(class models.ClassGroup) []models.Subject {
	subjects := make([]models.Subject, 0, len(class.Subjects))
	for _, id := range class.Subjects {
		if subject, ok := st.subjects[id]; ok {
			subjects = append(subjects, subject)
		}
	}
	sort.SliceStable(subjects, func(i, j int) bool {
		return subjects[i].Credits > subjects[j].Credits
	})
	return subjects
}
