package engine

import (
	"fmt"
	"strings"

	"github.com/campusgrid/timetable-api/internal/models"
)

// ValidationError aggregates every pre-flight issue found in the input data.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("timetable data validation failed: %s", strings.Join(e.Issues, "; "))
}

// Validate runs the pre-flight checks over normalized entities. All detected
// issues are collected so the caller can report them together. Teacher daily
// caps are not checked here: normalization defaults a non-positive cap to the
// day's slot count, so every teacher reaching this point has a usable cap.
func Validate(teachers []models.Teacher, classes []models.ClassGroup, subjects []models.Subject) []string {
	var issues []string

	for _, class := range classes {
		if len(class.Subjects) == 0 {
			issues = append(issues, fmt.Sprintf("class %s has no subjects assigned", class.Name))
		}
	}

	for _, subject := range subjects {
		qualified := false
		for _, teacher := range teachers {
			if teacher.QualifiedFor(subject.ID) {
				qualified = true
				break
			}
		}
		if !qualified {
			issues = append(issues, fmt.Sprintf("subject %s has no qualified teachers", subject.Name))
		}
	}

	return issues
}

// normalizeEntities applies the load-time defaults and hygiene rules:
// teachers without availability windows become available for every configured
// day across the full window, absent daily caps default to the day's slot
// count, malformed subject rows are discarded, class credits are derived from
// subject credits when missing, and teacher qualification lists are trimmed
// to subjects that actually exist.
func normalizeEntities(cfg Config, teachers []models.Teacher, classes []models.ClassGroup, subjects []models.Subject) ([]models.Teacher, []models.ClassGroup, []models.Subject) {
	slotsPerDay := SlotsPerDay(cfg)

	cleanSubjects := make([]models.Subject, 0, len(subjects))
	for _, s := range subjects {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		if s.ID == "" || s.Name == "" || s.ID == "+" || s.Name == "+" {
			continue
		}
		if s.WeeklySessions <= 0 {
			s.WeeklySessions = len(cfg.Days)
			if s.WeeklySessions == 0 {
				s.WeeklySessions = 5
			}
		}
		if s.Credits <= 0 {
			s.Credits = 1
		}
		cleanSubjects = append(cleanSubjects, s)
	}

	validSubject := make(map[string]models.Subject, len(cleanSubjects))
	for _, s := range cleanSubjects {
		validSubject[s.ID] = s
	}

	cleanTeachers := make([]models.Teacher, 0, len(teachers))
	for _, t := range teachers {
		if len(t.Availability) == 0 {
			windows := make([]models.AvailabilityWindow, 0, len(cfg.Days))
			for _, day := range cfg.Days {
				windows = append(windows, models.AvailabilityWindow{
					Day:       day,
					StartTime: cfg.StartTime,
					EndTime:   cfg.EndTime,
				})
			}
			t.Availability = windows
		}
		if t.MaxDailyHours <= 0 {
			t.MaxDailyHours = slotsPerDay
		}
		t.Subjects = filterKnown(t.Subjects, validSubject)
		t.PrimarySubjects = filterKnown(t.PrimarySubjects, validSubject)
		cleanTeachers = append(cleanTeachers, t)
	}

	cleanClasses := make([]models.ClassGroup, 0, len(classes))
	for _, c := range classes {
		if c.TotalCredits <= 0 {
			total := 0
			for _, sid := range c.Subjects {
				if s, ok := validSubject[sid]; ok {
					total += s.Credits
				}
			}
			c.TotalCredits = total
		}
		cleanClasses = append(cleanClasses, c)
	}

	return cleanTeachers, cleanClasses, cleanSubjects
}

func filterKnown(ids []string, known map[string]models.Subject) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := known[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
