package models

import "time"

// AvailabilityWindow is a day-scoped time range during which a teacher can be scheduled.
type AvailabilityWindow struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Teacher represents an instructor eligible for timetable assignment.
type Teacher struct {
	ID              string               `db:"id" json:"id"`
	Name            string               `db:"name" json:"name"`
	Subjects        []string             `db:"-" json:"subjects"`
	PrimarySubjects []string             `db:"-" json:"primary_subjects"`
	Availability    []AvailabilityWindow `db:"-" json:"availability"`
	MaxDailyHours   int                  `db:"max_daily_hours" json:"max_daily_hours"`
	Rating          float64              `db:"rating" json:"rating"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
}

// QualifiedFor reports whether the teacher can teach the given subject.
func (t Teacher) QualifiedFor(subjectID string) bool {
	for _, id := range t.Subjects {
		if id == subjectID {
			return true
		}
	}
	return false
}

// PrefersSubject reports whether the subject is one of the teacher's primary subjects.
func (t Teacher) PrefersSubject(subjectID string) bool {
	for _, id := range t.PrimarySubjects {
		if id == subjectID {
			return true
		}
	}
	return false
}
