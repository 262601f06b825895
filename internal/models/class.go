package models

import "time"

// ClassGroup represents a class (section) whose weekly schedule is generated.
type ClassGroup struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Room         string    `db:"room" json:"room"`
	Subjects     []string  `db:"-" json:"subjects"`
	TotalCredits int       `db:"total_credits" json:"total_credits"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RequiresSubject reports whether the class curriculum includes the subject.
func (c ClassGroup) RequiresSubject(subjectID string) bool {
	for _, id := range c.Subjects {
		if id == subjectID {
			return true
		}
	}
	return false
}
