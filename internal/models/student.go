package models

import "time"

// Student represents a learner attached to a class group.
type Student struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	ClassID    string    `db:"class_id" json:"class_id"`
	Interests  []string  `db:"-" json:"interests"`
	SkillLevel int       `db:"skill_level" json:"skill_level"`
	Goals      string    `db:"goals" json:"goals"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
