package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/campusgrid/timetable-api/internal/models"
)

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

type teacherRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Subjects        pq.StringArray `db:"subjects"`
	PrimarySubjects pq.StringArray `db:"primary_subjects"`
	Availability    types.JSONText `db:"availability"`
	MaxDailyHours   int            `db:"max_daily_hours"`
	Rating          float64        `db:"rating"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (row teacherRow) toModel() (models.Teacher, error) {
	teacher := models.Teacher{
		ID:              row.ID,
		Name:            row.Name,
		Subjects:        row.Subjects,
		PrimarySubjects: row.PrimarySubjects,
		MaxDailyHours:   row.MaxDailyHours,
		Rating:          row.Rating,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if len(row.Availability) > 0 {
		if err := json.Unmarshal(row.Availability, &teacher.Availability); err != nil {
			return models.Teacher{}, fmt.Errorf("decode availability for teacher %s: %w", row.ID, err)
		}
	}
	return teacher, nil
}

// ListAll returns every teacher ordered by name.
func (r *TeacherRepository) ListAll(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, name, subjects, primary_subjects, availability, max_daily_hours, rating, created_at, updated_at FROM teachers ORDER BY name ASC`
	var rows []teacherRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}

	teachers := make([]models.Teacher, 0, len(rows))
	for _, row := range rows {
		teacher, err := row.toModel()
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, teacher)
	}
	return teachers, nil
}
