package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusgrid/timetable-api/internal/models"
)

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

type studentRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	ClassID    string         `db:"class_id"`
	Interests  pq.StringArray `db:"interests"`
	SkillLevel int            `db:"skill_level"`
	Goals      string         `db:"goals"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (row studentRow) toModel() models.Student {
	return models.Student{
		ID:         row.ID,
		Name:       row.Name,
		ClassID:    row.ClassID,
		Interests:  row.Interests,
		SkillLevel: row.SkillLevel,
		Goals:      row.Goals,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

// ListAll returns every student ordered by name.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, name, class_id, interests, skill_level, goals, created_at, updated_at FROM students ORDER BY name ASC`
	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toModel())
	}
	return students, nil
}

// FindByID loads one student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, name, class_id, interests, skill_level, goals, created_at, updated_at FROM students WHERE id = $1`
	var row studentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	student := row.toModel()
	return &student, nil
}

// ListByClass returns the students of one class group.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT id, name, class_id, interests, skill_level, goals, created_at, updated_at FROM students WHERE class_id = $1 ORDER BY name ASC`
	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list students for class %s: %w", classID, err)
	}

	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toModel())
	}
	return students, nil
}
