package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusgrid/timetable-api/internal/models"
)

// ClassRepository manages persistence for class groups.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

type classRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Room         string         `db:"room"`
	Subjects     pq.StringArray `db:"subjects"`
	TotalCredits int            `db:"total_credits"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// ListAll returns every class group ordered by name.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.ClassGroup, error) {
	const query = `SELECT id, name, room, subjects, total_credits, created_at, updated_at FROM classes ORDER BY name ASC`
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}

	classes := make([]models.ClassGroup, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, models.ClassGroup{
			ID:           row.ID,
			Name:         row.Name,
			Room:         row.Room,
			Subjects:     row.Subjects,
			TotalCredits: row.TotalCredits,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return classes, nil
}

// FindByID loads one class group.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	const query = `SELECT id, name, room, subjects, total_credits, created_at, updated_at FROM classes WHERE id = $1`
	var row classRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &models.ClassGroup{
		ID:           row.ID,
		Name:         row.Name,
		Room:         row.Room,
		Subjects:     row.Subjects,
		TotalCredits: row.TotalCredits,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
