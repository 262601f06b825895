package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusgrid/timetable-api/internal/models"
)

// ProgressRepository persists student activity progress. Rows are keyed by
// (student, activity occurrence) so history survives timetable regeneration.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Upsert writes one progress record, replacing the previous status and notes
// for the same occurrence.
func (r *ProgressRepository) Upsert(ctx context.Context, row models.StudentProgressRow) error {
	const query = `INSERT INTO student_progress (student_id, activity_key, status, notes, last_updated)
		VALUES (:student_id, :activity_key, :status, :notes, :last_updated)
		ON CONFLICT (student_id, activity_key)
		DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, last_updated = EXCLUDED.last_updated`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert progress %s/%s: %w", row.StudentID, row.ActivityKey, err)
	}
	return nil
}

// ListAll loads every progress record, used to seed plan diversification
// before a generation cycle.
func (r *ProgressRepository) ListAll(ctx context.Context) ([]models.StudentProgressRow, error) {
	const query = `SELECT student_id, activity_key, status, notes, last_updated FROM student_progress`
	var rows []models.StudentProgressRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all progress: %w", err)
	}
	return rows, nil
}

// ListByStudent loads the full progress history of one student.
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentProgressRow, error) {
	const query = `SELECT student_id, activity_key, status, notes, last_updated FROM student_progress WHERE student_id = $1 ORDER BY last_updated DESC`
	var rows []models.StudentProgressRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list progress for student %s: %w", studentID, err)
	}
	return rows, nil
}
