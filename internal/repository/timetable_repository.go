package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/campusgrid/timetable-api/internal/models"
)

// TimetableRepository persists generation runs and their schedule cells.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// CreateRun inserts a pending generation run and returns it.
func (r *TimetableRepository) CreateRun(ctx context.Context, mode string) (*models.GenerationRun, error) {
	run := &models.GenerationRun{
		ID:        uuid.NewString(),
		Status:    models.GenerationRunStatusPending,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}
	const query = `INSERT INTO generation_runs (id, status, mode, started_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, run.ID, run.Status, run.Mode, run.StartedAt); err != nil {
		return nil, fmt.Errorf("create generation run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with its tallies and metadata.
func (r *TimetableRepository) CompleteRun(ctx context.Context, runID string, assigned, activity, free int, meta types.JSONText) error {
	const query = `UPDATE generation_runs SET status = $2, assigned_cells = $3, activity_cells = $4, free_cells = $5, meta = $6, completed_at = $7 WHERE id = $1`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, runID, models.GenerationRunStatusCompleted, assigned, activity, free, meta, now); err != nil {
		return fmt.Errorf("complete generation run %s: %w", runID, err)
	}
	return nil
}

// FailRun marks a run as failed, keeping the failure reason in meta.
func (r *TimetableRepository) FailRun(ctx context.Context, runID string, meta types.JSONText) error {
	const query = `UPDATE generation_runs SET status = $2, meta = $3, completed_at = $4 WHERE id = $1`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, runID, models.GenerationRunStatusFailed, meta, now); err != nil {
		return fmt.Errorf("fail generation run %s: %w", runID, err)
	}
	return nil
}

// LatestCompletedRun returns the most recent completed run, or sql.ErrNoRows.
func (r *TimetableRepository) LatestCompletedRun(ctx context.Context) (*models.GenerationRun, error) {
	const query = `SELECT id, status, mode, assigned_cells, activity_cells, free_cells, meta, started_at, completed_at FROM generation_runs WHERE status = $1 ORDER BY started_at DESC LIMIT 1`
	var run models.GenerationRun
	if err := r.db.GetContext(ctx, &run, query, models.GenerationRunStatusCompleted); err != nil {
		return nil, err
	}
	return &run, nil
}

// ReplaceCells swaps the persisted schedule for the new run inside one
// transaction: the previous runs' cells are removed and the fresh cells are
// inserted. Progress history lives in its own table and is untouched.
func (r *TimetableRepository) ReplaceCells(ctx context.Context, runID string, cells []models.TimetableCellRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace cells: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_cells WHERE run_id <> $1`, runID); err != nil {
		return fmt.Errorf("clear previous timetable cells: %w", err)
	}

	const insert = `INSERT INTO timetable_cells
		(run_id, class_id, slot_key, day, start_time, end_time, subject_id, subject_name, teacher_id, teacher_name, room, is_special, special_type)
		VALUES (:run_id, :class_id, :slot_key, :day, :start_time, :end_time, :subject_id, :subject_name, :teacher_id, :teacher_name, :room, :is_special, :special_type)`
	for _, cell := range cells {
		if _, err := tx.NamedExecContext(ctx, insert, cell); err != nil {
			return fmt.Errorf("insert timetable cell %s/%s: %w", cell.ClassID, cell.SlotKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace cells: %w", err)
	}
	return nil
}

// ListCellsByRun loads the persisted schedule for one run in grid order.
func (r *TimetableRepository) ListCellsByRun(ctx context.Context, runID string) ([]models.TimetableCellRow, error) {
	const query = `SELECT run_id, class_id, slot_key, day, start_time, end_time, subject_id, subject_name, teacher_id, teacher_name, room, is_special, special_type FROM timetable_cells WHERE run_id = $1 ORDER BY class_id, day, start_time`
	var cells []models.TimetableCellRow
	if err := r.db.SelectContext(ctx, &cells, query, runID); err != nil {
		return nil, fmt.Errorf("list cells for run %s: %w", runID, err)
	}
	return cells, nil
}
