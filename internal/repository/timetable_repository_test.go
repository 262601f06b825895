package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgrid/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableRepositoryCreateRun(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO generation_runs").
		WithArgs(sqlmock.AnyArg(), models.GenerationRunStatusPending, "STRICT_WEEKLY_CAPS", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run, err := repo.CreateRun(context.Background(), "STRICT_WEEKLY_CAPS")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.GenerationRunStatusPending, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceCellsTransactional(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_cells WHERE run_id <> $1")).
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO timetable_cells").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	cells := []models.TimetableCellRow{
		{RunID: "run-1", ClassID: "c1", SlotKey: "Monday_09:00", Day: "Monday", StartTime: "09:00", EndTime: "10:00", Room: "R101"},
	}
	err := repo.ReplaceCells(context.Background(), "run-1", cells)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceCellsRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_cells WHERE run_id <> $1")).
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO timetable_cells").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	cells := []models.TimetableCellRow{
		{RunID: "run-1", ClassID: "c1", SlotKey: "Monday_09:00", Day: "Monday", StartTime: "09:00", EndTime: "10:00"},
	}
	err := repo.ReplaceCells(context.Background(), "run-1", cells)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryLatestCompletedRun(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "status", "mode", "assigned_cells", "activity_cells", "free_cells", "meta", "started_at", "completed_at"}).
		AddRow("run-1", "COMPLETED", "STRICT_WEEKLY_CAPS", 20, 4, 0, []byte(`{}`), now, now)
	mock.ExpectQuery("SELECT id, status, mode").
		WithArgs(models.GenerationRunStatusCompleted).
		WillReturnRows(rows)

	run, err := repo.LatestCompletedRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 20, run.AssignedCells)
	assert.NoError(t, mock.ExpectationsWereMet())
}
