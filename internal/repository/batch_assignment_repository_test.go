package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBatchAssignmentRepositoryFindNewestActiveByBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "college_id", "batch_id", "plan_id", "notes", "assigned_by", "active", "created_at", "updated_at"}).
		AddRow("bpa-2", "col-1", "batch-1", "plan-2", "", "admin-1", true, now, now)
	mock.ExpectQuery(`SELECT .+ FROM batch_plan_assignments\s+WHERE batch_id = \$1 AND active = TRUE\s+ORDER BY created_at DESC LIMIT 1`).
		WithArgs("batch-1").
		WillReturnRows(rows)

	assignment, err := repo.FindNewestActiveByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Equal(t, "bpa-2", assignment.ID)
	require.Equal(t, "plan-2", assignment.PlanID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchAssignmentRepositoryFindNewestActiveByBatchNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchAssignmentRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM batch_plan_assignments`).
		WithArgs("batch-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindNewestActiveByBatch(context.Background(), "batch-9")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchAssignmentRepositoryExistsActivePair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM batch_plan_assignments WHERE batch_id = $1 AND plan_id = $2 AND active = TRUE LIMIT 1")).
		WithArgs("batch-1", "plan-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActivePair(context.Background(), "batch-1", "plan-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM batch_plan_assignments WHERE batch_id = $1 AND plan_id = $2 AND active = TRUE LIMIT 1")).
		WithArgs("batch-1", "plan-2").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsActivePair(context.Background(), "batch-1", "plan-2")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
