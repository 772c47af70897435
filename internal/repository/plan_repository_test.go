package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestPlanRepositoryFindDefaultByCollege(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "college_id", "name", "description", "price", "duration_months", "features", "is_default", "active", "created_at", "updated_at"}).
		AddRow("plan-1", "col-1", "Standard", "", int64(100000), 12, "{}", true, true, now, now)
	mock.ExpectQuery(`SELECT .+ FROM subscription_plans\s+WHERE college_id = \$1 AND is_default = TRUE AND active = TRUE\s+ORDER BY updated_at DESC LIMIT 1`).
		WithArgs("col-1").
		WillReturnRows(rows)

	plan, err := repo.FindDefaultByCollege(context.Background(), "col-1")
	require.NoError(t, err)
	require.Equal(t, "plan-1", plan.ID)
	require.True(t, plan.Default)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryFindDefaultByCollegeNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM subscription_plans`).
		WithArgs("col-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindDefaultByCollege(context.Background(), "col-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
