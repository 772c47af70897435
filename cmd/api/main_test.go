package main

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/repository"
	"github.com/examsphere/exam-portal-api/pkg/config"
)

func newSeedMock(t *testing.T) (*repository.UserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return repository.NewUserRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestSeedAdminCreatesMissingAccount(t *testing.T) {
	users, mock, cleanup := newSeedMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("root@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := seedAdmin(context.Background(), users, config.BootstrapConfig{
		AdminEmail:    "root@example.com",
		AdminPassword: "changeme-now",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdminLeavesExistingAccountAlone(t *testing.T) {
	users, mock, cleanup := newSeedMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "email"}).AddRow("user-1", "root@example.com")
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("root@example.com").
		WillReturnRows(rows)

	err := seedAdmin(context.Background(), users, config.BootstrapConfig{
		AdminEmail:    "root@example.com",
		AdminPassword: "changeme-now",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdminSkipsWithoutCredentials(t *testing.T) {
	users, mock, cleanup := newSeedMock(t)
	defer cleanup()

	require.NoError(t, seedAdmin(context.Background(), users, config.BootstrapConfig{}))
	require.NoError(t, mock.ExpectationsWereMet())
}
