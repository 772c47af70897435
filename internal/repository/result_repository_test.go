package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/models"
)

func TestResultRepositoryCreateAssignsNextAttempt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM results WHERE student_id = $1 AND exam_id = $2")).
		WithArgs("stu-1", "exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO results`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := &models.Result{
		StudentID:   "stu-1",
		ExamID:      "exam-1",
		Score:       8,
		TotalMarks:  10,
		Percentage:  80,
		Passed:      true,
		StartedAt:   time.Now().Add(-30 * time.Minute),
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), result))
	require.Equal(t, 3, result.AttemptNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryCreateRetriesOnAttemptCollision(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	countQuery := regexp.QuoteMeta("SELECT COUNT(*) FROM results WHERE student_id = $1 AND exam_id = $2")

	mock.ExpectQuery(countQuery).
		WithArgs("stu-1", "exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO results`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(countQuery).
		WithArgs("stu-1", "exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO results`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := &models.Result{StudentID: "stu-1", ExamID: "exam-1", StartedAt: time.Now(), SubmittedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), result))
	require.Equal(t, 2, result.AttemptNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryCountByStudentAndExam(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM results WHERE student_id = $1 AND exam_id = $2")).
		WithArgs("stu-1", "exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountByStudentAndExam(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
