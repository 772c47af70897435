package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/examsphere/exam-portal-api/internal/models"
)

// uniqueViolation is the Postgres error code raised when two submissions
// race for the same (student, exam, attempt_number) slot.
const uniqueViolation = "23505"

const createAttemptRetries = 3

// ResultRepository handles persistence of graded attempts.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, student_id, exam_id, attempt_number, score, total_marks, percentage, passed, answers, started_at, submitted_at`

// Create persists a graded attempt, assigning the next attempt number for the
// (student, exam) pair. A unique index on (student_id, exam_id, attempt_number)
// backs the retry loop: if two submissions race, the loser recomputes.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	const insert = `INSERT INTO results (id, student_id, exam_id, attempt_number, score, total_marks, percentage, passed, answers, started_at, submitted_at)
        VALUES (:id, :student_id, :exam_id, :attempt_number, :score, :total_marks, :percentage, :passed, :answers, :started_at, :submitted_at)`

	for attempt := 0; attempt < createAttemptRetries; attempt++ {
		count, err := r.CountByStudentAndExam(ctx, result.StudentID, result.ExamID)
		if err != nil {
			return err
		}
		result.AttemptNumber = count + 1

		_, err = r.db.NamedExecContext(ctx, insert, result)
		if err == nil {
			return nil
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			continue
		}
		return fmt.Errorf("create result: %w", err)
	}
	return fmt.Errorf("create result: attempt number contention")
}

// CountByStudentAndExam returns how many attempts a student has recorded.
func (r *ResultRepository) CountByStudentAndExam(ctx context.Context, studentID, examID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM results WHERE student_id = $1 AND exam_id = $2`, studentID, examID)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// FindByID returns a result by its ID.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	query := fmt.Sprintf("SELECT %s FROM results WHERE id = $1", resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByStudent returns a student's attempt history, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	const query = `SELECT r.id, r.student_id, r.exam_id, r.attempt_number, r.score, r.total_marks, r.percentage, r.passed, r.answers, r.started_at, r.submitted_at,
        e.title AS exam_title, COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name, COALESCE(s.roll_number, '') AS roll_number
        FROM results r
        LEFT JOIN exams e ON e.id = r.exam_id
        LEFT JOIN students s ON s.id = r.student_id
        WHERE r.student_id = $1
        ORDER BY r.submitted_at DESC`
	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return results, nil
}

// BestByStudentAndExam returns the student's highest-scoring attempt, or
// sql.ErrNoRows when none exist.
func (r *ResultRepository) BestByStudentAndExam(ctx context.Context, studentID, examID string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE student_id = $1 AND exam_id = $2
        ORDER BY percentage DESC, submitted_at ASC LIMIT 1`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, studentID, examID); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns results matching the filter with exam and student context.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, int, error) {
	base := ` FROM results r
LEFT JOIN exams e ON e.id = r.exam_id
LEFT JOIN students s ON s.id = r.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ExamID != "" {
		conditions = append(conditions, fmt.Sprintf("r.exam_id = $%d", len(args)+1))
		args = append(args, filter.ExamID)
	}
	if filter.Passed != nil {
		conditions = append(conditions, fmt.Sprintf("r.passed = $%d", len(args)+1))
		args = append(args, *filter.Passed)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortColumn := "r.submitted_at"
	switch filter.SortBy {
	case "score":
		sortColumn = "r.score"
	case "percentage":
		sortColumn = "r.percentage"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT r.id, r.student_id, r.exam_id, r.attempt_number, r.score, r.total_marks, r.percentage, r.passed, r.answers, r.started_at, r.submitted_at,
        e.title AS exam_title, COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name, COALESCE(s.roll_number, '') AS roll_number
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, sortColumn, sortOrder, size, offset)

	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}
	return results, total, nil
}

// PassRateByExam computes aggregate pass statistics for an exam.
func (r *ResultRepository) PassRateByExam(ctx context.Context, examID string) (total int, passed int, err error) {
	row := r.db.QueryRowxContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE passed) FROM results WHERE exam_id = $1`, examID)
	if err := row.Scan(&total, &passed); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("exam pass rate: %w", err)
	}
	return total, passed, nil
}
