package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examsphere/exam-portal-api/internal/models"
)

// QuestionRepository handles persistence of exam questions.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs the repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

const questionColumns = `id, exam_id, text, options, marks, position, created_at, updated_at`

// ListByExam returns an exam's questions in display order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID string) ([]models.Question, error) {
	query := fmt.Sprintf("SELECT %s FROM questions WHERE exam_id = $1 ORDER BY position ASC, created_at ASC", questionColumns)
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, examID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// CountByExam returns the number of questions attached to an exam.
func (r *QuestionRepository) CountByExam(ctx context.Context, examID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM questions WHERE exam_id = $1", examID); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// ReplaceForExam swaps the full question set of an exam in one transaction.
// Attempt papers are snapshots, so rewriting questions never mutates past results.
func (r *QuestionRepository) ReplaceForExam(ctx context.Context, examID string, questions []models.Question) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin question replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO questions (id, exam_id, text, options, marks, position, created_at, updated_at)
        VALUES (:id, :exam_id, :text, :options, :marks, :position, :created_at, :updated_at)`
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.ExamID = examID
		q.Position = i + 1
		q.CreatedAt = now
		q.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, q); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit question replace: %w", err)
	}
	return nil
}
