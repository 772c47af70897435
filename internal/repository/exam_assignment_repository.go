package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examsphere/exam-portal-api/internal/models"
)

// ExamAssignmentRepository handles persistence of exam→batch links.
type ExamAssignmentRepository struct {
	db *sqlx.DB
}

// NewExamAssignmentRepository constructs the repository.
func NewExamAssignmentRepository(db *sqlx.DB) *ExamAssignmentRepository {
	return &ExamAssignmentRepository{db: db}
}

// AssignMany links an exam to a set of batches in one transaction.
// Existing active links are left untouched; only missing pairs are created.
func (r *ExamAssignmentRepository) AssignMany(ctx context.Context, examID string, batchIDs []string, assignedBy string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin exam assignment: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	created := 0
	for _, batchID := range batchIDs {
		var exists int
		err := tx.GetContext(ctx, &exists,
			`SELECT 1 FROM exam_batch_assignments WHERE exam_id = $1 AND batch_id = $2 AND active = TRUE LIMIT 1`,
			examID, batchID)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("check exam assignment: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO exam_batch_assignments (id, exam_id, batch_id, assigned_by, active, created_at)
             VALUES ($1, $2, $3, $4, TRUE, $5)`,
			uuid.NewString(), examID, batchID, assignedBy, now)
		if err != nil {
			return 0, fmt.Errorf("insert exam assignment: %w", err)
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit exam assignment: %w", err)
	}
	return created, nil
}

// DeleteByExamAndBatch removes a single exam↔batch link.
func (r *ExamAssignmentRepository) DeleteByExamAndBatch(ctx context.Context, examID, batchID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM exam_batch_assignments WHERE exam_id = $1 AND batch_id = $2`, examID, batchID)
	if err != nil {
		return fmt.Errorf("delete exam assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete exam assignment result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListDetail returns exam assignments with exam and batch context. College
// scoping rides on the exam join.
func (r *ExamAssignmentRepository) ListDetail(ctx context.Context, collegeID, examID string) ([]models.ExamBatchAssignmentDetail, error) {
	var conditions string
	args := []interface{}{collegeID}
	if examID != "" {
		conditions = " AND a.exam_id = $2"
		args = append(args, examID)
	}
	query := fmt.Sprintf(`SELECT a.id, a.exam_id, a.batch_id, a.assigned_by, a.active, a.created_at,
        e.title AS exam_title, b.name AS batch_name
        FROM exam_batch_assignments a
        LEFT JOIN exams e ON e.id = a.exam_id
        LEFT JOIN batches b ON b.id = a.batch_id
        WHERE e.college_id = $1%s
        ORDER BY e.title ASC, a.created_at DESC`, conditions)

	var rows []models.ExamBatchAssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list exam assignments: %w", err)
	}
	return rows, nil
}

// ExistsActive reports whether an active link exists between the exam and batch.
func (r *ExamAssignmentRepository) ExistsActive(ctx context.Context, examID, batchID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		`SELECT 1 FROM exam_batch_assignments WHERE exam_id = $1 AND batch_id = $2 AND active = TRUE LIMIT 1`,
		examID, batchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check exam assignment: %w", err)
	}
	return true, nil
}

// ListActiveExamIDsByBatch returns the exam IDs a batch can currently see.
func (r *ExamAssignmentRepository) ListActiveExamIDsByBatch(ctx context.Context, batchID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT exam_id FROM exam_batch_assignments WHERE batch_id = $1 AND active = TRUE`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch exam ids: %w", err)
	}
	return ids, nil
}
