package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examsphere/exam-portal-api/internal/models"
)

// BatchAssignmentRepository handles persistence of batch→plan entitlement links.
type BatchAssignmentRepository struct {
	db *sqlx.DB
}

// NewBatchAssignmentRepository constructs the repository.
func NewBatchAssignmentRepository(db *sqlx.DB) *BatchAssignmentRepository {
	return &BatchAssignmentRepository{db: db}
}

const batchAssignmentColumns = `id, college_id, batch_id, plan_id, notes, assigned_by, active, created_at, updated_at`

// List returns assignments with batch and plan context.
func (r *BatchAssignmentRepository) List(ctx context.Context, filter models.BatchPlanAssignmentFilter) ([]models.BatchPlanAssignmentDetail, int, error) {
	base := ` FROM batch_plan_assignments a
LEFT JOIN batches b ON b.id = a.batch_id
LEFT JOIN subscription_plans p ON p.id = a.plan_id`
	var conditions []string
	var args []interface{}

	if filter.CollegeID != "" {
		conditions = append(conditions, fmt.Sprintf("a.college_id = $%d", len(args)+1))
		args = append(args, filter.CollegeID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("a.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.PlanID != "" {
		conditions = append(conditions, fmt.Sprintf("a.plan_id = $%d", len(args)+1))
		args = append(args, filter.PlanID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("a.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT a.id, a.college_id, a.batch_id, a.plan_id, a.notes, a.assigned_by, a.active, a.created_at, a.updated_at,
        b.name AS batch_name, p.name AS plan_name, p.price AS plan_price
        %s ORDER BY a.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var assignments []models.BatchPlanAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list batch assignments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count batch assignments: %w", err)
	}
	return assignments, total, nil
}

// FindByID returns an assignment by its ID.
func (r *BatchAssignmentRepository) FindByID(ctx context.Context, id string) (*models.BatchPlanAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM batch_plan_assignments WHERE id = $1", batchAssignmentColumns)
	var assignment models.BatchPlanAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindNewestActiveByBatch returns the authoritative assignment for a batch:
// the most recently created active link, or sql.ErrNoRows.
func (r *BatchAssignmentRepository) FindNewestActiveByBatch(ctx context.Context, batchID string) (*models.BatchPlanAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM batch_plan_assignments
        WHERE batch_id = $1 AND active = TRUE
        ORDER BY created_at DESC LIMIT 1`, batchAssignmentColumns)
	var assignment models.BatchPlanAssignment
	if err := r.db.GetContext(ctx, &assignment, query, batchID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ExistsActivePair checks for an identical active (batch, plan) link.
func (r *BatchAssignmentRepository) ExistsActivePair(ctx context.Context, batchID, planID string) (bool, error) {
	const query = `SELECT 1 FROM batch_plan_assignments WHERE batch_id = $1 AND plan_id = $2 AND active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, batchID, planID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check batch assignment pair: %w", err)
	}
	return true, nil
}

// Create persists a new assignment.
func (r *BatchAssignmentRepository) Create(ctx context.Context, assignment *models.BatchPlanAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO batch_plan_assignments (id, college_id, batch_id, plan_id, notes, assigned_by, active, created_at, updated_at)
        VALUES (:id, :college_id, :batch_id, :plan_id, :notes, :assigned_by, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create batch assignment: %w", err)
	}
	return nil
}

// SetActive toggles the assignment.
func (r *BatchAssignmentRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE batch_plan_assignments SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("toggle batch assignment: %w", err)
	}
	return nil
}

// Delete removes the assignment record.
func (r *BatchAssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM batch_plan_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete batch assignment result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
