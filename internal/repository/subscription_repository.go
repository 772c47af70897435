package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examsphere/exam-portal-api/internal/models"
)

// SubscriptionRepository handles persistence of student plan purchases.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, student_id, plan_id, status, start_date, end_date, order_id, payment_id, amount_paid, created_at, updated_at`

// List returns subscriptions with plan context.
func (r *SubscriptionRepository) List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, int, error) {
	base := ` FROM student_subscriptions ss
LEFT JOIN subscription_plans p ON p.id = ss.plan_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("ss.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.PlanID != "" {
		conditions = append(conditions, fmt.Sprintf("ss.plan_id = $%d", len(args)+1))
		args = append(args, filter.PlanID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("ss.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT ss.id, ss.student_id, ss.plan_id, ss.status, ss.start_date, ss.end_date,
        ss.order_id, ss.payment_id, ss.amount_paid, ss.created_at, ss.updated_at,
        p.name AS plan_name, p.price AS plan_price, p.duration_months
        %s ORDER BY ss.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var subs []models.SubscriptionDetail
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return subs, total, nil
}

// FindByID returns a subscription by its ID.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*models.StudentSubscription, error) {
	query := fmt.Sprintf("SELECT %s FROM student_subscriptions WHERE id = $1", subscriptionColumns)
	var sub models.StudentSubscription
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByOrderID returns the subscription created for a gateway order.
func (r *SubscriptionRepository) FindByOrderID(ctx context.Context, orderID string) (*models.StudentSubscription, error) {
	query := fmt.Sprintf("SELECT %s FROM student_subscriptions WHERE order_id = $1", subscriptionColumns)
	var sub models.StudentSubscription
	if err := r.db.GetContext(ctx, &sub, query, orderID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindNewestByStudentAndPlan returns the most recent subscription of any
// stored status a student holds for the plan, or sql.ErrNoRows.
func (r *SubscriptionRepository) FindNewestByStudentAndPlan(ctx context.Context, studentID, planID string, statuses ...models.SubscriptionStatus) (*models.StudentSubscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_subscriptions WHERE student_id = $1 AND plan_id = $2`, subscriptionColumns)
	args := []interface{}{studentID, planID}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, st)
		}
		query += fmt.Sprintf(" AND status IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY created_at DESC LIMIT 1"

	var sub models.StudentSubscription
	if err := r.db.GetContext(ctx, &sub, query, args...); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CountByStudent reports how many subscriptions of any status exist for a
// student; used to distinguish first-purchase from renewal upsells.
func (r *SubscriptionRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student_subscriptions WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("count student subscriptions: %w", err)
	}
	return count, nil
}

// Create persists a new subscription record.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.StudentSubscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.Status == "" {
		sub.Status = models.SubscriptionStatusPending
	}
	const query = `INSERT INTO student_subscriptions (id, student_id, plan_id, status, start_date, end_date, order_id, payment_id, amount_paid, created_at, updated_at)
        VALUES (:id, :student_id, :plan_id, :status, :start_date, :end_date, :order_id, :payment_id, :amount_paid, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// AttachOrder records the gateway order backing a pending subscription.
func (r *SubscriptionRepository) AttachOrder(ctx context.Context, id, orderID string) error {
	const query = `UPDATE student_subscriptions SET order_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, orderID, time.Now().UTC()); err != nil {
		return fmt.Errorf("attach subscription order: %w", err)
	}
	return nil
}

// Activate moves a pending subscription to ACTIVE after payment
// verification, stamping the validity window and payment id.
func (r *SubscriptionRepository) Activate(ctx context.Context, id, paymentID string, start, end time.Time) error {
	const query = `UPDATE student_subscriptions
        SET status = $2, payment_id = $3, start_date = $4, end_date = $5, updated_at = $6
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.SubscriptionStatusActive, paymentID, start, end, time.Now().UTC()); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	return nil
}

// UpdateStatus rewrites the stored lifecycle state.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	const query = `UPDATE student_subscriptions SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	return nil
}

// ExpireActiveForPlan marks a student's previous active purchases of the
// plan as expired; used when a renewal activates.
func (r *SubscriptionRepository) ExpireActiveForPlan(ctx context.Context, studentID, planID, excludeID string) error {
	const query = `UPDATE student_subscriptions SET status = $4, updated_at = $5
        WHERE student_id = $1 AND plan_id = $2 AND id <> $3 AND status = $6`
	if _, err := r.db.ExecContext(ctx, query, studentID, planID, excludeID,
		models.SubscriptionStatusExpired, time.Now().UTC(), models.SubscriptionStatusActive); err != nil {
		return fmt.Errorf("expire previous subscriptions: %w", err)
	}
	return nil
}

// ExpireOverdue rewrites stale stored statuses: rows still marked ACTIVE
// whose end date has passed become EXPIRED. Returns the number corrected.
func (r *SubscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE student_subscriptions SET status = $1, updated_at = $2
        WHERE status = $3 AND end_date < $2`
	res, err := r.db.ExecContext(ctx, query, models.SubscriptionStatusExpired, now, models.SubscriptionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("expire overdue subscriptions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire overdue result: %w", err)
	}
	return affected, nil
}
