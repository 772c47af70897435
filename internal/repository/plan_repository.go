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

// PlanRepository handles persistence of subscription plans.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, college_id, name, description, price, duration_months, features, active, is_default, created_at, updated_at`

// List returns plans filtered by the provided criteria.
func (r *PlanRepository) List(ctx context.Context, filter models.PlanFilter) ([]models.SubscriptionPlan, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CollegeID != "" {
		conditions = append(conditions, fmt.Sprintf("college_id = $%d", len(args)+1))
		args = append(args, filter.CollegeID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Default != nil {
		conditions = append(conditions, fmt.Sprintf("is_default = $%d", len(args)+1))
		args = append(args, *filter.Default)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"price":      "price",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "price"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM subscription_plans%s ORDER BY %s %s LIMIT %d OFFSET %d",
		planColumns, clause, orderBy, order, size, offset)

	var plans []models.SubscriptionPlan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subscription_plans"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}
	return plans, total, nil
}

// FindByID returns a plan by its ID.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	query := fmt.Sprintf("SELECT %s FROM subscription_plans WHERE id = $1", planColumns)
	var plan models.SubscriptionPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindDefaultByCollege returns the active default plan for a college,
// or sql.ErrNoRows when the college has none.
func (r *PlanRepository) FindDefaultByCollege(ctx context.Context, collegeID string) (*models.SubscriptionPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscription_plans
        WHERE college_id = $1 AND is_default = TRUE AND active = TRUE
        ORDER BY updated_at DESC LIMIT 1`, planColumns)
	var plan models.SubscriptionPlan
	if err := r.db.GetContext(ctx, &plan, query, collegeID); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Create persists a new plan.
func (r *PlanRepository) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	const query = `INSERT INTO subscription_plans (id, college_id, name, description, price, duration_months, features, active, is_default, created_at, updated_at)
        VALUES (:id, :college_id, :name, :description, :price, :duration_months, :features, :active, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// Update rewrites the mutable plan fields.
func (r *PlanRepository) Update(ctx context.Context, plan *models.SubscriptionPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subscription_plans SET name = :name, description = :description, price = :price,
        duration_months = :duration_months, features = :features, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return nil
}

// SetDefault marks one plan as the college fallback, clearing any other
// default in the same college inside one transaction.
func (r *PlanRepository) SetDefault(ctx context.Context, collegeID, planID string) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE subscription_plans SET is_default = FALSE, updated_at = $2 WHERE college_id = $1 AND is_default = TRUE`,
		collegeID, now); err != nil {
		return fmt.Errorf("clear default plan: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE subscription_plans SET is_default = TRUE, updated_at = $3 WHERE id = $1 AND college_id = $2`,
		planID, collegeID, now)
	if err != nil {
		return fmt.Errorf("set default plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set default plan result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// SetActive toggles plan availability.
func (r *PlanRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE subscription_plans SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set plan active: %w", err)
	}
	return nil
}
