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

// CollegeRepository handles persistence of tenant colleges.
type CollegeRepository struct {
	db *sqlx.DB
}

// NewCollegeRepository constructs the repository.
func NewCollegeRepository(db *sqlx.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

const collegeColumns = `id, name, code, address, contact_email, contact_phone, primary_color, secondary_color, logo_path, max_students, current_students, active, created_at, updated_at`

// List returns colleges filtered by the provided criteria.
func (r *CollegeRepository) List(ctx context.Context, filter models.CollegeFilter) ([]models.College, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"code":       "code",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM colleges%s ORDER BY %s %s LIMIT %d OFFSET %d",
		collegeColumns, clause, orderBy, order, size, offset)

	var colleges []models.College
	if err := r.db.SelectContext(ctx, &colleges, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list colleges: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM colleges"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count colleges: %w", err)
	}
	return colleges, total, nil
}

// FindByID returns a college by its ID.
func (r *CollegeRepository) FindByID(ctx context.Context, id string) (*models.College, error) {
	query := fmt.Sprintf("SELECT %s FROM colleges WHERE id = $1", collegeColumns)
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, id); err != nil {
		return nil, err
	}
	return &college, nil
}

// FindByCode returns a college by its unique code.
func (r *CollegeRepository) FindByCode(ctx context.Context, code string) (*models.College, error) {
	query := fmt.Sprintf("SELECT %s FROM colleges WHERE code = $1", collegeColumns)
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, code); err != nil {
		return nil, err
	}
	return &college, nil
}

// Create persists a new college.
func (r *CollegeRepository) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	college.CreatedAt = now
	college.UpdatedAt = now
	const query = `INSERT INTO colleges (id, name, code, address, contact_email, contact_phone, primary_color, secondary_color, logo_path, max_students, current_students, active, created_at, updated_at)
        VALUES (:id, :name, :code, :address, :contact_email, :contact_phone, :primary_color, :secondary_color, :logo_path, :max_students, :current_students, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("create college: %w", err)
	}
	return nil
}

// Update rewrites the mutable college fields.
func (r *CollegeRepository) Update(ctx context.Context, college *models.College) error {
	college.UpdatedAt = time.Now().UTC()
	const query = `UPDATE colleges SET name = :name, address = :address, contact_email = :contact_email,
        contact_phone = :contact_phone, primary_color = :primary_color, secondary_color = :secondary_color,
        logo_path = :logo_path, max_students = :max_students, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("update college: %w", err)
	}
	return nil
}

// SetActive toggles the tenant soft-disable flag.
func (r *CollegeRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE colleges SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set college active: %w", err)
	}
	return nil
}

// AdjustStudentCount atomically changes the enrolled headcount, refusing an
// increment past max_students. It reports whether the adjustment applied.
func (r *CollegeRepository) AdjustStudentCount(ctx context.Context, id string, delta int) (bool, error) {
	const query = `UPDATE colleges
        SET current_students = current_students + $2, updated_at = $3
        WHERE id = $1
          AND current_students + $2 >= 0
          AND (max_students <= 0 OR current_students + $2 <= max_students)`
	res, err := r.db.ExecContext(ctx, query, id, delta, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("adjust student count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adjust student count result: %w", err)
	}
	return affected > 0, nil
}
