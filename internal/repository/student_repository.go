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

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, college_id, batch_id, first_name, last_name, email, mobile, date_of_birth, roll_number, resume_path, active, created_at, updated_at`

var studentSortColumns = map[string]string{
	"name":        "s.first_name",
	"roll_number": "s.roll_number",
	"created_at":  "s.created_at",
}

// List returns students matching the filter with batch and college context.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := ` FROM students s
LEFT JOIN batches b ON b.id = s.batch_id
LEFT JOIN colleges c ON c.id = s.college_id`
	var conditions []string
	var args []interface{}

	if filter.CollegeID != "" {
		conditions = append(conditions, fmt.Sprintf("s.college_id = $%d", len(args)+1))
		args = append(args, filter.CollegeID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(s.first_name ILIKE $%d OR s.last_name ILIKE $%d OR s.email ILIKE $%d OR s.roll_number ILIKE $%d)",
			idx, idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortColumn, ok := studentSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "s.created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT s.id, s.user_id, s.college_id, s.batch_id, s.first_name, s.last_name, s.email, s.mobile,
        s.date_of_birth, s.roll_number, s.resume_path, s.active, s.created_at, s.updated_at,
        b.name AS batch_name, COALESCE(c.name, '') AS college_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, sortColumn, sortOrder, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student profile attached to a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE user_id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByRollNumber looks a student up by roll number inside a college.
func (r *StudentRepository) FindByRollNumber(ctx context.Context, collegeID, rollNumber string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE college_id = $1 AND roll_number = $2", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, collegeID, rollNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create persists a new student profile.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, college_id, batch_id, first_name, last_name, email, mobile, date_of_birth, roll_number, resume_path, active, created_at, updated_at)
        VALUES (:id, :user_id, :college_id, :batch_id, :first_name, :last_name, :email, :mobile, :date_of_birth, :roll_number, :resume_path, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update rewrites the mutable profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET batch_id = :batch_id, first_name = :first_name, last_name = :last_name,
        email = :email, mobile = :mobile, date_of_birth = :date_of_birth, roll_number = :roll_number,
        resume_path = :resume_path, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// AssignBatch moves the student to a batch, or detaches them when nil.
func (r *StudentRepository) AssignBatch(ctx context.Context, studentID string, batchID *string) error {
	const query = `UPDATE students SET batch_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, batchID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign student batch: %w", err)
	}
	return nil
}

// SetActive toggles the student profile.
func (r *StudentRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE students SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("toggle student: %w", err)
	}
	return nil
}

// CountByCollege counts students in a college, optionally only active ones.
func (r *StudentRepository) CountByCollege(ctx context.Context, collegeID string, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM students WHERE college_id = $1`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, collegeID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
