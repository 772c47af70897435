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

// IncidentRepository handles persistence of proctoring incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs the repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create persists an incident report.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.SecurityIncident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	incident.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO security_incidents (id, student_id, exam_id, type, details, occurred_at, created_at)
        VALUES (:id, :student_id, :exam_id, :type, :details, :occurred_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// List returns incidents matching the filter with student and exam context.
// College scoping rides on the student join since incidents carry no tenant
// column of their own.
func (r *IncidentRepository) List(ctx context.Context, collegeID string, filter models.IncidentFilter) ([]models.IncidentDetail, int, error) {
	base := ` FROM security_incidents i
LEFT JOIN students s ON s.id = i.student_id
LEFT JOIN exams e ON e.id = i.exam_id`
	var conditions []string
	var args []interface{}

	if collegeID != "" {
		conditions = append(conditions, fmt.Sprintf("s.college_id = $%d", len(args)+1))
		args = append(args, collegeID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("i.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ExamID != "" {
		conditions = append(conditions, fmt.Sprintf("i.exam_id = $%d", len(args)+1))
		args = append(args, filter.ExamID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("i.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("i.occurred_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("i.occurred_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT i.id, i.student_id, i.exam_id, i.type, i.details, i.occurred_at, i.created_at,
        COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name, COALESCE(s.roll_number, '') AS roll_number, COALESCE(e.title, '') AS exam_title
        %s ORDER BY i.occurred_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var incidents []models.IncidentDetail
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return incidents, total, nil
}

// SummarizeByStudent aggregates incident counts per student for an exam,
// with the high-signal types broken out, worst offenders first.
func (r *IncidentRepository) SummarizeByStudent(ctx context.Context, examID string) ([]models.IncidentSummary, error) {
	const query = `SELECT i.student_id,
        COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name,
        i.exam_id,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE i.type = 'TAB_SWITCH') AS tab_switches,
        COUNT(*) FILTER (WHERE i.type = 'COPY_ATTEMPT') AS copy_events
        FROM security_incidents i
        LEFT JOIN students s ON s.id = i.student_id
        WHERE i.exam_id = $1
        GROUP BY i.student_id, s.first_name, s.last_name, i.exam_id
        ORDER BY total DESC`

	var summary []models.IncidentSummary
	if err := r.db.SelectContext(ctx, &summary, query, examID); err != nil {
		return nil, fmt.Errorf("summarize incidents: %w", err)
	}
	return summary, nil
}

// CountByStudentAndExam counts a student's incidents inside one exam.
func (r *IncidentRepository) CountByStudentAndExam(ctx context.Context, studentID, examID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM security_incidents WHERE student_id = $1 AND exam_id = $2`, studentID, examID)
	if err != nil {
		return 0, fmt.Errorf("count student incidents: %w", err)
	}
	return count, nil
}
