package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/export"
)

type resultAdminReader interface {
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, int, error)
	BestByStudentAndExam(ctx context.Context, studentID, examID string) (*models.Result, error)
	PassRateByExam(ctx context.Context, examID string) (total int, passed int, err error)
}

type resultExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

// exportPageSize caps one CSV export. Reports beyond this go through the
// paginated listing.
const exportPageSize = 10000

// ExamStats is the pass-rate summary for one exam.
type ExamStats struct {
	ExamID   string  `json:"exam_id"`
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	PassRate float64 `json:"pass_rate"`
}

// ResultService serves the admin side of results: listings and pass-rate
// analytics. Students read their own results through AttemptService.
type ResultService struct {
	repo     resultAdminReader
	exporter resultExporter
}

// NewResultService constructs ResultService.
func NewResultService(repo resultAdminReader, exporter resultExporter) *ResultService {
	if exporter == nil {
		exporter = export.NewCSVExporter()
	}
	return &ResultService{repo: repo, exporter: exporter}
}

// List returns results matching the filter with pagination.
func (s *ResultService) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return rows, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Stats summarizes attempts and pass rate for one exam.
func (s *ResultService) Stats(ctx context.Context, examID string) (*ExamStats, error) {
	total, passed, err := s.repo.PassRateByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute pass rate")
	}
	stats := &ExamStats{ExamID: examID, Total: total, Passed: passed}
	if total > 0 {
		stats.PassRate = float64(passed) / float64(total) * 100
	}
	return stats, nil
}

// ExportCSV renders results matching the filter as a CSV report.
func (s *ResultService) ExportCSV(ctx context.Context, filter models.ResultFilter) ([]byte, string, error) {
	filter.Page = 1
	filter.PageSize = exportPageSize
	rows, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results for export")
	}

	headers := []string{"roll_number", "student_name", "exam_title", "attempt", "score", "total_marks", "percentage", "passed", "submitted_at"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"roll_number":  row.RollNumber,
			"student_name": row.StudentName,
			"exam_title":   row.ExamTitle,
			"attempt":      fmt.Sprintf("%d", row.AttemptNumber),
			"score":        fmt.Sprintf("%d", row.Score),
			"total_marks":  fmt.Sprintf("%d", row.TotalMarks),
			"percentage":   fmt.Sprintf("%.2f", row.Percentage),
			"passed":       fmt.Sprintf("%t", row.Passed),
			"submitted_at": row.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}

	out, err := s.exporter.Render(data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render results csv")
	}
	filename := fmt.Sprintf("results-%s.csv", time.Now().UTC().Format("20060102-150405"))
	return out, filename, nil
}

// Best returns the student's best attempt at an exam, or nil when they
// have none.
func (s *ResultService) Best(ctx context.Context, studentID, examID string) (*models.Result, error) {
	best, err := s.repo.BestByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load best result")
	}
	return best, nil
}
