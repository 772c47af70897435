package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type incidentRepository interface {
	Create(ctx context.Context, incident *models.SecurityIncident) error
	List(ctx context.Context, collegeID string, filter models.IncidentFilter) ([]models.IncidentDetail, int, error)
	SummarizeByStudent(ctx context.Context, examID string) ([]models.IncidentSummary, error)
}

// ReportIncidentRequest is the proctoring beacon payload. The exam runtime
// fires these in the background, so accepting one must stay cheap.
type ReportIncidentRequest struct {
	ExamID     string     `json:"exam_id" validate:"required"`
	Type       string     `json:"type" validate:"required"`
	Details    string     `json:"details" validate:"max=1000"`
	OccurredAt *time.Time `json:"occurred_at"`
}

var knownIncidentTypes = map[models.IncidentType]struct{}{
	models.IncidentTabSwitch:      {},
	models.IncidentCopyAttempt:    {},
	models.IncidentWindowBlur:     {},
	models.IncidentFullscreenExit: {},
	models.IncidentOther:          {},
}

// IncidentService records and reports proctoring anomalies.
type IncidentService struct {
	repo      incidentRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewIncidentService constructs IncidentService.
func NewIncidentService(repo incidentRepository, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// Report records one beacon. Unknown types are kept but demoted to OTHER
// so a runtime upgrade never drops evidence.
func (s *IncidentService) Report(ctx context.Context, studentID string, req ReportIncidentRequest) (*models.SecurityIncident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}

	kind := models.IncidentType(req.Type)
	if _, ok := knownIncidentTypes[kind]; !ok {
		s.logger.Warn("unknown incident type reported", zap.String("type", req.Type), zap.String("student_id", studentID))
		kind = models.IncidentOther
	}

	occurredAt := s.now().UTC()
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() {
		occurredAt = req.OccurredAt.UTC()
	}

	incident := &models.SecurityIncident{
		StudentID:  studentID,
		ExamID:     req.ExamID,
		Type:       kind,
		Details:    req.Details,
		OccurredAt: occurredAt,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record incident")
	}
	return incident, nil
}

// List returns the college's incidents with filters and pagination.
func (s *IncidentService) List(ctx context.Context, collegeID string, filter models.IncidentFilter) ([]models.IncidentDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, collegeID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	return rows, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Analytics aggregates per-student incident counts for one exam.
func (s *IncidentService) Analytics(ctx context.Context, examID string) ([]models.IncidentSummary, error) {
	rows, err := s.repo.SummarizeByStudent(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize incidents")
	}
	return rows, nil
}
