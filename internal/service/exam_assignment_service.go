package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type examAssignmentRepository interface {
	AssignMany(ctx context.Context, examID string, batchIDs []string, assignedBy string) (int, error)
	DeleteByExamAndBatch(ctx context.Context, examID, batchID string) error
	ListDetail(ctx context.Context, collegeID, examID string) ([]models.ExamBatchAssignmentDetail, error)
}

type assignmentExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

// AssignExamRequest links one exam to many batches in a single call.
type AssignExamRequest struct {
	ExamID   string   `json:"exam_id" validate:"required"`
	BatchIDs []string `json:"batch_ids" validate:"required,min=1,dive,required"`
}

// ExamAssignmentService manages exam→batch visibility links.
type ExamAssignmentService struct {
	repo      examAssignmentRepository
	exams     assignmentExamReader
	batches   assignmentBatchReader
	audits    assignmentAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamAssignmentService constructs ExamAssignmentService.
func NewExamAssignmentService(repo examAssignmentRepository, exams assignmentExamReader, batches assignmentBatchReader, audits assignmentAuditWriter, validate *validator.Validate, logger *zap.Logger) *ExamAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamAssignmentService{repo: repo, exams: exams, batches: batches, audits: audits, validator: validate, logger: logger}
}

// Assign links an exam to the given batches. Already-linked batches are
// skipped; the returned count is the number of new links.
func (s *ExamAssignmentService) Assign(ctx context.Context, collegeID, assignedBy string, req AssignExamRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if collegeID != "" && exam.CollegeID != collegeID {
		return 0, appErrors.Clone(appErrors.ErrForbidden, "exam belongs to another college")
	}

	for _, batchID := range req.BatchIDs {
		batch, err := s.batches.FindByID(ctx, batchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, appErrors.Clone(appErrors.ErrNotFound, "batch "+batchID+" not found")
			}
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
		}
		if batch.CollegeID != exam.CollegeID {
			return 0, appErrors.Clone(appErrors.ErrForbidden, "batch "+batchID+" belongs to another college")
		}
		if !batch.Active {
			return 0, appErrors.Clone(appErrors.ErrPreconditionFailed, "batch "+batchID+" is inactive")
		}
	}

	created, err := s.repo.AssignMany(ctx, req.ExamID, req.BatchIDs, assignedBy)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign exam")
	}

	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &assignedBy,
		Action:     models.AuditActionExamAssignment,
		Resource:   "exam_batch_assignment",
		ResourceID: &req.ExamID,
	}); err != nil {
		s.logger.Warn("failed to record exam assignment audit log", zap.Error(err))
	}
	return created, nil
}

// Unassign removes one exam↔batch link.
func (s *ExamAssignmentService) Unassign(ctx context.Context, collegeID, examID, batchID string) error {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if collegeID != "" && exam.CollegeID != collegeID {
		return appErrors.Clone(appErrors.ErrForbidden, "exam belongs to another college")
	}
	if err := s.repo.DeleteByExamAndBatch(ctx, examID, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// ListGrouped returns the college's exam assignments grouped per exam.
func (s *ExamAssignmentService) ListGrouped(ctx context.Context, collegeID, examID string) ([]models.ExamAssignmentGroup, error) {
	rows, err := s.repo.ListDetail(ctx, collegeID, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam assignments")
	}

	groups := make([]models.ExamAssignmentGroup, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.ExamID]
		if !ok {
			i = len(groups)
			index[row.ExamID] = i
			groups = append(groups, models.ExamAssignmentGroup{ExamID: row.ExamID, ExamTitle: row.ExamTitle})
		}
		groups[i].Batches = append(groups[i].Batches, row)
	}
	return groups, nil
}
