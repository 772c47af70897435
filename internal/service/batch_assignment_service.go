package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type batchAssignmentRepository interface {
	List(ctx context.Context, filter models.BatchPlanAssignmentFilter) ([]models.BatchPlanAssignmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.BatchPlanAssignment, error)
	ExistsActivePair(ctx context.Context, batchID, planID string) (bool, error)
	Create(ctx context.Context, assignment *models.BatchPlanAssignment) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type assignmentBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type assignmentPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error)
}

type assignmentAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AssignPlanRequest links a batch to a plan.
type AssignPlanRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
	PlanID  string `json:"plan_id" validate:"required"`
	Notes   string `json:"notes"`
}

// BatchAssignmentService manages batch→plan entitlement links. Creating a
// new link supersedes older ones implicitly: resolution always picks the
// newest active assignment.
type BatchAssignmentService struct {
	repo      batchAssignmentRepository
	batches   assignmentBatchReader
	plans     assignmentPlanReader
	audits    assignmentAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchAssignmentService constructs BatchAssignmentService.
func NewBatchAssignmentService(repo batchAssignmentRepository, batches assignmentBatchReader, plans assignmentPlanReader, audits assignmentAuditWriter, validate *validator.Validate, logger *zap.Logger) *BatchAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchAssignmentService{repo: repo, batches: batches, plans: plans, audits: audits, validator: validate, logger: logger}
}

// List returns assignments with pagination metadata.
func (s *BatchAssignmentService) List(ctx context.Context, filter models.BatchPlanAssignmentFilter) ([]models.BatchPlanAssignmentDetail, *models.Pagination, error) {
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batch assignments")
	}
	return assignments, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Assign links a batch to a plan. Both sides must be active, and an
// identical active pair is a conflict rather than a silent duplicate.
func (s *BatchAssignmentService) Assign(ctx context.Context, collegeID, assignedBy string, req AssignPlanRequest) (*models.BatchPlanAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if collegeID != "" && batch.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "batch belongs to another college")
	}
	if !batch.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "batch is inactive")
	}

	plan, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	if plan.CollegeID != batch.CollegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "plan belongs to another college")
	}
	if !plan.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "plan is inactive")
	}

	exists, err := s.repo.ExistsActivePair(ctx, req.BatchID, req.PlanID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "batch is already assigned to this plan")
	}

	assignment := &models.BatchPlanAssignment{
		CollegeID:  batch.CollegeID,
		BatchID:    req.BatchID,
		PlanID:     req.PlanID,
		Notes:      req.Notes,
		AssignedBy: assignedBy,
		Active:     true,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &assignedBy,
		Action:     models.AuditActionAssignmentChange,
		Resource:   "batch_plan_assignment",
		ResourceID: &assignment.ID,
		NewValues: mustJSON(map[string]string{
			"batch_id": req.BatchID,
			"plan_id":  req.PlanID,
		}),
	}); err != nil {
		s.logger.Warn("failed to record assignment audit log", zap.Error(err))
	}
	return assignment, nil
}

// SetActive toggles an assignment, enforcing tenant ownership.
func (s *BatchAssignmentService) SetActive(ctx context.Context, collegeID, id string, active bool) error {
	assignment, err := s.find(ctx, collegeID, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, assignment.ID, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle assignment")
	}
	return nil
}

// Delete removes an assignment, enforcing tenant ownership.
func (s *BatchAssignmentService) Delete(ctx context.Context, collegeID, id string) error {
	assignment, err := s.find(ctx, collegeID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, assignment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

func (s *BatchAssignmentService) find(ctx context.Context, collegeID, id string) (*models.BatchPlanAssignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if collegeID != "" && assignment.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another college")
	}
	return assignment, nil
}

// mustJSON encodes audit payloads. The inputs are flat string maps, so
// encoding cannot fail.
func mustJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return raw
}
