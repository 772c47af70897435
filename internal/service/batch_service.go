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

type batchRepository interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
}

type subjectReader interface {
	FindSubjectByID(ctx context.Context, id string) (*models.Subject, error)
}

// BatchRequest describes batch create/update payloads.
type BatchRequest struct {
	SubjectID  string `json:"subject_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Year       int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Department string `json:"department"`
	Active     *bool  `json:"active"`
}

// BatchService manages student cohorts.
type BatchService struct {
	repo      batchRepository
	subjects  subjectReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs BatchService.
func NewBatchService(repo batchRepository, subjects subjectReader, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// List returns batches with pagination metadata.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, *models.Pagination, error) {
	batches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return batches, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns a single batch, enforcing tenant ownership.
func (s *BatchService) Get(ctx context.Context, collegeID, id string) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if collegeID != "" && batch.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "batch belongs to another college")
	}
	return batch, nil
}

// Create adds a batch under a subject.
func (s *BatchService) Create(ctx context.Context, collegeID string, req BatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	subject, err := s.subjects.FindSubjectByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if collegeID != "" && subject.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another college")
	}

	batch := &models.Batch{
		CollegeID:  subject.CollegeID,
		SubjectID:  req.SubjectID,
		Name:       req.Name,
		Year:       req.Year,
		Department: req.Department,
		Active:     true,
	}
	if req.Active != nil {
		batch.Active = *req.Active
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	return batch, nil
}

// Update rewrites the mutable batch fields.
func (s *BatchService) Update(ctx context.Context, collegeID, id string, req BatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	batch, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}
	batch.SubjectID = req.SubjectID
	batch.Name = req.Name
	batch.Year = req.Year
	batch.Department = req.Department
	if req.Active != nil {
		batch.Active = *req.Active
	}
	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}
	return batch, nil
}
