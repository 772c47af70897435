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

type taxonomyRepository interface {
	ListSubjects(ctx context.Context, filter models.TaxonomyFilter) ([]models.Subject, int, error)
	FindSubjectByID(ctx context.Context, id string) (*models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	UpdateSubject(ctx context.Context, subject *models.Subject) error
	ListCourses(ctx context.Context, filter models.TaxonomyFilter) ([]models.CourseDetail, int, error)
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
}

// SubjectRequest describes subject create/update payloads.
type SubjectRequest struct {
	Name   string `json:"name" validate:"required"`
	Code   string `json:"code" validate:"required,min=2,max=12"`
	Active *bool  `json:"active"`
}

// CourseRequest describes course create/update payloads.
type CourseRequest struct {
	SubjectID   string `json:"subject_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// TaxonomyService manages the subject and course catalog.
type TaxonomyService struct {
	repo      taxonomyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaxonomyService constructs TaxonomyService.
func NewTaxonomyService(repo taxonomyRepository, validate *validator.Validate, logger *zap.Logger) *TaxonomyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyService{repo: repo, validator: validate, logger: logger}
}

// ListSubjects returns subjects with pagination metadata.
func (s *TaxonomyService) ListSubjects(ctx context.Context, filter models.TaxonomyFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.ListSubjects(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, paginationOf(filter.Page, filter.PageSize, total), nil
}

// CreateSubject adds a subject to the college catalog.
func (s *TaxonomyService) CreateSubject(ctx context.Context, collegeID string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{CollegeID: collegeID, Name: req.Name, Code: req.Code, Active: true}
	if req.Active != nil {
		subject.Active = *req.Active
	}
	if err := s.repo.CreateSubject(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// UpdateSubject rewrites a subject, enforcing tenant ownership.
func (s *TaxonomyService) UpdateSubject(ctx context.Context, collegeID, id string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.repo.FindSubjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if collegeID != "" && subject.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another college")
	}
	subject.Name = req.Name
	subject.Code = req.Code
	if req.Active != nil {
		subject.Active = *req.Active
	}
	if err := s.repo.UpdateSubject(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// ListCourses returns courses with pagination metadata.
func (s *TaxonomyService) ListCourses(ctx context.Context, filter models.TaxonomyFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, paginationOf(filter.Page, filter.PageSize, total), nil
}

// CreateCourse adds a course under a subject.
func (s *TaxonomyService) CreateCourse(ctx context.Context, collegeID string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	subject, err := s.repo.FindSubjectByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if collegeID != "" && subject.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another college")
	}
	course := &models.Course{CollegeID: subject.CollegeID, SubjectID: req.SubjectID, Name: req.Name, Description: req.Description, Active: true}
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// UpdateCourse rewrites a course, enforcing tenant ownership.
func (s *TaxonomyService) UpdateCourse(ctx context.Context, collegeID, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindCourseByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if collegeID != "" && course.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another college")
	}
	course.SubjectID = req.SubjectID
	course.Name = req.Name
	course.Description = req.Description
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}
