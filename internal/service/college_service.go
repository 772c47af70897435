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

type collegeRepository interface {
	List(ctx context.Context, filter models.CollegeFilter) ([]models.College, int, error)
	FindByID(ctx context.Context, id string) (*models.College, error)
	FindByCode(ctx context.Context, code string) (*models.College, error)
	Create(ctx context.Context, college *models.College) error
	Update(ctx context.Context, college *models.College) error
	SetActive(ctx context.Context, id string, active bool) error
}

// CreateCollegeRequest describes college onboarding payload.
type CreateCollegeRequest struct {
	Name           string `json:"name" validate:"required"`
	Code           string `json:"code" validate:"required,alphanum,min=3,max=12"`
	Address        string `json:"address"`
	ContactEmail   string `json:"contact_email" validate:"required,email"`
	ContactPhone   string `json:"contact_phone"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	MaxStudents    int    `json:"max_students" validate:"gte=0"`
}

// UpdateCollegeRequest describes mutable college fields.
type UpdateCollegeRequest struct {
	Name           string `json:"name" validate:"required"`
	Address        string `json:"address"`
	ContactEmail   string `json:"contact_email" validate:"required,email"`
	ContactPhone   string `json:"contact_phone"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	MaxStudents    int    `json:"max_students" validate:"gte=0"`
}

// CollegeService manages tenant colleges.
type CollegeService struct {
	repo      collegeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCollegeService constructs CollegeService.
func NewCollegeService(repo collegeRepository, validate *validator.Validate, logger *zap.Logger) *CollegeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollegeService{repo: repo, validator: validate, logger: logger}
}

// List returns colleges with pagination metadata.
func (s *CollegeService) List(ctx context.Context, filter models.CollegeFilter) ([]models.College, *models.Pagination, error) {
	colleges, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	return colleges, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns a single college.
func (s *CollegeService) Get(ctx context.Context, id string) (*models.College, error) {
	college, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	return college, nil
}

// Create onboards a new college tenant.
func (s *CollegeService) Create(ctx context.Context, req CreateCollegeRequest) (*models.College, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid college payload")
	}
	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "college code already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check college code")
	}

	college := &models.College{
		Name:           req.Name,
		Code:           req.Code,
		Address:        req.Address,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		MaxStudents:    req.MaxStudents,
		Active:         true,
	}
	if err := s.repo.Create(ctx, college); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create college")
	}
	return college, nil
}

// Update rewrites the mutable fields of a college.
func (s *CollegeService) Update(ctx context.Context, id string, req UpdateCollegeRequest) (*models.College, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid college payload")
	}
	college, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.MaxStudents > 0 && req.MaxStudents < college.CurrentStudents {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity below current student count")
	}

	college.Name = req.Name
	college.Address = req.Address
	college.ContactEmail = req.ContactEmail
	college.ContactPhone = req.ContactPhone
	college.PrimaryColor = req.PrimaryColor
	college.SecondaryColor = req.SecondaryColor
	college.MaxStudents = req.MaxStudents
	if err := s.repo.Update(ctx, college); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update college")
	}
	return college, nil
}

// SetActive toggles the tenant on or off.
func (s *CollegeService) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle college")
	}
	return nil
}

func paginationOf(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
