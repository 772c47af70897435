package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type planRepository interface {
	List(ctx context.Context, filter models.PlanFilter) ([]models.SubscriptionPlan, int, error)
	FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error)
	Create(ctx context.Context, plan *models.SubscriptionPlan) error
	Update(ctx context.Context, plan *models.SubscriptionPlan) error
	SetDefault(ctx context.Context, collegeID, planID string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type planCatalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const defaultCatalogCacheTTL = 10 * time.Minute

// PlanRequest describes plan create/update payloads. Price is in whole
// rupees.
type PlanRequest struct {
	Name           string   `json:"name" validate:"required"`
	Description    string   `json:"description"`
	Price          int64    `json:"price" validate:"gte=0"`
	DurationMonths int      `json:"duration_months" validate:"required,gte=1,lte=120"`
	Features       []string `json:"features"`
	Default        bool     `json:"is_default"`
}

// PlanView is a plan with its display strings rendered server side.
type PlanView struct {
	models.SubscriptionPlan
	PriceText    string `json:"price_text"`
	DurationText string `json:"duration_text"`
}

// PlanService manages subscription plans and the college default. The
// student-facing catalog is cached briefly since it is read on every
// storefront visit and changes rarely.
type PlanService struct {
	repo      planRepository
	cache     planCatalogCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlanService constructs PlanService. cache may be nil to disable
// catalog caching.
func NewPlanService(repo planRepository, cache planCatalogCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *PlanService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCatalogCacheTTL
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns plans with rendered price and duration text.
func (s *PlanService) List(ctx context.Context, filter models.PlanFilter) ([]PlanView, *models.Pagination, error) {
	plans, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plans")
	}
	views := make([]PlanView, 0, len(plans))
	for i := range plans {
		views = append(views, toPlanView(&plans[i]))
	}
	return views, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns a single plan, enforcing tenant ownership.
func (s *PlanService) Get(ctx context.Context, collegeID, id string) (*PlanView, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	if collegeID != "" && plan.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "plan belongs to another college")
	}
	view := toPlanView(plan)
	return &view, nil
}

// Catalog returns the active plans a student can purchase, served from
// cache when warm.
func (s *PlanService) Catalog(ctx context.Context, collegeID string) ([]PlanView, error) {
	cacheKey := "plans:catalog:" + collegeID
	if s.cache != nil {
		var cached []PlanView
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	active := true
	views, _, err := s.List(ctx, models.PlanFilter{
		CollegeID: collegeID,
		Active:    &active,
		Page:      1,
		PageSize:  100,
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, views, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache plan catalog", zap.Error(err))
		}
	}
	return views, nil
}

func (s *PlanService) invalidateCatalog(ctx context.Context, collegeID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "plans:catalog:"+collegeID); err != nil {
		s.logger.Warn("failed to invalidate plan catalog cache", zap.Error(err))
	}
}

// Create adds a plan to the college catalog.
func (s *PlanService) Create(ctx context.Context, collegeID string, req PlanRequest) (*PlanView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}
	plan := &models.SubscriptionPlan{
		CollegeID:      collegeID,
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		DurationMonths: req.DurationMonths,
		Features:       req.Features,
		Active:         true,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create plan")
	}
	if req.Default {
		if err := s.repo.SetDefault(ctx, collegeID, plan.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default plan")
		}
		plan.Default = true
	}
	s.invalidateCatalog(ctx, collegeID)
	view := toPlanView(plan)
	return &view, nil
}

// Update rewrites the mutable plan fields.
func (s *PlanService) Update(ctx context.Context, collegeID, id string, req PlanRequest) (*PlanView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}
	current, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}
	plan := current.SubscriptionPlan
	plan.Name = req.Name
	plan.Description = req.Description
	plan.Price = req.Price
	plan.DurationMonths = req.DurationMonths
	plan.Features = req.Features
	if err := s.repo.Update(ctx, &plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update plan")
	}
	if req.Default && !plan.Default {
		if err := s.repo.SetDefault(ctx, plan.CollegeID, plan.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default plan")
		}
		plan.Default = true
	}
	s.invalidateCatalog(ctx, plan.CollegeID)
	view := toPlanView(&plan)
	return &view, nil
}

// SetDefault marks the plan as the college fallback entitlement.
func (s *PlanService) SetDefault(ctx context.Context, collegeID, id string) error {
	plan, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return err
	}
	if !plan.Active {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "inactive plan cannot be the default")
	}
	if err := s.repo.SetDefault(ctx, plan.CollegeID, plan.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default plan")
	}
	s.invalidateCatalog(ctx, plan.CollegeID)
	return nil
}

// SetActive toggles the plan.
func (s *PlanService) SetActive(ctx context.Context, collegeID, id string, active bool) error {
	plan, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return err
	}
	if !active && plan.Default {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "default plan cannot be deactivated")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle plan")
	}
	s.invalidateCatalog(ctx, plan.CollegeID)
	return nil
}

func toPlanView(plan *models.SubscriptionPlan) PlanView {
	return PlanView{
		SubscriptionPlan: *plan,
		PriceText:        plan.FormatPrice(),
		DurationText:     plan.DurationText(),
	}
}
