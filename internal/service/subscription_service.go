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
	"github.com/examsphere/exam-portal-api/pkg/payment"
)

type subscriptionRepository interface {
	List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentSubscription, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.StudentSubscription, error)
	Create(ctx context.Context, sub *models.StudentSubscription) error
	AttachOrder(ctx context.Context, id, orderID string) error
	Activate(ctx context.Context, id, paymentID string, start, end time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error
	ExpireActiveForPlan(ctx context.Context, studentID, planID, excludeID string) error
}

type subscriptionPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error)
}

type orderGateway interface {
	CreateOrder(ctx context.Context, amountRupees int64, receipt string) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type subscriptionAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PurchaseRequest initiates a plan purchase.
type PurchaseRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// PurchaseResponse carries the gateway order the checkout widget completes.
type PurchaseResponse struct {
	SubscriptionID string `json:"subscription_id"`
	OrderID        string `json:"order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PlanName       string `json:"plan_name"`
}

// ConfirmPurchaseRequest completes a purchase with the gateway callback.
type ConfirmPurchaseRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// SubscriptionService manages the purchase lifecycle of student
// subscriptions.
type SubscriptionService struct {
	repo      subscriptionRepository
	plans     subscriptionPlanReader
	gateway   orderGateway
	audits    subscriptionAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubscriptionService constructs SubscriptionService.
func NewSubscriptionService(repo subscriptionRepository, plans subscriptionPlanReader, gateway orderGateway, audits subscriptionAuditWriter, validate *validator.Validate, logger *zap.Logger) *SubscriptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		repo:      repo,
		plans:     plans,
		gateway:   gateway,
		audits:    audits,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns subscriptions with pagination metadata.
func (s *SubscriptionService) List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, *models.Pagination, error) {
	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscriptions")
	}
	return subs, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Purchase creates a pending subscription backed by a gateway order.
func (s *SubscriptionService) Purchase(ctx context.Context, studentID string, req PurchaseRequest) (*PurchaseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purchase payload")
	}
	plan, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	if !plan.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "plan is no longer offered")
	}

	sub := &models.StudentSubscription{
		StudentID:  studentID,
		PlanID:     plan.ID,
		Status:     models.SubscriptionStatusPending,
		AmountPaid: plan.Price,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subscription")
	}

	order, err := s.gateway.CreateOrder(ctx, plan.Price, sub.ID)
	if err != nil {
		s.logger.Error("gateway order creation failed", zap.String("subscription_id", sub.ID), zap.Error(err))
		if cancelErr := s.repo.UpdateStatus(ctx, sub.ID, models.SubscriptionStatusCancelled); cancelErr != nil {
			s.logger.Warn("failed to cancel orphaned subscription", zap.Error(cancelErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentFailed.Code, appErrors.ErrPaymentFailed.Status, "failed to create payment order")
	}
	if err := s.repo.AttachOrder(ctx, sub.ID, order.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment order")
	}
	sub.OrderID = order.ID

	return &PurchaseResponse{
		SubscriptionID: sub.ID,
		OrderID:        order.ID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		PlanName:       plan.Name,
	}, nil
}

// Confirm completes a purchase: the gateway signature is verified, the
// subscription is activated for the plan duration, and any other active
// subscription for the same plan is expired.
func (s *SubscriptionService) Confirm(ctx context.Context, studentID string, req ConfirmPurchaseRequest) (*models.StudentSubscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	sub, err := s.repo.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if sub.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "order belongs to another student")
	}
	if sub.Status == models.SubscriptionStatusActive {
		return sub, nil
	}
	if sub.Status != models.SubscriptionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "subscription is not awaiting payment")
	}

	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		return nil, appErrors.Clone(appErrors.ErrPaymentFailed, "payment signature verification failed")
	}

	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}

	start := s.now()
	end := start.AddDate(0, plan.DurationMonths, 0)
	if err := s.repo.Activate(ctx, sub.ID, req.PaymentID, start, end); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate subscription")
	}
	if err := s.repo.ExpireActiveForPlan(ctx, sub.StudentID, sub.PlanID, sub.ID); err != nil {
		s.logger.Warn("failed to expire superseded subscriptions", zap.Error(err))
	}

	sub.Status = models.SubscriptionStatusActive
	sub.PaymentID = req.PaymentID
	sub.StartDate = start
	sub.EndDate = end

	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionSubscription,
		Resource:   "subscription",
		ResourceID: &sub.ID,
		NewValues: mustJSON(map[string]string{
			"status":   string(models.SubscriptionStatusActive),
			"order_id": req.OrderID,
		}),
	}); err != nil {
		s.logger.Warn("failed to record subscription audit log", zap.Error(err))
	}
	return sub, nil
}

// History returns a student's own subscriptions, newest first.
func (s *SubscriptionService) History(ctx context.Context, studentID string, page, pageSize int) ([]models.SubscriptionDetail, *models.Pagination, error) {
	return s.List(ctx, models.SubscriptionFilter{StudentID: studentID, Page: page, PageSize: pageSize})
}

// Suspend marks a subscription as suspended (admin action).
func (s *SubscriptionService) Suspend(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, models.SubscriptionStatusSuspended)
}

// Reinstate returns a suspended subscription to active.
func (s *SubscriptionService) Reinstate(ctx context.Context, id string) error {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if sub.Status != models.SubscriptionStatusSuspended {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "subscription is not suspended")
	}
	if sub.EndDate.Before(s.now()) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "subscription has already lapsed")
	}
	return s.setStatus(ctx, id, models.SubscriptionStatusActive)
}

func (s *SubscriptionService) setStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subscription status")
	}
	return nil
}
