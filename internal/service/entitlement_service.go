package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type entitlementStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type entitlementBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type entitlementAssignmentReader interface {
	FindNewestActiveByBatch(ctx context.Context, batchID string) (*models.BatchPlanAssignment, error)
}

type entitlementPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error)
	FindDefaultByCollege(ctx context.Context, collegeID string) (*models.SubscriptionPlan, error)
}

type entitlementSubscriptionReader interface {
	FindNewestByStudentAndPlan(ctx context.Context, studentID, planID string, statuses ...models.SubscriptionStatus) (*models.StudentSubscription, error)
}

type entitlementExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type entitlementExamAssignmentReader interface {
	ExistsActive(ctx context.Context, examID, batchID string) (bool, error)
}

type entitlementAttemptCounter interface {
	CountByStudentAndExam(ctx context.Context, studentID, examID string) (int, error)
}

// EntitlementService answers "can student S attempt exam E right now?".
// The checks run in a fixed order so each denial reports the first broken
// link in the chain, not an arbitrary one.
type EntitlementService struct {
	students        entitlementStudentReader
	batches         entitlementBatchReader
	assignments     entitlementAssignmentReader
	plans           entitlementPlanReader
	subscriptions   entitlementSubscriptionReader
	exams           entitlementExamReader
	examAssignments entitlementExamAssignmentReader
	attempts        entitlementAttemptCounter
	now             func() time.Time
	logger          *zap.Logger
}

// NewEntitlementService constructs EntitlementService.
func NewEntitlementService(
	students entitlementStudentReader,
	batches entitlementBatchReader,
	assignments entitlementAssignmentReader,
	plans entitlementPlanReader,
	subscriptions entitlementSubscriptionReader,
	exams entitlementExamReader,
	examAssignments entitlementExamAssignmentReader,
	attempts entitlementAttemptCounter,
	logger *zap.Logger,
) *EntitlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntitlementService{
		students:        students,
		batches:         batches,
		assignments:     assignments,
		plans:           plans,
		subscriptions:   subscriptions,
		exams:           exams,
		examAssignments: examAssignments,
		attempts:        attempts,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logger,
	}
}

// Resolve walks the entitlement chain: student → batch → plan → subscription
// → exam assignment → attempt budget. The first broken link decides.
func (s *EntitlementService) Resolve(ctx context.Context, studentID, examID string) (*models.Decision, error) {
	now := s.now()

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return deny(models.DecisionNotFound, "student not found"), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.BatchID == nil || *student.BatchID == "" {
		return deny(models.DecisionNoBatchAssigned, "no batch assigned, contact your administrator"), nil
	}

	batch, err := s.batches.FindByID(ctx, *student.BatchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return deny(models.DecisionNotFound, "batch not found"), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	plan, err := s.requiredPlan(ctx, batch)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return deny(models.DecisionNoPlanAssigned, "no subscription plan configured for your batch, contact your administrator"), nil
	}

	sub, err := s.subscriptions.FindNewestByStudentAndPlan(ctx, studentID, plan.ID,
		models.SubscriptionStatusActive, models.SubscriptionStatusSuspended)
	if err != nil {
		if err == sql.ErrNoRows {
			d := deny(models.DecisionSubscriptionRequired, "an active subscription is required")
			d.RequiredPlan = plan
			return d, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if sub.Status == models.SubscriptionStatusSuspended {
		d := deny(models.DecisionSuspended, "your account is suspended")
		d.Subscription = sub
		return d, nil
	}
	// The stored status can lag behind the clock, so expiry is derived from
	// the end date every time.
	if sub.EndDate.Before(now) {
		d := deny(models.DecisionExpired, "your subscription has expired")
		d.RequiredPlan = plan
		d.Subscription = sub
		return d, nil
	}
	daysLeft := sub.DaysUntilExpiry(now)

	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if err == sql.ErrNoRows {
			return deny(models.DecisionNotFound, "exam not found"), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	assigned, err := s.examAssignments.ExistsActive(ctx, examID, batch.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check exam assignment")
	}
	if !assigned {
		return deny(models.DecisionExamNotAssigned, "this exam is not assigned to your batch"), nil
	}

	used, err := s.attempts.CountByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attempts")
	}
	if exam.MaxAttempts > 0 && used >= exam.MaxAttempts {
		d := deny(models.DecisionMaxAttemptsReached, "maximum attempts reached for this exam")
		d.AttemptsUsed = used
		d.MaxAttempts = exam.MaxAttempts
		return d, nil
	}

	return &models.Decision{
		Kind:            models.DecisionAllowed,
		Allowed:         true,
		Message:         "allowed",
		RequiredPlan:    plan,
		Subscription:    sub,
		DaysUntilExpiry: daysLeft,
		AttemptsUsed:    used,
		MaxAttempts:     exam.MaxAttempts,
	}, nil
}

// Snapshot resolves the subscription side of the chain without an exam:
// which plan the student's batch requires, the newest subscription against
// it, and how that subscription stands right now. The dashboard renders
// from this.
func (s *EntitlementService) Snapshot(ctx context.Context, student *models.Student) (*models.SubscriptionSnapshot, error) {
	now := s.now()
	snap := &models.SubscriptionSnapshot{State: models.SubscriptionStateNoBatch}

	if student.BatchID == nil || *student.BatchID == "" {
		return snap, nil
	}
	batch, err := s.batches.FindByID(ctx, *student.BatchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return snap, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	plan, err := s.requiredPlan(ctx, batch)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		snap.State = models.SubscriptionStateNoPlan
		return snap, nil
	}
	snap.RequiredPlan = plan

	sub, err := s.subscriptions.FindNewestByStudentAndPlan(ctx, student.ID, plan.ID,
		models.SubscriptionStatusActive, models.SubscriptionStatusSuspended)
	if err != nil {
		if err == sql.ErrNoRows {
			snap.State = models.SubscriptionStateRequired
			return snap, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	snap.Subscription = sub

	switch {
	case sub.Status == models.SubscriptionStatusSuspended:
		snap.State = models.SubscriptionStateSuspended
	case sub.EndDate.Before(now):
		snap.State = models.SubscriptionStateExpired
	default:
		snap.State = models.SubscriptionStateActive
		snap.DaysUntilExpiry = sub.DaysUntilExpiry(now)
	}
	return snap, nil
}

// Gate is the hard version of Resolve for the attempt-start path: denials
// surface as typed errors instead of a decision payload.
func (s *EntitlementService) Gate(ctx context.Context, studentID, examID string) (*models.Decision, error) {
	decision, err := s.Resolve(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if decision.Allowed {
		return decision, nil
	}
	switch decision.Kind {
	case models.DecisionNotFound:
		return nil, appErrors.Clone(appErrors.ErrNotFound, decision.Message)
	case models.DecisionNoBatchAssigned:
		return nil, appErrors.Clone(appErrors.ErrNoBatchAssigned, "")
	case models.DecisionNoPlanAssigned:
		return nil, appErrors.Clone(appErrors.ErrNoPlanAssigned, "")
	case models.DecisionSubscriptionRequired:
		return nil, appErrors.Clone(appErrors.ErrSubscriptionRequired, "")
	case models.DecisionExpired:
		return nil, appErrors.Clone(appErrors.ErrSubscriptionExpired, "")
	case models.DecisionSuspended:
		return nil, appErrors.Clone(appErrors.ErrAccountSuspended, "")
	case models.DecisionExamNotAssigned:
		return nil, appErrors.Clone(appErrors.ErrExamNotAssigned, "")
	case models.DecisionMaxAttemptsReached:
		return nil, appErrors.Clone(appErrors.ErrMaxAttemptsReached, "")
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Message)
	}
}

// requiredPlan resolves the plan a batch is entitled through: the newest
// active batch assignment wins, falling back to the college default.
func (s *EntitlementService) requiredPlan(ctx context.Context, batch *models.Batch) (*models.SubscriptionPlan, error) {
	assignment, err := s.assignments.FindNewestActiveByBatch(ctx, batch.ID)
	if err == nil {
		plan, perr := s.plans.FindByID(ctx, assignment.PlanID)
		if perr == nil {
			return plan, nil
		}
		if perr != sql.ErrNoRows {
			return nil, appErrors.Wrap(perr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
		}
		s.logger.Warn("batch assignment points at a missing plan",
			zap.String("batch_id", batch.ID), zap.String("plan_id", assignment.PlanID))
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch assignment")
	}

	plan, err := s.plans.FindDefaultByCollege(ctx, batch.CollegeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default plan")
	}
	return plan, nil
}

func deny(kind models.DecisionKind, message string) *models.Decision {
	return &models.Decision{Kind: kind, Allowed: false, Message: message}
}
