package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/payment"
)

type mockSubscriptionRepo struct {
	subs       map[string]*models.StudentSubscription
	byOrder    map[string]*models.StudentSubscription
	activated  map[string]time.Time
	expiredFor []string
}

func (m *mockSubscriptionRepo) List(ctx context.Context, filter models.SubscriptionFilter) ([]models.SubscriptionDetail, int, error) {
	return nil, 0, nil
}

func (m *mockSubscriptionRepo) FindByID(ctx context.Context, id string) (*models.StudentSubscription, error) {
	if s, ok := m.subs[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubscriptionRepo) FindByOrderID(ctx context.Context, orderID string) (*models.StudentSubscription, error) {
	if s, ok := m.byOrder[orderID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, sub *models.StudentSubscription) error {
	if sub.ID == "" {
		sub.ID = "sub-new"
	}
	sub.Status = models.SubscriptionStatusPending
	if m.subs == nil {
		m.subs = map[string]*models.StudentSubscription{}
	}
	m.subs[sub.ID] = sub
	return nil
}

func (m *mockSubscriptionRepo) AttachOrder(ctx context.Context, id, orderID string) error {
	if m.byOrder == nil {
		m.byOrder = map[string]*models.StudentSubscription{}
	}
	if s, ok := m.subs[id]; ok {
		s.OrderID = orderID
		m.byOrder[orderID] = s
	}
	return nil
}

func (m *mockSubscriptionRepo) Activate(ctx context.Context, id, paymentID string, start, end time.Time) error {
	if m.activated == nil {
		m.activated = map[string]time.Time{}
	}
	m.activated[id] = end
	if s, ok := m.subs[id]; ok {
		s.Status = models.SubscriptionStatusActive
		s.PaymentID = paymentID
		s.StartDate = start
		s.EndDate = end
	}
	return nil
}

func (m *mockSubscriptionRepo) UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	if s, ok := m.subs[id]; ok {
		s.Status = status
	}
	return nil
}

func (m *mockSubscriptionRepo) ExpireActiveForPlan(ctx context.Context, studentID, planID, excludeID string) error {
	m.expiredFor = append(m.expiredFor, studentID+"/"+planID+"/"+excludeID)
	return nil
}

type mockGateway struct {
	secret string
	orders int
	fail   bool
}

func (m *mockGateway) CreateOrder(ctx context.Context, amountRupees int64, receipt string) (*payment.Order, error) {
	if m.fail {
		return nil, assert.AnError
	}
	m.orders++
	return &payment.Order{ID: "order-1", Amount: amountRupees * 100, Currency: "INR", Receipt: receipt, Status: "created"}, nil
}

func (m *mockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(m.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil)) == signature
}

func signOrder(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newSubscriptionService(repo *mockSubscriptionRepo, gw *mockGateway) *SubscriptionService {
	plans := &mockAssignmentPlans{plans: map[string]*models.SubscriptionPlan{
		"plan-1": {ID: "plan-1", CollegeID: "col-1", Name: "Standard", Price: 1000, DurationMonths: 12, Active: true},
	}}
	svc := NewSubscriptionService(repo, plans, gw, &mockAuditWriter{}, validator.New(), zap.NewNop())
	return svc
}

func TestSubscriptionPurchaseCreatesOrder(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	gw := &mockGateway{secret: "s3cret"}
	svc := newSubscriptionService(repo, gw)

	resp, err := svc.Purchase(context.Background(), "stu-1", PurchaseRequest{PlanID: "plan-1"})
	require.NoError(t, err)
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, int64(100000), resp.Amount)
	assert.Equal(t, 1, gw.orders)
	require.Contains(t, repo.byOrder, "order-1")
	assert.Equal(t, models.SubscriptionStatusPending, repo.byOrder["order-1"].Status)
}

func TestSubscriptionPurchaseGatewayFailureCancels(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	gw := &mockGateway{secret: "s3cret", fail: true}
	svc := newSubscriptionService(repo, gw)

	_, err := svc.Purchase(context.Background(), "stu-1", PurchaseRequest{PlanID: "plan-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPaymentFailed.Code, appErrors.FromError(err).Code)
	require.Contains(t, repo.subs, "sub-new")
	assert.Equal(t, models.SubscriptionStatusCancelled, repo.subs["sub-new"].Status)
}

func TestSubscriptionConfirmActivates(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sub := &models.StudentSubscription{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusPending, OrderID: "order-1"}
	repo := &mockSubscriptionRepo{
		subs:    map[string]*models.StudentSubscription{"sub-1": sub},
		byOrder: map[string]*models.StudentSubscription{"order-1": sub},
	}
	gw := &mockGateway{secret: "s3cret"}
	svc := newSubscriptionService(repo, gw)
	svc.now = func() time.Time { return now }

	confirmed, err := svc.Confirm(context.Background(), "stu-1", ConfirmPurchaseRequest{
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: signOrder("s3cret", "order-1", "pay-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, confirmed.Status)
	assert.Equal(t, now, confirmed.StartDate)
	assert.Equal(t, now.AddDate(0, 12, 0), confirmed.EndDate)
	assert.Contains(t, repo.expiredFor, "stu-1/plan-1/sub-1")
}

func TestSubscriptionConfirmAuditPayloadIsValidJSON(t *testing.T) {
	sub := &models.StudentSubscription{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusPending, OrderID: "order-1"}
	repo := &mockSubscriptionRepo{
		subs:    map[string]*models.StudentSubscription{"sub-1": sub},
		byOrder: map[string]*models.StudentSubscription{"order-1": sub},
	}
	gw := &mockGateway{secret: "s3cret"}
	plans := &mockAssignmentPlans{plans: map[string]*models.SubscriptionPlan{
		"plan-1": {ID: "plan-1", CollegeID: "col-1", Name: "Standard", Price: 1000, DurationMonths: 12, Active: true},
	}}
	audits := &mockAuditWriter{}
	svc := NewSubscriptionService(repo, plans, gw, audits, validator.New(), zap.NewNop())

	_, err := svc.Confirm(context.Background(), "stu-1", ConfirmPurchaseRequest{
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: signOrder("s3cret", "order-1", "pay-1"),
	})
	require.NoError(t, err)
	require.Len(t, audits.logs, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(audits.logs[0].NewValues, &payload))
	assert.Equal(t, "ACTIVE", payload["status"])
	assert.Equal(t, "order-1", payload["order_id"])
}

func TestSubscriptionConfirmRejectsBadSignature(t *testing.T) {
	sub := &models.StudentSubscription{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusPending, OrderID: "order-1"}
	repo := &mockSubscriptionRepo{
		subs:    map[string]*models.StudentSubscription{"sub-1": sub},
		byOrder: map[string]*models.StudentSubscription{"order-1": sub},
	}
	svc := newSubscriptionService(repo, &mockGateway{secret: "s3cret"})

	_, err := svc.Confirm(context.Background(), "stu-1", ConfirmPurchaseRequest{
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: "forged",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPaymentFailed.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.SubscriptionStatusPending, sub.Status)
}

func TestSubscriptionConfirmWrongStudent(t *testing.T) {
	sub := &models.StudentSubscription{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusPending, OrderID: "order-1"}
	repo := &mockSubscriptionRepo{
		subs:    map[string]*models.StudentSubscription{"sub-1": sub},
		byOrder: map[string]*models.StudentSubscription{"order-1": sub},
	}
	svc := newSubscriptionService(repo, &mockGateway{secret: "s3cret"})

	_, err := svc.Confirm(context.Background(), "stu-2", ConfirmPurchaseRequest{
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: signOrder("s3cret", "order-1", "pay-1"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
