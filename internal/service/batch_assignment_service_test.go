package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]*models.BatchPlanAssignment
	activePairs map[string]bool
	created     *models.BatchPlanAssignment
	deleted     []string
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.BatchPlanAssignmentFilter) ([]models.BatchPlanAssignmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.BatchPlanAssignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ExistsActivePair(ctx context.Context, batchID, planID string) (bool, error) {
	return m.activePairs[batchID+"/"+planID], nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.BatchPlanAssignment) error {
	assignment.ID = "bpa-new"
	m.created = assignment
	return nil
}

func (m *mockAssignmentRepo) SetActive(ctx context.Context, id string, active bool) error {
	if a, ok := m.assignments[id]; ok {
		a.Active = active
	}
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAssignmentBatches struct {
	batches map[string]*models.Batch
}

func (m *mockAssignmentBatches) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if b, ok := m.batches[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

type mockAssignmentPlans struct {
	plans map[string]*models.SubscriptionPlan
}

func (m *mockAssignmentPlans) FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	if p, ok := m.plans[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditWriter struct {
	logs []*models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newAssignmentService(repo *mockAssignmentRepo) (*BatchAssignmentService, *mockAuditWriter) {
	batches := &mockAssignmentBatches{batches: map[string]*models.Batch{
		"batch-1":        {ID: "batch-1", CollegeID: "col-1", Active: true},
		"batch-frozen":   {ID: "batch-frozen", CollegeID: "col-1", Active: false},
		"batch-external": {ID: "batch-external", CollegeID: "col-2", Active: true},
	}}
	plans := &mockAssignmentPlans{plans: map[string]*models.SubscriptionPlan{
		"plan-1":      {ID: "plan-1", CollegeID: "col-1", Active: true},
		"plan-closed": {ID: "plan-closed", CollegeID: "col-1", Active: false},
	}}
	audits := &mockAuditWriter{}
	return NewBatchAssignmentService(repo, batches, plans, audits, validator.New(), zap.NewNop()), audits
}

func TestBatchAssignmentServiceAssign(t *testing.T) {
	repo := &mockAssignmentRepo{activePairs: map[string]bool{}}
	svc, audits := newAssignmentService(repo)

	assignment, err := svc.Assign(context.Background(), "col-1", "admin-1", AssignPlanRequest{BatchID: "batch-1", PlanID: "plan-1"})
	require.NoError(t, err)
	assert.Equal(t, "col-1", assignment.CollegeID)
	assert.True(t, assignment.Active)
	assert.NotNil(t, repo.created)
	assert.Len(t, audits.logs, 1)
}

func TestBatchAssignmentServiceAssignDuplicatePair(t *testing.T) {
	repo := &mockAssignmentRepo{activePairs: map[string]bool{"batch-1/plan-1": true}}
	svc, _ := newAssignmentService(repo)

	_, err := svc.Assign(context.Background(), "col-1", "admin-1", AssignPlanRequest{BatchID: "batch-1", PlanID: "plan-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestBatchAssignmentServiceAssignInactiveBatch(t *testing.T) {
	repo := &mockAssignmentRepo{activePairs: map[string]bool{}}
	svc, _ := newAssignmentService(repo)

	_, err := svc.Assign(context.Background(), "col-1", "admin-1", AssignPlanRequest{BatchID: "batch-frozen", PlanID: "plan-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestBatchAssignmentServiceAssignInactivePlan(t *testing.T) {
	repo := &mockAssignmentRepo{activePairs: map[string]bool{}}
	svc, _ := newAssignmentService(repo)

	_, err := svc.Assign(context.Background(), "col-1", "admin-1", AssignPlanRequest{BatchID: "batch-1", PlanID: "plan-closed"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestBatchAssignmentServiceAssignCrossTenant(t *testing.T) {
	repo := &mockAssignmentRepo{activePairs: map[string]bool{}}
	svc, _ := newAssignmentService(repo)

	_, err := svc.Assign(context.Background(), "col-1", "admin-1", AssignPlanRequest{BatchID: "batch-external", PlanID: "plan-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBatchAssignmentServiceDelete(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]*models.BatchPlanAssignment{
		"bpa-1": {ID: "bpa-1", CollegeID: "col-1", BatchID: "batch-1", PlanID: "plan-1", Active: true},
	}}
	svc, _ := newAssignmentService(repo)

	require.NoError(t, svc.Delete(context.Background(), "col-1", "bpa-1"))
	assert.Contains(t, repo.deleted, "bpa-1")

	err := svc.Delete(context.Background(), "col-2", "bpa-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBatchAssignmentAuditPayloadIsValidJSON(t *testing.T) {
	awkwardID := `batch-"2026"`
	repo := &mockAssignmentRepo{activePairs: map[string]bool{}}
	batches := &mockAssignmentBatches{batches: map[string]*models.Batch{
		awkwardID: {ID: awkwardID, CollegeID: "col-1", Active: true},
	}}
	plans := &mockAssignmentPlans{plans: map[string]*models.SubscriptionPlan{
		"plan-1": {ID: "plan-1", CollegeID: "col-1", Active: true},
	}}
	audits := &mockAuditWriter{}
	svc := NewBatchAssignmentService(repo, batches, plans, audits, validator.New(), zap.NewNop())

	_, err := svc.Assign(context.Background(), "col-1", "admin-1", AssignPlanRequest{BatchID: awkwardID, PlanID: "plan-1"})
	require.NoError(t, err)
	require.Len(t, audits.logs, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(audits.logs[0].NewValues, &payload))
	assert.Equal(t, awkwardID, payload["batch_id"])
	assert.Equal(t, "plan-1", payload["plan_id"])
}
