package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
)

type entitlementFixture struct {
	students        map[string]*models.Student
	batches         map[string]*models.Batch
	assignments     map[string][]*models.BatchPlanAssignment
	plans           map[string]*models.SubscriptionPlan
	defaults        map[string]*models.SubscriptionPlan
	subscriptions   map[string][]*models.StudentSubscription
	exams           map[string]*models.Exam
	examAssignments map[string]bool
	attemptCounts   map[string]int
}

func (f *entitlementFixture) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureBatches struct{ f *entitlementFixture }

func (m fixtureBatches) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if b, ok := m.f.batches[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureAssignments struct{ f *entitlementFixture }

func (m fixtureAssignments) FindNewestActiveByBatch(ctx context.Context, batchID string) (*models.BatchPlanAssignment, error) {
	list := m.f.assignments[batchID]
	var newest *models.BatchPlanAssignment
	for _, a := range list {
		if !a.Active {
			continue
		}
		if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
			newest = a
		}
	}
	if newest == nil {
		return nil, sql.ErrNoRows
	}
	return newest, nil
}

type fixturePlans struct{ f *entitlementFixture }

func (m fixturePlans) FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	if p, ok := m.f.plans[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m fixturePlans) FindDefaultByCollege(ctx context.Context, collegeID string) (*models.SubscriptionPlan, error) {
	if p, ok := m.f.defaults[collegeID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureSubscriptions struct{ f *entitlementFixture }

func (m fixtureSubscriptions) FindNewestByStudentAndPlan(ctx context.Context, studentID, planID string, statuses ...models.SubscriptionStatus) (*models.StudentSubscription, error) {
	allowed := make(map[models.SubscriptionStatus]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}
	var newest *models.StudentSubscription
	for _, sub := range m.f.subscriptions[studentID] {
		if sub.PlanID != planID || !allowed[sub.Status] {
			continue
		}
		if newest == nil || sub.CreatedAt.After(newest.CreatedAt) {
			newest = sub
		}
	}
	if newest == nil {
		return nil, sql.ErrNoRows
	}
	return newest, nil
}

type fixtureExams struct{ f *entitlementFixture }

func (m fixtureExams) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if e, ok := m.f.exams[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureExamAssignments struct{ f *entitlementFixture }

func (m fixtureExamAssignments) ExistsActive(ctx context.Context, examID, batchID string) (bool, error) {
	return m.f.examAssignments[examID+"/"+batchID], nil
}

type fixtureAttempts struct{ f *entitlementFixture }

func (m fixtureAttempts) CountByStudentAndExam(ctx context.Context, studentID, examID string) (int, error) {
	return m.f.attemptCounts[studentID+"/"+examID], nil
}

func newFixture() *entitlementFixture {
	batchID := "batch-1"
	return &entitlementFixture{
		students: map[string]*models.Student{
			"stu-1": {ID: "stu-1", CollegeID: "col-1", BatchID: &batchID, Active: true},
		},
		batches: map[string]*models.Batch{
			"batch-1": {ID: "batch-1", CollegeID: "col-1", Active: true},
		},
		assignments:     map[string][]*models.BatchPlanAssignment{},
		plans:           map[string]*models.SubscriptionPlan{},
		defaults:        map[string]*models.SubscriptionPlan{},
		subscriptions:   map[string][]*models.StudentSubscription{},
		exams:           map[string]*models.Exam{},
		examAssignments: map[string]bool{},
		attemptCounts:   map[string]int{},
	}
}

func newEntitlementService(f *entitlementFixture, now time.Time) *EntitlementService {
	svc := NewEntitlementService(
		f,
		fixtureBatches{f},
		fixtureAssignments{f},
		fixturePlans{f},
		fixtureSubscriptions{f},
		fixtureExams{f},
		fixtureExamAssignments{f},
		fixtureAttempts{f},
		zap.NewNop(),
	)
	svc.now = func() time.Time { return now }
	return svc
}

func TestEntitlementResolveAllowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.plans["plan-1"] = &models.SubscriptionPlan{ID: "plan-1", CollegeID: "col-1", Active: true}
	f.assignments["batch-1"] = []*models.BatchPlanAssignment{
		{ID: "bpa-1", BatchID: "batch-1", PlanID: "plan-1", Active: true, CreatedAt: now.AddDate(0, -1, 0)},
	}
	f.subscriptions["stu-1"] = []*models.StudentSubscription{
		{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusActive,
			StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 0, 10), CreatedAt: now.AddDate(0, -1, 0)},
	}
	f.exams["exam-1"] = &models.Exam{ID: "exam-1", MaxAttempts: 3, Active: true}
	f.examAssignments["exam-1/batch-1"] = true
	f.attemptCounts["stu-1/exam-1"] = 1

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, models.DecisionAllowed, decision.Kind)
	assert.Equal(t, "plan-1", decision.RequiredPlan.ID)
	assert.Equal(t, "sub-1", decision.Subscription.ID)
	assert.Equal(t, 10, decision.DaysUntilExpiry)
	assert.Equal(t, 1, decision.AttemptsUsed)
	assert.Equal(t, 3, decision.MaxAttempts)
}

func TestEntitlementResolveNoBatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.students["stu-2"] = &models.Student{ID: "stu-2", CollegeID: "col-1", Active: true}

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-2", "exam-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, models.DecisionNoBatchAssigned, decision.Kind)
	assert.Nil(t, decision.RequiredPlan)
	assert.Nil(t, decision.Subscription)
}

func TestEntitlementResolveNoPlan(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionNoPlanAssigned, decision.Kind)
}

func TestEntitlementResolveDefaultPlanFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.defaults["col-1"] = &models.SubscriptionPlan{ID: "plan-def", CollegeID: "col-1", Default: true, Active: true}

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionSubscriptionRequired, decision.Kind)
	require.NotNil(t, decision.RequiredPlan)
	assert.Equal(t, "plan-def", decision.RequiredPlan.ID)
}

func TestEntitlementResolveNewestAssignmentWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.plans["plan-old"] = &models.SubscriptionPlan{ID: "plan-old", CollegeID: "col-1", Active: true}
	f.plans["plan-new"] = &models.SubscriptionPlan{ID: "plan-new", CollegeID: "col-1", Active: true}
	f.assignments["batch-1"] = []*models.BatchPlanAssignment{
		{ID: "bpa-1", BatchID: "batch-1", PlanID: "plan-old", Active: true, CreatedAt: now.AddDate(0, -2, 0)},
		{ID: "bpa-2", BatchID: "batch-1", PlanID: "plan-new", Active: true, CreatedAt: now.AddDate(0, -1, 0)},
	}

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionSubscriptionRequired, decision.Kind)
	require.NotNil(t, decision.RequiredPlan)
	assert.Equal(t, "plan-new", decision.RequiredPlan.ID)
}

func TestEntitlementResolveExpiredByDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.plans["plan-1"] = &models.SubscriptionPlan{ID: "plan-1", CollegeID: "col-1", Active: true}
	f.assignments["batch-1"] = []*models.BatchPlanAssignment{
		{ID: "bpa-1", BatchID: "batch-1", PlanID: "plan-1", Active: true, CreatedAt: now.AddDate(0, -6, 0)},
	}
	// Stored status still says active; the end date has passed.
	f.subscriptions["stu-1"] = []*models.StudentSubscription{
		{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusActive,
			StartDate: now.AddDate(-1, 0, 0), EndDate: now.AddDate(0, 0, -1), CreatedAt: now.AddDate(-1, 0, 0)},
	}

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionExpired, decision.Kind)
	require.NotNil(t, decision.Subscription)
	assert.Equal(t, "sub-1", decision.Subscription.ID)
}

func TestEntitlementResolveSuspended(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.plans["plan-1"] = &models.SubscriptionPlan{ID: "plan-1", CollegeID: "col-1", Active: true}
	f.assignments["batch-1"] = []*models.BatchPlanAssignment{
		{ID: "bpa-1", BatchID: "batch-1", PlanID: "plan-1", Active: true, CreatedAt: now.AddDate(0, -1, 0)},
	}
	f.subscriptions["stu-1"] = []*models.StudentSubscription{
		{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusSuspended,
			StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0), CreatedAt: now.AddDate(0, -1, 0)},
	}

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionSuspended, decision.Kind)
}

func TestEntitlementResolveExamNotAssigned(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.plans["plan-1"] = &models.SubscriptionPlan{ID: "plan-1", CollegeID: "col-1", Active: true}
	f.assignments["batch-1"] = []*models.BatchPlanAssignment{
		{ID: "bpa-1", BatchID: "batch-1", PlanID: "plan-1", Active: true, CreatedAt: now.AddDate(0, -1, 0)},
	}
	f.subscriptions["stu-1"] = []*models.StudentSubscription{
		{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusActive,
			StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0), CreatedAt: now.AddDate(0, -1, 0)},
	}
	f.exams["exam-1"] = &models.Exam{ID: "exam-1", MaxAttempts: 3, Active: true}

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionExamNotAssigned, decision.Kind)
}

func TestEntitlementResolveMaxAttempts(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.plans["plan-1"] = &models.SubscriptionPlan{ID: "plan-1", CollegeID: "col-1", Active: true}
	f.assignments["batch-1"] = []*models.BatchPlanAssignment{
		{ID: "bpa-1", BatchID: "batch-1", PlanID: "plan-1", Active: true, CreatedAt: now.AddDate(0, -1, 0)},
	}
	f.subscriptions["stu-1"] = []*models.StudentSubscription{
		{ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1", Status: models.SubscriptionStatusActive,
			StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0), CreatedAt: now.AddDate(0, -1, 0)},
	}
	f.exams["exam-1"] = &models.Exam{ID: "exam-1", MaxAttempts: 2, Active: true}
	f.examAssignments["exam-1/batch-1"] = true
	f.attemptCounts["stu-1/exam-1"] = 2

	decision, err := newEntitlementService(f, now).Resolve(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionMaxAttemptsReached, decision.Kind)
	assert.Equal(t, 2, decision.AttemptsUsed)
	assert.Equal(t, 2, decision.MaxAttempts)
}

func TestEntitlementGateDeniesWithTypedError(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture()
	f.students["stu-2"] = &models.Student{ID: "stu-2", CollegeID: "col-1", Active: true}

	_, err := newEntitlementService(f, now).Gate(context.Background(), "stu-2", "exam-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no batch assigned")
}
