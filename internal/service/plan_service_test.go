package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type mockPlanRepo struct {
	plans     map[string]*models.SubscriptionPlan
	listCalls int
}

func (m *mockPlanRepo) List(ctx context.Context, filter models.PlanFilter) ([]models.SubscriptionPlan, int, error) {
	m.listCalls++
	var out []models.SubscriptionPlan
	for _, p := range m.plans {
		if filter.CollegeID != "" && p.CollegeID != filter.CollegeID {
			continue
		}
		if filter.Active != nil && p.Active != *filter.Active {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockPlanRepo) FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	if p, ok := m.plans[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPlanRepo) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	plan.ID = "plan-new"
	m.plans[plan.ID] = plan
	return nil
}

func (m *mockPlanRepo) Update(ctx context.Context, plan *models.SubscriptionPlan) error {
	m.plans[plan.ID] = plan
	return nil
}

func (m *mockPlanRepo) SetDefault(ctx context.Context, collegeID, planID string) error {
	for _, p := range m.plans {
		if p.CollegeID == collegeID {
			p.Default = p.ID == planID
		}
	}
	return nil
}

func (m *mockPlanRepo) SetActive(ctx context.Context, id string, active bool) error {
	if p, ok := m.plans[id]; ok {
		p.Active = active
	}
	return nil
}

type mockCatalogCache struct {
	store   map[string][]byte
	deleted []string
}

func newMockCatalogCache() *mockCatalogCache {
	return &mockCatalogCache{store: map[string][]byte{}}
}

func (m *mockCatalogCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCatalogCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *mockCatalogCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	for key := range m.store {
		if strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
			delete(m.store, key)
		}
	}
	return nil
}

func newPlanFixture() (*PlanService, *mockPlanRepo, *mockCatalogCache) {
	repo := &mockPlanRepo{plans: map[string]*models.SubscriptionPlan{
		"plan-1": {ID: "plan-1", CollegeID: "college-1", Name: "Semester", Price: 499, DurationMonths: 6, Active: true, Default: true},
		"plan-2": {ID: "plan-2", CollegeID: "college-1", Name: "Annual", Price: 899, DurationMonths: 12, Active: true},
		"plan-3": {ID: "plan-3", CollegeID: "college-1", Name: "Retired", Price: 99, DurationMonths: 1, Active: false},
	}}
	cache := newMockCatalogCache()
	return NewPlanService(repo, cache, time.Minute, nil, nil), repo, cache
}

func TestPlanCatalogServedFromCache(t *testing.T) {
	svc, repo, _ := newPlanFixture()

	first, err := svc.Catalog(context.Background(), "college-1")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, repo.listCalls)

	second, err := svc.Catalog(context.Background(), "college-1")
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, repo.listCalls, "warm cache should not hit the repository")
}

func TestPlanCatalogRendersDisplayText(t *testing.T) {
	svc, _, _ := newPlanFixture()

	plans, err := svc.Catalog(context.Background(), "college-1")
	require.NoError(t, err)
	for _, p := range plans {
		assert.NotEmpty(t, p.PriceText)
		assert.NotEmpty(t, p.DurationText)
	}
}

func TestPlanMutationInvalidatesCatalog(t *testing.T) {
	svc, repo, cache := newPlanFixture()

	_, err := svc.Catalog(context.Background(), "college-1")
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)

	_, err = svc.Create(context.Background(), "college-1", PlanRequest{
		Name: "Monthly", Price: 149, DurationMonths: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cache.deleted)

	plans, err := svc.Catalog(context.Background(), "college-1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls, "invalidation should force a reload")
	assert.Len(t, plans, 3)
}

func TestPlanSetActiveRejectsDefaultPlan(t *testing.T) {
	svc, _, _ := newPlanFixture()

	err := svc.SetActive(context.Background(), "college-1", "plan-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlanSetDefaultRejectsInactivePlan(t *testing.T) {
	svc, _, _ := newPlanFixture()

	err := svc.SetDefault(context.Background(), "college-1", "plan-3")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlanGetEnforcesCollegeScope(t *testing.T) {
	svc, _, _ := newPlanFixture()

	_, err := svc.Get(context.Background(), "college-2", "plan-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
