package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/middleware"
	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
)

type batchPlanRepoMock struct {
	stored     []models.BatchPlanAssignmentDetail
	lastFilter models.BatchPlanAssignmentFilter
}

func (m *batchPlanRepoMock) List(ctx context.Context, filter models.BatchPlanAssignmentFilter) ([]models.BatchPlanAssignmentDetail, int, error) {
	m.lastFilter = filter
	return m.stored, len(m.stored), nil
}

func (m *batchPlanRepoMock) FindByID(ctx context.Context, id string) (*models.BatchPlanAssignment, error) {
	for i := range m.stored {
		if m.stored[i].ID == id {
			return &m.stored[i].BatchPlanAssignment, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *batchPlanRepoMock) ExistsActivePair(ctx context.Context, batchID, planID string) (bool, error) {
	for _, a := range m.stored {
		if a.Active && a.BatchID == batchID && a.PlanID == planID {
			return true, nil
		}
	}
	return false, nil
}

func (m *batchPlanRepoMock) Create(ctx context.Context, assignment *models.BatchPlanAssignment) error {
	assignment.ID = "bpa-1"
	m.stored = append(m.stored, models.BatchPlanAssignmentDetail{
		BatchPlanAssignment: *assignment,
		BatchName:           "2026 Batch",
		PlanName:            "Standard",
	})
	return nil
}

func (m *batchPlanRepoMock) SetActive(ctx context.Context, id string, active bool) error {
	return nil
}

func (m *batchPlanRepoMock) Delete(ctx context.Context, id string) error { return nil }

type batchReaderMock struct{}

func (batchReaderMock) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if id != "batch-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Batch{ID: "batch-1", CollegeID: "college-1", Active: true}, nil
}

type planReaderMock struct{}

func (planReaderMock) FindByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	if id != "plan-1" {
		return nil, sql.ErrNoRows
	}
	return &models.SubscriptionPlan{ID: "plan-1", CollegeID: "college-1", Active: true}, nil
}

type auditSinkMock struct{}

func (auditSinkMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

func adminJSONContext(w *httptest.ResponseRecorder, method, target string, payload interface{}) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	raw, _ := json.Marshal(payload)
	req, _ := http.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	collegeID := "college-1"
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleCollegeAdmin, CollegeID: &collegeID})
	return c
}

func newAssignmentHandlerFixture() (*AssignmentHandler, *batchPlanRepoMock) {
	repo := &batchPlanRepoMock{}
	svc := service.NewBatchAssignmentService(repo, batchReaderMock{}, planReaderMock{}, auditSinkMock{}, nil, nil)
	return NewAssignmentHandler(svc, nil), repo
}

func TestAssignmentHandlerCreateThenList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newAssignmentHandlerFixture()

	w := httptest.NewRecorder()
	c := adminJSONContext(w, http.MethodPost, "/admin/batch-assignments", service.AssignPlanRequest{
		BatchID: "batch-1",
		PlanID:  "plan-1",
		Notes:   "spring intake",
	})
	handler.AssignBatchPlan(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data models.BatchPlanAssignment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "bpa-1", created.Data.ID)
	assert.Equal(t, "college-1", created.Data.CollegeID)
	assert.Equal(t, "admin-1", created.Data.AssignedBy)
	assert.True(t, created.Data.Active)

	w2 := httptest.NewRecorder()
	c2 := adminContext(w2, http.MethodGet, "/admin/batch-assignments?batch_id=batch-1")
	handler.ListBatchPlans(c2)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "college-1", repo.lastFilter.CollegeID)
	assert.Equal(t, "batch-1", repo.lastFilter.BatchID)

	var listed struct {
		Data       []models.BatchPlanAssignmentDetail `json:"data"`
		Pagination *models.Pagination                 `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "bpa-1", listed.Data[0].ID)
	assert.Equal(t, "plan-1", listed.Data[0].PlanID)
	require.NotNil(t, listed.Pagination)
	assert.Equal(t, 1, listed.Pagination.TotalCount)
}

func TestAssignmentHandlerCreateDuplicatePair(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAssignmentHandlerFixture()

	payload := service.AssignPlanRequest{BatchID: "batch-1", PlanID: "plan-1"}
	w := httptest.NewRecorder()
	handler.AssignBatchPlan(adminJSONContext(w, http.MethodPost, "/admin/batch-assignments", payload))
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := httptest.NewRecorder()
	handler.AssignBatchPlan(adminJSONContext(w2, http.MethodPost, "/admin/batch-assignments", payload))
	assert.Equal(t, http.StatusConflict, w2.Code)
}

func TestAssignmentHandlerCreateRejectsMissingPlan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAssignmentHandlerFixture()

	w := httptest.NewRecorder()
	handler.AssignBatchPlan(adminJSONContext(w, http.MethodPost, "/admin/batch-assignments", service.AssignPlanRequest{
		BatchID: "batch-1",
		PlanID:  "plan-missing",
	}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
