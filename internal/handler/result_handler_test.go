package handler

import (
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

type resultRepoMock struct {
	rows       []models.ResultDetail
	total      int
	listErr    error
	best       *models.Result
	bestErr    error
	statTotal  int
	statPassed int
	lastFilter models.ResultFilter
}

func (m *resultRepoMock) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, int, error) {
	m.lastFilter = filter
	return m.rows, m.total, m.listErr
}

func (m *resultRepoMock) BestByStudentAndExam(ctx context.Context, studentID, examID string) (*models.Result, error) {
	return m.best, m.bestErr
}

func (m *resultRepoMock) PassRateByExam(ctx context.Context, examID string) (int, int, error) {
	return m.statTotal, m.statPassed, nil
}

func adminContext(w *httptest.ResponseRecorder, method, target string) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, nil)
	c.Request = req
	collegeID := "college-1"
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleCollegeAdmin, CollegeID: &collegeID})
	return c
}

func TestResultHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &resultRepoMock{
		rows:  []models.ResultDetail{{Result: models.Result{ID: "res-1", ExamID: "exam-1", Passed: true}}},
		total: 1,
	}
	handler := NewResultHandler(service.NewResultService(repo, nil))

	w := httptest.NewRecorder()
	c := adminContext(w, http.MethodGet, "/admin/results?exam_id=exam-1&passed=true&page=2")

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "exam-1", repo.lastFilter.ExamID)
	require.NotNil(t, repo.lastFilter.Passed)
	assert.True(t, *repo.lastFilter.Passed)
	assert.Equal(t, 2, repo.lastFilter.Page)

	var body struct {
		Data       []models.ResultDetail `json:"data"`
		Pagination *models.Pagination    `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "res-1", body.Data[0].ID)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 1, body.Pagination.TotalCount)
}

func TestResultHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &resultRepoMock{statTotal: 4, statPassed: 3}
	handler := NewResultHandler(service.NewResultService(repo, nil))

	w := httptest.NewRecorder()
	c := adminContext(w, http.MethodGet, "/admin/exams/exam-1/stats")
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data service.ExamStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "exam-1", body.Data.ExamID)
	assert.Equal(t, 4, body.Data.Total)
	assert.InDelta(t, 75.0, body.Data.PassRate, 0.001)
}

func TestResultHandlerBestNoAttempts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &resultRepoMock{bestErr: sql.ErrNoRows}
	handler := NewResultHandler(service.NewResultService(repo, nil))

	w := httptest.NewRecorder()
	c := adminContext(w, http.MethodGet, "/admin/exams/exam-1/best/stu-1")
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}, {Key: "studentId", Value: "stu-1"}}

	handler.Best(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data *models.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Data)
}
