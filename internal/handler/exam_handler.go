package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// ExamHandler exposes exam and question-bank management endpoints plus
// the student-facing exam list.
type ExamHandler struct {
	service    *service.ExamService
	dashboards *service.DashboardService
	students   *service.StudentService
}

// NewExamHandler creates a new handler.
func NewExamHandler(svc *service.ExamService, dashboards *service.DashboardService, students *service.StudentService) *ExamHandler {
	return &ExamHandler{service: svc, dashboards: dashboards, students: students}
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Param course_id query string false "Filter by course"
// @Param search query string false "Search in title"
// @Param active query bool false "Filter by active flag"
// @Success 200 {object} response.Envelope
// @Router /admin/exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.ExamFilter{
		CollegeID: collegeScope(c, claimsFromContext(c)),
		CourseID:  c.Query("course_id"),
		Search:    c.Query("search"),
		Active:    queryBool(c, "active"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Available godoc
// @Summary Exams available to the current student
// @Description Active exams assigned to the caller's batch, with attempt counts
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/exams [get]
func (h *ExamHandler) Available(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	exams, err := h.dashboards.AvailableExams(c.Request.Context(), student)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// Get godoc
// @Summary Get one exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam id"
// @Success 200 {object} response.Envelope{data=models.Exam}
// @Failure 404 {object} response.Envelope
// @Router /admin/exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.service.Get(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Create godoc
// @Summary Create an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.ExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope{data=models.Exam}
// @Router /admin/exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req service.ExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}

	exam, err := h.service.Create(c.Request.Context(), collegeScope(c, claimsFromContext(c)), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Update godoc
// @Summary Update an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam id"
// @Param payload body service.ExamRequest true "Exam payload"
// @Success 200 {object} response.Envelope{data=models.Exam}
// @Failure 404 {object} response.Envelope
// @Router /admin/exams/{id} [put]
func (h *ExamHandler) Update(c *gin.Context) {
	var req service.ExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}

	exam, err := h.service.Update(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// SetActive godoc
// @Summary Activate or deactivate an exam
// @Tags Exams
// @Accept json
// @Param id path string true "Exam id"
// @Param payload body map[string]bool true "Active flag"
// @Success 204 {object} response.Envelope
// @Router /admin/exams/{id}/active [patch]
func (h *ExamHandler) SetActive(c *gin.Context) {
	var payload struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active flag required"))
		return
	}

	if err := h.service.SetActive(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), *payload.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Questions godoc
// @Summary List an exam's questions with answer keys
// @Tags Exams
// @Produce json
// @Param id path string true "Exam id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/exams/{id}/questions [get]
func (h *ExamHandler) Questions(c *gin.Context) {
	questions, err := h.service.Questions(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// ReplaceQuestions godoc
// @Summary Replace an exam's question set
// @Description Swaps the full question bank in one transaction
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam id"
// @Param payload body service.ReplaceQuestionsRequest true "Question set"
// @Success 200 {object} response.Envelope{data=models.Exam}
// @Failure 404 {object} response.Envelope
// @Router /admin/exams/{id}/questions [put]
func (h *ExamHandler) ReplaceQuestions(c *gin.Context) {
	var req service.ReplaceQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}

	exam, err := h.service.ReplaceQuestions(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}
