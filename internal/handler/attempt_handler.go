package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/metrics"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// AttemptHandler exposes the exam-taking flow for students.
type AttemptHandler struct {
	service  *service.AttemptService
	students *service.StudentService
	metrics  *metrics.Metrics
}

// NewAttemptHandler creates a new handler.
func NewAttemptHandler(svc *service.AttemptService, students *service.StudentService, m *metrics.Metrics) *AttemptHandler {
	return &AttemptHandler{service: svc, students: students, metrics: m}
}

func (h *AttemptHandler) currentStudent(c *gin.Context) (*models.Student, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return student, true
}

// Start godoc
// @Summary Start an exam attempt
// @Description Runs the access gate, then returns the question paper with answer keys stripped
// @Tags Attempts
// @Produce json
// @Param examId path string true "Exam id"
// @Success 200 {object} response.Envelope{data=service.AttemptPaper}
// @Failure 402 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /student/exams/{examId}/attempt [post]
func (h *AttemptHandler) Start(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	paper, err := h.service.Start(c.Request.Context(), student.ID, c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordAttemptStart()
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Submit godoc
// @Summary Submit an attempt for grading
// @Tags Attempts
// @Accept json
// @Produce json
// @Param payload body service.SubmitAttemptRequest true "Answer sheet"
// @Success 201 {object} response.Envelope{data=models.Result}
// @Failure 403 {object} response.Envelope
// @Router /student/attempts [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	var req service.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer sheet"))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), student.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordAttemptSubmit(result.Passed)
	}
	response.Created(c, result)
}

// History godoc
// @Summary List the caller's results
// @Tags Attempts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/results [get]
func (h *AttemptHandler) History(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	results, err := h.service.History(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Get godoc
// @Summary Get one of the caller's results
// @Tags Attempts
// @Produce json
// @Param id path string true "Result id"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Failure 404 {object} response.Envelope
// @Router /student/results/{id} [get]
func (h *AttemptHandler) Get(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	result, err := h.service.Get(c.Request.Context(), student.ID, c.Param("id"), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
