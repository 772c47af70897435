package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// ResultHandler exposes result reporting for administrators.
type ResultHandler struct {
	service *service.ResultService
}

// NewResultHandler creates a new handler.
func NewResultHandler(svc *service.ResultService) *ResultHandler {
	return &ResultHandler{service: svc}
}

// List godoc
// @Summary List results
// @Tags Results
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param exam_id query string false "Filter by exam"
// @Param passed query bool false "Filter by outcome"
// @Success 200 {object} response.Envelope
// @Router /admin/results [get]
func (h *ResultHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.ResultFilter{
		StudentID: c.Query("student_id"),
		ExamID:    c.Query("exam_id"),
		Passed:    queryBool(c, "passed"),
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

// Export godoc
// @Summary Export results as CSV
// @Tags Results
// @Produce text/csv
// @Param student_id query string false "Filter by student"
// @Param exam_id query string false "Filter by exam"
// @Success 200 {file} binary
// @Router /admin/results/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	filter := models.ResultFilter{
		StudentID: c.Query("student_id"),
		ExamID:    c.Query("exam_id"),
		Passed:    queryBool(c, "passed"),
	}

	data, filename, err := h.service.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// Stats godoc
// @Summary Pass-rate statistics for one exam
// @Tags Results
// @Produce json
// @Param id path string true "Exam id"
// @Success 200 {object} response.Envelope{data=service.ExamStats}
// @Router /admin/exams/{id}/stats [get]
func (h *ResultHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Best godoc
// @Summary Best attempt of one student on one exam
// @Tags Results
// @Produce json
// @Param id path string true "Exam id"
// @Param studentId path string true "Student id"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Router /admin/exams/{id}/best/{studentId} [get]
func (h *ResultHandler) Best(c *gin.Context) {
	best, err := h.service.Best(c.Request.Context(), c.Param("studentId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, best, nil)
}
