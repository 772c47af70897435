package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// IncidentHandler records proctoring incidents reported by the exam client
// and surfaces them to administrators.
type IncidentHandler struct {
	service  *service.IncidentService
	students *service.StudentService
}

// NewIncidentHandler creates a new handler.
func NewIncidentHandler(svc *service.IncidentService, students *service.StudentService) *IncidentHandler {
	return &IncidentHandler{service: svc, students: students}
}

// Report godoc
// @Summary Report a security incident
// @Description Beacon endpoint for the exam client. Unknown types are kept, not rejected.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body service.ReportIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope{data=models.SecurityIncident}
// @Router /student/incidents [post]
func (h *IncidentHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.ReportIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid incident payload"))
		return
	}

	incident, err := h.service.Report(c.Request.Context(), student.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}

// List godoc
// @Summary List security incidents
// @Tags Incidents
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param exam_id query string false "Filter by exam"
// @Param type query string false "Filter by incident type"
// @Success 200 {object} response.Envelope
// @Router /admin/incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.IncidentFilter{
		StudentID: c.Query("student_id"),
		ExamID:    c.Query("exam_id"),
		Type:      models.IncidentType(c.Query("type")),
		Page:      page,
		PageSize:  pageSize,
	}

	rows, pagination, err := h.service.List(c.Request.Context(), collegeScope(c, claimsFromContext(c)), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Analytics godoc
// @Summary Incident counts per student for one exam
// @Tags Incidents
// @Produce json
// @Param id path string true "Exam id"
// @Success 200 {object} response.Envelope
// @Router /admin/exams/{id}/incidents [get]
func (h *IncidentHandler) Analytics(c *gin.Context) {
	summary, err := h.service.Analytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
