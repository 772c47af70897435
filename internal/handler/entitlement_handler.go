package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/service"
	"github.com/examsphere/exam-portal-api/pkg/metrics"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// EntitlementHandler answers "can I take this exam right now?" for the
// student client. Denials come back as 200 responses carrying the decision
// so the UI can render the next action without special-casing errors.
type EntitlementHandler struct {
	service  *service.EntitlementService
	students *service.StudentService
	metrics  *metrics.Metrics
}

// NewEntitlementHandler creates a new handler.
func NewEntitlementHandler(svc *service.EntitlementService, students *service.StudentService, m *metrics.Metrics) *EntitlementHandler {
	return &EntitlementHandler{service: svc, students: students, metrics: m}
}

// Resolve godoc
// @Summary Check exam access for the caller
// @Description Returns the access decision for one exam. Always 200; denials are in the body.
// @Tags Entitlements
// @Produce json
// @Param examId path string true "Exam id"
// @Success 200 {object} response.Envelope{data=models.Decision}
// @Router /student/exams/{examId}/access [get]
func (h *EntitlementHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	decision, err := h.service.Resolve(c.Request.Context(), student.ID, c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordDecision(string(decision.Kind))
	}
	response.JSON(c, http.StatusOK, decision, nil)
}
