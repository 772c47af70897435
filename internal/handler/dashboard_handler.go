package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/service"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// DashboardHandler serves the cached landing-page summaries.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Student godoc
// @Summary Student dashboard
// @Description Subscription state, available exams and recent results for the caller
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope{data=service.StudentDashboard}
// @Router /student/dashboard [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	dashboard, err := h.service.ForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Admin godoc
// @Summary Admin dashboard
// @Description Roster and exam counts for the caller's college
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope{data=service.AdminDashboard}
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	dashboard, err := h.service.ForAdmin(c.Request.Context(), collegeScope(c, claimsFromContext(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}
