package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// PlanHandler exposes subscription plan endpoints: admin CRUD plus the
// student-facing catalog.
type PlanHandler struct {
	service  *service.PlanService
	students *service.StudentService
}

// NewPlanHandler creates a new handler.
func NewPlanHandler(svc *service.PlanService, students *service.StudentService) *PlanHandler {
	return &PlanHandler{service: svc, students: students}
}

// List godoc
// @Summary List plans
// @Tags Plans
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.PlanFilter{
		CollegeID: collegeScope(c, claimsFromContext(c)),
		Search:    c.Query("search"),
		Active:    queryBool(c, "active"),
		Default:   queryBool(c, "default"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	plans, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, pagination)
}

// Catalog godoc
// @Summary Plan catalog for the current student
// @Description Active plans of the student's college, priced for display
// @Tags Plans
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/plans [get]
func (h *PlanHandler) Catalog(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	plans, err := h.service.Catalog(c.Request.Context(), student.CollegeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Get godoc
// @Summary Get plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Create godoc
// @Summary Create plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body service.PlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Router /admin/plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	var req service.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}

	plan, err := h.service.Create(c.Request.Context(), collegeScope(c, claimsFromContext(c)), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Update godoc
// @Summary Update plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan id"
// @Param payload body service.PlanRequest true "Plan payload"
// @Success 200 {object} response.Envelope
// @Router /admin/plans/{id} [put]
func (h *PlanHandler) Update(c *gin.Context) {
	var req service.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}

	plan, err := h.service.Update(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// SetDefault godoc
// @Summary Mark plan as the college default
// @Tags Plans
// @Produce json
// @Param id path string true "Plan id"
// @Success 204 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/plans/{id}/default [post]
func (h *PlanHandler) SetDefault(c *gin.Context) {
	if err := h.service.SetDefault(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetActive godoc
// @Summary Activate or deactivate plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan id"
// @Param payload body map[string]bool true "Active flag"
// @Success 204 {object} response.Envelope
// @Router /admin/plans/{id}/active [patch]
func (h *PlanHandler) SetActive(c *gin.Context) {
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
