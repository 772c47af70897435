package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// CollegeHandler exposes tenant management endpoints.
type CollegeHandler struct {
	service *service.CollegeService
}

// NewCollegeHandler creates a new handler.
func NewCollegeHandler(svc *service.CollegeService) *CollegeHandler {
	return &CollegeHandler{service: svc}
}

// List godoc
// @Summary List colleges
// @Tags Colleges
// @Produce json
// @Param search query string false "Search by name or code"
// @Param active query bool false "Filter by active flag"
// @Success 200 {object} response.Envelope
// @Router /admin/colleges [get]
func (h *CollegeHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.CollegeFilter{
		Search:    c.Query("search"),
		Active:    queryBool(c, "active"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	colleges, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, colleges, pagination)
}

// Get godoc
// @Summary Get college
// @Tags Colleges
// @Produce json
// @Param id path string true "College id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/colleges/{id} [get]
func (h *CollegeHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	id := c.Param("id")
	if claims != nil && claims.Role != models.RoleSuperAdmin {
		if claims.CollegeID == nil || *claims.CollegeID != id {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	college, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}

// Create godoc
// @Summary Create college
// @Tags Colleges
// @Accept json
// @Produce json
// @Param payload body service.CreateCollegeRequest true "College payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/colleges [post]
func (h *CollegeHandler) Create(c *gin.Context) {
	var req service.CreateCollegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid college payload"))
		return
	}

	college, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, college)
}

// Update godoc
// @Summary Update college
// @Tags Colleges
// @Accept json
// @Produce json
// @Param id path string true "College id"
// @Param payload body service.UpdateCollegeRequest true "College payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/colleges/{id} [put]
func (h *CollegeHandler) Update(c *gin.Context) {
	var req service.UpdateCollegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid college payload"))
		return
	}

	college, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}

// SetActive godoc
// @Summary Activate or deactivate college
// @Tags Colleges
// @Accept json
// @Produce json
// @Param id path string true "College id"
// @Param payload body map[string]bool true "Active flag"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/colleges/{id}/active [patch]
func (h *CollegeHandler) SetActive(c *gin.Context) {
	var payload struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active flag required"))
		return
	}

	if err := h.service.SetActive(c.Request.Context(), c.Param("id"), *payload.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
