package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// TaxonomyHandler exposes subject and course management endpoints.
type TaxonomyHandler struct {
	service *service.TaxonomyService
}

// NewTaxonomyHandler creates a new handler.
func NewTaxonomyHandler(svc *service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{service: svc}
}

func (h *TaxonomyHandler) taxonomyFilter(c *gin.Context) models.TaxonomyFilter {
	page, pageSize := pageParams(c)
	return models.TaxonomyFilter{
		CollegeID: collegeScope(c, claimsFromContext(c)),
		SubjectID: c.Query("subject_id"),
		Search:    c.Query("search"),
		Active:    queryBool(c, "active"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/subjects [get]
func (h *TaxonomyHandler) ListSubjects(c *gin.Context) {
	subjects, pagination, err := h.service.ListSubjects(c.Request.Context(), h.taxonomyFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, pagination)
}

// CreateSubject godoc
// @Summary Create subject
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param payload body service.SubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /admin/subjects [post]
func (h *TaxonomyHandler) CreateSubject(c *gin.Context) {
	var req service.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	subject, err := h.service.CreateSubject(c.Request.Context(), collegeScope(c, claimsFromContext(c)), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// UpdateSubject godoc
// @Summary Update subject
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Subject id"
// @Param payload body service.SubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /admin/subjects/{id} [put]
func (h *TaxonomyHandler) UpdateSubject(c *gin.Context) {
	var req service.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	subject, err := h.service.UpdateSubject(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// ListCourses godoc
// @Summary List courses
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/courses [get]
func (h *TaxonomyHandler) ListCourses(c *gin.Context) {
	courses, pagination, err := h.service.ListCourses(c.Request.Context(), h.taxonomyFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param payload body service.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /admin/courses [post]
func (h *TaxonomyHandler) CreateCourse(c *gin.Context) {
	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.service.CreateCourse(c.Request.Context(), collegeScope(c, claimsFromContext(c)), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update course
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Course id"
// @Param payload body service.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id} [put]
func (h *TaxonomyHandler) UpdateCourse(c *gin.Context) {
	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.service.UpdateCourse(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}
