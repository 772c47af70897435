package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// AssignmentHandler exposes batch-plan and exam-batch assignment endpoints.
type AssignmentHandler struct {
	batchPlans *service.BatchAssignmentService
	examLinks  *service.ExamAssignmentService
}

// NewAssignmentHandler creates a new handler.
func NewAssignmentHandler(batchPlans *service.BatchAssignmentService, examLinks *service.ExamAssignmentService) *AssignmentHandler {
	return &AssignmentHandler{batchPlans: batchPlans, examLinks: examLinks}
}

// ListBatchPlans godoc
// @Summary List batch-plan assignments
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/batch-assignments [get]
func (h *AssignmentHandler) ListBatchPlans(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.BatchPlanAssignmentFilter{
		CollegeID: collegeScope(c, claimsFromContext(c)),
		BatchID:   c.Query("batch_id"),
		PlanID:    c.Query("plan_id"),
		Active:    queryBool(c, "active"),
		Page:      page,
		PageSize:  pageSize,
	}

	rows, pagination, err := h.batchPlans.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// AssignBatchPlan godoc
// @Summary Assign a plan to a batch
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignPlanRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/batch-assignments [post]
func (h *AssignmentHandler) AssignBatchPlan(c *gin.Context) {
	claims := claimsFromContext(c)
	var req service.AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.batchPlans.Assign(c.Request.Context(), collegeScope(c, claims), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// SetBatchPlanActive godoc
// @Summary Toggle a batch-plan assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment id"
// @Param payload body map[string]bool true "Active flag"
// @Success 204 {object} response.Envelope
// @Router /admin/batch-assignments/{id}/active [patch]
func (h *AssignmentHandler) SetBatchPlanActive(c *gin.Context) {
	var payload struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active flag required"))
		return
	}

	if err := h.batchPlans.SetActive(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), *payload.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteBatchPlan godoc
// @Summary Delete a batch-plan assignment
// @Tags Assignments
// @Param id path string true "Assignment id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/batch-assignments/{id} [delete]
func (h *AssignmentHandler) DeleteBatchPlan(c *gin.Context) {
	if err := h.batchPlans.Delete(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignExam godoc
// @Summary Assign an exam to batches
// @Description Links one exam to many batches in a single call
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignExamRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /admin/exam-assignments [post]
func (h *AssignmentHandler) AssignExam(c *gin.Context) {
	claims := claimsFromContext(c)
	var req service.AssignExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	created, err := h.examLinks.Assign(c.Request.Context(), collegeScope(c, claims), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"created": created}, nil)
}

// ListExamAssignments godoc
// @Summary List exam assignments grouped by exam
// @Tags Assignments
// @Produce json
// @Param exam_id query string false "Limit to one exam"
// @Success 200 {object} response.Envelope
// @Router /admin/exam-assignments [get]
func (h *AssignmentHandler) ListExamAssignments(c *gin.Context) {
	groups, err := h.examLinks.ListGrouped(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Query("exam_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// UnassignExam godoc
// @Summary Remove one exam-batch link
// @Tags Assignments
// @Param examId path string true "Exam id"
// @Param batchId path string true "Batch id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/exam-assignments/{examId}/{batchId} [delete]
func (h *AssignmentHandler) UnassignExam(c *gin.Context) {
	if err := h.examLinks.Unassign(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("examId"), c.Param("batchId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
