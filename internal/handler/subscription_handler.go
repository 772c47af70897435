package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// SubscriptionHandler exposes the purchase flow for students and the
// subscription registry for admins.
type SubscriptionHandler struct {
	service  *service.SubscriptionService
	students *service.StudentService
}

// NewSubscriptionHandler creates a new handler.
func NewSubscriptionHandler(svc *service.SubscriptionService, students *service.StudentService) *SubscriptionHandler {
	return &SubscriptionHandler{service: svc, students: students}
}

func (h *SubscriptionHandler) currentStudent(c *gin.Context) (*models.Student, bool) {
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

// Purchase godoc
// @Summary Begin a subscription purchase
// @Description Creates a pending subscription and a payment gateway order
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body service.PurchaseRequest true "Plan to purchase"
// @Success 201 {object} response.Envelope{data=service.PurchaseResponse}
// @Failure 409 {object} response.Envelope
// @Router /student/subscriptions/purchase [post]
func (h *SubscriptionHandler) Purchase(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	var req service.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid purchase payload"))
		return
	}

	order, err := h.service.Purchase(c.Request.Context(), student.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// Confirm godoc
// @Summary Confirm a subscription purchase
// @Description Verifies the gateway signature and activates the subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body service.ConfirmPurchaseRequest true "Gateway callback payload"
// @Success 200 {object} response.Envelope{data=models.StudentSubscription}
// @Failure 402 {object} response.Envelope
// @Router /student/subscriptions/confirm [post]
func (h *SubscriptionHandler) Confirm(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	var req service.ConfirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid confirmation payload"))
		return
	}

	sub, err := h.service.Confirm(c.Request.Context(), student.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// History godoc
// @Summary List the caller's subscriptions
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/subscriptions [get]
func (h *SubscriptionHandler) History(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	rows, pagination, err := h.service.History(c.Request.Context(), student.ID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// List godoc
// @Summary List subscriptions
// @Tags Subscriptions
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param plan_id query string false "Filter by plan"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /admin/subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.SubscriptionFilter{
		StudentID: c.Query("student_id"),
		PlanID:    c.Query("plan_id"),
		Status:    models.SubscriptionStatus(c.Query("status")),
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

// Suspend godoc
// @Summary Suspend a subscription
// @Tags Subscriptions
// @Param id path string true "Subscription id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/subscriptions/{id}/suspend [post]
func (h *SubscriptionHandler) Suspend(c *gin.Context) {
	if err := h.service.Suspend(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reinstate godoc
// @Summary Reinstate a suspended subscription
// @Tags Subscriptions
// @Param id path string true "Subscription id"
// @Success 204 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/subscriptions/{id}/reinstate [post]
func (h *SubscriptionHandler) Reinstate(c *gin.Context) {
	if err := h.service.Reinstate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
