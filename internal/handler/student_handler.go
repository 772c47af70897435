package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StudentHandler manages the student roster for administrators.
type StudentHandler struct {
	service   *service.StudentService
	templates *service.TemplateService
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(svc *service.StudentService, templates *service.TemplateService) *StudentHandler {
	return &StudentHandler{service: svc, templates: templates}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param batch_id query string false "Filter by batch"
// @Param search query string false "Search name, email or roll number"
// @Param active query bool false "Filter by active flag"
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.StudentFilter{
		CollegeID: collegeScope(c, claimsFromContext(c)),
		BatchID:   c.Query("batch_id"),
		Search:    c.Query("search"),
		Active:    queryBool(c, "active"),
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

// Get godoc
// @Summary Get one student
// @Tags Students
// @Produce json
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope{data=models.Student}
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Enroll a student
// @Description Creates the login account and the student record, claiming one capacity slot
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope{data=models.Student}
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.service.Create(c.Request.Context(), collegeScope(c, claimsFromContext(c)), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student's profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student id"
// @Param payload body service.UpdateStudentRequest true "Profile payload"
// @Success 200 {object} response.Envelope{data=models.Student}
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	student, err := h.service.Update(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// AssignBatch godoc
// @Summary Move a student to a batch
// @Tags Students
// @Accept json
// @Param id path string true "Student id"
// @Param payload body map[string]string true "Batch id, null to unassign"
// @Success 204 {object} response.Envelope
// @Router /admin/students/{id}/batch [patch]
func (h *StudentHandler) AssignBatch(c *gin.Context) {
	var payload struct {
		BatchID *string `json:"batch_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	if err := h.service.AssignBatch(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), payload.BatchID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetActive godoc
// @Summary Activate or deactivate a student
// @Description Deactivating releases the capacity slot; reactivating claims one
// @Tags Students
// @Accept json
// @Param id path string true "Student id"
// @Param payload body map[string]bool true "Active flag"
// @Success 204 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/students/{id}/active [patch]
func (h *StudentHandler) SetActive(c *gin.Context) {
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

// Import godoc
// @Summary Bulk-import students from a spreadsheet
// @Description Accepts the XLSX template; rows that fail are reported, the rest are enrolled
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Filled-in student template"
// @Param batch_id formData string false "Batch to place imported students in"
// @Success 200 {object} response.Envelope{data=service.ImportReport}
// @Router /admin/students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	claims := claimsFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "spreadsheet file required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	var batchID *string
	if v := c.PostForm("batch_id"); v != "" {
		batchID = &v
	}

	report, err := h.service.Import(c.Request.Context(), collegeScope(c, claims), claims.UserID, batchID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentTemplate godoc
// @Summary Download the student import template
// @Tags Students
// @Produce application/octet-stream
// @Success 200 {file} binary
// @Router /admin/students/template [get]
func (h *StudentHandler) StudentTemplate(c *gin.Context) {
	data, filename, err := h.templates.StudentTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// QuestionTemplate godoc
// @Summary Download the question import template
// @Tags Exams
// @Produce application/octet-stream
// @Success 200 {file} binary
// @Router /admin/exams/template [get]
func (h *StudentHandler) QuestionTemplate(c *gin.Context) {
	data, filename, err := h.templates.QuestionTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// UploadResume godoc
// @Summary Upload a student's resume
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student id"
// @Param file formData file true "Resume (pdf, doc or docx)"
// @Success 200 {object} response.Envelope{data=models.Student}
// @Router /admin/students/{id}/resume [post]
func (h *StudentHandler) UploadResume(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "resume file required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	student, err := h.service.UploadResume(c.Request.Context(), collegeScope(c, claimsFromContext(c)), c.Param("id"), fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
