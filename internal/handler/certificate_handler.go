package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/service"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/response"
)

// CertificateHandler exposes pass-certificate issuance and download.
// Rendering is asynchronous: requesting returns a PENDING record and the
// client polls until it flips to READY.
type CertificateHandler struct {
	service  *service.CertificateService
	students *service.StudentService
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc *service.CertificateService, students *service.StudentService) *CertificateHandler {
	return &CertificateHandler{service: svc, students: students}
}

// Request godoc
// @Summary Request a certificate for a passed result
// @Tags Certificates
// @Produce json
// @Param id path string true "Result id"
// @Success 201 {object} response.Envelope{data=models.Certificate}
// @Failure 412 {object} response.Envelope
// @Router /student/results/{id}/certificate [post]
func (h *CertificateHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	cert, err := h.service.Request(c.Request.Context(), student.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// List godoc
// @Summary List the caller's certificates
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	certs, err := h.service.List(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs, nil)
}

// DownloadTicket godoc
// @Summary Mint a short-lived download token for a ready certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate id"
// @Success 200 {object} response.Envelope{data=service.DownloadTicket}
// @Failure 412 {object} response.Envelope
// @Router /student/certificates/{id}/download [post]
func (h *CertificateHandler) DownloadTicket(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	ticket, err := h.service.DownloadTicket(c.Request.Context(), student.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ticket, nil)
}

// Download godoc
// @Summary Download a certificate PDF by token
// @Description Public endpoint; the token carries its own authentication and expiry
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token required"))
		return
	}

	file, err := h.service.OpenDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read certificate file"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="certificate.pdf"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
