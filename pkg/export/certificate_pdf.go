package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate describes the content rendered onto a pass certificate.
type Certificate struct {
	StudentName   string
	CollegeName   string
	ExamTitle     string
	CourseName    string
	Percentage    float64
	AttemptNumber int
	IssuedAt      time.Time
	SerialNumber  string
}

// CertificateRenderer produces PDF certificates for passed exam results.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render creates a landscape A4 certificate document.
func (r *CertificateRenderer) Render(cert Certificate) ([]byte, error) {
	if cert.StudentName == "" || cert.ExamTitle == "" {
		return nil, fmt.Errorf("certificate requires student name and exam title")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 26)
	pdf.CellFormat(0, 16, "CERTIFICATE OF ACHIEVEMENT", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, strings.ToUpper(cert.CollegeName), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 14, cert.StudentName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "has successfully passed", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, cert.ExamTitle, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	body := fmt.Sprintf("in %s with a score of %.1f%%", cert.CourseName, cert.Percentage)
	if cert.AttemptNumber > 1 {
		body = fmt.Sprintf("%s (attempt %d)", body, cert.AttemptNumber)
	}
	pdf.CellFormat(0, 8, body, "", 1, "C", false, 0, "")
	pdf.Ln(12)

	issued := cert.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", issued.Format("02 January 2006")), "", 1, "C", false, 0, "")
	if cert.SerialNumber != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Serial: %s", cert.SerialNumber), "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
