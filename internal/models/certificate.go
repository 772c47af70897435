package models

import "time"

// CertificateStatus is the render lifecycle of a certificate.
type CertificateStatus string

// Certificate render states.
const (
	CertificateStatusPending CertificateStatus = "PENDING"
	CertificateStatusReady   CertificateStatus = "READY"
	CertificateStatusFailed  CertificateStatus = "FAILED"
)

// Certificate tracks a rendered pass certificate for one result. Rendering
// happens on a background queue, so the row exists before the PDF does.
type Certificate struct {
	ID           string            `db:"id" json:"id"`
	ResultID     string            `db:"result_id" json:"result_id"`
	StudentID    string            `db:"student_id" json:"student_id"`
	SerialNumber string            `db:"serial_number" json:"serial_number"`
	Status       CertificateStatus `db:"status" json:"status"`
	FilePath     string            `db:"file_path" json:"-"`
	IssuedAt     *time.Time        `db:"issued_at" json:"issued_at,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}
