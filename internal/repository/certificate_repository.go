package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examsphere/exam-portal-api/internal/models"
)

// CertificateRepository handles persistence for rendered certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs a certificate repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = `id, result_id, student_id, serial_number, status, file_path, issued_at, created_at, updated_at`

// FindByID fetches a certificate by id.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE id = $1", certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByResultID fetches the certificate issued for a result, if any.
func (r *CertificateRepository) FindByResultID(ctx context.Context, resultID string) (*models.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE result_id = $1", certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, resultID); err != nil {
		return nil, err
	}
	return &cert, nil
}

// ListByStudent returns the student's certificates, newest first.
func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE student_id = $1 ORDER BY created_at DESC", certificateColumns)
	certs := []models.Certificate{}
	if err := r.db.SelectContext(ctx, &certs, query, studentID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// Create inserts a pending certificate row.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cert.CreatedAt = now
	cert.UpdatedAt = now
	if cert.Status == "" {
		cert.Status = models.CertificateStatusPending
	}

	const query = `INSERT INTO certificates (id, result_id, student_id, serial_number, status, file_path, issued_at, created_at, updated_at)
        VALUES (:id, :result_id, :student_id, :serial_number, :status, :file_path, :issued_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// MarkReady records a finished render.
func (r *CertificateRepository) MarkReady(ctx context.Context, id, filePath string, issuedAt time.Time) error {
	const query = `UPDATE certificates SET status = $2, file_path = $3, issued_at = $4, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.CertificateStatusReady, filePath, issuedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark certificate ready: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkFailed records a render that exhausted its retries.
func (r *CertificateRepository) MarkFailed(ctx context.Context, id string) error {
	const query = `UPDATE certificates SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.CertificateStatusFailed, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark certificate failed: %w", err)
	}
	return nil
}
