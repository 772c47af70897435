package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/export"
	"github.com/examsphere/exam-portal-api/pkg/jobs"
)

// CertificateJobType names the queue job kind for certificate renders.
const CertificateJobType = "certificate.render"

type certificateRepository interface {
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	FindByResultID(ctx context.Context, resultID string) (*models.Certificate, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error)
	Create(ctx context.Context, cert *models.Certificate) error
	MarkReady(ctx context.Context, id, filePath string, issuedAt time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

type certificateResultReader interface {
	FindByID(ctx context.Context, id string) (*models.Result, error)
}

type certificateStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type certificateCollegeReader interface {
	FindByID(ctx context.Context, id string) (*models.College, error)
}

type certificateCourseReader interface {
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
}

type certificateRenderer interface {
	Render(cert export.Certificate) ([]byte, error)
}

type certificateStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type downloadSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (ownerID, relPath string, expiresAt time.Time, err error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// DownloadTicket is a short-lived signed pointer at a stored certificate.
type DownloadTicket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CertificateService issues pass certificates. Requesting one creates a
// pending row and enqueues the render; the PDF appears when the queue
// gets to it.
type CertificateService struct {
	repo     certificateRepository
	results  certificateResultReader
	students certificateStudentReader
	exams    attemptExamReader
	colleges certificateCollegeReader
	courses  certificateCourseReader
	renderer certificateRenderer
	store    certificateStore
	signer   downloadSigner
	queue    jobEnqueuer
	logger   *zap.Logger
	now      func() time.Time
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(repo certificateRepository, results certificateResultReader, students certificateStudentReader, exams attemptExamReader, colleges certificateCollegeReader, courses certificateCourseReader, renderer certificateRenderer, store certificateStore, signer downloadSigner, queue jobEnqueuer, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		repo:     repo,
		results:  results,
		students: students,
		exams:    exams,
		colleges: colleges,
		courses:  courses,
		renderer: renderer,
		store:    store,
		signer:   signer,
		queue:    queue,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Request issues a certificate for a passed result. Repeat requests return
// the existing certificate; a failed render is re-enqueued.
func (s *CertificateService) Request(ctx context.Context, studentID, resultID string) (*models.Certificate, error) {
	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if result.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "result belongs to another student")
	}
	if !result.Passed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "certificates are only issued for passed results")
	}

	cert, err := s.repo.FindByResultID(ctx, resultID)
	if err == nil {
		if cert.Status == models.CertificateStatusFailed {
			if err := s.enqueue(cert.ID); err != nil {
				return nil, err
			}
		}
		return cert, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check certificate")
	}

	cert = &models.Certificate{
		ResultID:     resultID,
		StudentID:    studentID,
		SerialNumber: newSerialNumber(),
		Status:       models.CertificateStatusPending,
	}
	if err := s.repo.Create(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certificate")
	}
	if err := s.enqueue(cert.ID); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *CertificateService) enqueue(certID string) error {
	err := s.queue.Enqueue(jobs.Job{ID: certID, Type: CertificateJobType, Payload: certID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue certificate render")
	}
	return nil
}

// RenderHandler builds the queue handler that renders and stores the PDF.
// Returning an error lets the queue retry; on the last allowed attempt a
// failure is recorded on the row so the student sees FAILED instead of a
// stuck PENDING.
func (s *CertificateService) RenderHandler(maxRetries int) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		certID, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("certificate job %s carries payload %T, want string", job.ID, job.Payload)
		}
		if err := s.render(ctx, certID); err != nil {
			if job.Attempt >= maxRetries {
				if markErr := s.repo.MarkFailed(ctx, certID); markErr != nil {
					s.logger.Error("failed to mark certificate failed", zap.String("certificate_id", certID), zap.Error(markErr))
				}
			}
			return err
		}
		return nil
	}
}

func (s *CertificateService) render(ctx context.Context, certID string) error {
	cert, err := s.repo.FindByID(ctx, certID)
	if err != nil {
		return fmt.Errorf("load certificate %s: %w", certID, err)
	}
	if cert.Status == models.CertificateStatusReady {
		return nil
	}
	result, err := s.results.FindByID(ctx, cert.ResultID)
	if err != nil {
		return fmt.Errorf("load result %s: %w", cert.ResultID, err)
	}
	student, err := s.students.FindByID(ctx, cert.StudentID)
	if err != nil {
		return fmt.Errorf("load student %s: %w", cert.StudentID, err)
	}
	exam, err := s.exams.FindByID(ctx, result.ExamID)
	if err != nil {
		return fmt.Errorf("load exam %s: %w", result.ExamID, err)
	}
	college, err := s.colleges.FindByID(ctx, student.CollegeID)
	if err != nil {
		return fmt.Errorf("load college %s: %w", student.CollegeID, err)
	}
	courseName := ""
	if course, err := s.courses.FindCourseByID(ctx, exam.CourseID); err == nil {
		courseName = course.Name
	}

	issuedAt := s.now()
	data, err := s.renderer.Render(export.Certificate{
		StudentName:   student.FullName(),
		CollegeName:   college.Name,
		ExamTitle:     exam.Title,
		CourseName:    courseName,
		Percentage:    result.Percentage,
		AttemptNumber: result.AttemptNumber,
		IssuedAt:      issuedAt,
		SerialNumber:  cert.SerialNumber,
	})
	if err != nil {
		return fmt.Errorf("render certificate %s: %w", certID, err)
	}

	path, err := s.store.Save(fmt.Sprintf("certificates/%s.pdf", cert.ID), data)
	if err != nil {
		return fmt.Errorf("store certificate %s: %w", certID, err)
	}
	if err := s.repo.MarkReady(ctx, cert.ID, path, issuedAt); err != nil {
		return fmt.Errorf("mark certificate %s ready: %w", certID, err)
	}
	s.logger.Info("certificate rendered",
		zap.String("certificate_id", cert.ID),
		zap.String("student_id", cert.StudentID))
	return nil
}

// List returns the student's certificates.
func (s *CertificateService) List(ctx context.Context, studentID string) ([]models.Certificate, error) {
	certs, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certs, nil
}

// DownloadTicket signs a short-lived download token for a ready
// certificate.
func (s *CertificateService) DownloadTicket(ctx context.Context, studentID, certID string) (*DownloadTicket, error) {
	cert, err := s.repo.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	if cert.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "certificate belongs to another student")
	}
	if cert.Status != models.CertificateStatusReady {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "certificate is not ready yet")
	}
	token, expiresAt, err := s.signer.Generate(studentID, cert.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return &DownloadTicket{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenDownload validates a signed token and opens the stored PDF.
func (s *CertificateService) OpenDownload(ctx context.Context, token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate file not found")
	}
	return file, nil
}

func newSerialNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ESC-" + raw[:12]
}
