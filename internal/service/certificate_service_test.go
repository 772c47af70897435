package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/export"
	"github.com/examsphere/exam-portal-api/pkg/jobs"
)

type mockCertificateRepo struct {
	byID     map[string]*models.Certificate
	byResult map[string]*models.Certificate
	failed   []string
	ready    []string
}

func newMockCertificateRepo() *mockCertificateRepo {
	return &mockCertificateRepo{byID: map[string]*models.Certificate{}, byResult: map[string]*models.Certificate{}}
}

func (m *mockCertificateRepo) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	cert, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cert, nil
}

func (m *mockCertificateRepo) FindByResultID(ctx context.Context, resultID string) (*models.Certificate, error) {
	cert, ok := m.byResult[resultID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cert, nil
}

func (m *mockCertificateRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, cert := range m.byID {
		if cert.StudentID == studentID {
			out = append(out, *cert)
		}
	}
	return out, nil
}

func (m *mockCertificateRepo) Create(ctx context.Context, cert *models.Certificate) error {
	cert.ID = "cert-" + cert.ResultID
	m.byID[cert.ID] = cert
	m.byResult[cert.ResultID] = cert
	return nil
}

func (m *mockCertificateRepo) MarkReady(ctx context.Context, id, filePath string, issuedAt time.Time) error {
	cert, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	cert.Status = models.CertificateStatusReady
	cert.FilePath = filePath
	cert.IssuedAt = &issuedAt
	m.ready = append(m.ready, id)
	return nil
}

func (m *mockCertificateRepo) MarkFailed(ctx context.Context, id string) error {
	cert, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	cert.Status = models.CertificateStatusFailed
	m.failed = append(m.failed, id)
	return nil
}

type mockCertResults struct {
	results map[string]*models.Result
}

func (m *mockCertResults) FindByID(ctx context.Context, id string) (*models.Result, error) {
	result, ok := m.results[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return result, nil
}

type mockCertStudents struct{}

func (m *mockCertStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id, CollegeID: "college-1", FirstName: "Priya", LastName: "Sharma"}, nil
}

type mockCertColleges struct{}

func (m *mockCertColleges) FindByID(ctx context.Context, id string) (*models.College, error) {
	return &models.College{ID: id, Name: "Horizon Institute"}, nil
}

type mockCertCourses struct{}

func (m *mockCertCourses) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	return &models.Course{ID: id, Name: "Data Structures"}, nil
}

type mockRenderer struct {
	last export.Certificate
	err  error
}

func (m *mockRenderer) Render(cert export.Certificate) ([]byte, error) {
	m.last = cert
	return []byte("%PDF-fake"), m.err
}

type mockCertStore struct {
	saved map[string][]byte
}

func (m *mockCertStore) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockCertStore) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

type mockSigner struct{}

func (m *mockSigner) Generate(ownerID, relPath string) (string, time.Time, error) {
	return "token-" + ownerID, time.Now().Add(time.Minute), nil
}

func (m *mockSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	return "", "", time.Time{}, errors.New("invalid token")
}

type mockEnqueuer struct {
	jobs []jobs.Job
	err  error
}

func (m *mockEnqueuer) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return m.err
}

func newCertificateFixture() (*CertificateService, *mockCertificateRepo, *mockEnqueuer, *mockRenderer, *mockCertStore) {
	repo := newMockCertificateRepo()
	results := &mockCertResults{results: map[string]*models.Result{
		"res-1": {ID: "res-1", StudentID: "stu-1", ExamID: "exam-1", Percentage: 80, Passed: true, AttemptNumber: 1},
		"res-2": {ID: "res-2", StudentID: "stu-1", ExamID: "exam-1", Percentage: 30, Passed: false, AttemptNumber: 1},
	}}
	exams := &mockAttemptExams{exams: map[string]*models.Exam{
		"exam-1": {ID: "exam-1", CourseID: "course-1", Title: "Midterm"},
	}}
	renderer := &mockRenderer{}
	store := &mockCertStore{}
	queue := &mockEnqueuer{}
	svc := NewCertificateService(repo, results, &mockCertStudents{}, exams, &mockCertColleges{}, &mockCertCourses{}, renderer, store, &mockSigner{}, queue, nil)
	return svc, repo, queue, renderer, store
}

func TestCertificateRequestCreatesPendingAndEnqueues(t *testing.T) {
	svc, repo, queue, _, _ := newCertificateFixture()

	cert, err := svc.Request(context.Background(), "stu-1", "res-1")
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatusPending, cert.Status)
	assert.Contains(t, cert.SerialNumber, "ESC-")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, CertificateJobType, queue.jobs[0].Type)
	assert.Equal(t, cert.ID, queue.jobs[0].Payload)

	// Repeat request returns the same row without another render job.
	again, err := svc.Request(context.Background(), "stu-1", "res-1")
	require.NoError(t, err)
	assert.Equal(t, cert.ID, again.ID)
	assert.Len(t, queue.jobs, 1)
	assert.Len(t, repo.byID, 1)
}

func TestCertificateRequestRejectsFailedResult(t *testing.T) {
	svc, _, queue, _, _ := newCertificateFixture()

	_, err := svc.Request(context.Background(), "stu-1", "res-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, queue.jobs)
}

func TestCertificateRequestRejectsOtherStudent(t *testing.T) {
	svc, _, _, _, _ := newCertificateFixture()

	_, err := svc.Request(context.Background(), "stu-2", "res-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCertificateRenderMarksReady(t *testing.T) {
	svc, repo, _, renderer, store := newCertificateFixture()

	cert, err := svc.Request(context.Background(), "stu-1", "res-1")
	require.NoError(t, err)

	handler := svc.RenderHandler(3)
	require.NoError(t, handler(context.Background(), jobs.Job{ID: cert.ID, Type: CertificateJobType, Payload: cert.ID, Attempt: 1}))

	assert.Equal(t, models.CertificateStatusReady, repo.byID[cert.ID].Status)
	assert.NotEmpty(t, repo.byID[cert.ID].FilePath)
	assert.Equal(t, "Priya Sharma", renderer.last.StudentName)
	assert.Equal(t, "Horizon Institute", renderer.last.CollegeName)
	assert.Equal(t, "Data Structures", renderer.last.CourseName)
	assert.Len(t, store.saved, 1)
}

func TestCertificateRenderMarksFailedOnLastAttempt(t *testing.T) {
	svc, repo, _, renderer, _ := newCertificateFixture()
	renderer.err = errors.New("font missing")

	cert, err := svc.Request(context.Background(), "stu-1", "res-1")
	require.NoError(t, err)

	handler := svc.RenderHandler(3)

	// Early attempts leave the row pending so the retry can succeed.
	require.Error(t, handler(context.Background(), jobs.Job{ID: cert.ID, Payload: cert.ID, Attempt: 1}))
	assert.Equal(t, models.CertificateStatusPending, repo.byID[cert.ID].Status)

	// The final attempt surfaces the failure on the row.
	require.Error(t, handler(context.Background(), jobs.Job{ID: cert.ID, Payload: cert.ID, Attempt: 3}))
	assert.Equal(t, models.CertificateStatusFailed, repo.byID[cert.ID].Status)
}

func TestCertificateDownloadTicketRequiresReady(t *testing.T) {
	svc, repo, _, _, _ := newCertificateFixture()

	cert, err := svc.Request(context.Background(), "stu-1", "res-1")
	require.NoError(t, err)

	_, err = svc.DownloadTicket(context.Background(), "stu-1", cert.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	require.NoError(t, repo.MarkReady(context.Background(), cert.ID, "certificates/x.pdf", time.Now()))
	ticket, err := svc.DownloadTicket(context.Background(), "stu-1", cert.ID)
	require.NoError(t, err)
	assert.Equal(t, "token-stu-1", ticket.Token)
}
