package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.Student
	byRoll   map[string]*models.Student
	seq      int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: map[string]*models.Student{}, byRoll: map[string]*models.Student{}}
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, s := range m.students {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByRollNumber(ctx context.Context, collegeID, rollNumber string) (*models.Student, error) {
	s, ok := m.byRoll[collegeID+"/"+rollNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.seq++
	student.ID = "stu-" + student.RollNumber
	m.students[student.ID] = student
	m.byRoll[student.CollegeID+"/"+student.RollNumber] = student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentRepo) AssignBatch(ctx context.Context, studentID string, batchID *string) error {
	m.students[studentID].BatchID = batchID
	return nil
}

func (m *mockStudentRepo) SetActive(ctx context.Context, id string, active bool) error {
	m.students[id].Active = active
	return nil
}

type mockStudentUsers struct {
	byEmail map[string]*models.User
	audits  []*models.AuditLog
}

func newMockStudentUsers() *mockStudentUsers {
	return &mockStudentUsers{byEmail: map[string]*models.User{}}
}

func (m *mockStudentUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockStudentUsers) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-" + user.Email
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockStudentUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type mockStudentColleges struct {
	college *models.College
}

func (m *mockStudentColleges) FindByID(ctx context.Context, id string) (*models.College, error) {
	if m.college == nil || m.college.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.college, nil
}

func (m *mockStudentColleges) AdjustStudentCount(ctx context.Context, id string, delta int) (bool, error) {
	next := m.college.CurrentStudents + delta
	if next < 0 || (m.college.MaxStudents > 0 && next > m.college.MaxStudents) {
		return false, nil
	}
	m.college.CurrentStudents = next
	return true, nil
}

type mockRowParser struct {
	rows []map[string]string
}

func (m *mockRowParser) ParseRows(r io.Reader) ([]map[string]string, error) {
	return m.rows, nil
}

type mockResumeStore struct {
	saved map[string]bool
}

func (m *mockResumeStore) SaveStream(filename string, r io.Reader) (string, error) {
	if m.saved == nil {
		m.saved = map[string]bool{}
	}
	m.saved[filename] = true
	return filename, nil
}

func newStudentService(colleges *mockStudentColleges, parser *mockRowParser) (*StudentService, *mockStudentRepo, *mockStudentUsers) {
	repo := newMockStudentRepo()
	users := newMockStudentUsers()
	svc := NewStudentService(repo, users, colleges, &mockAssignmentBatches{}, parser, &mockResumeStore{}, nil, nil)
	return svc, repo, users
}

func studentRequest(roll string) CreateStudentRequest {
	return CreateStudentRequest{
		FirstName:  "Asha",
		LastName:   "Verma",
		Email:      roll + "@example.edu",
		Password:   "changeit123",
		RollNumber: roll,
	}
}

func TestStudentServiceCreateEnrolls(t *testing.T) {
	colleges := &mockStudentColleges{college: &models.College{ID: "col-1", MaxStudents: 10, Active: true}}
	svc, _, users := newStudentService(colleges, nil)

	student, err := svc.Create(context.Background(), "col-1", studentRequest("R-001"))
	require.NoError(t, err)

	assert.Equal(t, "col-1", student.CollegeID)
	assert.True(t, student.Active)
	assert.Equal(t, 1, colleges.college.CurrentStudents)

	user, ok := users.byEmail["r-001@example.edu"]
	require.True(t, ok)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "changeit123", user.PasswordHash)
}

func TestStudentServiceCreateRefusesOverCapacity(t *testing.T) {
	colleges := &mockStudentColleges{college: &models.College{ID: "col-1", MaxStudents: 1, Active: true}}
	svc, _, _ := newStudentService(colleges, nil)

	_, err := svc.Create(context.Background(), "col-1", studentRequest("R-001"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "col-1", studentRequest("R-002"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityReached.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, colleges.college.CurrentStudents)
}

func TestStudentServiceCreateDuplicateRoll(t *testing.T) {
	colleges := &mockStudentColleges{college: &models.College{ID: "col-1", MaxStudents: 10, Active: true}}
	svc, _, _ := newStudentService(colleges, nil)

	_, err := svc.Create(context.Background(), "col-1", studentRequest("R-001"))
	require.NoError(t, err)

	dup := studentRequest("R-001")
	dup.Email = "other@example.edu"
	_, err = svc.Create(context.Background(), "col-1", dup)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, colleges.college.CurrentStudents, "failed enrollment must not hold a slot")
}

func TestStudentServiceDeactivateReleasesSlot(t *testing.T) {
	colleges := &mockStudentColleges{college: &models.College{ID: "col-1", MaxStudents: 1, Active: true}}
	svc, _, _ := newStudentService(colleges, nil)

	student, err := svc.Create(context.Background(), "col-1", studentRequest("R-001"))
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(context.Background(), "col-1", student.ID, false))
	assert.Equal(t, 0, colleges.college.CurrentStudents)

	require.NoError(t, svc.SetActive(context.Background(), "col-1", student.ID, true))
	assert.Equal(t, 1, colleges.college.CurrentStudents)
}

func TestStudentServiceImportReportsRowErrors(t *testing.T) {
	colleges := &mockStudentColleges{college: &models.College{ID: "col-1", MaxStudents: 10, Active: true}}
	parser := &mockRowParser{rows: []map[string]string{
		{"firstName": "Asha", "lastName": "Verma", "email": "a@example.edu", "password": "changeit123", "rollNumber": "R-001"},
		{"firstName": "Ravi", "email": "not-an-email", "password": "changeit123", "rollNumber": "R-002"},
		{"firstName": "Meera", "email": "m@example.edu", "password": "changeit123", "rollNumber": "R-003"},
	}}
	svc, _, users := newStudentService(colleges, parser)

	report, err := svc.Import(context.Background(), "col-1", "admin-1", nil, strings.NewReader("xlsx"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "row 3")
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionStudentImport, users.audits[0].Action)
}

func TestStudentServiceImportStopsAtCapacity(t *testing.T) {
	colleges := &mockStudentColleges{college: &models.College{ID: "col-1", MaxStudents: 1, Active: true}}
	parser := &mockRowParser{rows: []map[string]string{
		{"firstName": "Asha", "email": "a@example.edu", "password": "changeit123", "rollNumber": "R-001"},
		{"firstName": "Ravi", "email": "b@example.edu", "password": "changeit123", "rollNumber": "R-002"},
		{"firstName": "Meera", "email": "c@example.edu", "password": "changeit123", "rollNumber": "R-003"},
	}}
	svc, _, _ := newStudentService(colleges, parser)

	report, err := svc.Import(context.Background(), "col-1", "admin-1", nil, strings.NewReader("xlsx"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.Skipped)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[len(report.Errors)-1], "capacity reached")
}
