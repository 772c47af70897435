package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	FindByRollNumber(ctx context.Context, collegeID, rollNumber string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	AssignBatch(ctx context.Context, studentID string, batchID *string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type studentUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentCollegeStore interface {
	FindByID(ctx context.Context, id string) (*models.College, error)
	AdjustStudentCount(ctx context.Context, id string, delta int) (bool, error)
}

type studentBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type rowParser interface {
	ParseRows(r io.Reader) ([]map[string]string, error)
}

type resumeStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// CreateStudentRequest enrolls one student, creating the login account
// alongside the profile.
type CreateStudentRequest struct {
	FirstName   string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string  `json:"last_name" validate:"max=100"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	Mobile      string  `json:"mobile" validate:"max=20"`
	DateOfBirth string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	RollNumber  string  `json:"roll_number" validate:"required,max=50"`
	BatchID     *string `json:"batch_id"`
}

// UpdateStudentRequest edits profile fields. Email and roll number are
// immutable after enrollment.
type UpdateStudentRequest struct {
	FirstName   string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string  `json:"last_name" validate:"max=100"`
	Mobile      string  `json:"mobile" validate:"max=20"`
	DateOfBirth string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	BatchID     *string `json:"batch_id"`
}

// ImportReport summarizes one bulk import run.
type ImportReport struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// StudentService manages the roster: enrollment, batch placement, bulk
// import, and resume uploads.
type StudentService struct {
	repo      studentRepository
	users     studentUserStore
	colleges  studentCollegeStore
	batches   studentBatchReader
	parser    rowParser
	resumes   resumeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, users studentUserStore, colleges studentCollegeStore, batches studentBatchReader, parser rowParser, resumes resumeStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		users:     users,
		colleges:  colleges,
		batches:   batches,
		parser:    parser,
		resumes:   resumes,
		validator: validate,
		logger:    logger,
	}
}

// List returns the college roster with filters and pagination.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return rows, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns one student, tenant-checked.
func (s *StudentService) Get(ctx context.Context, collegeID, id string) (*models.Student, error) {
	return s.find(ctx, collegeID, id)
}

// GetByUserID resolves the student profile behind a login account.
func (s *StudentService) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create enrolls a student, claiming a capacity slot first so two
// concurrent enrollments can never exceed the college limit.
func (s *StudentService) Create(ctx context.Context, collegeID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	college, err := s.colleges.FindByID(ctx, collegeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	if !college.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "college is inactive")
	}

	if req.BatchID != nil {
		if err := s.checkBatch(ctx, collegeID, *req.BatchID); err != nil {
			return nil, err
		}
	}
	if _, err := s.repo.FindByRollNumber(ctx, collegeID, req.RollNumber); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roll number already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roll number")
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	ok, err := s.colleges.AdjustStudentCount(ctx, collegeID, 1)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim capacity")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrCapacityReached, "college student capacity reached")
	}

	student, err := s.enroll(ctx, collegeID, req)
	if err != nil {
		if _, releaseErr := s.colleges.AdjustStudentCount(ctx, collegeID, -1); releaseErr != nil {
			s.logger.Error("failed to release capacity slot after enrollment failure",
				zap.String("college_id", collegeID), zap.Error(releaseErr))
		}
		return nil, err
	}
	return student, nil
}

func (s *StudentService) enroll(ctx context.Context, collegeID string, req CreateStudentRequest) (*models.Student, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FirstName + " " + req.LastName),
		Role:         models.RoleStudent,
		CollegeID:    &collegeID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user account")
	}

	student := &models.Student{
		UserID:     user.ID,
		CollegeID:  collegeID,
		BatchID:    req.BatchID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      user.Email,
		Mobile:     req.Mobile,
		RollNumber: req.RollNumber,
		Active:     true,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date of birth must be YYYY-MM-DD")
		}
		student.DateOfBirth = &dob
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update edits a student profile and batch placement.
func (s *StudentService) Update(ctx context.Context, collegeID, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.find(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}
	if req.BatchID != nil {
		if err := s.checkBatch(ctx, student.CollegeID, *req.BatchID); err != nil {
			return nil, err
		}
	}

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Mobile = req.Mobile
	student.BatchID = req.BatchID
	student.DateOfBirth = nil
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date of birth must be YYYY-MM-DD")
		}
		student.DateOfBirth = &dob
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// AssignBatch moves the student into a batch, or out of all batches when
// batchID is nil.
func (s *StudentService) AssignBatch(ctx context.Context, collegeID, id string, batchID *string) error {
	student, err := s.find(ctx, collegeID, id)
	if err != nil {
		return err
	}
	if batchID != nil {
		if err := s.checkBatch(ctx, student.CollegeID, *batchID); err != nil {
			return err
		}
	}
	if err := s.repo.AssignBatch(ctx, id, batchID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign batch")
	}
	return nil
}

// SetActive toggles the student. Deactivating releases the capacity slot,
// reactivating claims one again.
func (s *StudentService) SetActive(ctx context.Context, collegeID, id string, active bool) error {
	student, err := s.find(ctx, collegeID, id)
	if err != nil {
		return err
	}
	if student.Active == active {
		return nil
	}
	delta := -1
	if active {
		delta = 1
	}
	ok, err := s.colleges.AdjustStudentCount(ctx, student.CollegeID, delta)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust capacity")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrCapacityReached, "college student capacity reached")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if _, revertErr := s.colleges.AdjustStudentCount(ctx, student.CollegeID, -delta); revertErr != nil {
			s.logger.Error("failed to revert capacity adjustment", zap.String("college_id", student.CollegeID), zap.Error(revertErr))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return nil
}

// Import reads a filled-in student template workbook and enrolls every
// valid row. Rows that fail keep their spreadsheet position in the report
// so the admin can fix and re-upload.
func (s *StudentService) Import(ctx context.Context, collegeID, importedBy string, batchID *string, workbook io.Reader) (*ImportReport, error) {
	rows, err := s.parser.ParseRows(workbook)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read workbook")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook contains no data rows")
	}

	report := &ImportReport{}
	for i, row := range rows {
		req := CreateStudentRequest{
			FirstName:   strings.TrimSpace(row["firstName"]),
			LastName:    strings.TrimSpace(row["lastName"]),
			Email:       strings.TrimSpace(row["email"]),
			Password:    row["password"],
			Mobile:      strings.TrimSpace(row["mobile"]),
			DateOfBirth: strings.TrimSpace(row["dateOfBirth"]),
			RollNumber:  strings.TrimSpace(row["rollNumber"]),
			BatchID:     batchID,
		}
		if _, err := s.Create(ctx, collegeID, req); err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Code == appErrors.ErrCapacityReached.Code {
				report.Errors = append(report.Errors, fmt.Sprintf("row %d: college capacity reached, remaining rows skipped", i+2))
				report.Skipped += len(rows) - i
				break
			}
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %s", i+2, appErr.Message))
			continue
		}
		report.Created++
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &importedBy,
		Action:     models.AuditActionStudentImport,
		Resource:   "student",
		ResourceID: &collegeID,
	}); err != nil {
		s.logger.Warn("failed to record import audit log", zap.Error(err))
	}
	s.logger.Info("student import finished",
		zap.String("college_id", collegeID),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// UploadResume stores the student's resume and remembers its path.
func (s *StudentService) UploadResume(ctx context.Context, collegeID, id, filename string, file io.Reader) (*models.Student, error) {
	student, err := s.find(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" && ext != ".doc" && ext != ".docx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resume must be a pdf or word document")
	}
	path, err := s.resumes.SaveStream(fmt.Sprintf("resumes/%s%s", student.ID, ext), file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store resume")
	}
	student.ResumePath = path
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

func (s *StudentService) find(ctx context.Context, collegeID, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if collegeID != "" && student.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another college")
	}
	return student, nil
}

func (s *StudentService) checkBatch(ctx context.Context, collegeID, batchID string) error {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if batch.CollegeID != collegeID {
		return appErrors.Clone(appErrors.ErrForbidden, "batch belongs to another college")
	}
	if !batch.Active {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "batch is inactive")
	}
	return nil
}
