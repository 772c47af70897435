package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	SetActive(ctx context.Context, id string, active bool) error
}

type questionRepository interface {
	ListByExam(ctx context.Context, examID string) ([]models.Question, error)
	CountByExam(ctx context.Context, examID string) (int, error)
	ReplaceForExam(ctx context.Context, examID string, questions []models.Question) error
}

type examCourseReader interface {
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
}

// ExamRequest describes exam create/update payloads.
type ExamRequest struct {
	CourseID        string  `json:"course_id" validate:"required"`
	Title           string  `json:"title" validate:"required"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,gte=1,lte=600"`
	PassPercentage  float64 `json:"pass_percentage" validate:"gte=0,lte=100"`
	MaxAttempts     int     `json:"max_attempts" validate:"gte=0,lte=50"`
	Active          *bool   `json:"active"`
}

// QuestionInput is one question in a bulk upsert. Options accept either the
// array shape or the legacy keyed map.
type QuestionInput struct {
	Text          string            `json:"text" validate:"required"`
	Options       models.OptionList `json:"options" validate:"required,min=2"`
	CorrectOption string            `json:"correct_option"`
	Marks         int               `json:"marks" validate:"omitempty,gte=1"`
}

// ReplaceQuestionsRequest swaps an exam's full question set.
type ReplaceQuestionsRequest struct {
	Questions []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// ExamService manages exams and their question banks.
type ExamService struct {
	repo      examRepository
	questions questionRepository
	courses   examCourseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(repo examRepository, questions questionRepository, courses examCourseReader, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, questions: questions, courses: courses, validator: validate, logger: logger}
}

// List returns exams with pagination metadata.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, *models.Pagination, error) {
	exams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns a single exam, enforcing tenant ownership.
func (s *ExamService) Get(ctx context.Context, collegeID, id string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if collegeID != "" && exam.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exam belongs to another college")
	}
	return exam, nil
}

// Create adds an exam under a course.
func (s *ExamService) Create(ctx context.Context, collegeID string, req ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	course, err := s.courses.FindCourseByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if collegeID != "" && course.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another college")
	}

	exam := &models.Exam{
		CollegeID:       course.CollegeID,
		CourseID:        req.CourseID,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		PassPercentage:  req.PassPercentage,
		MaxAttempts:     req.MaxAttempts,
		Active:          true,
	}
	if req.Active != nil {
		exam.Active = *req.Active
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Update rewrites the mutable exam fields.
func (s *ExamService) Update(ctx context.Context, collegeID, id string, req ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	exam, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}
	exam.CourseID = req.CourseID
	exam.Title = req.Title
	exam.Description = req.Description
	exam.DurationMinutes = req.DurationMinutes
	exam.PassPercentage = req.PassPercentage
	exam.MaxAttempts = req.MaxAttempts
	if req.Active != nil {
		exam.Active = *req.Active
	}
	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// SetActive toggles exam visibility.
func (s *ExamService) SetActive(ctx context.Context, collegeID, id string, active bool) error {
	if _, err := s.Get(ctx, collegeID, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle exam")
	}
	return nil
}

// Questions returns an exam's full question set including answer keys.
// Admin only; the attempt path serves sanitized copies.
func (s *ExamService) Questions(ctx context.Context, collegeID, examID string) ([]models.Question, error) {
	if _, err := s.Get(ctx, collegeID, examID); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, nil
}

// ReplaceQuestions swaps the exam's question set and recomputes the total
// marks. Each question must have exactly one correct option.
func (s *ExamService) ReplaceQuestions(ctx context.Context, collegeID, examID string, req ReplaceQuestionsRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid questions payload")
	}
	exam, err := s.Get(ctx, collegeID, examID)
	if err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(req.Questions))
	totalMarks := 0
	for i, in := range req.Questions {
		options := in.Options
		if in.CorrectOption != "" {
			if !options.MarkCorrect(in.CorrectOption) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d names an unknown correct option", i+1))
			}
		}
		if _, ok := options.CorrectOption(); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d has no correct option", i+1))
		}
		marks := in.Marks
		if marks <= 0 {
			marks = 1
		}
		totalMarks += marks
		questions = append(questions, models.Question{Text: in.Text, Options: options, Marks: marks})
	}

	if err := s.questions.ReplaceForExam(ctx, examID, questions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace questions")
	}

	exam.TotalMarks = totalMarks
	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam totals")
	}
	return exam, nil
}
