package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type attemptGate interface {
	Gate(ctx context.Context, studentID, examID string) (*models.Decision, error)
}

type attemptExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type attemptQuestionReader interface {
	ListByExam(ctx context.Context, examID string) ([]models.Question, error)
}

type attemptResultWriter interface {
	Create(ctx context.Context, result *models.Result) error
	ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error)
	FindByID(ctx context.Context, id string) (*models.Result, error)
}

// AttemptPaper is the exam as served to a student who just started an
// attempt. Questions are sanitized: correct-option flags are stripped.
type AttemptPaper struct {
	ExamID          string            `json:"exam_id"`
	Title           string            `json:"title"`
	DurationMinutes int               `json:"duration_minutes"`
	TotalMarks      int               `json:"total_marks"`
	PassPercentage  float64           `json:"pass_percentage"`
	AttemptNumber   int               `json:"attempt_number"`
	Questions       []models.Question `json:"questions"`
	StartedAt       time.Time         `json:"started_at"`
}

// AnswerInput is one submitted answer.
type AnswerInput struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedOption string `json:"selected_option"`
}

// SubmitAttemptRequest carries a finished attempt back for grading.
type SubmitAttemptRequest struct {
	ExamID    string        `json:"exam_id" validate:"required"`
	StartedAt time.Time     `json:"started_at"`
	Answers   []AnswerInput `json:"answers" validate:"dive"`
}

// AttemptService starts and grades exam attempts. Every entry point runs
// through the entitlement gate first.
type AttemptService struct {
	gate      attemptGate
	exams     attemptExamReader
	questions attemptQuestionReader
	results   attemptResultWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttemptService constructs AttemptService.
func NewAttemptService(gate attemptGate, exams attemptExamReader, questions attemptQuestionReader, results attemptResultWriter, validate *validator.Validate, logger *zap.Logger) *AttemptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptService{
		gate:      gate,
		exams:     exams,
		questions: questions,
		results:   results,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Start gates the student and, if allowed, serves the question paper
// without answer keys.
func (s *AttemptService) Start(ctx context.Context, studentID, examID string) (*AttemptPaper, error) {
	decision, err := s.gate.Gate(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	if len(questions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam has no questions yet")
	}

	paper := &AttemptPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		TotalMarks:      exam.TotalMarks,
		PassPercentage:  exam.PassPercentage,
		AttemptNumber:   decision.AttemptsUsed + 1,
		Questions:       make([]models.Question, len(questions)),
		StartedAt:       s.now().UTC(),
	}
	for i, q := range questions {
		paper.Questions[i] = q.Sanitized()
	}
	return paper, nil
}

// Submit grades the attempt against the stored answer keys and writes an
// immutable result. The attempt number is assigned by the result store.
func (s *AttemptService) Submit(ctx context.Context, studentID string, req SubmitAttemptRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	if _, err := s.gate.Gate(ctx, studentID, req.ExamID); err != nil {
		return nil, err
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	questions, err := s.questions.ListByExam(ctx, req.ExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}

	selected := make(map[string]string, len(req.Answers))
	for _, a := range req.Answers {
		selected[a.QuestionID] = a.SelectedOption
	}

	score := 0
	totalMarks := 0
	answers := make(models.AnswerList, 0, len(questions))
	for _, q := range questions {
		totalMarks += q.Marks
		answer := models.Answer{QuestionID: q.ID, SelectedOption: selected[q.ID]}
		if correct, ok := q.Options.CorrectOption(); ok && answer.SelectedOption != "" && answer.SelectedOption == correct.ID {
			answer.Correct = true
			answer.MarksAwarded = q.Marks
			score += q.Marks
		}
		answers = append(answers, answer)
	}

	percentage := 0.0
	if totalMarks > 0 {
		percentage = float64(score) / float64(totalMarks) * 100
	}

	startedAt := req.StartedAt
	if startedAt.IsZero() {
		startedAt = s.now().UTC()
	}
	result := &models.Result{
		StudentID:   studentID,
		ExamID:      req.ExamID,
		Score:       score,
		TotalMarks:  totalMarks,
		Percentage:  percentage,
		Passed:      percentage >= exam.PassPercentage,
		Answers:     answers,
		StartedAt:   startedAt.UTC(),
		SubmittedAt: s.now().UTC(),
	}
	if err := s.results.Create(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record result")
	}

	s.logger.Info("attempt graded",
		zap.String("student_id", studentID),
		zap.String("exam_id", req.ExamID),
		zap.Int("attempt_number", result.AttemptNumber),
		zap.Int("score", score),
		zap.Bool("passed", result.Passed))
	return result, nil
}

// History lists the student's results, newest first.
func (s *AttemptService) History(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	rows, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return rows, nil
}

// Get returns one result, restricted to its owner unless ownerOnly is off.
func (s *AttemptService) Get(ctx context.Context, studentID, resultID string, ownerOnly bool) (*models.Result, error) {
	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if ownerOnly && result.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "result belongs to another student")
	}
	return result, nil
}
