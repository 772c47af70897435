package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type mockAttemptGate struct {
	decision *models.Decision
	err      error
}

func (m *mockAttemptGate) Gate(ctx context.Context, studentID, examID string) (*models.Decision, error) {
	return m.decision, m.err
}

type mockAttemptExams struct {
	exams map[string]*models.Exam
}

func (m *mockAttemptExams) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	exam, ok := m.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return exam, nil
}

type mockAttemptQuestions struct {
	byExam map[string][]models.Question
}

func (m *mockAttemptQuestions) ListByExam(ctx context.Context, examID string) ([]models.Question, error) {
	return m.byExam[examID], nil
}

type mockAttemptResults struct {
	created []*models.Result
}

func (m *mockAttemptResults) Create(ctx context.Context, result *models.Result) error {
	result.ID = "res-" + result.ExamID
	result.AttemptNumber = len(m.created) + 1
	m.created = append(m.created, result)
	return nil
}

func (m *mockAttemptResults) ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	out := make([]models.ResultDetail, 0, len(m.created))
	for _, r := range m.created {
		if r.StudentID == studentID {
			out = append(out, models.ResultDetail{Result: *r})
		}
	}
	return out, nil
}

func (m *mockAttemptResults) FindByID(ctx context.Context, id string) (*models.Result, error) {
	for _, r := range m.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func attemptOptions(correct string) models.OptionList {
	opts := models.OptionList{
		{ID: "A", Text: "first"},
		{ID: "B", Text: "second"},
		{ID: "C", Text: "third"},
		{ID: "D", Text: "fourth"},
	}
	opts.MarkCorrect(correct)
	return opts
}

func newAttemptService(gate *mockAttemptGate, results *mockAttemptResults) *AttemptService {
	exams := &mockAttemptExams{exams: map[string]*models.Exam{
		"exam-1": {
			ID:              "exam-1",
			CollegeID:       "col-1",
			Title:           "Midterm Physics",
			DurationMinutes: 60,
			TotalMarks:      5,
			PassPercentage:  50,
			MaxAttempts:     3,
			Active:          true,
		},
	}}
	questions := &mockAttemptQuestions{byExam: map[string][]models.Question{
		"exam-1": {
			{ID: "q-1", ExamID: "exam-1", Text: "one", Options: attemptOptions("A"), Marks: 2, Position: 1},
			{ID: "q-2", ExamID: "exam-1", Text: "two", Options: attemptOptions("C"), Marks: 3, Position: 2},
		},
	}}
	svc := NewAttemptService(gate, exams, questions, results, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestAttemptServiceStartStripsAnswerKeys(t *testing.T) {
	gate := &mockAttemptGate{decision: &models.Decision{Kind: models.DecisionAllowed, Allowed: true, AttemptsUsed: 1, MaxAttempts: 3}}
	svc := newAttemptService(gate, &mockAttemptResults{})

	paper, err := svc.Start(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)

	assert.Equal(t, "exam-1", paper.ExamID)
	assert.Equal(t, 2, paper.AttemptNumber)
	require.Len(t, paper.Questions, 2)
	for _, q := range paper.Questions {
		for _, opt := range q.Options {
			assert.False(t, opt.IsCorrect, "served paper must not carry answer keys")
		}
	}
}

func TestAttemptServiceStartDeniedByGate(t *testing.T) {
	gate := &mockAttemptGate{err: appErrors.Clone(appErrors.ErrMaxAttemptsReached, "maximum attempts reached for this exam")}
	svc := newAttemptService(gate, &mockAttemptResults{})

	_, err := svc.Start(context.Background(), "stu-1", "exam-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMaxAttemptsReached.Code, appErrors.FromError(err).Code)
}

func TestAttemptServiceSubmitGrades(t *testing.T) {
	gate := &mockAttemptGate{decision: &models.Decision{Kind: models.DecisionAllowed, Allowed: true}}
	results := &mockAttemptResults{}
	svc := newAttemptService(gate, results)

	result, err := svc.Submit(context.Background(), "stu-1", SubmitAttemptRequest{
		ExamID: "exam-1",
		Answers: []AnswerInput{
			{QuestionID: "q-1", SelectedOption: "A"},
			{QuestionID: "q-2", SelectedOption: "B"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 5, result.TotalMarks)
	assert.InDelta(t, 40.0, result.Percentage, 0.001)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.AttemptNumber)
	require.Len(t, result.Answers, 2)
	assert.True(t, result.Answers[0].Correct)
	assert.Equal(t, 2, result.Answers[0].MarksAwarded)
	assert.False(t, result.Answers[1].Correct)
	assert.Zero(t, result.Answers[1].MarksAwarded)
}

func TestAttemptServiceSubmitPassesAtThreshold(t *testing.T) {
	gate := &mockAttemptGate{decision: &models.Decision{Kind: models.DecisionAllowed, Allowed: true}}
	svc := newAttemptService(gate, &mockAttemptResults{})

	result, err := svc.Submit(context.Background(), "stu-1", SubmitAttemptRequest{
		ExamID: "exam-1",
		Answers: []AnswerInput{
			{QuestionID: "q-2", SelectedOption: "C"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Score)
	assert.InDelta(t, 60.0, result.Percentage, 0.001)
	assert.True(t, result.Passed)
}

func TestAttemptServiceSubmitUnansweredCountsWrong(t *testing.T) {
	gate := &mockAttemptGate{decision: &models.Decision{Kind: models.DecisionAllowed, Allowed: true}}
	svc := newAttemptService(gate, &mockAttemptResults{})

	result, err := svc.Submit(context.Background(), "stu-1", SubmitAttemptRequest{ExamID: "exam-1"})
	require.NoError(t, err)

	assert.Zero(t, result.Score)
	assert.False(t, result.Passed)
	require.Len(t, result.Answers, 2)
	assert.Empty(t, result.Answers[0].SelectedOption)
}
