package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

type mockExamRepo struct {
	exams   map[string]*models.Exam
	updated *models.Exam
}

func (m *mockExamRepo) List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error) {
	return nil, 0, nil
}

func (m *mockExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if e, ok := m.exams[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	exam.ID = "exam-new"
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	m.updated = exam
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) SetActive(ctx context.Context, id string, active bool) error {
	if e, ok := m.exams[id]; ok {
		e.Active = active
	}
	return nil
}

type mockQuestionRepo struct {
	replaced map[string][]models.Question
}

func (m *mockQuestionRepo) ListByExam(ctx context.Context, examID string) ([]models.Question, error) {
	return m.replaced[examID], nil
}

func (m *mockQuestionRepo) CountByExam(ctx context.Context, examID string) (int, error) {
	return len(m.replaced[examID]), nil
}

func (m *mockQuestionRepo) ReplaceForExam(ctx context.Context, examID string, questions []models.Question) error {
	if m.replaced == nil {
		m.replaced = map[string][]models.Question{}
	}
	m.replaced[examID] = questions
	return nil
}

type mockExamCourses struct {
	courses map[string]*models.Course
}

func (m *mockExamCourses) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newExamFixture() (*ExamService, *mockExamRepo, *mockQuestionRepo) {
	repo := &mockExamRepo{exams: map[string]*models.Exam{
		"exam-1": {ID: "exam-1", CollegeID: "college-1", CourseID: "course-1", Title: "Midterm", DurationMinutes: 60, PassPercentage: 40, MaxAttempts: 3, Active: true},
	}}
	questions := &mockQuestionRepo{}
	courses := &mockExamCourses{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", CollegeID: "college-1", Name: "Data Structures", Active: true},
		"course-2": {ID: "course-2", CollegeID: "college-2", Name: "Networks", Active: true},
	}}
	return NewExamService(repo, questions, courses, nil, nil), repo, questions
}

func optionsFor(correct int, texts ...string) models.OptionList {
	list := make(models.OptionList, 0, len(texts))
	for i, text := range texts {
		list = append(list, models.QuestionOption{
			ID:        string(rune('A' + i)),
			Text:      text,
			IsCorrect: i == correct,
		})
	}
	return list
}

func TestExamCreateInheritsCourseCollege(t *testing.T) {
	svc, _, _ := newExamFixture()

	exam, err := svc.Create(context.Background(), "college-1", ExamRequest{
		CourseID:        "course-1",
		Title:           "Finals",
		DurationMinutes: 90,
		PassPercentage:  50,
		MaxAttempts:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, "college-1", exam.CollegeID)
	assert.True(t, exam.Active)
}

func TestExamCreateRejectsForeignCourse(t *testing.T) {
	svc, _, _ := newExamFixture()

	_, err := svc.Create(context.Background(), "college-1", ExamRequest{
		CourseID:        "course-2",
		Title:           "Finals",
		DurationMinutes: 90,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExamGetEnforcesCollegeScope(t *testing.T) {
	svc, _, _ := newExamFixture()

	_, err := svc.Get(context.Background(), "college-2", "exam-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	exam, err := svc.Get(context.Background(), "", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, "Midterm", exam.Title)
}

func TestReplaceQuestionsRecomputesTotalMarks(t *testing.T) {
	svc, repo, questions := newExamFixture()

	exam, err := svc.ReplaceQuestions(context.Background(), "college-1", "exam-1", ReplaceQuestionsRequest{
		Questions: []QuestionInput{
			{Text: "Q1", Options: optionsFor(0, "a", "b", "c"), Marks: 2},
			{Text: "Q2", Options: optionsFor(1, "a", "b"), Marks: 3},
			{Text: "Q3", Options: optionsFor(0, "a", "b")}, // defaults to 1 mark
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, exam.TotalMarks)
	assert.Equal(t, 6, repo.updated.TotalMarks)
	assert.Len(t, questions.replaced["exam-1"], 3)
	assert.Equal(t, 1, questions.replaced["exam-1"][2].Marks)
}

func TestReplaceQuestionsMarkCorrectByID(t *testing.T) {
	svc, _, questions := newExamFixture()

	opts := optionsFor(-1, "a", "b", "c")
	_, err := svc.ReplaceQuestions(context.Background(), "college-1", "exam-1", ReplaceQuestionsRequest{
		Questions: []QuestionInput{
			{Text: "Q1", Options: opts, CorrectOption: "B", Marks: 1},
		},
	})
	require.NoError(t, err)
	correct, ok := questions.replaced["exam-1"][0].Options.CorrectOption()
	require.True(t, ok)
	assert.Equal(t, "B", correct.ID)
}

func TestReplaceQuestionsRejectsMissingCorrectOption(t *testing.T) {
	svc, _, _ := newExamFixture()

	_, err := svc.ReplaceQuestions(context.Background(), "college-1", "exam-1", ReplaceQuestionsRequest{
		Questions: []QuestionInput{
			{Text: "Q1", Options: optionsFor(-1, "a", "b"), Marks: 1},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReplaceQuestionsRejectsUnknownCorrectOption(t *testing.T) {
	svc, _, _ := newExamFixture()

	_, err := svc.ReplaceQuestions(context.Background(), "college-1", "exam-1", ReplaceQuestionsRequest{
		Questions: []QuestionInput{
			{Text: "Q1", Options: optionsFor(-1, "a", "b"), CorrectOption: "Z", Marks: 1},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
