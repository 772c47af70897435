package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/models"
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
)

const defaultDashboardCacheTTL = 5 * time.Minute

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type dashboardSnapshotter interface {
	Snapshot(ctx context.Context, student *models.Student) (*models.SubscriptionSnapshot, error)
}

type dashboardStudentStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

type dashboardExamStore interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error)
}

type dashboardExamLinkReader interface {
	ListActiveExamIDsByBatch(ctx context.Context, batchID string) ([]string, error)
}

type dashboardResultReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error)
	CountByStudentAndExam(ctx context.Context, studentID, examID string) (int, error)
}

// AvailableExam is one exam a student can see, with their attempt budget.
type AvailableExam struct {
	models.Exam
	AttemptsUsed int `json:"attempts_used"`
}

// StudentDashboard is everything the student landing page renders.
type StudentDashboard struct {
	Student       *models.Student              `json:"student"`
	Batch         *models.Batch                `json:"batch,omitempty"`
	Subscription  *models.SubscriptionSnapshot `json:"subscription"`
	Exams         []AvailableExam              `json:"exams"`
	RecentResults []models.ResultDetail        `json:"recent_results"`
}

// AdminDashboard is the college admin landing page payload.
type AdminDashboard struct {
	TotalStudents  int `json:"total_students"`
	ActiveStudents int `json:"active_students"`
	TotalExams     int `json:"total_exams"`
	ActiveExams    int `json:"active_exams"`
}

// DashboardService assembles landing-page payloads, cached briefly in
// Redis since they fan out across half the schema.
type DashboardService struct {
	students    dashboardStudentStore
	batches     studentBatchReader
	exams       dashboardExamStore
	examLinks   dashboardExamLinkReader
	results     dashboardResultReader
	entitlement dashboardSnapshotter
	cache       dashboardCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(students dashboardStudentStore, batches studentBatchReader, exams dashboardExamStore, examLinks dashboardExamLinkReader, results dashboardResultReader, entitlement dashboardSnapshotter, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = defaultDashboardCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:    students,
		batches:     batches,
		exams:       exams,
		examLinks:   examLinks,
		results:     results,
		entitlement: entitlement,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// ForStudent builds the student dashboard for the given login account.
func (s *DashboardService) ForStudent(ctx context.Context, userID string) (*StudentDashboard, error) {
	cacheKey := "dashboard:student:" + userID
	var cached StudentDashboard
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	dashboard := &StudentDashboard{
		Student: student,
		Exams:   []AvailableExam{},
	}

	if student.BatchID != nil && *student.BatchID != "" {
		batch, err := s.batches.FindByID(ctx, *student.BatchID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
		}
		dashboard.Batch = batch
	}

	snapshot, err := s.entitlement.Snapshot(ctx, student)
	if err != nil {
		return nil, err
	}
	dashboard.Subscription = snapshot

	if dashboard.Batch != nil {
		exams, err := s.AvailableExams(ctx, student)
		if err != nil {
			return nil, err
		}
		dashboard.Exams = exams
	}

	results, err := s.results.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	if len(results) > 5 {
		results = results[:5]
	}
	dashboard.RecentResults = results

	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache student dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// AvailableExams lists the active exams assigned to the student's batch,
// each with the student's attempt count. Students without a batch see an
// empty list.
func (s *DashboardService) AvailableExams(ctx context.Context, student *models.Student) ([]AvailableExam, error) {
	if student.BatchID == nil || *student.BatchID == "" {
		return []AvailableExam{}, nil
	}
	ids, err := s.examLinks.ListActiveExamIDsByBatch(ctx, *student.BatchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned exams")
	}

	exams := make([]AvailableExam, 0, len(ids))
	for _, id := range ids {
		exam, err := s.exams.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
		}
		if !exam.Active {
			continue
		}
		used, err := s.results.CountByStudentAndExam(ctx, student.ID, exam.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attempts")
		}
		exams = append(exams, AvailableExam{Exam: *exam, AttemptsUsed: used})
	}
	return exams, nil
}

// ForAdmin builds the college admin dashboard.
func (s *DashboardService) ForAdmin(ctx context.Context, collegeID string) (*AdminDashboard, error) {
	cacheKey := "dashboard:admin:" + collegeID
	var cached AdminDashboard
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	dashboard := &AdminDashboard{}

	_, total, err := s.students.List(ctx, models.StudentFilter{CollegeID: collegeID, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	dashboard.TotalStudents = total

	active := true
	_, activeTotal, err := s.students.List(ctx, models.StudentFilter{CollegeID: collegeID, Active: &active, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active students")
	}
	dashboard.ActiveStudents = activeTotal

	_, examTotal, err := s.exams.List(ctx, models.ExamFilter{CollegeID: collegeID, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count exams")
	}
	dashboard.TotalExams = examTotal

	_, activeExamTotal, err := s.exams.List(ctx, models.ExamFilter{CollegeID: collegeID, Active: &active, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active exams")
	}
	dashboard.ActiveExams = activeExamTotal

	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache admin dashboard", zap.Error(err))
	}
	return dashboard, nil
}
