package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/examsphere/exam-portal-api/internal/middleware"
	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/repository"
	"github.com/examsphere/exam-portal-api/internal/service"
	"github.com/examsphere/exam-portal-api/pkg/config"
	"github.com/examsphere/exam-portal-api/pkg/logger"
	"github.com/examsphere/exam-portal-api/pkg/metrics"
	corsmiddleware "github.com/examsphere/exam-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/examsphere/exam-portal-api/pkg/middleware/requestid"
)

// RouterDeps carries everything the HTTP surface needs. All fields are
// required except Metrics, which disables instrumentation when nil.
type RouterDeps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	AuthService *service.AuthService
	Users       *repository.UserRepository

	Auth          *AuthHandler
	UserAdmin     *UserHandler
	Colleges      *CollegeHandler
	Taxonomy      *TaxonomyHandler
	Batches       *BatchHandler
	Plans         *PlanHandler
	Assignments   *AssignmentHandler
	Students      *StudentHandler
	Exams         *ExamHandler
	Subscriptions *SubscriptionHandler
	Entitlements  *EntitlementHandler
	Attempts      *AttemptHandler
	Results       *ResultHandler
	Incidents     *IncidentHandler
	Dashboards    *DashboardHandler
	Certificates  *CertificateHandler
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)
	authn := middleware.JWT(deps.AuthService)

	// Certificate downloads authenticate via the signed token, not a JWT.
	api.GET("/certificates/download", deps.Certificates.Download)

	auth := api.Group("/auth")
	{
		auth.POST("/login", middleware.Audit(deps.Users, models.AuditActionLogin, "auth"), deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
		auth.POST("/logout", authn, middleware.Audit(deps.Users, models.AuditActionLogout, "auth"), deps.Auth.Logout)
		auth.POST("/change-password", authn, middleware.Audit(deps.Users, models.AuditActionPasswordChange, "auth"), deps.Auth.ChangePassword)
		auth.GET("/me", authn, deps.Auth.Me)
	}

	admin := api.Group("/admin", authn, middleware.RequireRoles(models.RoleCollegeAdmin, models.RoleSuperAdmin))
	{
		colleges := admin.Group("/colleges")
		{
			colleges.GET("", middleware.RequireRoles(models.RoleSuperAdmin), deps.Colleges.List)
			colleges.POST("", middleware.RequireRoles(models.RoleSuperAdmin), deps.Colleges.Create)
			colleges.GET("/:id", deps.Colleges.Get)
			colleges.PUT("/:id", middleware.RequireRoles(models.RoleSuperAdmin), deps.Colleges.Update)
			colleges.PATCH("/:id/active", middleware.RequireRoles(models.RoleSuperAdmin), deps.Colleges.SetActive)
		}

		users := admin.Group("/users", middleware.RequireRoles(models.RoleSuperAdmin))
		{
			users.GET("", deps.UserAdmin.List)
			users.POST("", deps.UserAdmin.Create)
			users.GET("/:id", deps.UserAdmin.Get)
			users.PUT("/:id", deps.UserAdmin.Update)
			users.DELETE("/:id", deps.UserAdmin.Delete)
		}

		admin.GET("/subjects", deps.Taxonomy.ListSubjects)
		admin.POST("/subjects", deps.Taxonomy.CreateSubject)
		admin.PUT("/subjects/:id", deps.Taxonomy.UpdateSubject)
		admin.GET("/courses", deps.Taxonomy.ListCourses)
		admin.POST("/courses", deps.Taxonomy.CreateCourse)
		admin.PUT("/courses/:id", deps.Taxonomy.UpdateCourse)

		admin.GET("/batches", deps.Batches.List)
		admin.POST("/batches", deps.Batches.Create)
		admin.GET("/batches/:id", deps.Batches.Get)
		admin.PUT("/batches/:id", deps.Batches.Update)

		admin.GET("/plans", deps.Plans.List)
		admin.POST("/plans", deps.Plans.Create)
		admin.GET("/plans/:id", deps.Plans.Get)
		admin.PUT("/plans/:id", deps.Plans.Update)
		admin.POST("/plans/:id/default", deps.Plans.SetDefault)
		admin.PATCH("/plans/:id/active", deps.Plans.SetActive)

		batchPlans := admin.Group("/batch-assignments", middleware.Audit(deps.Users, models.AuditActionAssignmentChange, "batch_plan_assignment"))
		{
			batchPlans.GET("", deps.Assignments.ListBatchPlans)
			batchPlans.POST("", deps.Assignments.AssignBatchPlan)
			batchPlans.PATCH("/:id/active", deps.Assignments.SetBatchPlanActive)
			batchPlans.DELETE("/:id", deps.Assignments.DeleteBatchPlan)
		}

		admin.GET("/exam-assignments", deps.Assignments.ListExamAssignments)
		admin.POST("/exam-assignments", deps.Assignments.AssignExam)
		admin.DELETE("/exam-assignments/:examId/:batchId", deps.Assignments.UnassignExam)

		admin.GET("/students", deps.Students.List)
		admin.POST("/students", deps.Students.Create)
		admin.GET("/students/template", deps.Students.StudentTemplate)
		admin.POST("/students/import", deps.Students.Import)
		admin.GET("/students/:id", deps.Students.Get)
		admin.PUT("/students/:id", deps.Students.Update)
		admin.PATCH("/students/:id/batch", deps.Students.AssignBatch)
		admin.PATCH("/students/:id/active", deps.Students.SetActive)
		admin.POST("/students/:id/resume", deps.Students.UploadResume)

		admin.GET("/exams", deps.Exams.List)
		admin.POST("/exams", deps.Exams.Create)
		admin.GET("/exams/template", deps.Students.QuestionTemplate)
		admin.GET("/exams/:id", deps.Exams.Get)
		admin.PUT("/exams/:id", deps.Exams.Update)
		admin.PATCH("/exams/:id/active", deps.Exams.SetActive)
		admin.GET("/exams/:id/questions", deps.Exams.Questions)
		admin.PUT("/exams/:id/questions", deps.Exams.ReplaceQuestions)
		admin.GET("/exams/:id/stats", deps.Results.Stats)
		admin.GET("/exams/:id/incidents", deps.Incidents.Analytics)
		admin.GET("/exams/:id/best/:studentId", deps.Results.Best)

		admin.GET("/results", deps.Results.List)
		admin.GET("/results/export", deps.Results.Export)
		admin.GET("/incidents", deps.Incidents.List)

		admin.GET("/subscriptions", deps.Subscriptions.List)
		admin.POST("/subscriptions/:id/suspend", middleware.Audit(deps.Users, models.AuditActionSubscription, "subscription"), deps.Subscriptions.Suspend)
		admin.POST("/subscriptions/:id/reinstate", middleware.Audit(deps.Users, models.AuditActionSubscription, "subscription"), deps.Subscriptions.Reinstate)

		admin.GET("/dashboard", deps.Dashboards.Admin)
	}

	student := api.Group("/student", authn, middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/dashboard", deps.Dashboards.Student)
		student.GET("/plans", deps.Plans.Catalog)

		student.GET("/subscriptions", deps.Subscriptions.History)
		student.POST("/subscriptions/purchase", deps.Subscriptions.Purchase)
		student.POST("/subscriptions/confirm", middleware.Audit(deps.Users, models.AuditActionSubscription, "subscription"), deps.Subscriptions.Confirm)

		student.GET("/exams", deps.Exams.Available)
		student.GET("/exams/:examId/access", deps.Entitlements.Resolve)
		student.POST("/exams/:examId/attempt", deps.Attempts.Start)
		student.POST("/attempts", deps.Attempts.Submit)

		student.GET("/results", deps.Attempts.History)
		student.GET("/results/:id", deps.Attempts.Get)
		student.POST("/results/:id/certificate", deps.Certificates.Request)

		student.GET("/certificates", deps.Certificates.List)
		student.POST("/certificates/:id/download", deps.Certificates.DownloadTicket)

		student.POST("/incidents", deps.Incidents.Report)
	}

	return r
}
