package app

import (
	"elearning_backend/docs"
	"elearning_backend/internal/middleware"
	"elearning_backend/internal/model"
	"elearning_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由，游客可访问，登录用户能看到自己的草稿课程
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerQuizSessionRoutes(authGroup, c)

		// 讲师接口，管理员同样可用
		instructor := authGroup.Group("")
		instructor.Use(middleware.RoleMiddleware(model.Instructor))
		a.registerInstructorRoutes(instructor, c)
	}

	// 3. 管理员接口
	a.registerAdminRoutes(router, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	router.GET("/api/health", c.health.HealthCheck)

	public := router.Group("/api")
	public.Use(middleware.TryAuthMiddleware(a.Config))
	{
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", c.course.GetCourse)
		public.GET("/courses/:id/modules", c.course.ListModules)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/users/me", c.user.GetProfile)
	rg.PUT("/users/me", c.user.UpdateProfile)

	// 选课与支付
	rg.POST("/courses/:id/enroll", c.enrollment.Enroll)
	rg.DELETE("/courses/:id/enroll", c.enrollment.Unenroll)
	rg.GET("/courses/:id/enrollment", c.enrollment.GetStatus)
	rg.POST("/enrollments/verify", c.enrollment.VerifyPayment)
	rg.GET("/enrollments/me", c.enrollment.ListMyCourses)

	// 学习进度
	rg.POST("/lessons/:lessonId/complete", c.enrollment.CompleteLesson)
	rg.GET("/progress/courses/:id", c.enrollment.GetCourseProgress)
	rg.GET("/progress/me", c.enrollment.GetMyProgress)
	rg.GET("/lessons/:lessonId/quizzes", c.quiz.ListLessonQuizzes)

	// 学习分析
	rg.GET("/analytics/me", c.analytics.GetUserStatistics)
	rg.GET("/analytics/insights", c.analytics.GetInsights)
	rg.GET("/analytics/courses/:id", c.analytics.GetCourseStatistics)
}

func (a *App) registerQuizSessionRoutes(rg *gin.RouterGroup, c *controllers) {
	quizzes := rg.Group("/quizzes")
	{
		quizzes.GET("/:id/info", c.quizSession.GetQuizInfo)
		quizzes.POST("/:id/start", c.quizSession.StartQuiz)
		quizzes.POST("/:id/submit", c.quizSession.SubmitQuiz)
		quizzes.GET("/:id/results", c.quizSession.GetResults)
		quizzes.GET("/session/:sessionId/questions", c.quizSession.GetQuestions)
		quizzes.PUT("/session/:sessionId/progress", c.quizSession.SaveProgress)
		quizzes.GET("/session/:sessionId/status", c.quizSession.GetSessionStatus)
	}
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	// 课程内容
	rg.POST("/courses", c.course.CreateCourse)
	rg.PUT("/courses/:id", c.course.UpdateCourse)
	rg.DELETE("/courses/:id", c.course.DeleteCourse)
	rg.GET("/courses/:id/students", c.enrollment.ListStudents)
	rg.POST("/courses/:id/modules", c.course.CreateModule)
	rg.PUT("/modules/:moduleId", c.course.UpdateModule)
	rg.DELETE("/modules/:moduleId", c.course.DeleteModule)
	rg.POST("/modules/:moduleId/lessons", c.course.CreateLesson)
	rg.PUT("/lessons/:lessonId", c.course.UpdateLesson)
	rg.DELETE("/lessons/:lessonId", c.course.DeleteLesson)
	rg.POST("/lessons/:lessonId/assets", c.course.UploadLessonAsset)

	// 测验编辑
	rg.POST("/quizzes", c.quiz.CreateQuiz)
	rg.GET("/quizzes/mine", c.quiz.ListMyQuizzes)
	rg.GET("/quizzes/:id", c.quiz.GetQuiz)
	rg.PUT("/quizzes/:id", c.quiz.UpdateQuiz)
	rg.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)
	rg.POST("/quizzes/:id/questions", c.quiz.AddQuestions)
	rg.DELETE("/quizzes/questions/:questionId", c.quiz.DeactivateQuestion)

	rg.GET("/analytics/instructor", c.analytics.GetInstructorAnalytics)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(a.Config), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/analytics", c.analytics.GetPlatformAnalytics)
		admin.GET("/users", c.user.GetUsers)
		admin.GET("/users/:id", c.user.GetUser)
		admin.PUT("/users/:id/role", c.user.UpdateUserRole)
	}
}
