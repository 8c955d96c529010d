package app

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/controller"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/seed"
	"elearning_backend/internal/service"
	"elearning_backend/pkg/configwatcher"
	"elearning_backend/pkg/database"
	"elearning_backend/pkg/events"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"elearning_backend/pkg/security"
	"elearning_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configFile = "configs/config.yaml"

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	publisher events.Publisher
	limiter   *security.RateLimiter
	reaper    *service.SessionReaper
	tracer    *sdktrace.TracerProvider
	stopWatch context.CancelFunc
}

type repositories struct {
	user           *repository.UserRepository
	course         *repository.CourseRepository
	enrollment     *repository.EnrollmentRepository
	quiz           *repository.QuizRepository
	quizSubmission *repository.QuizSubmissionRepository
	analytics      *repository.AnalyticsRepository
}

type services struct {
	user        *service.UserService
	storage     *service.StorageService
	course      *service.CourseService
	enrollment  *service.EnrollmentService
	quiz        *service.QuizService
	quizSession *service.QuizSessionService
	analytics   *service.AnalyticsService
}

type controllers struct {
	user        *controller.UserController
	course      *controller.CourseController
	enrollment  *controller.EnrollmentController
	quiz        *controller.QuizController
	quizSession *controller.QuizSessionController
	analytics   *controller.AnalyticsController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	ttl := time.Duration(a.Config.Redis.QuizCacheTTL) * time.Second
	return &repositories{
		user:           repository.NewUserRepository(db),
		course:         repository.NewCourseRepository(db),
		enrollment:     repository.NewEnrollmentRepository(db),
		quiz:           repository.NewQuizRepository(db, rdb, ttl),
		quizSubmission: repository.NewQuizSubmissionRepository(db),
		analytics:      repository.NewAnalyticsRepository(db),
	}
}

func (a *App) initServices(repos *repositories, db *gorm.DB) *services {
	cfg := a.Config
	s := &services{}
	s.user = service.NewUserService(repos.user)
	s.storage = service.NewStorageService(&cfg.Storage)
	s.course = service.NewCourseService(repos.course, s.storage)
	s.enrollment = service.NewEnrollmentService(db, repos.course, repos.enrollment, repos.user,
		service.NewPaystackClient(&cfg.Payment), a.publisher)
	s.quiz = service.NewQuizService(db, repos.quiz, repos.course)
	s.quizSession = service.NewQuizSessionService(db, repos.quiz, repos.quizSubmission, a.publisher, &cfg.Quiz)
	s.analytics = service.NewAnalyticsService(repos.analytics, repos.course)
	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		user:        controller.NewUserController(s.user),
		course:      controller.NewCourseController(s.course),
		enrollment:  controller.NewEnrollmentController(s.enrollment),
		quiz:        controller.NewQuizController(s.quiz),
		quizSession: controller.NewQuizSessionController(s.quizSession),
		analytics:   controller.NewAnalyticsController(s.analytics),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine) {
	cfg := a.Config
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) initPublisher() {
	a.publisher = events.NopPublisher{}
	if !a.Config.Events.Enabled {
		return
	}
	p, err := events.NewAMQPPublisher(a.Config.Events.AMQPURL, a.Config.Events.Exchange)
	if err != nil {
		logger.Log.Error("Failed to connect to amqp, events disabled", zap.Error(err))
		return
	}
	a.publisher = p
}

func (a *App) migrate() {
	cfg := a.Config
	if !cfg.ForceMigrate && cfg.Server.Mode == gin.ReleaseMode {
		logger.Log.Info("Skipping auto migration in release mode")
		return
	}
	if err := database.Migrate(a.DB); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Log.Info("Database migrated")
}

func (a *App) importSeed() {
	f, err := seed.LoadFile(a.Config.SeedFile)
	if err != nil {
		logger.Log.Fatal("Failed to load seed file", zap.String("path", a.Config.SeedFile), zap.Error(err))
	}
	if _, err := seed.Import(a.DB, f, time.Now()); err != nil {
		logger.Log.Fatal("Failed to import seed data", zap.Error(err))
	}
}

// onConfigReload 只有日志级别和限流参数支持热更新，其余配置需要重启
func (a *App) onConfigReload(cfg *config.Config) {
	logger.SetMode(cfg.Server.Mode)
	a.limiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
}

func (a *App) startBackgroundTasks(s *services) {
	if a.Config.Quiz.ReaperEnabled {
		a.reaper = service.NewSessionReaper(s.quizSession)
		if err := a.reaper.Start(a.Config.Quiz.ReaperSpec); err != nil {
			logger.Log.Fatal("Failed to start session reaper", zap.Error(err))
		}
		logger.Log.Info("Session reaper started", zap.String("spec", a.Config.Quiz.ReaperSpec))
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatch = cancel
	go func() {
		if err := configwatcher.New(configFile, a.onConfigReload).Run(ctx); err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	app.migrate()
	if cfg.SeedFile != "" {
		app.importSeed()
	}
	if cfg.MigrateOnly {
		return app
	}

	app.initPublisher()
	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, db)
	controllers := app.initControllers(services)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("elearning-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.setupMiddlewares(router)
	app.registerRoutes(router, controllers, repos)

	if _, ok := services.storage.Provider.(*service.LocalStorageProvider); ok {
		router.Static("/uploads", filepath.Clean(cfg.Storage.LocalPath))
	}

	app.startBackgroundTasks(services)
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 释放后台任务和外部连接，HTTP 服务关闭之后调用
func (a *App) Close(ctx context.Context) {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	a.reaper.Stop()
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
