package controller

import (
	"bytes"
	"elearning_backend/internal/config"
	"elearning_backend/internal/middleware"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/database"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type learningAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newLearningAPI(t *testing.T) *learningAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenTestDB()
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{FirstName: "Ada", Email: "ada@example.com", Role: model.Instructor}).Error)
	require.NoError(t, db.Create(&model.User{FirstName: "Sam", Email: "sam@example.com", Role: model.Student}).Error)

	courseRepo := repository.NewCourseRepository(db)
	storage := &service.StorageService{Provider: &service.LocalStorageProvider{Root: t.TempDir()}, Now: time.Now}
	courses := NewCourseController(service.NewCourseService(courseRepo, storage))
	enrollments := NewEnrollmentController(service.NewEnrollmentService(db,
		courseRepo,
		repository.NewEnrollmentRepository(db),
		repository.NewUserRepository(db),
		nil,
		nil,
	))
	analytics := NewAnalyticsController(service.NewAnalyticsService(repository.NewAnalyticsRepository(db), courseRepo))

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret

	r := gin.New()
	public := r.Group("/api", middleware.TryAuthMiddleware(cfg))
	public.GET("/courses", courses.ListCourses)
	public.GET("/courses/:id", courses.GetCourse)

	auth := r.Group("/api", middleware.AuthMiddleware(cfg))
	teach := auth.Group("", middleware.RoleMiddleware(model.Instructor))
	teach.POST("/courses", courses.CreateCourse)
	teach.POST("/courses/:id/modules", courses.CreateModule)
	teach.POST("/modules/:moduleId/lessons", courses.CreateLesson)
	teach.POST("/lessons/:lessonId/assets", courses.UploadLessonAsset)
	auth.POST("/courses/:id/enroll", enrollments.Enroll)
	auth.POST("/lessons/:lessonId/complete", enrollments.CompleteLesson)
	auth.GET("/progress/courses/:id", enrollments.GetCourseProgress)
	auth.GET("/analytics/courses/:id", analytics.GetCourseStatistics)
	auth.GET("/admin/analytics", middleware.RoleMiddleware(model.Admin), analytics.GetPlatformAnalytics)

	return &learningAPI{t: t, router: r}
}

func (a *learningAPI) token(id uint, role model.UserRole) string {
	token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role}, testSecret, time.Hour)
	require.NoError(a.t, err)
	return token
}

func (a *learningAPI) send(req *http.Request, token string) (int, envelope) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *learningAPI) json(method, path, token string, body interface{}, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	code, env := a.send(req, token)
	if out != nil && env.Success {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return code
}

func TestCourseEnrollmentHTTPFlow(t *testing.T) {
	api := newLearningAPI(t)
	ada := api.token(1, model.Instructor)
	sam := api.token(2, model.Student)

	assert.Equal(t, http.StatusForbidden, api.json(http.MethodPost, "/api/courses", sam, service.CourseRequest{Title: "Nope"}, nil))

	var course model.Course
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/courses", ada,
		service.CourseRequest{Title: "Networking", Status: model.CoursePublished}, &course))

	var module model.Module
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/courses/"+course.ID+"/modules", ada,
		service.ModuleRequest{Title: "Sockets"}, &module))

	var lesson model.Lesson
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/modules/"+module.ID+"/lessons", ada,
		service.LessonRequest{Title: "TCP"}, &lesson))

	// 游客也能浏览已发布课程
	var page util.PageResponse
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, "/api/courses?search=Net", "", nil, &page))
	assert.Equal(t, int64(1), page.Total)

	assert.Equal(t, http.StatusForbidden, api.json(http.MethodPost, "/api/lessons/"+lesson.ID+"/complete", sam, nil, nil))

	var enrolled service.EnrollmentInitiation
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/courses/"+course.ID+"/enroll", sam, nil, &enrolled))
	assert.False(t, enrolled.RequiresPayment())
	assert.Equal(t, http.StatusConflict, api.json(http.MethodPost, "/api/courses/"+course.ID+"/enroll", sam, nil, nil))

	var done service.LessonCompletionResult
	require.Equal(t, http.StatusOK, api.json(http.MethodPost, "/api/lessons/"+lesson.ID+"/complete", sam, nil, &done))
	assert.Equal(t, 100, done.ProgressPercentage)
	assert.True(t, done.IsCourseCompleted)

	var progress service.CourseProgress
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, "/api/progress/courses/"+course.ID, sam, nil, &progress))
	assert.True(t, progress.IsCompleted)

	assert.Equal(t, http.StatusForbidden, api.json(http.MethodGet, "/api/analytics/courses/"+course.ID, sam, nil, nil))
	var stats service.CourseStatistics
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, "/api/analytics/courses/"+course.ID, ada, nil, &stats))
	assert.Equal(t, 100, stats.Statistics.CompletionRate)

	assert.Equal(t, http.StatusForbidden, api.json(http.MethodGet, "/api/admin/analytics", ada, nil, nil))
	var platform service.PlatformAnalytics
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, "/api/admin/analytics", api.token(9, model.Admin), nil, &platform))
	assert.Equal(t, int64(1), platform.Overview.TotalCourses)
}

func TestUploadLessonAssetHTTP(t *testing.T) {
	api := newLearningAPI(t)
	ada := api.token(1, model.Instructor)

	var course model.Course
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/courses", ada, service.CourseRequest{Title: "Files"}, &course))
	var module model.Module
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/courses/"+course.ID+"/modules", ada, service.ModuleRequest{Title: "Week 1"}, &module))
	var lesson model.Lesson
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/modules/"+module.ID+"/lessons", ada, service.LessonRequest{Title: "Slides"}, &lesson))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/lessons/"+lesson.ID+"/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, env := api.send(req, ada)
	require.Equal(t, http.StatusCreated, code)
	var asset model.LessonAsset
	require.NoError(t, json.Unmarshal(env.Data, &asset))
	assert.Equal(t, int64(5), asset.Size)

	req = httptest.NewRequest(http.MethodPost, "/api/lessons/"+lesson.ID+"/assets", nil)
	code, _ = api.send(req, ada)
	assert.Equal(t, http.StatusBadRequest, code)
}
