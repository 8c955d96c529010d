package app

import (
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/database"
	"elearning_backend/pkg/events"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerSecret = "router-test-secret-0123456789abcdef"

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenTestDB()
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.JWT.Secret = routerSecret
	cfg.Storage.Type = util.StorageLocal
	cfg.Storage.LocalPath = t.TempDir()
	cfg.Quiz.DefaultPageSize = 10
	cfg.Quiz.MaxPageSize = 100

	a := &App{Config: cfg, DB: db, publisher: events.NopPublisher{}}
	repos := a.initRepositories(db, nil)
	ctrls := a.initControllers(a.initServices(repos, db))

	a.Router = gin.New()
	a.registerRoutes(a.Router, ctrls, repos)
	return a
}

func (a *App) status(t *testing.T, method, path string, role model.UserRole) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 1}, Role: role}, routerSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w.Code
}

func TestRouteGuards(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, http.StatusOK, a.status(t, http.MethodGet, "/api/health", ""))
	assert.Equal(t, http.StatusOK, a.status(t, http.MethodGet, "/api/courses", ""))

	assert.Equal(t, http.StatusUnauthorized, a.status(t, http.MethodGet, "/api/quizzes/abc/info", ""))
	assert.Equal(t, http.StatusNotFound, a.status(t, http.MethodGet, "/api/quizzes/abc/info", model.Student))
	assert.Equal(t, http.StatusNotFound, a.status(t, http.MethodGet, "/api/quizzes/session/abc/status", model.Student))

	// 编辑接口仅对讲师和管理员开放
	assert.Equal(t, http.StatusForbidden, a.status(t, http.MethodGet, "/api/quizzes/mine", model.Student))
	assert.Equal(t, http.StatusOK, a.status(t, http.MethodGet, "/api/quizzes/mine", model.Instructor))
	assert.Equal(t, http.StatusNotFound, a.status(t, http.MethodGet, "/api/quizzes/abc", model.Admin))

	assert.Equal(t, http.StatusForbidden, a.status(t, http.MethodGet, "/api/admin/users", model.Instructor))
	assert.Equal(t, http.StatusOK, a.status(t, http.MethodGet, "/api/admin/users", model.Admin))
}
