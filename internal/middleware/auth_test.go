package middleware

import (
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	return cfg
}

func tokenFor(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role, Email: "u@example.com"}, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		if claims := util.GetUserFromContext(c); claims != nil {
			c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"guest": true})
	})
	r.GET("/x", handlers...)
	return r
}

func serve(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(testConfig()))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "garbage").Code)

	w := serve(r, tokenFor(t, 5, model.Student))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":5}`, w.Body.String())
}

func TestTryAuthMiddlewareAllowsGuests(t *testing.T) {
	r := newRouter(TryAuthMiddleware(testConfig()))

	assert.JSONEq(t, `{"guest":true}`, serve(r, "").Body.String())
	assert.JSONEq(t, `{"guest":true}`, serve(r, "garbage").Body.String())
	assert.JSONEq(t, `{"userId":3}`, serve(r, tokenFor(t, 3, model.Student)).Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(testConfig()), RoleMiddleware(model.Instructor))

	assert.Equal(t, http.StatusForbidden, serve(r, tokenFor(t, 1, model.Student)).Code)
	assert.Equal(t, http.StatusOK, serve(r, tokenFor(t, 2, model.Instructor)).Code)
	assert.Equal(t, http.StatusOK, serve(r, tokenFor(t, 3, model.Admin)).Code)
}

type seenRecorder struct {
	mu  sync.Mutex
	ids []uint
	wg  sync.WaitGroup
}

func (s *seenRecorder) UpdateLastSeen(userID uint) error {
	defer s.wg.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, userID)
	return nil
}

func TestActivityMiddlewareThrottlesPerUser(t *testing.T) {
	repo := &seenRecorder{}
	r := newRouter(AuthMiddleware(testConfig()), ActivityMiddleware(repo))
	token := tokenFor(t, 8, model.Student)

	repo.wg.Add(1)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, token).Code)
	}
	repo.wg.Wait()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, []uint{8}, repo.ids)
}
