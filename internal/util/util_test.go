package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"elearning_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrNoAnswers, http.StatusBadRequest},
		{ErrSessionNotFound, http.StatusNotFound},
		{ErrActiveSession, http.StatusConflict},
		{NewLimitExceeded("Maximum attempts exceeded"), http.StatusBadRequest},
		{ErrSessionExpired, http.StatusBadRequest},
		{ErrSessionCompleted, http.StatusBadRequest},
		{ErrPermissionDenied, http.StatusForbidden},
		{NewUpstream(errors.New("timeout"), "payment gateway unavailable"), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", ErrQuizNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleError(c, tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		var body Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, tc.status, body.Code)
	}
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(fmt.Errorf("x: %w", ErrAlreadySubmitted), KindConflict))
	assert.False(t, IsKind(errors.New("plain"), KindConflict))
}

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "a@b.c", Role: model.Instructor}
	user.ID = 7

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, model.Instructor, claims.Role)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"/?page=0&limit=abc", 1, 10},
		{"/?page=3&limit=500", 3, 100},
		{"/", 1, 10},
	}
	for _, tc := range cases {
		// gin.Context 会缓存 query，每个用例用新的 context
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tc.query, nil)
		page, limit := ParsePage(c, 10, 100)
		assert.Equal(t, tc.wantPage, page, tc.query)
		assert.Equal(t, tc.wantLimit, limit, tc.query)
	}
}

func TestSniffContentType(t *testing.T) {
	mime, r, err := SniffContentType(strings.NewReader("%PDF-1.4 hello"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 hello", string(all))
}

func TestValidateExtensionAndObjectName(t *testing.T) {
	assert.NoError(t, ValidateExtension("Slides.PDF", AllowedLessonAssetExtensions))
	assert.True(t, IsKind(ValidateExtension("run.exe", AllowedLessonAssetExtensions), KindValidation))

	assert.Equal(t, "lessons/abc_passwd", SafeObjectName("lessons", "abc", "../../etc/passwd"))
	assert.Equal(t, "lessons/abc_my_file.pdf", SafeObjectName("lessons", "abc", "my file.pdf"))
}
