package util

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindLimitExceeded
	KindExpired
	KindInvalidState
	KindForbidden
	KindUnauthorized
	KindUpstream
)

// AppError 服务层返回的业务错误，由 HandleError 统一转换为 HTTP 响应
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindLimitExceeded, KindExpired, KindInvalidState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func newError(kind ErrorKind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewValidation(format string, args ...interface{}) *AppError {
	return newError(KindValidation, format, args...)
}

func NewNotFound(format string, args ...interface{}) *AppError {
	return newError(KindNotFound, format, args...)
}

func NewConflict(format string, args ...interface{}) *AppError {
	return newError(KindConflict, format, args...)
}

func NewLimitExceeded(format string, args ...interface{}) *AppError {
	return newError(KindLimitExceeded, format, args...)
}

func NewExpired(format string, args ...interface{}) *AppError {
	return newError(KindExpired, format, args...)
}

func NewInvalidState(format string, args ...interface{}) *AppError {
	return newError(KindInvalidState, format, args...)
}

func NewForbidden(format string, args ...interface{}) *AppError {
	return newError(KindForbidden, format, args...)
}

func NewUpstream(err error, format string, args ...interface{}) *AppError {
	e := newError(KindUpstream, format, args...)
	e.Err = err
	return e
}

// IsKind 判断错误链中是否有指定类型的 AppError
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

var (
	ErrQuizNotFound       = NewNotFound("Quiz not found")
	ErrSessionNotFound    = NewNotFound("Quiz session not found or access denied")
	ErrCourseNotFound     = NewNotFound("Course not found")
	ErrModuleNotFound     = NewNotFound("Module not found")
	ErrLessonNotFound     = NewNotFound("Lesson not found")
	ErrQuestionNotFound   = NewNotFound("Question not found")
	ErrUserNotFound       = NewNotFound("User not found")
	ErrActiveSession      = NewConflict("You already have an active session for this quiz")
	ErrAlreadySubmitted   = NewConflict("Quiz already submitted")
	ErrAlreadyEnrolled    = NewConflict("Already enrolled in this course")
	ErrSessionCompleted   = NewInvalidState("Quiz session has already been completed")
	ErrSessionAutoExpired = NewInvalidState("Quiz session has expired and has been automatically completed")
	ErrSessionExpired     = NewExpired("Quiz session has expired")
	ErrNoAnswers          = NewValidation("No answers provided")
	ErrNotEnrolled        = NewForbidden("You are not enrolled in this course")
	ErrPermissionDenied   = NewForbidden("You do not have permission to modify this resource")
)
