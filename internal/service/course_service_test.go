package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/database"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourseService(t *testing.T) *CourseService {
	t.Helper()
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	storage := &StorageService{Provider: &LocalStorageProvider{Root: t.TempDir()}, Now: time.Now}
	return NewCourseService(repository.NewCourseRepository(db), storage)
}

func TestCourseLifecycle(t *testing.T) {
	svc := newCourseService(t)

	course, err := svc.CreateCourse(3, CourseRequest{Title: "Distributed systems", Price: 20})
	require.NoError(t, err)
	assert.Equal(t, model.CourseDraft, course.Status)

	// 草稿课程对其他用户不可见
	_, err = svc.GetCourse(course.ID, 4, false)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	courses, total, err := svc.ListCourses(CourseQuery{Page: 1, Limit: 10}, 4, false)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, courses)

	_, err = svc.UpdateCourse(course.ID, 4, false, CourseRequest{Title: "Mine now"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	updated, err := svc.UpdateCourse(course.ID, 3, false, CourseRequest{Title: "Distributed systems", Price: 20, Status: model.CoursePublished})
	require.NoError(t, err)
	assert.Equal(t, model.CoursePublished, updated.Status)

	courses, total, err = svc.ListCourses(CourseQuery{Search: "Distributed", Page: 1, Limit: 10}, 4, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, courses, 1)

	_, err = svc.CreateCourse(3, CourseRequest{Title: "Bad", Price: -1})
	assert.True(t, util.IsKind(err, util.KindValidation))

	require.NoError(t, svc.DeleteCourse(course.ID, 99, true))
	_, err = svc.GetCourse(course.ID, 3, false)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestModulesAndLessonsKeepOrder(t *testing.T) {
	svc := newCourseService(t)

	course, err := svc.CreateCourse(3, CourseRequest{Title: "Ordering", Status: model.CoursePublished})
	require.NoError(t, err)

	m1, err := svc.CreateModule(course.ID, 3, false, ModuleRequest{Title: "First"})
	require.NoError(t, err)
	m2, err := svc.CreateModule(course.ID, 3, false, ModuleRequest{Title: "Second"})
	require.NoError(t, err)
	assert.Equal(t, 0, m1.SortOrder)
	assert.Equal(t, 1, m2.SortOrder)

	_, err = svc.CreateModule(course.ID, 4, false, ModuleRequest{Title: "Intruder"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	l1, err := svc.CreateLesson(m2.ID, 3, false, LessonRequest{Title: "Intro", ContentType: model.ContentVideo})
	require.NoError(t, err)
	_, err = svc.CreateLesson(m2.ID, 3, false, LessonRequest{Title: "Bad", ContentType: "hologram"})
	assert.True(t, util.IsKind(err, util.KindValidation))

	full, err := svc.GetCourse(course.ID, 4, false)
	require.NoError(t, err)
	require.Len(t, full.Modules, 2)
	assert.Equal(t, "First", full.Modules[0].Title)
	require.Len(t, full.Modules[1].Lessons, 1)
	assert.Equal(t, l1.ID, full.Modules[1].Lessons[0].ID)

	_, err = svc.UpdateLesson(l1.ID, 3, false, LessonRequest{Title: "Intro v2", ContentType: model.ContentText, ContentData: "# hello"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteModule(m2.ID, 3, false))
	modules, err := svc.ListModules(course.ID, 3, false)
	require.NoError(t, err)
	assert.Len(t, modules, 1)

	assert.ErrorIs(t, svc.DeleteLesson(l1.ID, 3, false), util.ErrLessonNotFound)
}

func TestUploadLessonAsset(t *testing.T) {
	svc := newCourseService(t)
	ctx := context.Background()

	course, err := svc.CreateCourse(3, CourseRequest{Title: "Assets"})
	require.NoError(t, err)
	module, err := svc.CreateModule(course.ID, 3, false, ModuleRequest{Title: "Files"})
	require.NoError(t, err)
	lesson, err := svc.CreateLesson(module.ID, 3, false, LessonRequest{Title: "Slides"})
	require.NoError(t, err)

	content := "plain notes for the lesson"
	asset, err := svc.UploadLessonAsset(ctx, lesson.ID, 3, false, "my notes.txt", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/lessons/"+lesson.ID+"_my_notes.txt", asset.URL)
	assert.Contains(t, asset.MimeType, "text/plain")

	root := svc.Storage.Provider.(*LocalStorageProvider).Root
	data, err := os.ReadFile(filepath.Join(root, "lessons", lesson.ID+"_my_notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	_, err = svc.UploadLessonAsset(ctx, lesson.ID, 3, false, "second.md", strings.NewReader("# x"), 3)
	require.NoError(t, err)

	stored, err := svc.CourseRepo.FindLesson(lesson.ID)
	require.NoError(t, err)
	var assets []model.LessonAsset
	require.NoError(t, json.Unmarshal(stored.Attachments, &assets))
	assert.Len(t, assets, 2)

	_, err = svc.UploadLessonAsset(ctx, lesson.ID, 3, false, "virus.exe", strings.NewReader("MZ"), 2)
	assert.True(t, util.IsKind(err, util.KindValidation))

	_, err = svc.UploadLessonAsset(ctx, lesson.ID, 4, false, "notes.txt", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
