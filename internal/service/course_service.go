package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo *repository.CourseRepository
	Storage    *StorageService
}

func NewCourseService(courseRepo *repository.CourseRepository, storage *StorageService) *CourseService {
	return &CourseService{CourseRepo: courseRepo, Storage: storage}
}

type CourseRequest struct {
	Title          string               `json:"title" binding:"required"`
	Description    string               `json:"description"`
	Price          int                  `json:"price"`
	ThumbnailURL   string               `json:"thumbnailUrl"`
	EstimatedHours *int                 `json:"estimatedHours"`
	Status         model.CourseStatus   `json:"status"`
	Difficulty     model.QuizDifficulty `json:"difficulty"`
}

type ModuleRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       *int   `json:"order"`
}

type LessonRequest struct {
	Title           string            `json:"title" binding:"required"`
	Description     string            `json:"description"`
	ContentType     model.ContentType `json:"contentType"`
	ContentData     string            `json:"contentData"`
	Order           *int              `json:"order"`
	DurationMinutes *int              `json:"durationMinutes"`
}

type CourseQuery struct {
	Search       string
	Status       model.CourseStatus
	InstructorID uint
	Difficulty   model.QuizDifficulty
	Page         int
	Limit        int
}

func (r *CourseRequest) validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if r.Price < 0 {
		return util.NewValidation("Price must not be negative")
	}
	if r.EstimatedHours != nil && *r.EstimatedHours < 0 {
		return util.NewValidation("Estimated hours must not be negative")
	}
	if r.Status == "" {
		r.Status = model.CourseDraft
	}
	if !r.Status.Valid() {
		return util.NewValidation("Invalid course status %q", r.Status)
	}
	if r.Difficulty == "" {
		r.Difficulty = model.DifficultyBeginner
	}
	if !r.Difficulty.Valid() {
		return util.NewValidation("Invalid difficulty %q", r.Difficulty)
	}
	return nil
}

func (r *LessonRequest) validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if r.ContentType == "" {
		r.ContentType = model.ContentText
	}
	if !r.ContentType.Valid() {
		return util.NewValidation("Invalid content type %q", r.ContentType)
	}
	if r.DurationMinutes != nil && *r.DurationMinutes < 0 {
		return util.NewValidation("Duration must not be negative")
	}
	return nil
}

func (s *CourseService) findCourse(id string) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourse(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

func (s *CourseService) ownedCourse(id string, userID uint, isAdmin bool) (*model.Course, error) {
	course, err := s.findCourse(id)
	if err != nil {
		return nil, err
	}
	if !canManage(course.InstructorID, userID, isAdmin) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *CourseService) ownedModule(id string, userID uint, isAdmin bool) (*model.Module, error) {
	module, err := s.CourseRepo.FindModule(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(module.CourseID, userID, isAdmin); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *CourseService) ownedLesson(id string, userID uint, isAdmin bool) (*model.Lesson, error) {
	lesson, err := s.CourseRepo.FindLesson(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedModule(lesson.ModuleID, userID, isAdmin); err != nil {
		return nil, err
	}
	return lesson, nil
}

// ListCourses 非管理员只能看到已发布课程和自己的课程
func (s *CourseService) ListCourses(q CourseQuery, userID uint, isAdmin bool) ([]model.Course, int64, error) {
	filter := repository.CourseFilter{
		Search:       strings.TrimSpace(q.Search),
		Status:       q.Status,
		InstructorID: q.InstructorID,
		Difficulty:   q.Difficulty,
	}
	if !isAdmin && filter.InstructorID != userID {
		filter.Status = model.CoursePublished
	}
	return s.CourseRepo.ListCourses(filter, q.Page, q.Limit)
}

func (s *CourseService) GetCourse(id string, userID uint, isAdmin bool) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourseWithContent(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if course.Status != model.CoursePublished && !canManage(course.InstructorID, userID, isAdmin) {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

func (s *CourseService) CreateCourse(instructorID uint, req CourseRequest) (*model.Course, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	course := &model.Course{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Price:          req.Price,
		ThumbnailURL:   req.ThumbnailURL,
		EstimatedHours: req.EstimatedHours,
		Status:         req.Status,
		Difficulty:     req.Difficulty,
		InstructorID:   instructorID,
	}
	if err := s.CourseRepo.CreateCourse(course); err != nil {
		return nil, err
	}
	logger.L().Info("course created", zap.String("courseId", course.ID), zap.Uint("instructorId", instructorID))
	return course, nil
}

func (s *CourseService) UpdateCourse(id string, userID uint, isAdmin bool, req CourseRequest) (*model.Course, error) {
	course, err := s.ownedCourse(id, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	course.Title = strings.TrimSpace(req.Title)
	course.Description = req.Description
	course.Price = req.Price
	course.ThumbnailURL = req.ThumbnailURL
	course.EstimatedHours = req.EstimatedHours
	course.Status = req.Status
	course.Difficulty = req.Difficulty

	if err := s.CourseRepo.UpdateCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) DeleteCourse(id string, userID uint, isAdmin bool) error {
	if _, err := s.ownedCourse(id, userID, isAdmin); err != nil {
		return err
	}
	return s.CourseRepo.DeleteCourse(id)
}

func (s *CourseService) CreateModule(courseID string, userID uint, isAdmin bool, req ModuleRequest) (*model.Module, error) {
	if _, err := s.ownedCourse(courseID, userID, isAdmin); err != nil {
		return nil, err
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		next, err := s.CourseRepo.NextModuleOrder(courseID)
		if err != nil {
			return nil, err
		}
		order = next
	}

	module := &model.Module{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		SortOrder:   order,
	}
	if err := s.CourseRepo.CreateModule(module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *CourseService) UpdateModule(id string, userID uint, isAdmin bool, req ModuleRequest) (*model.Module, error) {
	module, err := s.ownedModule(id, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	module.Title = strings.TrimSpace(req.Title)
	module.Description = req.Description
	if req.Order != nil {
		module.SortOrder = *req.Order
	}
	if err := s.CourseRepo.UpdateModule(module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *CourseService) DeleteModule(id string, userID uint, isAdmin bool) error {
	if _, err := s.ownedModule(id, userID, isAdmin); err != nil {
		return err
	}
	return s.CourseRepo.DeleteModule(id)
}

func (s *CourseService) ListModules(courseID string, userID uint, isAdmin bool) ([]model.Module, error) {
	if _, err := s.GetCourse(courseID, userID, isAdmin); err != nil {
		return nil, err
	}
	return s.CourseRepo.ListModules(courseID)
}

func (s *CourseService) CreateLesson(moduleID string, userID uint, isAdmin bool, req LessonRequest) (*model.Lesson, error) {
	if _, err := s.ownedModule(moduleID, userID, isAdmin); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		next, err := s.CourseRepo.NextLessonOrder(moduleID)
		if err != nil {
			return nil, err
		}
		order = next
	}

	lesson := &model.Lesson{
		ModuleID:        moduleID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		ContentType:     req.ContentType,
		ContentData:     req.ContentData,
		SortOrder:       order,
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.CourseRepo.CreateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) UpdateLesson(id string, userID uint, isAdmin bool, req LessonRequest) (*model.Lesson, error) {
	lesson, err := s.ownedLesson(id, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	lesson.Title = strings.TrimSpace(req.Title)
	lesson.Description = req.Description
	lesson.ContentType = req.ContentType
	lesson.ContentData = req.ContentData
	lesson.DurationMinutes = req.DurationMinutes
	if req.Order != nil {
		lesson.SortOrder = *req.Order
	}
	if err := s.CourseRepo.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) DeleteLesson(id string, userID uint, isAdmin bool) error {
	if _, err := s.ownedLesson(id, userID, isAdmin); err != nil {
		return err
	}
	return s.CourseRepo.DeleteLesson(id)
}

// UploadLessonAsset 上传附件并追加到课时的附件列表
func (s *CourseService) UploadLessonAsset(ctx context.Context, lessonID string, userID uint, isAdmin bool, filename string, reader io.Reader, size int64) (*model.LessonAsset, error) {
	lesson, err := s.ownedLesson(lessonID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	asset, err := s.Storage.SaveLessonAsset(ctx, lessonID, filename, reader, size)
	if err != nil {
		return nil, err
	}

	var assets []model.LessonAsset
	if len(lesson.Attachments) > 0 {
		if err := json.Unmarshal(lesson.Attachments, &assets); err != nil {
			logger.L().Warn("lesson attachments corrupted, resetting", zap.String("lessonId", lessonID), zap.Error(err))
			assets = nil
		}
	}
	assets = append(assets, *asset)

	data, err := json.Marshal(assets)
	if err != nil {
		return nil, err
	}
	lesson.Attachments = datatypes.JSON(data)
	if err := s.CourseRepo.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	return asset, nil
}
