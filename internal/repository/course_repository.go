package repository

import (
	"elearning_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

type CourseFilter struct {
	Search       string
	Status       model.CourseStatus
	InstructorID uint
	Difficulty   model.QuizDifficulty
}

func (r *CourseRepository) ListCourses(filter CourseFilter, page, limit int) ([]model.Course, int64, error) {
	query := r.DB.Model(&model.Course{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InstructorID != 0 {
		query = query.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) FindCourse(id string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// FindCourseWithContent 模块和课时都按排序字段返回
func (r *CourseRepository) FindCourseWithContent(id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindCourseByTitle(instructorID uint, title string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.First(&course, "instructor_id = ? AND title = ?", instructorID, title).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) CreateCourse(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) UpdateCourse(course *model.Course) error {
	return r.DB.Omit(clause.Associations).Save(course).Error
}

// DeleteCourse 级联删除模块、课时、选课与完成记录
func (r *CourseRepository) DeleteCourse(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		moduleIDs := tx.Model(&model.Module{}).Select("id").Where("course_id = ?", id)
		lessonIDs := tx.Model(&model.Lesson{}).Select("id").Where("module_id IN (?)", moduleIDs)
		if err := tx.Where("lesson_id IN (?)", lessonIDs).Delete(&model.LessonCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Quiz{}).Where("lesson_id IN (?)", lessonIDs).Update("lesson_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id IN (?)", moduleIDs).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Module{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseEnrollment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, "id = ?", id).Error
	})
}

func (r *CourseRepository) FindModule(id string) (*model.Module, error) {
	var module model.Module
	if err := r.DB.First(&module, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *CourseRepository) CreateModule(module *model.Module) error {
	return r.DB.Create(module).Error
}

func (r *CourseRepository) UpdateModule(module *model.Module) error {
	return r.DB.Omit(clause.Associations).Save(module).Error
}

func (r *CourseRepository) DeleteModule(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		lessonIDs := tx.Model(&model.Lesson{}).Select("id").Where("module_id = ?", id)
		if err := tx.Where("lesson_id IN (?)", lessonIDs).Delete(&model.LessonCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Quiz{}).Where("lesson_id IN (?)", lessonIDs).Update("lesson_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Module{}, "id = ?", id).Error
	})
}

func (r *CourseRepository) ListModules(courseID string) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.Where("course_id = ?", courseID).Order("sort_order ASC, created_at ASC").Find(&modules).Error
	return modules, err
}

// NextModuleOrder 新模块追加在末尾
func (r *CourseRepository) NextModuleOrder(courseID string) (int, error) {
	var count int64
	err := r.DB.Model(&model.Module{}).Where("course_id = ?", courseID).Count(&count).Error
	return int(count), err
}

func (r *CourseRepository) NextLessonOrder(moduleID string) (int, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).Where("module_id = ?", moduleID).Count(&count).Error
	return int(count), err
}

func (r *CourseRepository) FindLesson(id string) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.First(&lesson, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindLessonCourse 返回课时所属课程，用于权限和选课校验
func (r *CourseRepository) FindLessonCourse(lessonID string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Model(&model.Course{}).
		Joins("JOIN modules ON modules.course_id = courses.id").
		Joins("JOIN lessons ON lessons.module_id = modules.id").
		Where("lessons.id = ?", lessonID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) CreateLesson(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *CourseRepository) UpdateLesson(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

func (r *CourseRepository) DeleteLesson(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&model.LessonCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Quiz{}).Where("lesson_id = ?", id).Update("lesson_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Lesson{}, "id = ?", id).Error
	})
}

func (r *CourseRepository) CountLessons(courseID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

// LessonIDsInOrder 按模块顺序、课时顺序返回课程全部课时 id
func (r *CourseRepository) LessonIDsInOrder(courseID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Order("modules.sort_order ASC, lessons.sort_order ASC, lessons.created_at ASC").
		Pluck("lessons.id", &ids).Error
	return ids, err
}
