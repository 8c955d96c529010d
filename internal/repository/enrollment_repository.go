package repository

import (
	"elearning_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) Create(enrollment *model.CourseEnrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) Find(userID uint, courseID string) (*model.CourseEnrollment, error) {
	var enrollment model.CourseEnrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) Exists(userID uint, courseID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// Delete 退课时同时清理该课程下的课时完成记录
func (r *EnrollmentRepository) Delete(userID uint, courseID string) (bool, error) {
	var deleted bool
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&model.CourseEnrollment{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		if !deleted {
			return nil
		}
		lessonIDs := tx.Model(&model.Lesson{}).
			Select("lessons.id").
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Where("modules.course_id = ?", courseID)
		return tx.Where("user_id = ? AND lesson_id IN (?)", userID, lessonIDs).Delete(&model.LessonCompletion{}).Error
	})
	return deleted, err
}

func (r *EnrollmentRepository) ListByUser(userID uint, page, limit int) ([]model.CourseEnrollment, int64, error) {
	query := r.DB.Model(&model.CourseEnrollment{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var enrollments []model.CourseEnrollment
	q := query.Order("enrolled_at DESC")
	if limit > 0 {
		q = q.Offset((page - 1) * limit).Limit(limit)
	}
	err := q.Find(&enrollments).Error
	return enrollments, total, err
}

type CourseStudent struct {
	UserID             uint       `json:"userId"`
	Email              string     `json:"email"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	EnrolledAt         time.Time  `json:"enrolledAt"`
	ProgressPercentage int        `json:"progressPercentage"`
	CompletedAt        *time.Time `json:"completedAt"`
}

func (r *EnrollmentRepository) ListStudents(courseID string) ([]CourseStudent, error) {
	var students []CourseStudent
	err := r.DB.Table("course_enrollments e").
		Select("e.user_id, u.email, u.first_name, u.last_name, e.enrolled_at, e.progress_percentage, e.completed_at").
		Joins("JOIN users u ON u.id = e.user_id").
		Where("e.course_id = ?", courseID).
		Order("e.enrolled_at DESC").
		Scan(&students).Error
	return students, err
}

func (r *EnrollmentRepository) UpdateProgress(userID uint, courseID string, percentage int, completedAt *time.Time) error {
	return r.DB.Model(&model.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(map[string]interface{}{
			"progress_percentage": percentage,
			"completed_at":        completedAt,
		}).Error
}

// UpsertCompletion 重复完成同一课时只刷新完成时间
func (r *EnrollmentRepository) UpsertCompletion(completion *model.LessonCompletion) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_completed", "completed_at"}),
	}).Create(completion).Error
}

// CompletedLessons 返回用户在课程内已完成课时的完成时间
func (r *EnrollmentRepository) CompletedLessons(userID uint, courseID string) (map[string]time.Time, error) {
	var completions []model.LessonCompletion
	err := r.DB.Model(&model.LessonCompletion{}).
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lesson_completions.user_id = ? AND lesson_completions.is_completed = ? AND modules.course_id = ?", userID, true, courseID).
		Find(&completions).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]time.Time, len(completions))
	for _, c := range completions {
		result[c.LessonID] = c.CompletedAt
	}
	return result, nil
}

func (r *EnrollmentRepository) CountByCourse(courseID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CourseEnrollment{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
