package repository

import (
	"elearning_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// AnalyticsRepository 只读聚合查询
type AnalyticsRepository struct {
	DB *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{DB: db}
}

type EnrollmentAggregate struct {
	TotalEnrollments int64   `json:"totalEnrollments"`
	CompletedCourses int64   `json:"completedCourses"`
	AverageProgress  float64 `json:"averageProgress"`
}

const enrollmentAggregateSelect = "COUNT(*) AS total_enrollments, " +
	"COUNT(CASE WHEN completed_at IS NOT NULL THEN 1 END) AS completed_courses, " +
	"COALESCE(ROUND(AVG(progress_percentage), 2), 0) AS average_progress"

func (r *AnalyticsRepository) EnrollmentStatsForCourse(courseID string) (*EnrollmentAggregate, error) {
	var agg EnrollmentAggregate
	err := r.DB.Model(&model.CourseEnrollment{}).
		Select(enrollmentAggregateSelect).
		Where("course_id = ?", courseID).
		Scan(&agg).Error
	return &agg, err
}

func (r *AnalyticsRepository) EnrollmentStatsForInstructor(instructorID uint) (*EnrollmentAggregate, error) {
	var agg EnrollmentAggregate
	err := r.DB.Model(&model.CourseEnrollment{}).
		Select(enrollmentAggregateSelect).
		Where("course_id IN (?)", r.DB.Model(&model.Course{}).Select("id").Where("instructor_id = ?", instructorID)).
		Scan(&agg).Error
	return &agg, err
}

func (r *AnalyticsRepository) EnrollmentStatsOverall() (*EnrollmentAggregate, error) {
	var agg EnrollmentAggregate
	err := r.DB.Model(&model.CourseEnrollment{}).Select(enrollmentAggregateSelect).Scan(&agg).Error
	return &agg, err
}

func (r *AnalyticsRepository) EnrollmentStatsForUser(userID uint) (*EnrollmentAggregate, error) {
	var agg EnrollmentAggregate
	err := r.DB.Model(&model.CourseEnrollment{}).
		Select(enrollmentAggregateSelect).
		Where("user_id = ?", userID).
		Scan(&agg).Error
	return &agg, err
}

type TopStudent struct {
	UserID             uint       `json:"userId"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	ProgressPercentage int        `json:"progressPercentage"`
	EnrolledAt         time.Time  `json:"enrolledAt"`
	CompletedAt        *time.Time `json:"completedAt"`
}

func (r *AnalyticsRepository) TopStudents(courseID string, limit int) ([]TopStudent, error) {
	var rows []TopStudent
	err := r.DB.Table("course_enrollments e").
		Select("u.id AS user_id, u.first_name, u.last_name, u.email, e.progress_percentage, e.enrolled_at, e.completed_at").
		Joins("JOIN users u ON u.id = e.user_id").
		Where("e.course_id = ?", courseID).
		Order("e.progress_percentage DESC, e.enrolled_at ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

type RecentCompletion struct {
	FirstName   string    `json:"-"`
	LastName    string    `json:"-"`
	StudentName string    `json:"studentName" gorm:"-"`
	LessonTitle string    `json:"lessonTitle"`
	ModuleTitle string    `json:"moduleTitle"`
	CompletedAt time.Time `json:"completedAt"`
}

func (r *AnalyticsRepository) RecentCompletions(courseID string, limit int) ([]RecentCompletion, error) {
	var rows []RecentCompletion
	err := r.DB.Table("lesson_completions lc").
		Select("u.first_name, u.last_name, l.title AS lesson_title, m.title AS module_title, lc.completed_at").
		Joins("JOIN lessons l ON l.id = lc.lesson_id").
		Joins("JOIN modules m ON m.id = l.module_id").
		Joins("JOIN users u ON u.id = lc.user_id").
		Where("m.course_id = ?", courseID).
		Order("lc.completed_at DESC").
		Limit(limit).
		Scan(&rows).Error
	for i := range rows {
		rows[i].StudentName = model.User{FirstName: rows[i].FirstName, LastName: rows[i].LastName}.FullName()
	}
	return rows, err
}

type CoursePerformance struct {
	CourseID          string    `json:"courseId"`
	CourseTitle       string    `json:"courseTitle"`
	InstructorID      uint      `json:"instructorId"`
	TotalEnrollments  int64     `json:"totalEnrollments"`
	AverageProgress   float64   `json:"averageProgress"`
	CompletedStudents int64     `json:"completedStudents"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (r *AnalyticsRepository) coursePerformance() *gorm.DB {
	return r.DB.Table("courses c").
		Select("c.id AS course_id, c.title AS course_title, c.instructor_id, c.created_at, " +
			"COUNT(e.user_id) AS total_enrollments, " +
			"COALESCE(ROUND(AVG(e.progress_percentage), 2), 0) AS average_progress, " +
			"COUNT(CASE WHEN e.completed_at IS NOT NULL THEN 1 END) AS completed_students").
		Joins("LEFT JOIN course_enrollments e ON e.course_id = c.id").
		Group("c.id, c.title, c.instructor_id, c.created_at")
}

func (r *AnalyticsRepository) TopCourses(limit int) ([]CoursePerformance, error) {
	var rows []CoursePerformance
	err := r.coursePerformance().Order("total_enrollments DESC, c.created_at ASC").Limit(limit).Scan(&rows).Error
	return rows, err
}

func (r *AnalyticsRepository) InstructorCourses(instructorID uint) ([]CoursePerformance, error) {
	var rows []CoursePerformance
	err := r.coursePerformance().Where("c.instructor_id = ?", instructorID).Order("c.created_at DESC").Scan(&rows).Error
	return rows, err
}

type PlatformCounts struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalCourses int64 `json:"totalCourses"`
	TotalQuizzes int64 `json:"totalQuizzes"`
}

func (r *AnalyticsRepository) PlatformCounts() (*PlatformCounts, error) {
	var counts PlatformCounts
	if err := r.DB.Model(&model.User{}).Count(&counts.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Model(&model.Course{}).Count(&counts.TotalCourses).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Model(&model.Quiz{}).Count(&counts.TotalQuizzes).Error; err != nil {
		return nil, err
	}
	return &counts, nil
}

type QuizAggregate struct {
	TotalQuizzesTaken  int64   `json:"totalQuizzesTaken"`
	AverageScore       float64 `json:"averageScore"`
	TotalQuizzesPassed int64   `json:"totalQuizzesPassed"`
	HighestScore       int     `json:"highestScore"`
}

func (r *AnalyticsRepository) QuizStatsForUser(userID uint) (*QuizAggregate, error) {
	var agg QuizAggregate
	err := r.DB.Model(&model.QuizSubmission{}).
		Select("COUNT(*) AS total_quizzes_taken, "+
			"COALESCE(ROUND(AVG(percentage_score), 2), 0) AS average_score, "+
			"COUNT(CASE WHEN is_passed = ? THEN 1 END) AS total_quizzes_passed, "+
			"COALESCE(MAX(percentage_score), 0) AS highest_score", true).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Scan(&agg).Error
	return &agg, err
}

type RecentQuiz struct {
	QuizID        string     `json:"quizId"`
	QuizTitle     string     `json:"quizTitle"`
	Score         int        `json:"score"`
	IsPassed      bool       `json:"isPassed"`
	SubmittedAt   *time.Time `json:"submittedAt"`
	AttemptNumber int        `json:"attemptNumber"`
}

// RecentQuizzes 已完成的作答，since 为零值时不限时间
func (r *AnalyticsRepository) RecentQuizzes(userID uint, since time.Time, limit int) ([]RecentQuiz, error) {
	var rows []RecentQuiz
	query := r.DB.Table("quiz_submissions s").
		Select("q.id AS quiz_id, q.title AS quiz_title, s.percentage_score AS score, s.is_passed, s.submitted_at, s.attempt_number").
		Joins("JOIN quizzes q ON q.id = s.quiz_id").
		Where("s.user_id = ? AND s.is_completed = ?", userID, true)
	if !since.IsZero() {
		query = query.Where("s.submitted_at >= ?", since)
	}
	err := query.Order("s.submitted_at DESC").Limit(limit).Scan(&rows).Error
	return rows, err
}
