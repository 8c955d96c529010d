package model

import "time"

// swagger:model CourseEnrollment
type CourseEnrollment struct {
	UserID             uint       `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	CourseID           string     `gorm:"primaryKey;type:varchar(36);index" json:"courseId"`
	EnrolledAt         time.Time  `gorm:"not null;index" json:"enrolledAt"`
	PaymentReference   *string    `gorm:"size:100" json:"paymentReference"`
	CompletedAt        *time.Time `json:"completedAt"`
	ProgressPercentage int        `gorm:"not null" json:"progressPercentage"`
}

func (CourseEnrollment) TableName() string {
	return "course_enrollments"
}

type LessonCompletion struct {
	UserID      uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	LessonID    string    `gorm:"primaryKey;type:varchar(36)" json:"lessonId"`
	IsCompleted bool      `gorm:"not null" json:"isCompleted"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}
