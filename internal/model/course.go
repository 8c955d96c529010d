package model

import (
	"time"

	"gorm.io/datatypes"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

func (s CourseStatus) Valid() bool {
	return s == CourseDraft || s == CoursePublished || s == CourseArchived
}

type ContentType string

const (
	ContentText       ContentType = "text"
	ContentVideo      ContentType = "video"
	ContentAudio      ContentType = "audio"
	ContentImage      ContentType = "image"
	ContentQuiz       ContentType = "quiz"
	ContentAssignment ContentType = "assignment"
	ContentFile       ContentType = "file"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentVideo, ContentAudio, ContentImage, ContentQuiz, ContentAssignment, ContentFile:
		return true
	}
	return false
}

// swagger:model Course
// Price 为整数金额（主货币单位），0 表示免费课程
type Course struct {
	UUIDBase
	Title          string         `gorm:"size:255;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Price          int            `gorm:"not null" json:"price"`
	ThumbnailURL   string         `gorm:"size:500" json:"thumbnailUrl"`
	EstimatedHours *int           `json:"estimatedHours"`
	Status         CourseStatus   `gorm:"size:20;not null;index" json:"status"`
	Difficulty     QuizDifficulty `gorm:"size:20;not null" json:"difficulty"`
	InstructorID   uint           `gorm:"not null;index" json:"instructorId"`
	Modules        []Module       `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) IsFree() bool {
	return c.Price <= 0
}

type Module struct {
	UUIDBase
	CourseID    string   `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	SortOrder   int      `gorm:"not null" json:"order"`
	Lessons     []Lesson `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

type Lesson struct {
	UUIDBase
	ModuleID        string      `gorm:"type:varchar(36);index;not null" json:"moduleId"`
	Title           string      `gorm:"size:255;not null" json:"title"`
	Description     string      `gorm:"type:text" json:"description"`
	ContentType     ContentType `gorm:"size:20;not null" json:"contentType"`
	ContentData     string      `gorm:"type:text" json:"contentData"`
	SortOrder       int         `gorm:"not null" json:"order"`
	DurationMinutes *int        `json:"durationMinutes"`
	// 上传的附件列表 []LessonAsset
	Attachments datatypes.JSON `json:"attachments,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

type LessonAsset struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}
