package model

import (
	"fmt"
	"time"
)

// swagger:model QuizSubmission
// 一次作答即一条记录，也就是一个测验会话
type QuizSubmission struct {
	UUIDBase
	UserID          uint       `gorm:"not null;uniqueIndex:uk_submission_attempt,priority:1" json:"userId"`
	QuizID          string     `gorm:"type:varchar(36);not null;uniqueIndex:uk_submission_attempt,priority:2;index" json:"quizId"`
	AttemptNumber   int        `gorm:"not null;uniqueIndex:uk_submission_attempt,priority:3" json:"attemptNumber"`
	StartedAt       time.Time  `gorm:"not null" json:"startedAt"`
	SubmittedAt     *time.Time `json:"submittedAt"`
	Score           int        `gorm:"not null" json:"score"`
	PercentageScore int        `gorm:"not null" json:"percentageScore"`
	IsCompleted     bool       `gorm:"not null;index" json:"isCompleted"`
	IsPassed        bool       `gorm:"not null" json:"isPassed"`
	AutoCompleted   bool       `gorm:"not null" json:"autoCompleted"`
	TimeSpent       *int       `json:"timeSpent,omitempty"` // 秒，客户端上报
	// 进行中时为 "userID:quizID"，完成后置空；唯一索引保证同一用户同一测验最多一个进行中的会话
	ActiveSlot *string            `gorm:"size:80;uniqueIndex" json:"-"`
	Responses  []QuestionResponse `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
}

func (QuizSubmission) TableName() string {
	return "quiz_submissions"
}

func ActiveSlotKey(userID uint, quizID string) string {
	return fmt.Sprintf("%d:%s", userID, quizID)
}

// 作答明细只在提交时写入，之后不再修改
type QuestionResponse struct {
	UUIDBase
	SubmissionID     string  `gorm:"type:varchar(36);index;not null" json:"submissionId"`
	QuestionID       string  `gorm:"type:varchar(36);index;not null" json:"questionId"`
	SelectedOptionID *string `gorm:"type:varchar(36)" json:"selectedOptionId"`
	SubmittedAnswer  *string `gorm:"type:text" json:"submittedAnswer"`
	IsCorrect        bool    `gorm:"not null" json:"isCorrect"`
	PointsEarned     int     `gorm:"not null" json:"pointsEarned"`
}

func (QuestionResponse) TableName() string {
	return "question_responses"
}
