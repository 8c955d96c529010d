package model

import "time"

type QuizDifficulty string

const (
	DifficultyBeginner     QuizDifficulty = "beginner"
	DifficultyIntermediate QuizDifficulty = "intermediate"
	DifficultyAdvanced     QuizDifficulty = "advanced"
	DifficultyExpert       QuizDifficulty = "expert"
)

func (d QuizDifficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
		return true
	}
	return false
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionLongAnswer     QuestionType = "long_answer"
	QuestionFillInBlank    QuestionType = "fill_in_the_blank"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, QuestionLongAnswer, QuestionFillInBlank:
		return true
	}
	return false
}

// swagger:model Quiz
// MaxAttempts / TimeLimit 为空表示不限次数 / 不限时
type Quiz struct {
	UUIDBase
	Title              string         `gorm:"size:255;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	LessonID           *string        `gorm:"type:varchar(36);index" json:"lessonId,omitempty"`
	CreatorID          uint           `gorm:"index" json:"creatorId"`
	Difficulty         QuizDifficulty `gorm:"size:20;not null" json:"difficulty"`
	MaxAttempts        *int           `json:"maxAttempts"`
	TimeLimit          *int           `json:"timeLimit"` // 分钟
	PassingScore       int            `gorm:"not null" json:"passingScore"`
	RandomizeQuestions bool           `gorm:"not null" json:"randomizeQuestions"`
	ShowCorrectAnswers bool           `gorm:"not null" json:"showCorrectAnswers"`
	Questions          []Question     `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Deadline 返回限时测验的截止时间，不限时返回 nil
func (q *Quiz) Deadline(startedAt time.Time) *time.Time {
	if q.TimeLimit == nil {
		return nil
	}
	t := startedAt.Add(time.Duration(*q.TimeLimit) * time.Minute)
	return &t
}

type Question struct {
	UUIDBase
	QuizID        string         `gorm:"type:varchar(36);index;not null" json:"quizId"`
	QuestionText  string         `gorm:"type:text;not null" json:"questionText"`
	QuestionType  QuestionType   `gorm:"size:30;not null" json:"questionType"`
	CorrectAnswer *string        `gorm:"type:text" json:"correctAnswer,omitempty"`
	Feedback      *string        `gorm:"type:text" json:"feedback,omitempty"`
	Points        int            `gorm:"not null" json:"points"`
	OrderIndex    int            `gorm:"not null;index" json:"orderIndex"`
	IsActive      bool           `gorm:"not null;index" json:"isActive"`
	Options       []AnswerOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

type AnswerOption struct {
	UUIDBase
	QuestionID  string  `gorm:"type:varchar(36);index;not null" json:"questionId"`
	OptionText  string  `gorm:"type:text;not null" json:"optionText"`
	IsCorrect   bool    `gorm:"not null" json:"isCorrect"`
	Explanation *string `gorm:"type:text" json:"explanation,omitempty"`
	OrderIndex  int     `gorm:"not null" json:"orderIndex"`
}

func (AnswerOption) TableName() string {
	return "answer_options"
}
