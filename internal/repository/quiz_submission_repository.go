package repository

import (
	"elearning_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type QuizSubmissionRepository struct {
	DB *gorm.DB
}

func NewQuizSubmissionRepository(db *gorm.DB) *QuizSubmissionRepository {
	return &QuizSubmissionRepository{DB: db}
}

func (r *QuizSubmissionRepository) WithTx(tx *gorm.DB) *QuizSubmissionRepository {
	return &QuizSubmissionRepository{DB: tx}
}

func (r *QuizSubmissionRepository) Create(submission *model.QuizSubmission) error {
	return r.DB.Create(submission).Error
}

func (r *QuizSubmissionRepository) FindByID(id string) (*model.QuizSubmission, error) {
	var submission model.QuizSubmission
	if err := r.DB.First(&submission, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindForUser 只返回属于该用户的会话，他人会话按不存在处理
func (r *QuizSubmissionRepository) FindForUser(id string, userID uint) (*model.QuizSubmission, error) {
	var submission model.QuizSubmission
	if err := r.DB.First(&submission, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

type AttemptSummary struct {
	AttemptCount     int64
	MaxAttemptNumber int
	HasPassed        bool
	LastSubmittedAt  *time.Time
}

func (r *QuizSubmissionRepository) Summarize(userID uint, quizID string) (*AttemptSummary, error) {
	var submissions []model.QuizSubmission
	err := r.DB.Select("attempt_number", "is_passed", "submitted_at").
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	summary := &AttemptSummary{AttemptCount: int64(len(submissions))}
	for _, s := range submissions {
		if s.AttemptNumber > summary.MaxAttemptNumber {
			summary.MaxAttemptNumber = s.AttemptNumber
		}
		if s.IsPassed {
			summary.HasPassed = true
		}
		if s.SubmittedAt != nil && (summary.LastSubmittedAt == nil || s.SubmittedAt.After(*summary.LastSubmittedAt)) {
			t := *s.SubmittedAt
			summary.LastSubmittedAt = &t
		}
	}
	return summary, nil
}

func (r *QuizSubmissionRepository) FindActive(userID uint, quizID string) (*model.QuizSubmission, error) {
	var submission model.QuizSubmission
	err := r.DB.Where("user_id = ? AND quiz_id = ? AND is_completed = ?", userID, quizID, false).
		Order("attempt_number DESC").
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListByUserAndQuiz 最近一次作答在前
func (r *QuizSubmissionRepository) ListByUserAndQuiz(userID uint, quizID string) ([]model.QuizSubmission, error) {
	var submissions []model.QuizSubmission
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_number DESC").
		Find(&submissions).Error
	return submissions, err
}

// MarkExpired 超时自动结束：只改完成标记和提交时间，分数保持为 0。
// 条件更新保证与并发提交互斥，返回是否由本次调用结束
func (r *QuizSubmissionRepository) MarkExpired(id string, now time.Time) (bool, error) {
	result := r.DB.Model(&model.QuizSubmission{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed":   true,
			"submitted_at":   now,
			"auto_completed": true,
			"active_slot":    nil,
		})
	return result.RowsAffected > 0, result.Error
}

// Complete 写入成绩并结束会话，已结束的会话不会被覆盖
func (r *QuizSubmissionRepository) Complete(submission *model.QuizSubmission) (bool, error) {
	result := r.DB.Model(&model.QuizSubmission{}).
		Where("id = ? AND is_completed = ?", submission.ID, false).
		Updates(map[string]interface{}{
			"is_completed":     true,
			"submitted_at":     submission.SubmittedAt,
			"score":            submission.Score,
			"percentage_score": submission.PercentageScore,
			"is_passed":        submission.IsPassed,
			"time_spent":       submission.TimeSpent,
			"active_slot":      nil,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *QuizSubmissionRepository) CreateResponses(responses []model.QuestionResponse) error {
	if len(responses) == 0 {
		return nil
	}
	return r.DB.Create(&responses).Error
}

func (r *QuizSubmissionRepository) ListResponses(submissionID string) ([]model.QuestionResponse, error) {
	var responses []model.QuestionResponse
	err := r.DB.Where("submission_id = ?", submissionID).Find(&responses).Error
	return responses, err
}

type ActiveTimedSession struct {
	ID        string
	UserID    uint
	QuizID    string
	StartedAt time.Time
	TimeLimit int
}

// ListActiveTimed 按开考时间顺序返回限时测验中仍未结束的会话，供定时清理使用。
// after 为上一页最后一条，nil 表示从头开始
func (r *QuizSubmissionRepository) ListActiveTimed(after *ActiveTimedSession, limit int) ([]ActiveTimedSession, error) {
	var rows []ActiveTimedSession
	query := r.DB.Table("quiz_submissions s").
		Select("s.id, s.user_id, s.quiz_id, s.started_at, q.time_limit").
		Joins("JOIN quizzes q ON q.id = s.quiz_id").
		Where("s.is_completed = ? AND q.time_limit IS NOT NULL", false)
	if after != nil {
		query = query.Where("(s.started_at > ? OR (s.started_at = ? AND s.id > ?))", after.StartedAt, after.StartedAt, after.ID)
	}
	err := query.Order("s.started_at ASC, s.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
