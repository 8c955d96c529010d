package repository

import (
	"context"
	"database/sql"
	"elearning_backend/internal/model"
	"elearning_backend/pkg/logger"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const quizCachePrefix = "quiz:def:"

type QuizRepository struct {
	DB       *gorm.DB
	Redis    *redis.Client
	CacheTTL time.Duration
}

// rdb 为 nil 时不走缓存
func NewQuizRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *QuizRepository {
	return &QuizRepository{DB: db, Redis: rdb, CacheTTL: ttl}
}

// WithTx 返回绑定事务的副本，事务内不读写缓存
func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

func (r *QuizRepository) CreateQuiz(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) UpdateQuiz(ctx context.Context, quiz *model.Quiz) error {
	if err := r.DB.Omit(clause.Associations).Save(quiz).Error; err != nil {
		return err
	}
	r.invalidate(ctx, quiz.ID)
	return nil
}

// DeleteQuiz 级联删除题目、选项、作答记录
func (r *QuizRepository) DeleteQuiz(ctx context.Context, id string) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		questionIDs := tx.Model(&model.Question{}).Select("id").Where("quiz_id = ?", id)
		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&model.AnswerOption{}).Error; err != nil {
			return err
		}
		submissionIDs := tx.Model(&model.QuizSubmission{}).Select("id").Where("quiz_id = ?", id)
		if err := tx.Where("submission_id IN (?)", submissionIDs).Delete(&model.QuestionResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizSubmission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, "id = ?", id).Error
	})
	if err == nil {
		r.invalidate(ctx, id)
	}
	return err
}

// FindQuizByID 只返回测验本身（不含题目），优先读 redis
func (r *QuizRepository) FindQuizByID(ctx context.Context, id string) (*model.Quiz, error) {
	if quiz := r.fromCache(ctx, id); quiz != nil {
		return quiz, nil
	}

	var quiz model.Quiz
	if err := r.DB.WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}

	r.toCache(ctx, &quiz)
	return &quiz, nil
}

// LockQuiz 在事务中对测验行加写锁，串行化同一测验的开考
func (r *QuizRepository) LockQuiz(id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) FindQuizWithQuestions(id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) ListQuizzesByLesson(lessonID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("lesson_id = ?", lessonID).Order("created_at ASC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) ListQuizzesByCreator(creatorID uint, page, limit int) ([]model.Quiz, int64, error) {
	var total int64
	query := r.DB.Model(&model.Quiz{}).Where("creator_id = ?", creatorID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []model.Quiz
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&quizzes).Error
	return quizzes, total, err
}

func (r *QuizRepository) CountActiveQuestions(ctx context.Context, quizID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("quiz_id = ? AND is_active = ?", quizID, true).
		Count(&count).Error
	return count, err
}

// ListActiveQuestions 分页返回启用的题目及选项；randomize 时按 id 排序，顺序稳定但与录入顺序无关
func (r *QuizRepository) ListActiveQuestions(ctx context.Context, quizID string, randomize bool, offset, limit int) ([]model.Question, error) {
	order := "order_index ASC, id ASC"
	if randomize {
		order = "id ASC"
	}

	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ? AND is_active = ?", quizID, true).
		Order(order).
		Offset(offset).
		Limit(limit).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Find(&questions).Error
	return questions, err
}

// ActiveQuestionsByIDs 计分用：只取属于该测验且启用的题目
func (r *QuizRepository) ActiveQuestionsByIDs(quizID string, ids []string) (map[string]model.Question, error) {
	result := make(map[string]model.Question)
	if len(ids) == 0 {
		return result, nil
	}

	var questions []model.Question
	err := r.DB.Where("quiz_id = ? AND is_active = ? AND id IN ?", quizID, true, ids).Find(&questions).Error
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		result[q.ID] = q
	}
	return result, nil
}

func (r *QuizRepository) OptionsByIDs(ids []string) (map[string]model.AnswerOption, error) {
	result := make(map[string]model.AnswerOption)
	if len(ids) == 0 {
		return result, nil
	}

	var options []model.AnswerOption
	if err := r.DB.Where("id IN ?", ids).Find(&options).Error; err != nil {
		return nil, err
	}
	for _, o := range options {
		result[o.ID] = o
	}
	return result, nil
}

func (r *QuizRepository) CorrectOptionIDs(questionIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(questionIDs) == 0 {
		return result, nil
	}

	var options []model.AnswerOption
	err := r.DB.Where("question_id IN ? AND is_correct = ?", questionIDs, true).
		Order("order_index ASC").
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	for _, o := range options {
		result[o.QuestionID] = append(result[o.QuestionID], o.ID)
	}
	return result, nil
}

// CreateQuestions 连同选项一起写入
func (r *QuizRepository) CreateQuestions(questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.Create(&questions).Error
}

func (r *QuizRepository) MaxOrderIndex(quizID string) (int, error) {
	var max sql.NullInt64
	err := r.DB.Model(&model.Question{}).
		Where("quiz_id = ?", quizID).
		Select("MAX(order_index)").
		Row().Scan(&max)
	if err != nil || !max.Valid {
		return -1, err
	}
	return int(max.Int64), nil
}

func (r *QuizRepository) FindQuestion(id string) (*model.Question, error) {
	var q model.Question
	if err := r.DB.Preload("Options").First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) SetQuestionActive(id string, active bool) error {
	return r.DB.Model(&model.Question{}).Where("id = ?", id).Update("is_active", active).Error
}

func (r *QuizRepository) fromCache(ctx context.Context, id string) *model.Quiz {
	if r.Redis == nil {
		return nil
	}
	data, err := r.Redis.Get(ctx, quizCachePrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Warn("quiz cache read failed", zap.String("quizId", id), zap.Error(err))
		}
		return nil
	}
	var quiz model.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil
	}
	return &quiz
}

func (r *QuizRepository) toCache(ctx context.Context, quiz *model.Quiz) {
	if r.Redis == nil || r.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := r.Redis.Set(ctx, quizCachePrefix+quiz.ID, data, r.CacheTTL).Err(); err != nil {
		logger.L().Warn("quiz cache write failed", zap.String("quizId", quiz.ID), zap.Error(err))
	}
}

func (r *QuizRepository) invalidate(ctx context.Context, id string) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Del(ctx, quizCachePrefix+id).Err(); err != nil {
		logger.L().Warn("quiz cache invalidate failed", zap.String("quizId", id), zap.Error(err))
	}
}
