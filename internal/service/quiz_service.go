package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPassingScore = 70

// QuizService 讲师端测验维护：测验、题目、选项
type QuizService struct {
	DB         *gorm.DB
	QuizRepo   *repository.QuizRepository
	CourseRepo *repository.CourseRepository
}

func NewQuizService(db *gorm.DB, quizRepo *repository.QuizRepository, courseRepo *repository.CourseRepository) *QuizService {
	return &QuizService{DB: db, QuizRepo: quizRepo, CourseRepo: courseRepo}
}

type OptionRequest struct {
	OptionText  string  `json:"optionText" binding:"required"`
	IsCorrect   bool    `json:"isCorrect"`
	Explanation *string `json:"explanation"`
}

type QuestionRequest struct {
	QuestionText  string             `json:"questionText" binding:"required"`
	QuestionType  model.QuestionType `json:"questionType" binding:"required"`
	CorrectAnswer *string            `json:"correctAnswer"`
	Feedback      *string            `json:"feedback"`
	Points        *int               `json:"points"`
	Options       []OptionRequest    `json:"options"`
}

type CreateQuizRequest struct {
	Title              string               `json:"title" binding:"required"`
	Description        string               `json:"description"`
	LessonID           *string              `json:"lessonId"`
	Difficulty         model.QuizDifficulty `json:"difficulty"`
	MaxAttempts        *int                 `json:"maxAttempts"`
	TimeLimit          *int                 `json:"timeLimit"`
	PassingScore       *int                 `json:"passingScore"`
	RandomizeQuestions bool                 `json:"randomizeQuestions"`
	ShowCorrectAnswers *bool                `json:"showCorrectAnswers"`
	Questions          []QuestionRequest    `json:"questions"`
}

// UpdateQuizRequest 只更新非空字段；ClearMaxAttempts / ClearTimeLimit 用于取消限制
type UpdateQuizRequest struct {
	Title              *string               `json:"title"`
	Description        *string               `json:"description"`
	Difficulty         *model.QuizDifficulty `json:"difficulty"`
	MaxAttempts        *int                  `json:"maxAttempts"`
	ClearMaxAttempts   bool                  `json:"clearMaxAttempts"`
	TimeLimit          *int                  `json:"timeLimit"`
	ClearTimeLimit     bool                  `json:"clearTimeLimit"`
	PassingScore       *int                  `json:"passingScore"`
	RandomizeQuestions *bool                 `json:"randomizeQuestions"`
	ShowCorrectAnswers *bool                 `json:"showCorrectAnswers"`
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < 2 || n > 255 {
		return util.NewValidation("Title must be between 2 and 255 characters")
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > 1000 {
		return util.NewValidation("Description must not exceed 1000 characters")
	}
	return nil
}

func validateQuizLimits(maxAttempts, timeLimit, passingScore *int) error {
	if maxAttempts != nil && (*maxAttempts < 1 || *maxAttempts > 10) {
		return util.NewValidation("Max attempts must be between 1 and 10")
	}
	if timeLimit != nil && (*timeLimit < 1 || *timeLimit > 480) {
		return util.NewValidation("Time limit must be between 1 and 480 minutes")
	}
	if passingScore != nil && (*passingScore < 0 || *passingScore > 100) {
		return util.NewValidation("Passing score must be between 0 and 100")
	}
	return nil
}

func buildQuestion(quizID string, orderIndex int, req QuestionRequest) (model.Question, error) {
	if strings.TrimSpace(req.QuestionText) == "" {
		return model.Question{}, util.NewValidation("Question text is required")
	}
	if !req.QuestionType.Valid() {
		return model.Question{}, util.NewValidation("Invalid question type %q", req.QuestionType)
	}

	points := 1
	if req.Points != nil {
		if *req.Points < 1 {
			return model.Question{}, util.NewValidation("Points must be at least 1")
		}
		points = *req.Points
	}

	if req.QuestionType == model.QuestionMultipleChoice || req.QuestionType == model.QuestionTrueFalse {
		if len(req.Options) < 2 {
			return model.Question{}, util.NewValidation("Choice questions need at least 2 options")
		}
		hasCorrect := false
		for _, o := range req.Options {
			if o.IsCorrect {
				hasCorrect = true
			}
		}
		if !hasCorrect {
			return model.Question{}, util.NewValidation("Choice questions need at least one correct option")
		}
	}

	q := model.Question{
		QuizID:        quizID,
		QuestionText:  req.QuestionText,
		QuestionType:  req.QuestionType,
		CorrectAnswer: req.CorrectAnswer,
		Feedback:      req.Feedback,
		Points:        points,
		OrderIndex:    orderIndex,
		IsActive:      true,
	}
	for i, o := range req.Options {
		if strings.TrimSpace(o.OptionText) == "" {
			return model.Question{}, util.NewValidation("Option text is required")
		}
		q.Options = append(q.Options, model.AnswerOption{
			OptionText:  o.OptionText,
			IsCorrect:   o.IsCorrect,
			Explanation: o.Explanation,
			OrderIndex:  i,
		})
	}
	return q, nil
}

func canManage(ownerID, userID uint, isAdmin bool) bool {
	return isAdmin || ownerID == userID
}

// ownedQuiz 加载测验并校验是否为创建者或管理员
func (s *QuizService) ownedQuiz(ctx context.Context, quizID string, userID uint, isAdmin bool) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindQuizByID(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	if !canManage(quiz.CreatorID, userID, isAdmin) {
		return nil, util.ErrPermissionDenied
	}
	return quiz, nil
}

func (s *QuizService) CreateQuiz(creatorID uint, isAdmin bool, req CreateQuizRequest) (*model.Quiz, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}
	if err := validateQuizLimits(req.MaxAttempts, req.TimeLimit, req.PassingScore); err != nil {
		return nil, err
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyBeginner
	}
	if !difficulty.Valid() {
		return nil, util.NewValidation("Invalid difficulty %q", req.Difficulty)
	}

	if req.LessonID != nil && *req.LessonID != "" {
		course, err := s.CourseRepo.FindLessonCourse(*req.LessonID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		if err != nil {
			return nil, err
		}
		if !canManage(course.InstructorID, creatorID, isAdmin) {
			return nil, util.ErrPermissionDenied
		}
	} else {
		req.LessonID = nil
	}

	passingScore := defaultPassingScore
	if req.PassingScore != nil {
		passingScore = *req.PassingScore
	}
	showCorrect := true
	if req.ShowCorrectAnswers != nil {
		showCorrect = *req.ShowCorrectAnswers
	}

	quiz := &model.Quiz{
		UUIDBase:           model.UUIDBase{ID: model.GenerateUUID()},
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		LessonID:           req.LessonID,
		CreatorID:          creatorID,
		Difficulty:         difficulty,
		MaxAttempts:        req.MaxAttempts,
		TimeLimit:          req.TimeLimit,
		PassingScore:       passingScore,
		RandomizeQuestions: req.RandomizeQuestions,
		ShowCorrectAnswers: showCorrect,
	}
	for i, qr := range req.Questions {
		q, err := buildQuestion(quiz.ID, i, qr)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}

	if err := s.QuizRepo.CreateQuiz(quiz); err != nil {
		return nil, err
	}

	logger.L().Info("quiz created",
		zap.String("quizId", quiz.ID),
		zap.Uint("creatorId", creatorID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return quiz, nil
}

// GetQuizForEditing 返回含答案的完整测验，仅创建者和管理员可见
func (s *QuizService) GetQuizForEditing(ctx context.Context, quizID string, userID uint, isAdmin bool) (*model.Quiz, error) {
	if _, err := s.ownedQuiz(ctx, quizID, userID, isAdmin); err != nil {
		return nil, err
	}
	return s.QuizRepo.FindQuizWithQuestions(quizID)
}

func (s *QuizService) UpdateQuiz(ctx context.Context, quizID string, userID uint, isAdmin bool, req UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, quizID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	if err := validateQuizLimits(req.MaxAttempts, req.TimeLimit, req.PassingScore); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return nil, err
		}
		quiz.Description = *req.Description
	}
	if req.Difficulty != nil {
		if !req.Difficulty.Valid() {
			return nil, util.NewValidation("Invalid difficulty %q", *req.Difficulty)
		}
		quiz.Difficulty = *req.Difficulty
	}
	if req.ClearMaxAttempts {
		quiz.MaxAttempts = nil
	} else if req.MaxAttempts != nil {
		quiz.MaxAttempts = req.MaxAttempts
	}
	if req.ClearTimeLimit {
		quiz.TimeLimit = nil
	} else if req.TimeLimit != nil {
		quiz.TimeLimit = req.TimeLimit
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.RandomizeQuestions != nil {
		quiz.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.ShowCorrectAnswers != nil {
		quiz.ShowCorrectAnswers = *req.ShowCorrectAnswers
	}

	if err := s.QuizRepo.UpdateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string, userID uint, isAdmin bool) error {
	if _, err := s.ownedQuiz(ctx, quizID, userID, isAdmin); err != nil {
		return err
	}
	if err := s.QuizRepo.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	logger.L().Info("quiz deleted", zap.String("quizId", quizID), zap.Uint("by", userID))
	return nil
}

// AddQuestions 追加题目，排序号接在已有题目之后，整批在一个事务内写入
func (s *QuizService) AddQuestions(ctx context.Context, quizID string, userID uint, isAdmin bool, reqs []QuestionRequest) ([]model.Question, error) {
	if len(reqs) == 0 {
		return nil, util.NewValidation("At least one question is required")
	}
	if _, err := s.ownedQuiz(ctx, quizID, userID, isAdmin); err != nil {
		return nil, err
	}

	var questions []model.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.QuizRepo.WithTx(tx)
		maxOrder, err := repo.MaxOrderIndex(quizID)
		if err != nil {
			return err
		}
		for i, r := range reqs {
			q, err := buildQuestion(quizID, maxOrder+1+i, r)
			if err != nil {
				return err
			}
			questions = append(questions, q)
		}
		return repo.CreateQuestions(questions)
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// DeactivateQuestion 停用题目：不再下发也不计分，历史作答保留
func (s *QuizService) DeactivateQuestion(ctx context.Context, questionID string, userID uint, isAdmin bool) error {
	q, err := s.QuizRepo.FindQuestion(questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuestionNotFound
	}
	if err != nil {
		return err
	}
	if _, err := s.ownedQuiz(ctx, q.QuizID, userID, isAdmin); err != nil {
		return err
	}
	return s.QuizRepo.SetQuestionActive(questionID, false)
}

func (s *QuizService) ListMyQuizzes(creatorID uint, page, limit int) ([]model.Quiz, int64, error) {
	return s.QuizRepo.ListQuizzesByCreator(creatorID, page, limit)
}

func (s *QuizService) ListLessonQuizzes(lessonID string) ([]model.Quiz, error) {
	if _, err := s.CourseRepo.FindLesson(lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	return s.QuizRepo.ListQuizzesByLesson(lessonID)
}
