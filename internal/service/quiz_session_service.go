package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/events"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"elearning_backend/pkg/tracing"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizSessionService 测验作答会话：开考、取题、暂存、交卷、状态、成绩。
// 超时采用惰性检查，每次访问进行中的会话时判断并自动结束。
type QuizSessionService struct {
	DB             *gorm.DB
	QuizRepo       *repository.QuizRepository
	SubmissionRepo *repository.QuizSubmissionRepository
	Events         events.Publisher
	Now            func() time.Time

	DefaultPageSize int
	MaxPageSize     int
}

func NewQuizSessionService(db *gorm.DB, quizRepo *repository.QuizRepository, submissionRepo *repository.QuizSubmissionRepository, publisher events.Publisher, cfg *config.QuizConfig) *QuizSessionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &QuizSessionService{
		DB:              db,
		QuizRepo:        quizRepo,
		SubmissionRepo:  submissionRepo,
		Events:          publisher,
		Now:             time.Now,
		DefaultPageSize: 10,
		MaxPageSize:     100,
	}
	if cfg != nil {
		if cfg.DefaultPageSize > 0 {
			s.DefaultPageSize = cfg.DefaultPageSize
		}
		if cfg.MaxPageSize > 0 {
			s.MaxPageSize = cfg.MaxPageSize
		}
	}
	return s
}

type QuizSummary struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Difficulty    model.QuizDifficulty `json:"difficulty"`
	TimeLimit     *int                 `json:"timeLimit"`
	PassingScore  int                  `json:"passingScore"`
	QuestionCount int64                `json:"questionCount"`
}

type QuizUserStats struct {
	CanAttempt        bool       `json:"canAttempt"`
	RemainingAttempts *int       `json:"remainingAttempts"`
	TotalAttempts     int64      `json:"totalAttempts"`
	MaxAttempts       *int       `json:"maxAttempts"`
	HasPassed         bool       `json:"hasPassed"`
	LastAttemptDate   *time.Time `json:"lastAttemptDate"`
}

type QuizInfo struct {
	Quiz      QuizSummary   `json:"quiz"`
	UserStats QuizUserStats `json:"userStats"`
}

type SessionStarted struct {
	SessionID     string     `json:"sessionId"`
	AttemptNumber int        `json:"attemptNumber"`
	StartedAt     time.Time  `json:"startedAt"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

// DeliveredOption 下发给考生的选项，不含正确性
type DeliveredOption struct {
	ID         string `json:"id"`
	OptionText string `json:"optionText"`
	OrderIndex int    `json:"orderIndex"`
}

type DeliveredQuestion struct {
	ID           string             `json:"id"`
	QuestionText string             `json:"questionText"`
	QuestionType model.QuestionType `json:"questionType"`
	Points       int                `json:"points"`
	OrderIndex   int                `json:"orderIndex"`
	Options      []DeliveredOption  `json:"options"`
}

type QuestionPagination struct {
	CurrentPage      int   `json:"currentPage"`
	TotalPages       int   `json:"totalPages"`
	TotalQuestions   int64 `json:"totalQuestions"`
	QuestionsPerPage int   `json:"questionsPerPage"`
	HasNextPage      bool  `json:"hasNextPage"`
	HasPreviousPage  bool  `json:"hasPreviousPage"`
}

type SessionClock struct {
	ExpiresAt     *time.Time `json:"expiresAt"`
	TimeRemaining *int       `json:"timeRemaining"` // 秒
}

type QuestionPage struct {
	SessionID  string              `json:"sessionId"`
	Questions  []DeliveredQuestion `json:"questions"`
	Pagination QuestionPagination  `json:"pagination"`
	Session    SessionClock        `json:"session"`
}

type SubmitQuizRequest struct {
	SessionID string        `json:"sessionId" binding:"required"`
	Answers   []AnswerInput `json:"answers" binding:"dive"`
	TimeSpent *int          `json:"timeSpent"` // 秒
}

type SubmissionStats struct {
	TotalScore          int  `json:"totalScore"`
	TotalPossiblePoints int  `json:"totalPossiblePoints"`
	PercentageScore     int  `json:"percentageScore"`
	IsPassed            bool `json:"isPassed"`
	TimeTaken           int  `json:"timeTaken"`
	CorrectAnswers      int  `json:"correctAnswers"`
	TotalQuestions      int  `json:"totalQuestions"`
}

type QuestionReview struct {
	QuestionID       string   `json:"questionId"`
	IsCorrect        bool     `json:"isCorrect"`
	PointsEarned     int      `json:"pointsEarned"`
	CorrectOptionIDs []string `json:"correctOptionIds"`
	Feedback         *string  `json:"feedback,omitempty"`
}

type SubmissionResult struct {
	SubmissionID string           `json:"submissionId"`
	SubmittedAt  time.Time        `json:"submittedAt"`
	Message      string           `json:"-"`
	Stats        SubmissionStats  `json:"stats"`
	Review       []QuestionReview `json:"review,omitempty"`
}

type SaveProgressRequest struct {
	Answers []AnswerInput `json:"answers"`
}

type ProgressSaved struct {
	SessionID    string    `json:"sessionId"`
	SavedAt      time.Time `json:"savedAt"`
	AnswersCount int       `json:"answersCount"`
}

type SessionResultBrief struct {
	PercentageScore int  `json:"percentageScore"`
	IsPassed        bool `json:"isPassed"`
}

type SessionStatus struct {
	SessionID        string              `json:"sessionId"`
	IsCompleted      bool                `json:"isCompleted"`
	WasAutoCompleted bool                `json:"wasAutoCompleted"`
	TimeRemaining    *int                `json:"timeRemaining"`
	StartedAt        time.Time           `json:"startedAt"`
	SubmittedAt      *time.Time          `json:"submittedAt"`
	Results          *SessionResultBrief `json:"results,omitempty"`
}

type ResultsQuizContext struct {
	Title        string `json:"title"`
	MaxAttempts  *int   `json:"maxAttempts"`
	PassingScore int    `json:"passingScore"`
}

type ResultsStats struct {
	TotalAttempts int        `json:"totalAttempts"`
	BestScore     int        `json:"bestScore"`
	HasPassed     bool       `json:"hasPassed"`
	LastAttempt   *time.Time `json:"lastAttempt"`
}

type UserQuizResults struct {
	Submissions []model.QuizSubmission `json:"submissions"`
	Stats       ResultsStats           `json:"stats"`
	Quiz        ResultsQuizContext     `json:"quiz"`
}

func (s *QuizSessionService) findQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindQuizByID(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return quiz, nil
}

func (s *QuizSessionService) findSession(sessionID string, userID uint) (*model.QuizSubmission, error) {
	sub, err := s.SubmissionRepo.FindForUser(sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sub, nil
}

// expireIfDue 惰性超时检查。返回 true 表示本次调用把会话结束了；
// 若会话已被并发请求结束，会用数据库中的最新状态刷新 sub 并返回 false
func (s *QuizSessionService) expireIfDue(repo *repository.QuizSubmissionRepository, sub *model.QuizSubmission, quiz *model.Quiz, now time.Time) (bool, error) {
	fired, err := closeIfDue(repo, sub, quiz, now)
	if err != nil || !fired {
		return false, err
	}
	s.reportExpired(sub, now)
	return true, nil
}

// closeIfDue 只做数据库层面的结束，不发事件，事务里用它
func closeIfDue(repo *repository.QuizSubmissionRepository, sub *model.QuizSubmission, quiz *model.Quiz, now time.Time) (bool, error) {
	if sub.IsCompleted {
		return false, nil
	}
	deadline := quiz.Deadline(sub.StartedAt)
	if deadline == nil || !now.After(*deadline) {
		return false, nil
	}

	fired, err := repo.MarkExpired(sub.ID, now)
	if err != nil {
		return false, fmt.Errorf("auto-complete session %s: %w", sub.ID, err)
	}
	if !fired {
		latest, err := repo.FindByID(sub.ID)
		if err != nil {
			return false, err
		}
		*sub = *latest
		return false, nil
	}

	sub.IsCompleted = true
	sub.SubmittedAt = &now
	sub.AutoCompleted = true
	sub.ActiveSlot = nil
	return true, nil
}

func (s *QuizSessionService) reportExpired(sub *model.QuizSubmission, now time.Time) {
	monitoring.QuizSessionsExpired.WithLabelValues("lazy").Inc()
	logger.L().Info("quiz session auto-completed",
		zap.String("sessionId", sub.ID),
		zap.String("quizId", sub.QuizID),
		zap.Uint("userId", sub.UserID),
	)
	s.publish(events.QuizSessionExpired, map[string]interface{}{
		"sessionId": sub.ID,
		"quizId":    sub.QuizID,
		"userId":    sub.UserID,
		"expiredAt": now,
	})
}

func (s *QuizSessionService) publish(eventType string, payload interface{}) {
	if err := s.Events.Publish(eventType, payload); err != nil {
		logger.L().Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}

// timeRemaining 剩余秒数，不限时返回 nil
func timeRemaining(quiz *model.Quiz, startedAt, now time.Time) *int {
	if quiz.TimeLimit == nil {
		return nil
	}
	elapsed := int(math.Floor(now.Sub(startedAt).Seconds()))
	remaining := *quiz.TimeLimit*60 - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

func (s *QuizSessionService) GetQuizInfo(ctx context.Context, quizID string, userID uint) (*QuizInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "QuizSession.GetQuizInfo", attribute.String("quiz.id", quizID))
	defer span.End()

	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	questionCount, err := s.QuizRepo.CountActiveQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	summary, err := s.SubmissionRepo.Summarize(userID, quizID)
	if err != nil {
		return nil, err
	}

	stats := QuizUserStats{
		CanAttempt:      true,
		TotalAttempts:   summary.AttemptCount,
		MaxAttempts:     quiz.MaxAttempts,
		HasPassed:       summary.HasPassed,
		LastAttemptDate: summary.LastSubmittedAt,
	}
	if quiz.MaxAttempts != nil {
		remaining := *quiz.MaxAttempts - int(summary.AttemptCount)
		if remaining < 0 {
			remaining = 0
		}
		stats.RemainingAttempts = &remaining
		stats.CanAttempt = remaining > 0
	}

	return &QuizInfo{
		Quiz: QuizSummary{
			ID:            quiz.ID,
			Title:         quiz.Title,
			Description:   quiz.Description,
			Difficulty:    quiz.Difficulty,
			TimeLimit:     quiz.TimeLimit,
			PassingScore:  quiz.PassingScore,
			QuestionCount: questionCount,
		},
		UserStats: stats,
	}, nil
}

// CreateSession 开考。在锁住测验行的事务内完成次数校验和插入，
// 同时 active_slot 唯一索引兜底，保证同一用户同一测验最多一个进行中的会话
func (s *QuizSessionService) CreateSession(ctx context.Context, quizID string, userID uint) (*SessionStarted, error) {
	ctx, span := tracing.StartSpan(ctx, "QuizSession.CreateSession", attribute.String("quiz.id", quizID))
	defer span.End()

	now := s.Now()
	var (
		quiz    *model.Quiz
		sub     *model.QuizSubmission
		expired *model.QuizSubmission
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quizRepo := s.QuizRepo.WithTx(tx)
		subRepo := s.SubmissionRepo.WithTx(tx)

		var err error
		quiz, err = quizRepo.LockQuiz(quizID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		}
		if err != nil {
			return err
		}

		summary, err := subRepo.Summarize(userID, quizID)
		if err != nil {
			return err
		}
		if quiz.MaxAttempts != nil && summary.AttemptCount >= int64(*quiz.MaxAttempts) {
			return util.NewLimitExceeded("Maximum attempts exceeded. You have used %d/%d attempts.", summary.AttemptCount, *quiz.MaxAttempts)
		}

		active, err := subRepo.FindActive(userID, quizID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if active != nil {
			// 已超时但未被访问过的会话先结束，再允许新开一场
			fired, err := closeIfDue(subRepo, active, quiz, now)
			if err != nil {
				return err
			}
			if fired {
				expired = active
			}
			if !active.IsCompleted {
				return util.ErrActiveSession
			}
		}

		slot := model.ActiveSlotKey(userID, quizID)
		sub = &model.QuizSubmission{
			UserID:        userID,
			QuizID:        quizID,
			AttemptNumber: summary.MaxAttemptNumber + 1,
			StartedAt:     now,
			ActiveSlot:    &slot,
		}
		if err := subRepo.Create(sub); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrActiveSession
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired != nil {
		s.reportExpired(expired, now)
	}
	monitoring.QuizSessionsStarted.Inc()
	logger.L().Info("quiz session created",
		zap.String("sessionId", sub.ID),
		zap.String("quizId", quizID),
		zap.Uint("userId", userID),
		zap.Int("attempt", sub.AttemptNumber),
	)
	s.publish(events.QuizSessionStarted, map[string]interface{}{
		"sessionId":     sub.ID,
		"quizId":        quizID,
		"userId":        userID,
		"attemptNumber": sub.AttemptNumber,
	})

	return &SessionStarted{
		SessionID:     sub.ID,
		AttemptNumber: sub.AttemptNumber,
		StartedAt:     sub.StartedAt,
		ExpiresAt:     quiz.Deadline(sub.StartedAt),
	}, nil
}

func (s *QuizSessionService) GetQuestions(ctx context.Context, sessionID string, userID uint, page, limit int) (*QuestionPage, error) {
	ctx, span := tracing.StartSpan(ctx, "QuizSession.GetQuestions", attribute.String("session.id", sessionID))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.DefaultPageSize
	}
	if limit > s.MaxPageSize {
		limit = s.MaxPageSize
	}

	sub, err := s.findSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sub.IsCompleted {
		return nil, util.ErrSessionCompleted
	}

	quiz, err := s.findQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	fired, err := s.expireIfDue(s.SubmissionRepo, sub, quiz, now)
	if err != nil {
		return nil, err
	}
	if fired {
		return nil, util.ErrSessionAutoExpired
	}
	if sub.IsCompleted {
		return nil, util.ErrSessionCompleted
	}

	total, err := s.QuizRepo.CountActiveQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.ListActiveQuestions(ctx, quiz.ID, quiz.RandomizeQuestions, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	delivered := make([]DeliveredQuestion, 0, len(questions))
	for _, q := range questions {
		dq := DeliveredQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Points:       q.Points,
			OrderIndex:   q.OrderIndex,
			Options:      make([]DeliveredOption, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			dq.Options = append(dq.Options, DeliveredOption{ID: o.ID, OptionText: o.OptionText, OrderIndex: o.OrderIndex})
		}
		delivered = append(delivered, dq)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return &QuestionPage{
		SessionID: sub.ID,
		Questions: delivered,
		Pagination: QuestionPagination{
			CurrentPage:      page,
			TotalPages:       totalPages,
			TotalQuestions:   total,
			QuestionsPerPage: limit,
			HasNextPage:      page < totalPages,
			HasPreviousPage:  page > 1,
		},
		Session: SessionClock{
			ExpiresAt:     quiz.Deadline(sub.StartedAt),
			TimeRemaining: timeRemaining(quiz, sub.StartedAt, now),
		},
	}, nil
}

// SaveProgress 仅做会话有效性校验和回执，不落库作答，作答只在交卷时写入
func (s *QuizSessionService) SaveProgress(ctx context.Context, sessionID string, userID uint, req SaveProgressRequest) (*ProgressSaved, error) {
	sub, err := s.findSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sub.IsCompleted {
		return nil, util.NewNotFound("Active session not found")
	}

	quiz, err := s.findQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	fired, err := s.expireIfDue(s.SubmissionRepo, sub, quiz, now)
	if err != nil {
		return nil, err
	}
	if fired {
		return nil, util.ErrSessionAutoExpired
	}
	if sub.IsCompleted {
		return nil, util.NewNotFound("Active session not found")
	}

	return &ProgressSaved{
		SessionID:    sub.ID,
		SavedAt:      now,
		AnswersCount: len(req.Answers),
	}, nil
}

// SubmitQuiz 交卷计分。作答明细写入和会话结束在同一事务中，失败整体回滚。
// 超时交卷直接拒绝，不修改会话状态
func (s *QuizSessionService) SubmitQuiz(ctx context.Context, quizID string, userID uint, req SubmitQuizRequest) (*SubmissionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "QuizSession.SubmitQuiz", attribute.String("session.id", req.SessionID))
	defer span.End()

	if req.SessionID == "" {
		return nil, util.NewValidation("Session ID is required")
	}
	if len(req.Answers) == 0 {
		return nil, util.ErrNoAnswers
	}

	sub, err := s.findSession(req.SessionID, userID)
	if err != nil {
		return nil, err
	}
	if quizID != "" && sub.QuizID != quizID {
		return nil, util.ErrSessionNotFound
	}
	if sub.IsCompleted {
		return nil, util.ErrAlreadySubmitted
	}

	quiz, err := s.findQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if deadline := quiz.Deadline(sub.StartedAt); deadline != nil && now.After(*deadline) {
		return nil, util.ErrSessionExpired
	}

	questionIDs := make([]string, 0, len(req.Answers))
	optionIDs := make([]string, 0, len(req.Answers))
	for _, a := range req.Answers {
		questionIDs = append(questionIDs, a.QuestionID)
		if a.SelectedOptionID != nil {
			optionIDs = append(optionIDs, *a.SelectedOptionID)
		}
	}

	timeTaken := int(now.Sub(sub.StartedAt).Seconds())
	if req.TimeSpent != nil {
		timeTaken = *req.TimeSpent
	}

	var (
		questions map[string]model.Question
		score     ScoreResult
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quizRepo := s.QuizRepo.WithTx(tx)
		subRepo := s.SubmissionRepo.WithTx(tx)

		var err error
		questions, err = quizRepo.ActiveQuestionsByIDs(quiz.ID, questionIDs)
		if err != nil {
			return err
		}
		options, err := quizRepo.OptionsByIDs(optionIDs)
		if err != nil {
			return err
		}

		score = ScoreAnswers(req.Answers, questions, options, quiz.PassingScore)

		sub.SubmittedAt = &now
		sub.Score = score.TotalScore
		sub.PercentageScore = score.PercentageScore
		sub.IsPassed = score.IsPassed
		sub.TimeSpent = &timeTaken

		completed, err := subRepo.Complete(sub)
		if err != nil {
			return err
		}
		if !completed {
			return util.ErrAlreadySubmitted
		}

		responses := make([]model.QuestionResponse, 0, len(score.Outcomes))
		for _, o := range score.Outcomes {
			responses = append(responses, model.QuestionResponse{
				SubmissionID:     sub.ID,
				QuestionID:       o.QuestionID,
				SelectedOptionID: o.SelectedOptionID,
				SubmittedAnswer:  o.SubmittedAnswer,
				IsCorrect:        o.IsCorrect,
				PointsEarned:     o.PointsEarned,
			})
		}
		return subRepo.CreateResponses(responses)
	})
	if err != nil {
		return nil, err
	}
	sub.IsCompleted = true

	monitoring.ObserveSubmission(score.IsPassed, score.PercentageScore)
	logger.L().Info("quiz submitted",
		zap.String("sessionId", sub.ID),
		zap.String("quizId", quiz.ID),
		zap.Uint("userId", userID),
		zap.Int("percentage", score.PercentageScore),
		zap.Bool("passed", score.IsPassed),
	)
	s.publish(events.QuizSubmitted, map[string]interface{}{
		"sessionId":       sub.ID,
		"quizId":          quiz.ID,
		"userId":          userID,
		"attemptNumber":   sub.AttemptNumber,
		"percentageScore": score.PercentageScore,
		"isPassed":        score.IsPassed,
	})

	result := &SubmissionResult{
		SubmissionID: sub.ID,
		SubmittedAt:  now,
		Message:      "Quiz completed",
		Stats: SubmissionStats{
			TotalScore:          score.TotalScore,
			TotalPossiblePoints: score.TotalPossiblePoints,
			PercentageScore:     score.PercentageScore,
			IsPassed:            score.IsPassed,
			TimeTaken:           timeTaken,
			CorrectAnswers:      score.CorrectAnswers,
			TotalQuestions:      len(score.Outcomes),
		},
	}
	if score.IsPassed {
		result.Message = "Quiz passed successfully!"
	}

	if quiz.ShowCorrectAnswers && len(score.Outcomes) > 0 {
		review, err := s.buildReview(score.Outcomes, questions)
		if err != nil {
			// 成绩已提交，解析失败只记录日志
			logger.L().Warn("build answer review failed", zap.String("sessionId", sub.ID), zap.Error(err))
		} else {
			result.Review = review
		}
	}

	return result, nil
}

func (s *QuizSessionService) buildReview(outcomes []QuestionOutcome, questions map[string]model.Question) ([]QuestionReview, error) {
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		ids = append(ids, o.QuestionID)
	}
	correct, err := s.QuizRepo.CorrectOptionIDs(ids)
	if err != nil {
		return nil, err
	}

	review := make([]QuestionReview, 0, len(outcomes))
	for _, o := range outcomes {
		correctIDs := correct[o.QuestionID]
		if correctIDs == nil {
			correctIDs = []string{}
		}
		review = append(review, QuestionReview{
			QuestionID:       o.QuestionID,
			IsCorrect:        o.IsCorrect,
			PointsEarned:     o.PointsEarned,
			CorrectOptionIDs: correctIDs,
			Feedback:         questions[o.QuestionID].Feedback,
		})
	}
	return review, nil
}

func (s *QuizSessionService) CheckSessionStatus(ctx context.Context, sessionID string, userID uint) (*SessionStatus, error) {
	sub, err := s.findSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	quiz, err := s.findQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if _, err := s.expireIfDue(s.SubmissionRepo, sub, quiz, now); err != nil {
		return nil, err
	}

	status := &SessionStatus{
		SessionID:        sub.ID,
		IsCompleted:      sub.IsCompleted,
		WasAutoCompleted: sub.AutoCompleted,
		StartedAt:        sub.StartedAt,
		SubmittedAt:      sub.SubmittedAt,
	}
	if sub.IsCompleted {
		status.Results = &SessionResultBrief{
			PercentageScore: sub.PercentageScore,
			IsPassed:        sub.IsPassed,
		}
	} else {
		status.TimeRemaining = timeRemaining(quiz, sub.StartedAt, now)
	}
	return status, nil
}

func (s *QuizSessionService) GetUserQuizResults(ctx context.Context, quizID string, userID uint) (*UserQuizResults, error) {
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.SubmissionRepo.ListByUserAndQuiz(userID, quizID)
	if err != nil {
		return nil, err
	}

	stats := ResultsStats{TotalAttempts: len(submissions)}
	for _, sub := range submissions {
		if sub.PercentageScore > stats.BestScore {
			stats.BestScore = sub.PercentageScore
		}
		if sub.IsPassed {
			stats.HasPassed = true
		}
	}
	if len(submissions) > 0 {
		stats.LastAttempt = submissions[0].SubmittedAt
	}

	return &UserQuizResults{
		Submissions: submissions,
		Stats:       stats,
		Quiz: ResultsQuizContext{
			Title:        quiz.Title,
			MaxAttempts:  quiz.MaxAttempts,
			PassingScore: quiz.PassingScore,
		},
	}, nil
}
