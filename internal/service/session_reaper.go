package service

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/pkg/events"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultReaperSpec  = "@every 1m"
	defaultReaperBatch = 500
)

// SessionReaper 定时结束已超时但无人访问的会话，与惰性过期共用 MarkExpired
type SessionReaper struct {
	Sessions  *QuizSessionService
	BatchSize int

	cron *cron.Cron
}

func NewSessionReaper(sessions *QuizSessionService) *SessionReaper {
	return &SessionReaper{Sessions: sessions, BatchSize: defaultReaperBatch}
}

func (r *SessionReaper) Start(spec string) error {
	if spec == "" {
		spec = defaultReaperSpec
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.Sweep(); err != nil {
			logger.L().Error("session reaper sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	logger.L().Info("session reaper started", zap.String("spec", spec))
	return nil
}

func (r *SessionReaper) Stop() {
	if r == nil || r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}

// Sweep 分页扫描全部未结束的限时会话，返回本轮结束的会话数
func (r *SessionReaper) Sweep() (int, error) {
	now := r.Sessions.Now()
	closed := 0
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultReaperBatch
	}

	var after *repository.ActiveTimedSession
	for {
		page, err := r.Sessions.SubmissionRepo.ListActiveTimed(after, batch)
		if err != nil {
			return closed, err
		}
		for _, s := range page {
			if r.expire(s, now) {
				closed++
			}
		}
		if len(page) < batch {
			break
		}
		after = &page[len(page)-1]
	}

	if closed > 0 {
		logger.L().Info("session reaper closed expired sessions", zap.Int("count", closed))
	}
	return closed, nil
}

func (r *SessionReaper) expire(s repository.ActiveTimedSession, now time.Time) bool {
	quiz := model.Quiz{TimeLimit: &s.TimeLimit}
	if !now.After(*quiz.Deadline(s.StartedAt)) {
		return false
	}
	fired, err := r.Sessions.SubmissionRepo.MarkExpired(s.ID, now)
	if err != nil {
		logger.L().Warn("reaper failed to expire session", zap.String("sessionId", s.ID), zap.Error(err))
		return false
	}
	if !fired {
		return false
	}
	monitoring.QuizSessionsExpired.WithLabelValues("reaper").Inc()
	r.Sessions.publish(events.QuizSessionExpired, map[string]interface{}{
		"sessionId": s.ID,
		"quizId":    s.QuizID,
		"userId":    s.UserID,
		"expiredAt": now,
	})
	return true
}
