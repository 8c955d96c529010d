package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/events"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionReaperClosesOnlyExpiredSessions(t *testing.T) {
	limit := 10
	f := newSessionFixture(t, func(q *model.Quiz) { q.TimeLimit = &limit })
	ctx := context.Background()

	stale, err := f.svc.CreateSession(ctx, f.quiz.ID, 7)
	require.NoError(t, err)
	f.advance(8 * time.Minute)
	fresh, err := f.svc.CreateSession(ctx, f.quiz.ID, 8)
	require.NoError(t, err)

	reaper := NewSessionReaper(f.svc)

	// 尚未超时
	closed, err := reaper.Sweep()
	require.NoError(t, err)
	assert.Zero(t, closed)

	f.advance(3 * time.Minute)
	closed, err = reaper.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	sub := f.loadSubmission(t, stale.SessionID)
	assert.True(t, sub.IsCompleted)
	assert.True(t, sub.AutoCompleted)
	assert.Zero(t, sub.PercentageScore)
	assert.Nil(t, sub.ActiveSlot)

	assert.False(t, f.loadSubmission(t, fresh.SessionID).IsCompleted)
	assert.Contains(t, f.recorder.Types(), events.QuizSessionExpired)

	// 已结束的会话不会被重复处理
	closed, err = reaper.Sweep()
	require.NoError(t, err)
	assert.Zero(t, closed)

	// 学员随后可以重新开考
	_, err = f.svc.CreateSession(ctx, f.quiz.ID, 7)
	assert.NoError(t, err)
}

func TestSessionReaperPagesPastSessionsStillInTime(t *testing.T) {
	f := newSessionFixture(t, func(q *model.Quiz) { q.TimeLimit = util.IntPtr(10) })
	ctx := context.Background()

	exam := &model.Quiz{
		Title:        "final exam",
		CreatorID:    1,
		Difficulty:   model.DifficultyBeginner,
		PassingScore: 60,
		TimeLimit:    util.IntPtr(600),
	}
	require.NoError(t, f.db.Create(exam).Error)

	// 开考更早但仍在时限内的会话排在前面，占满第一页
	var live []string
	for uid := uint(1); uid <= 3; uid++ {
		started, err := f.svc.CreateSession(ctx, exam.ID, uid)
		require.NoError(t, err)
		live = append(live, started.SessionID)
		f.advance(time.Second)
	}
	overdue, err := f.svc.CreateSession(ctx, f.quiz.ID, 7)
	require.NoError(t, err)

	f.advance(11 * time.Minute)
	reaper := NewSessionReaper(f.svc)
	reaper.BatchSize = 2

	closed, err := reaper.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.True(t, f.loadSubmission(t, overdue.SessionID).IsCompleted)
	for _, id := range live {
		assert.False(t, f.loadSubmission(t, id).IsCompleted)
	}
}

func TestSessionReaperIgnoresUntimedQuizzes(t *testing.T) {
	f := newSessionFixture(t, nil)
	started, err := f.svc.CreateSession(context.Background(), f.quiz.ID, 7)
	require.NoError(t, err)

	f.advance(48 * time.Hour)
	closed, err := NewSessionReaper(f.svc).Sweep()
	require.NoError(t, err)
	assert.Zero(t, closed)
	assert.False(t, f.loadSubmission(t, started.SessionID).IsCompleted)
}

func TestSessionReaperRejectsBadSpec(t *testing.T) {
	f := newSessionFixture(t, nil)
	reaper := NewSessionReaper(f.svc)
	assert.Error(t, reaper.Start("not a cron spec"))

	require.NoError(t, reaper.Start("@every 1h"))
	reaper.Stop()
	reaper.Stop()
}
