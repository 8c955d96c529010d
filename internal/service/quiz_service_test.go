package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/database"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newQuizService(t *testing.T) (*QuizService, *gorm.DB) {
	t.Helper()
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	return NewQuizService(db, repository.NewQuizRepository(db, nil, 0), repository.NewCourseRepository(db)), db
}

func choiceQuestion(text string) QuestionRequest {
	return QuestionRequest{
		QuestionText: text,
		QuestionType: model.QuestionMultipleChoice,
		Options: []OptionRequest{
			{OptionText: "yes", IsCorrect: true},
			{OptionText: "no"},
		},
	}
}

func TestCreateQuizAppliesDefaults(t *testing.T) {
	svc, _ := newQuizService(t)

	quiz, err := svc.CreateQuiz(3, false, CreateQuizRequest{
		Title:     "Pointers",
		Questions: []QuestionRequest{choiceQuestion("a"), choiceQuestion("b")},
	})
	require.NoError(t, err)
	assert.Equal(t, 70, quiz.PassingScore)
	assert.True(t, quiz.ShowCorrectAnswers)
	assert.Equal(t, model.DifficultyBeginner, quiz.Difficulty)

	loaded, err := svc.GetQuizForEditing(context.Background(), quiz.ID, 3, false)
	require.NoError(t, err)
	require.Len(t, loaded.Questions, 2)
	assert.Equal(t, 1, loaded.Questions[0].Points)
	assert.True(t, loaded.Questions[0].IsActive)
	assert.Len(t, loaded.Questions[1].Options, 2)
}

func TestCreateQuizValidation(t *testing.T) {
	svc, _ := newQuizService(t)

	cases := map[string]CreateQuizRequest{
		"short title":     {Title: "a"},
		"max attempts":    {Title: "ok title", MaxAttempts: util.IntPtr(11)},
		"time limit":      {Title: "ok title", TimeLimit: util.IntPtr(0)},
		"passing score":   {Title: "ok title", PassingScore: util.IntPtr(101)},
		"difficulty":      {Title: "ok title", Difficulty: "insane"},
		"no correct":      {Title: "ok title", Questions: []QuestionRequest{{QuestionText: "q", QuestionType: model.QuestionTrueFalse, Options: []OptionRequest{{OptionText: "t"}, {OptionText: "f"}}}}},
		"bad type":        {Title: "ok title", Questions: []QuestionRequest{{QuestionText: "q", QuestionType: "essay"}}},
		"too few options": {Title: "ok title", Questions: []QuestionRequest{{QuestionText: "q", QuestionType: model.QuestionMultipleChoice, Options: []OptionRequest{{OptionText: "t", IsCorrect: true}}}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateQuiz(3, false, req)
			assert.True(t, util.IsKind(err, util.KindValidation), "got %v", err)
		})
	}
}

func TestCreateQuizForLessonRequiresCourseOwner(t *testing.T) {
	svc, db := newQuizService(t)

	course := &model.Course{Title: "C", Status: model.CoursePublished, Difficulty: model.DifficultyBeginner, InstructorID: 3}
	require.NoError(t, db.Create(course).Error)
	module := &model.Module{CourseID: course.ID, Title: "M"}
	require.NoError(t, db.Create(module).Error)
	lesson := &model.Lesson{ModuleID: module.ID, Title: "L", ContentType: model.ContentText}
	require.NoError(t, db.Create(lesson).Error)

	_, err := svc.CreateQuiz(4, false, CreateQuizRequest{Title: "Lesson quiz", LessonID: &lesson.ID})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	quiz, err := svc.CreateQuiz(3, false, CreateQuizRequest{Title: "Lesson quiz", LessonID: &lesson.ID})
	require.NoError(t, err)

	quizzes, err := svc.ListLessonQuizzes(lesson.ID)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, quiz.ID, quizzes[0].ID)

	_, err = svc.CreateQuiz(3, false, CreateQuizRequest{Title: "Lesson quiz", LessonID: util.StringPtr("missing")})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestUpdateQuizOwnership(t *testing.T) {
	svc, _ := newQuizService(t)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(3, false, CreateQuizRequest{Title: "Original", TimeLimit: util.IntPtr(30)})
	require.NoError(t, err)

	_, err = svc.UpdateQuiz(ctx, quiz.ID, 4, false, UpdateQuizRequest{Title: util.StringPtr("Hijack")})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	updated, err := svc.UpdateQuiz(ctx, quiz.ID, 99, true, UpdateQuizRequest{
		Title:          util.StringPtr("Renamed"),
		ClearTimeLimit: true,
		PassingScore:   util.IntPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Nil(t, updated.TimeLimit)
	assert.Equal(t, 0, updated.PassingScore)

	_, err = svc.UpdateQuiz(ctx, quiz.ID, 3, false, UpdateQuizRequest{MaxAttempts: util.IntPtr(0)})
	assert.True(t, util.IsKind(err, util.KindValidation))
}

func TestAddQuestionsAndDeactivate(t *testing.T) {
	svc, _ := newQuizService(t)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(3, false, CreateQuizRequest{Title: "Growing", Questions: []QuestionRequest{choiceQuestion("first")}})
	require.NoError(t, err)

	added, err := svc.AddQuestions(ctx, quiz.ID, 3, false, []QuestionRequest{choiceQuestion("second"), choiceQuestion("third")})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, 1, added[0].OrderIndex)
	assert.Equal(t, 2, added[1].OrderIndex)

	// 一批中有非法题目时整批不写入
	_, err = svc.AddQuestions(ctx, quiz.ID, 3, false, []QuestionRequest{choiceQuestion("ok"), {QuestionText: "", QuestionType: model.QuestionShortAnswer}})
	assert.True(t, util.IsKind(err, util.KindValidation))

	count, err := svc.QuizRepo.CountActiveQuestions(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.ErrorIs(t, svc.DeactivateQuestion(ctx, added[0].ID, 4, false), util.ErrPermissionDenied)
	require.NoError(t, svc.DeactivateQuestion(ctx, added[0].ID, 3, false))
	assert.ErrorIs(t, svc.DeactivateQuestion(ctx, "missing", 3, false), util.ErrQuestionNotFound)

	count, err = svc.QuizRepo.CountActiveQuestions(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDeleteQuizCascades(t *testing.T) {
	svc, db := newQuizService(t)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(3, false, CreateQuizRequest{Title: "Doomed", Questions: []QuestionRequest{choiceQuestion("q")}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteQuiz(ctx, quiz.ID, 3, false))

	var options int64
	require.NoError(t, db.Model(&model.AnswerOption{}).Count(&options).Error)
	assert.Zero(t, options)

	assert.ErrorIs(t, svc.DeleteQuiz(ctx, quiz.ID, 3, false), util.ErrQuizNotFound)

	quizzes, total, err := svc.ListMyQuizzes(3, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, quizzes)
}
