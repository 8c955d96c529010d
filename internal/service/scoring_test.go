package service

import (
	"elearning_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func scoringFixture() (map[string]model.Question, map[string]model.AnswerOption) {
	q := func(id string, points int) model.Question {
		m := model.Question{QuizID: "quiz", Points: points, IsActive: true}
		m.ID = id
		return m
	}
	o := func(id, questionID string, correct bool) model.AnswerOption {
		m := model.AnswerOption{QuestionID: questionID, IsCorrect: correct}
		m.ID = id
		return m
	}

	questions := map[string]model.Question{
		"q1": q("q1", 1),
		"q2": q("q2", 1),
	}
	options := map[string]model.AnswerOption{
		"o1a": o("o1a", "q1", true),
		"o1b": o("o1b", "q1", false),
		"o2a": o("o2a", "q2", false),
		"o2b": o("o2b", "q2", true),
	}
	return questions, options
}

func TestScoreAnswersHalfCorrect(t *testing.T) {
	questions, options := scoringFixture()

	res := ScoreAnswers([]AnswerInput{
		{QuestionID: "q1", SelectedOptionID: strPtr("o1a")},
		{QuestionID: "q2", SelectedOptionID: strPtr("o2a")},
	}, questions, options, 70)

	assert.Equal(t, 1, res.TotalScore)
	assert.Equal(t, 2, res.TotalPossiblePoints)
	assert.Equal(t, 50, res.PercentageScore)
	assert.Equal(t, 1, res.CorrectAnswers)
	assert.False(t, res.IsPassed)
	assert.Len(t, res.Outcomes, 2)
}

func TestScoreAnswersCrossQuestionOption(t *testing.T) {
	questions, options := scoringFixture()

	// o2b 是 q2 的正确选项，用来回答 q1 不得分
	res := ScoreAnswers([]AnswerInput{
		{QuestionID: "q1", SelectedOptionID: strPtr("o2b")},
	}, questions, options, 0)

	assert.False(t, res.Outcomes[0].IsCorrect)
	assert.Equal(t, 0, res.TotalScore)
	assert.Equal(t, 1, res.TotalPossiblePoints)
	assert.Equal(t, 0, res.PercentageScore)
	assert.True(t, res.IsPassed, "passing score 0 always passes")
}

func TestScoreAnswersSkipsUnknownQuestions(t *testing.T) {
	questions, options := scoringFixture()

	res := ScoreAnswers([]AnswerInput{
		{QuestionID: "q1", SelectedOptionID: strPtr("o1a")},
		{QuestionID: "inactive-or-foreign", SelectedOptionID: strPtr("o1a")},
	}, questions, options, 70)

	assert.Len(t, res.Outcomes, 1)
	assert.Equal(t, 1, res.TotalPossiblePoints)
	assert.Equal(t, 100, res.PercentageScore)
	assert.True(t, res.IsPassed)
}

func TestScoreAnswersNoScorableQuestions(t *testing.T) {
	questions, options := scoringFixture()

	res := ScoreAnswers([]AnswerInput{{QuestionID: "nope"}}, questions, options, 70)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, 0, res.PercentageScore)
	assert.False(t, res.IsPassed)
}

func TestScoreAnswersTextAndMissingOption(t *testing.T) {
	questions, options := scoringFixture()

	res := ScoreAnswers([]AnswerInput{
		{QuestionID: "q1", SubmittedAnswer: strPtr("free text")},
		{QuestionID: "q2", SelectedOptionID: strPtr("ghost")},
	}, questions, options, 50)

	assert.Equal(t, 0, res.TotalScore)
	assert.Equal(t, 2, res.TotalPossiblePoints)
	assert.Equal(t, "free text", *res.Outcomes[0].SubmittedAnswer)
}

func TestScoreAnswersDuplicateLastWins(t *testing.T) {
	questions, options := scoringFixture()

	res := ScoreAnswers([]AnswerInput{
		{QuestionID: "q1", SelectedOptionID: strPtr("o1b")},
		{QuestionID: "q1", SelectedOptionID: strPtr("o1a")},
	}, questions, options, 70)

	assert.Len(t, res.Outcomes, 1)
	assert.Equal(t, 1, res.TotalScore)
	assert.Equal(t, 1, res.TotalPossiblePoints)
}

func TestScoreAnswersWeightedPoints(t *testing.T) {
	questions, options := scoringFixture()
	q2 := questions["q2"]
	q2.Points = 2
	questions["q2"] = q2

	res := ScoreAnswers([]AnswerInput{
		{QuestionID: "q1", SelectedOptionID: strPtr("o1a")},
		{QuestionID: "q2", SelectedOptionID: strPtr("o2a")},
	}, questions, options, 30)

	assert.Equal(t, 33, res.PercentageScore)
	assert.True(t, res.IsPassed)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 100, Percentage(5, 5))
}
