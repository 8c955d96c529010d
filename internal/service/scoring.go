package service

import (
	"elearning_backend/internal/model"
	"math"
)

type AnswerInput struct {
	QuestionID       string  `json:"questionId" binding:"required"`
	SelectedOptionID *string `json:"selectedOptionId"`
	SubmittedAnswer  *string `json:"submittedAnswer"`
}

type QuestionOutcome struct {
	QuestionID       string
	SelectedOptionID *string
	SubmittedAnswer  *string
	Points           int
	PointsEarned     int
	IsCorrect        bool
}

type ScoreResult struct {
	Outcomes            []QuestionOutcome
	TotalScore          int
	TotalPossiblePoints int
	PercentageScore     int
	CorrectAnswers      int
	IsPassed            bool
}

// ScoreAnswers 纯计算，不访问数据库。
// questions 只应包含该测验中启用的题目；不在其中的作答直接忽略，也不计入总分。
// 同一题多次作答以最后一次为准。
func ScoreAnswers(answers []AnswerInput, questions map[string]model.Question, options map[string]model.AnswerOption, passingScore int) ScoreResult {
	var result ScoreResult
	position := make(map[string]int, len(answers))

	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}

		outcome := QuestionOutcome{
			QuestionID:       q.ID,
			SelectedOptionID: a.SelectedOptionID,
			SubmittedAnswer:  a.SubmittedAnswer,
			Points:           q.Points,
		}

		// 选项必须属于当前题目，跨题的正确选项不算分
		if a.SelectedOptionID != nil {
			if opt, ok := options[*a.SelectedOptionID]; ok && opt.QuestionID == a.QuestionID && opt.IsCorrect {
				outcome.IsCorrect = true
				outcome.PointsEarned = q.Points
			}
		}

		if i, seen := position[q.ID]; seen {
			result.Outcomes[i] = outcome
			continue
		}
		position[q.ID] = len(result.Outcomes)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	for _, o := range result.Outcomes {
		result.TotalPossiblePoints += o.Points
		result.TotalScore += o.PointsEarned
		if o.IsCorrect {
			result.CorrectAnswers++
		}
	}

	result.PercentageScore = Percentage(result.TotalScore, result.TotalPossiblePoints)
	result.IsPassed = result.PercentageScore >= passingScore
	return result
}

// Percentage 四舍五入到整数，分母为 0 时为 0
func Percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
