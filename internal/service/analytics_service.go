package service

import (
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

type AnalyticsService struct {
	Repo       *repository.AnalyticsRepository
	CourseRepo *repository.CourseRepository
	Now        func() time.Time
}

func NewAnalyticsService(repo *repository.AnalyticsRepository, courseRepo *repository.CourseRepository) *AnalyticsService {
	return &AnalyticsService{Repo: repo, CourseRepo: courseRepo, Now: time.Now}
}

type CourseStatistics struct {
	Course struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"course"`
	Statistics struct {
		TotalEnrollments int64   `json:"totalEnrollments"`
		CompletedCourses int64   `json:"completedCourses"`
		AverageProgress  float64 `json:"averageProgress"`
		TotalLessons     int64   `json:"totalLessons"`
		CompletionRate   int     `json:"completionRate"`
	} `json:"statistics"`
	TopStudents       []repository.TopStudent       `json:"topStudents"`
	RecentCompletions []repository.RecentCompletion `json:"recentCompletions"`
}

type PlatformOverview struct {
	TotalUsers       int64   `json:"totalUsers"`
	TotalCourses     int64   `json:"totalCourses"`
	TotalQuizzes     int64   `json:"totalQuizzes"`
	TotalEnrollments int64   `json:"totalEnrollments"`
	CompletedCourses int64   `json:"completedCourses"`
	AverageProgress  float64 `json:"averageProgress"`
	CompletionRate   int     `json:"completionRate"`
}

type PlatformAnalytics struct {
	Overview   PlatformOverview               `json:"overview"`
	TopCourses []repository.CoursePerformance `json:"topCourses"`
}

type InstructorSummary struct {
	TotalCourses     int     `json:"totalCourses"`
	TotalEnrollments int64   `json:"totalEnrollments"`
	TotalCompletions int64   `json:"totalCompletions"`
	AverageProgress  float64 `json:"averageProgress"`
	CompletionRate   int     `json:"completionRate"`
}

type InstructorAnalytics struct {
	Summary InstructorSummary              `json:"summary"`
	Courses []repository.CoursePerformance `json:"courses"`
}

type UserStatistics struct {
	EnrolledCourses  int64                    `json:"enrolledCourses"`
	CompletedCourses int64                    `json:"completedCourses"`
	CompletionRate   int                      `json:"completionRate"`
	QuizStats        repository.QuizAggregate `json:"quizStats"`
	RecentQuizzes    []repository.RecentQuiz  `json:"recentQuizzes"`
}

type Insight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type LearningInsights struct {
	Insights []Insight `json:"insights"`
	Stats    struct {
		TotalQuizzes int   `json:"totalQuizzes"`
		AverageScore int   `json:"averageScore"`
		RecentScores []int `json:"recentScores"`
	} `json:"stats"`
}

func completionRate(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func (s *AnalyticsService) CourseStatistics(courseID string, userID uint, isAdmin bool) (*CourseStatistics, error) {
	course, err := s.CourseRepo.FindCourse(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if !canManage(course.InstructorID, userID, isAdmin) {
		return nil, util.NewForbidden("You are not authorized to view these statistics")
	}

	agg, err := s.Repo.EnrollmentStatsForCourse(courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.CourseRepo.CountLessons(courseID)
	if err != nil {
		return nil, err
	}
	top, err := s.Repo.TopStudents(courseID, 10)
	if err != nil {
		return nil, err
	}
	recent, err := s.Repo.RecentCompletions(courseID, 20)
	if err != nil {
		return nil, err
	}

	out := &CourseStatistics{TopStudents: top, RecentCompletions: recent}
	out.Course.ID = course.ID
	out.Course.Title = course.Title
	out.Course.Description = course.Description
	out.Statistics.TotalEnrollments = agg.TotalEnrollments
	out.Statistics.CompletedCourses = agg.CompletedCourses
	out.Statistics.AverageProgress = agg.AverageProgress
	out.Statistics.TotalLessons = lessons
	out.Statistics.CompletionRate = completionRate(agg.CompletedCourses, agg.TotalEnrollments)
	return out, nil
}

func (s *AnalyticsService) PlatformAnalytics() (*PlatformAnalytics, error) {
	counts, err := s.Repo.PlatformCounts()
	if err != nil {
		return nil, err
	}
	agg, err := s.Repo.EnrollmentStatsOverall()
	if err != nil {
		return nil, err
	}
	top, err := s.Repo.TopCourses(10)
	if err != nil {
		return nil, err
	}

	return &PlatformAnalytics{
		Overview: PlatformOverview{
			TotalUsers:       counts.TotalUsers,
			TotalCourses:     counts.TotalCourses,
			TotalQuizzes:     counts.TotalQuizzes,
			TotalEnrollments: agg.TotalEnrollments,
			CompletedCourses: agg.CompletedCourses,
			AverageProgress:  agg.AverageProgress,
			CompletionRate:   completionRate(agg.CompletedCourses, agg.TotalEnrollments),
		},
		TopCourses: top,
	}, nil
}

func (s *AnalyticsService) InstructorAnalytics(instructorID uint) (*InstructorAnalytics, error) {
	courses, err := s.Repo.InstructorCourses(instructorID)
	if err != nil {
		return nil, err
	}
	agg, err := s.Repo.EnrollmentStatsForInstructor(instructorID)
	if err != nil {
		return nil, err
	}
	return &InstructorAnalytics{
		Summary: InstructorSummary{
			TotalCourses:     len(courses),
			TotalEnrollments: agg.TotalEnrollments,
			TotalCompletions: agg.CompletedCourses,
			AverageProgress:  agg.AverageProgress,
			CompletionRate:   completionRate(agg.CompletedCourses, agg.TotalEnrollments),
		},
		Courses: courses,
	}, nil
}

func (s *AnalyticsService) UserStatistics(userID uint) (*UserStatistics, error) {
	enrollments, err := s.Repo.EnrollmentStatsForUser(userID)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.Repo.QuizStatsForUser(userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.Repo.RecentQuizzes(userID, time.Time{}, 10)
	if err != nil {
		return nil, err
	}
	return &UserStatistics{
		EnrolledCourses:  enrollments.TotalEnrollments,
		CompletedCourses: enrollments.CompletedCourses,
		CompletionRate:   completionRate(enrollments.CompletedCourses, enrollments.TotalEnrollments),
		QuizStats:        *quizzes,
		RecentQuizzes:    recent,
	}, nil
}

// LearningInsights 基于近 30 天的测验成绩给出规则化的学习建议
func (s *AnalyticsService) LearningInsights(userID uint) (*LearningInsights, error) {
	since := s.Now().AddDate(0, 0, -30)
	recent, err := s.Repo.RecentQuizzes(userID, since, 20)
	if err != nil {
		return nil, err
	}

	// recent 按提交时间倒序，统计时转为正序
	scores := make([]int, len(recent))
	passed := 0
	sum := 0
	for i, q := range recent {
		scores[len(recent)-1-i] = q.Score
		sum += q.Score
		if q.IsPassed {
			passed++
		}
	}

	out := &LearningInsights{}
	out.Stats.TotalQuizzes = len(scores)
	if len(scores) > 0 {
		out.Stats.AverageScore = int(math.Round(float64(sum) / float64(len(scores))))
	}
	out.Stats.RecentScores = scores
	if len(scores) > 5 {
		out.Stats.RecentScores = scores[len(scores)-5:]
	}
	out.Insights = buildInsights(scores, out.Stats.AverageScore, passed)
	return out, nil
}

func buildInsights(scores []int, average, passed int) []Insight {
	if len(scores) == 0 {
		return []Insight{{Type: "recommendation", Message: "Take your first quiz to start getting personalized insights!"}}
	}

	insights := []Insight{{
		Type:    "performance",
		Message: fmt.Sprintf("You've completed %d quizzes with a %d%% average.", len(scores), average),
	}}

	switch {
	case average >= 85:
		insights = append(insights, Insight{Type: "encouragement", Message: "Excellent work! Try a harder difficulty to keep growing."})
	case average >= 70:
		insights = append(insights, Insight{Type: "encouragement", Message: "Solid results. A little more review will push you higher."})
	default:
		insights = append(insights, Insight{Type: "recommendation", Message: "Revisit the lesson material before your next attempt."})
	}

	// 最近三次与之前相比的趋势
	if len(scores) >= 4 {
		split := len(scores) - 3
		earlier := averageOf(scores[:split])
		latest := averageOf(scores[split:])
		switch {
		case latest-earlier >= 10:
			insights = append(insights, Insight{Type: "performance", Message: "Your recent scores are trending up. Keep it going!"})
		case earlier-latest >= 10:
			insights = append(insights, Insight{Type: "recommendation", Message: "Recent scores dipped. Consider a short review session."})
		}
	}

	if passed == 0 {
		insights = append(insights, Insight{Type: "recommendation", Message: "Focus on one quiz at a time and aim for a first pass."})
	}
	return insights
}

func averageOf(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, v := range scores {
		sum += v
	}
	return float64(sum) / float64(len(scores))
}
