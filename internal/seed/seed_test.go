package seed

import (
	"elearning_backend/internal/model"
	"elearning_backend/pkg/database"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
users:
  - email: alice@example.com
    first_name: Alice
    last_name: Nguyen
    role: instructor
  - email: chloe@example.com
    first_name: Chloe
courses:
  - title: Data Analysis with Python
    instructor: alice@example.com
    status: published
    modules:
      - title: Getting Oriented
        lessons:
          - title: Why analysis matters
            duration_minutes: 8
          - title: Environment setup
            content_type: video
            content_data: https://videos.example.com/setup.mp4
            quizzes:
              - title: Setup check
                time_limit: 10
                max_attempts: 3
                questions:
                  - text: Which tool runs notebooks?
                    options:
                      - text: Jupyter
                        correct: true
                      - text: Make
      - title: Manipulation
        lessons:
          - title: Importing data
enrollments:
  - user: chloe@example.com
    course: Data Analysis with Python
    completed_lessons: 2
`

func TestImportSeed(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	res, err := Import(db, f, now)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Users)
	assert.Equal(t, 1, res.Courses)
	assert.Equal(t, 1, res.Quizzes)
	assert.Equal(t, 1, res.Enrollments)

	var quiz model.Quiz
	require.NoError(t, db.Preload("Questions.Options").First(&quiz, "title = ?", "Setup check").Error)
	require.NotNil(t, quiz.LessonID)
	assert.Equal(t, 70, quiz.PassingScore)
	assert.True(t, quiz.ShowCorrectAnswers)
	require.Len(t, quiz.Questions, 1)
	assert.Len(t, quiz.Questions[0].Options, 2)
	assert.True(t, quiz.Questions[0].IsActive)

	var enrollment model.CourseEnrollment
	require.NoError(t, db.First(&enrollment).Error)
	assert.Equal(t, 67, enrollment.ProgressPercentage)
	assert.Nil(t, enrollment.CompletedAt)

	var chloe model.User
	require.NoError(t, db.First(&chloe, "email = ?", "chloe@example.com").Error)
	assert.Equal(t, model.Student, chloe.Role)

	// 再次导入不会重复建课
	res, err = Import(db, f, now)
	require.NoError(t, err)
	assert.Zero(t, res.Courses)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Enrollments)

	var courses int64
	require.NoError(t, db.Model(&model.Course{}).Count(&courses).Error)
	assert.Equal(t, int64(1), courses)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("courses:\n  - title: X\n    colour: red\n"))
	assert.Error(t, err)

	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Courses)
}

func TestImportRollsBackOnBadData(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)

	f := &File{
		Users:   []User{{Email: "alice@example.com", Role: "instructor"}},
		Courses: []Course{{Title: "Broken", Instructor: "alice@example.com", Status: "live"}},
	}
	_, err = Import(db, f, time.Now())
	assert.Error(t, err)

	var users int64
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	assert.Zero(t, users)
}
