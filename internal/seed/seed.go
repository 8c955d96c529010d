package seed

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type File struct {
	Users       []User       `yaml:"users"`
	Courses     []Course     `yaml:"courses"`
	Enrollments []Enrollment `yaml:"enrollments"`
}

type User struct {
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Role      string `yaml:"role"`
}

type Course struct {
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Instructor     string   `yaml:"instructor"` // 讲师邮箱
	Price          int      `yaml:"price"`
	ThumbnailURL   string   `yaml:"thumbnail_url"`
	EstimatedHours *int     `yaml:"estimated_hours"`
	Status         string   `yaml:"status"`
	Difficulty     string   `yaml:"difficulty"`
	Modules        []Module `yaml:"modules"`
}

type Module struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Lessons     []Lesson `yaml:"lessons"`
}

type Lesson struct {
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	ContentType     string `yaml:"content_type"`
	ContentData     string `yaml:"content_data"`
	DurationMinutes *int   `yaml:"duration_minutes"`
	Quizzes         []Quiz `yaml:"quizzes"`
}

type Quiz struct {
	Title              string     `yaml:"title"`
	Description        string     `yaml:"description"`
	Difficulty         string     `yaml:"difficulty"`
	MaxAttempts        *int       `yaml:"max_attempts"`
	TimeLimit          *int       `yaml:"time_limit"`
	PassingScore       *int       `yaml:"passing_score"`
	RandomizeQuestions bool       `yaml:"randomize_questions"`
	ShowCorrectAnswers *bool      `yaml:"show_correct_answers"`
	Questions          []Question `yaml:"questions"`
}

type Question struct {
	Text          string   `yaml:"text"`
	Type          string   `yaml:"type"`
	Points        int      `yaml:"points"`
	CorrectAnswer *string  `yaml:"correct_answer"`
	Feedback      *string  `yaml:"feedback"`
	Options       []Option `yaml:"options"`
}

type Option struct {
	Text        string  `yaml:"text"`
	Correct     bool    `yaml:"correct"`
	Explanation *string `yaml:"explanation"`
}

// Enrollment 按课时顺序标记前 completed_lessons 个课时为已完成
type Enrollment struct {
	User             string `yaml:"user"`
	Course           string `yaml:"course"`
	CompletedLessons int    `yaml:"completed_lessons"`
}

type Result struct {
	Users       int
	Courses     int
	Quizzes     int
	Enrollments int
	Skipped     int
}

func Parse(r io.Reader) (*File, error) {
	f := &File{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Import 在一个事务里导入，已存在的用户按邮箱更新，同一讲师下同名课程跳过
func Import(db *gorm.DB, f *File, now time.Time) (*Result, error) {
	res := &Result{}
	err := db.Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		courses := repository.NewCourseRepository(tx)
		quizzes := repository.NewQuizRepository(tx, nil, 0)
		enrollments := repository.NewEnrollmentRepository(tx)

		byEmail := map[string]uint{}
		for _, u := range f.Users {
			role := model.UserRole(u.Role)
			if role == "" {
				role = model.Student
			}
			user := &model.User{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: role}
			if err := users.UpsertByEmail(user); err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
			byEmail[u.Email] = user.ID
			res.Users++
		}

		lookupUser := func(email string) (uint, error) {
			if id, ok := byEmail[email]; ok {
				return id, nil
			}
			user, err := users.FindByEmail(email)
			if err != nil {
				return 0, fmt.Errorf("unknown user %s: %w", email, err)
			}
			byEmail[email] = user.ID
			return user.ID, nil
		}

		byTitle := map[string]string{}
		for _, c := range f.Courses {
			instructorID, err := lookupUser(c.Instructor)
			if err != nil {
				return err
			}

			existing, err := courses.FindCourseByTitle(instructorID, c.Title)
			if err == nil {
				byTitle[c.Title] = existing.ID
				res.Skipped++
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			course, err := buildCourse(c, instructorID)
			if err != nil {
				return err
			}
			if err := courses.CreateCourse(course); err != nil {
				return fmt.Errorf("course %q: %w", c.Title, err)
			}
			byTitle[c.Title] = course.ID
			res.Courses++

			// 测验挂在课时上，课时 id 生成后再写入
			for mi, m := range c.Modules {
				for li, l := range m.Lessons {
					lessonID := course.Modules[mi].Lessons[li].ID
					for _, q := range l.Quizzes {
						quiz, err := buildQuiz(q, lessonID, instructorID)
						if err != nil {
							return fmt.Errorf("quiz %q: %w", q.Title, err)
						}
						if err := quizzes.CreateQuiz(quiz); err != nil {
							return fmt.Errorf("quiz %q: %w", q.Title, err)
						}
						res.Quizzes++
					}
				}
			}
		}

		for _, e := range f.Enrollments {
			userID, err := lookupUser(e.User)
			if err != nil {
				return err
			}
			courseID, ok := byTitle[e.Course]
			if !ok {
				return fmt.Errorf("enrollment for unknown course %q", e.Course)
			}
			exists, err := enrollments.Exists(userID, courseID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := enroll(courses, enrollments, userID, courseID, e.CompletedLessons, now); err != nil {
				return err
			}
			res.Enrollments++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("seed imported",
		zap.Int("users", res.Users),
		zap.Int("courses", res.Courses),
		zap.Int("quizzes", res.Quizzes),
		zap.Int("enrollments", res.Enrollments),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func buildCourse(c Course, instructorID uint) (*model.Course, error) {
	course := &model.Course{
		Title:          c.Title,
		Description:    c.Description,
		Price:          c.Price,
		ThumbnailURL:   c.ThumbnailURL,
		EstimatedHours: c.EstimatedHours,
		Status:         model.CourseStatus(orDefault(c.Status, string(model.CourseDraft))),
		Difficulty:     model.QuizDifficulty(orDefault(c.Difficulty, string(model.DifficultyBeginner))),
		InstructorID:   instructorID,
	}
	if !course.Status.Valid() {
		return nil, fmt.Errorf("course %q: invalid status %q", c.Title, c.Status)
	}
	if !course.Difficulty.Valid() {
		return nil, fmt.Errorf("course %q: invalid difficulty %q", c.Title, c.Difficulty)
	}

	for mi, m := range c.Modules {
		module := model.Module{Title: m.Title, Description: m.Description, SortOrder: mi}
		for li, l := range m.Lessons {
			lesson := model.Lesson{
				Title:           l.Title,
				Description:     l.Description,
				ContentType:     model.ContentType(orDefault(l.ContentType, string(model.ContentText))),
				ContentData:     l.ContentData,
				SortOrder:       li,
				DurationMinutes: l.DurationMinutes,
			}
			if !lesson.ContentType.Valid() {
				return nil, fmt.Errorf("lesson %q: invalid content type %q", l.Title, l.ContentType)
			}
			module.Lessons = append(module.Lessons, lesson)
		}
		course.Modules = append(course.Modules, module)
	}
	return course, nil
}

func buildQuiz(q Quiz, lessonID string, creatorID uint) (*model.Quiz, error) {
	passing := 70
	if q.PassingScore != nil {
		passing = *q.PassingScore
	}
	showAnswers := true
	if q.ShowCorrectAnswers != nil {
		showAnswers = *q.ShowCorrectAnswers
	}

	quiz := &model.Quiz{
		Title:              q.Title,
		Description:        q.Description,
		LessonID:           &lessonID,
		CreatorID:          creatorID,
		Difficulty:         model.QuizDifficulty(orDefault(q.Difficulty, string(model.DifficultyBeginner))),
		MaxAttempts:        q.MaxAttempts,
		TimeLimit:          q.TimeLimit,
		PassingScore:       passing,
		RandomizeQuestions: q.RandomizeQuestions,
		ShowCorrectAnswers: showAnswers,
	}
	if !quiz.Difficulty.Valid() {
		return nil, fmt.Errorf("invalid difficulty %q", q.Difficulty)
	}

	for i, qq := range q.Questions {
		qType := model.QuestionType(orDefault(qq.Type, string(model.QuestionMultipleChoice)))
		if !qType.Valid() {
			return nil, fmt.Errorf("question %d: invalid type %q", i+1, qq.Type)
		}
		points := qq.Points
		if points <= 0 {
			points = 1
		}
		question := model.Question{
			QuestionText:  qq.Text,
			QuestionType:  qType,
			CorrectAnswer: qq.CorrectAnswer,
			Feedback:      qq.Feedback,
			Points:        points,
			OrderIndex:    i,
			IsActive:      true,
		}
		for oi, o := range qq.Options {
			question.Options = append(question.Options, model.AnswerOption{
				OptionText:  o.Text,
				IsCorrect:   o.Correct,
				Explanation: o.Explanation,
				OrderIndex:  oi,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz, nil
}

func enroll(courses *repository.CourseRepository, enrollments *repository.EnrollmentRepository, userID uint, courseID string, completed int, now time.Time) error {
	if err := enrollments.Create(&model.CourseEnrollment{UserID: userID, CourseID: courseID, EnrolledAt: now}); err != nil {
		return err
	}
	if completed <= 0 {
		return nil
	}

	lessonIDs, err := courses.LessonIDsInOrder(courseID)
	if err != nil {
		return err
	}
	if completed > len(lessonIDs) {
		completed = len(lessonIDs)
	}
	for _, id := range lessonIDs[:completed] {
		if err := enrollments.UpsertCompletion(&model.LessonCompletion{UserID: userID, LessonID: id, IsCompleted: true, CompletedAt: now}); err != nil {
			return err
		}
	}

	pct := int(math.Round(float64(completed) / float64(len(lessonIDs)) * 100))
	var completedAt *time.Time
	if pct == 100 {
		completedAt = &now
	}
	return enrollments.UpdateProgress(userID, courseID, pct, completedAt)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
