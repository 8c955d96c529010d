package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/database"
	"elearning_backend/pkg/events"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	initRequests []PaymentInitRequest
	verification *PaymentVerification
}

func (g *fakeGateway) Initialize(_ context.Context, req PaymentInitRequest) (*PaymentInitResult, error) {
	g.initRequests = append(g.initRequests, req)
	return &PaymentInitResult{AuthorizationURL: "https://checkout.test/x", Reference: "ref-x"}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*PaymentVerification, error) {
	if g.verification == nil {
		return nil, util.NewUpstream(nil, "Failed to verify payment")
	}
	v := *g.verification
	v.Reference = reference
	return &v, nil
}

type courseFixture struct {
	db      *gorm.DB
	course  *model.Course
	lessons []model.Lesson
}

// seedCourse 建一门两个模块、共三个课时的课程，讲师 id 为 1，学员 id 为 2
func seedCourse(t *testing.T, db *gorm.DB, price int, status model.CourseStatus) *courseFixture {
	t.Helper()
	require.NoError(t, db.Create(&model.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: model.Instructor}).Error)
	require.NoError(t, db.Create(&model.User{FirstName: "Sam", Email: "sam@example.com", Role: model.Student}).Error)
	var instructor, student model.User
	require.NoError(t, db.First(&instructor, "email = ?", "ada@example.com").Error)
	require.NoError(t, db.First(&student, "email = ?", "sam@example.com").Error)
	require.Equal(t, uint(1), instructor.ID)
	require.Equal(t, uint(2), student.ID)

	course := &model.Course{Title: "Systems", Price: price, Status: status, Difficulty: model.DifficultyIntermediate, InstructorID: instructor.ID}
	require.NoError(t, db.Create(course).Error)

	f := &courseFixture{db: db, course: course}
	for mi := 0; mi < 2; mi++ {
		m := &model.Module{CourseID: course.ID, Title: "module", SortOrder: mi}
		require.NoError(t, db.Create(m).Error)
		count := 2 - mi
		for li := 0; li < count; li++ {
			l := model.Lesson{ModuleID: m.ID, Title: "lesson", ContentType: model.ContentText, SortOrder: li}
			require.NoError(t, db.Create(&l).Error)
			f.lessons = append(f.lessons, l)
		}
	}
	return f
}

func newEnrollmentService(t *testing.T, db *gorm.DB, gateway PaymentGateway) *EnrollmentService {
	t.Helper()
	return NewEnrollmentService(db,
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewUserRepository(db),
		gateway,
		&events.Recorder{},
	)
}

const (
	instructorID uint = 1
	studentID    uint = 2
)

func TestInitiateEnrollmentFreeCourse(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	f := seedCourse(t, db, 0, model.CoursePublished)
	svc := newEnrollmentService(t, db, nil)

	res, err := svc.InitiateEnrollment(context.Background(), f.course.ID, studentID)
	require.NoError(t, err)
	assert.False(t, res.RequiresPayment())
	require.NotNil(t, res.Enrollment)
	assert.Nil(t, res.Enrollment.PaymentReference)

	_, err = svc.InitiateEnrollment(context.Background(), f.course.ID, studentID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	status, err := svc.GetEnrollmentStatus(f.course.ID, studentID)
	require.NoError(t, err)
	assert.True(t, status.IsEnrolled)
}

func TestInitiateEnrollmentRejectsUnpublished(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	f := seedCourse(t, db, 0, model.CourseDraft)
	svc := newEnrollmentService(t, db, nil)

	_, err = svc.InitiateEnrollment(context.Background(), f.course.ID, studentID)
	assert.True(t, util.IsKind(err, util.KindValidation))

	_, err = svc.InitiateEnrollment(context.Background(), "missing", studentID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestPaidEnrollmentFlow(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	f := seedCourse(t, db, 5000, model.CoursePublished)
	gateway := &fakeGateway{}
	svc := newEnrollmentService(t, db, gateway)
	ctx := context.Background()

	init, err := svc.InitiateEnrollment(ctx, f.course.ID, studentID)
	require.NoError(t, err)
	assert.True(t, init.RequiresPayment())
	assert.Equal(t, "ref-x", init.Reference)
	require.Len(t, gateway.initRequests, 1)
	assert.Equal(t, 500000, gateway.initRequests[0].Amount)
	assert.Equal(t, "sam@example.com", gateway.initRequests[0].Email)
	assert.Equal(t, instructorID, gateway.initRequests[0].Metadata.InstructorID)

	// 未支付成功
	gateway.verification = &PaymentVerification{Status: "abandoned", Amount: 500000, Metadata: PaymentMetadata{CourseID: f.course.ID, UserID: studentID}}
	_, err = svc.CompleteEnrollment(ctx, "ref-x", studentID)
	assert.True(t, util.IsKind(err, util.KindValidation))

	// 支付属于别人
	gateway.verification = &PaymentVerification{Status: "success", Amount: 500000, Metadata: PaymentMetadata{CourseID: f.course.ID, UserID: 42}}
	_, err = svc.CompleteEnrollment(ctx, "ref-x", studentID)
	assert.True(t, util.IsKind(err, util.KindForbidden))

	gateway.verification = &PaymentVerification{Status: "success", Amount: 500000, Metadata: PaymentMetadata{CourseID: f.course.ID, UserID: studentID}}
	done, err := svc.CompleteEnrollment(ctx, "ref-x", studentID)
	require.NoError(t, err)
	assert.Equal(t, 5000, done.PaymentAmount)
	require.NotNil(t, done.Enrollment.PaymentReference)
	assert.Equal(t, "ref-x", *done.Enrollment.PaymentReference)

	_, err = svc.CompleteEnrollment(ctx, "ref-x", studentID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)
}

func TestCompleteLessonUpdatesProgress(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	f := seedCourse(t, db, 0, model.CoursePublished)
	svc := newEnrollmentService(t, db, nil)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	ctx := context.Background()

	_, err = svc.CompleteLesson(ctx, f.lessons[0].ID, studentID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = svc.InitiateEnrollment(ctx, f.course.ID, studentID)
	require.NoError(t, err)

	res, err := svc.CompleteLesson(ctx, f.lessons[0].ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, 33, res.ProgressPercentage)
	assert.False(t, res.IsCourseCompleted)

	// 重复完成不重复计数
	res, err = svc.CompleteLesson(ctx, f.lessons[0].ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, 33, res.ProgressPercentage)

	courses, total, err := svc.ListEnrolledCourses(studentID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, courses, 1)
	assert.Equal(t, 3, courses[0].TotalLessons)
	assert.Equal(t, 1, courses[0].CompletedLessons)
	require.NotNil(t, courses[0].NextLessonID)
	assert.Equal(t, f.lessons[1].ID, *courses[0].NextLessonID)
	assert.Equal(t, "Ada Lovelace", courses[0].InstructorName)

	for _, l := range f.lessons[1:] {
		res, err = svc.CompleteLesson(ctx, l.ID, studentID)
		require.NoError(t, err)
	}
	assert.Equal(t, 100, res.ProgressPercentage)
	assert.True(t, res.IsCourseCompleted)

	progress, err := svc.GetCourseProgress(f.course.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalLessons)
	assert.Equal(t, 3, progress.CompletedLessons)
	assert.True(t, progress.IsCompleted)
	require.Len(t, progress.Modules, 2)
	assert.True(t, progress.Modules[1].Lessons[0].IsCompleted)

	overall, err := svc.GetUserProgress(studentID)
	require.NoError(t, err)
	assert.Equal(t, 1, overall.TotalEnrollments)
	assert.Equal(t, 1, overall.CompletedCourses)

	_, err = svc.CompleteLesson(ctx, "missing", studentID)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestCourseStudentsAndUnenroll(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	f := seedCourse(t, db, 0, model.CoursePublished)
	svc := newEnrollmentService(t, db, nil)
	ctx := context.Background()

	_, err = svc.InitiateEnrollment(ctx, f.course.ID, studentID)
	require.NoError(t, err)
	_, err = svc.CompleteLesson(ctx, f.lessons[0].ID, studentID)
	require.NoError(t, err)

	_, err = svc.ListCourseStudents(f.course.ID, studentID, false)
	assert.True(t, util.IsKind(err, util.KindForbidden))

	students, err := svc.ListCourseStudents(f.course.ID, instructorID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, students.TotalStudents)
	assert.Equal(t, "sam@example.com", students.Students[0].Email)
	assert.Equal(t, 33, students.Students[0].ProgressPercentage)

	require.NoError(t, svc.Unenroll(f.course.ID, studentID))
	assert.True(t, util.IsKind(svc.Unenroll(f.course.ID, studentID), util.KindNotFound))

	var completions int64
	require.NoError(t, db.Model(&model.LessonCompletion{}).Count(&completions).Error)
	assert.Zero(t, completions)
}
