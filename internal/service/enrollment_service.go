package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/events"
	"elearning_backend/pkg/logger"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnrollmentService 选课（含付费课程支付）与学习进度
type EnrollmentService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	UserRepo       *repository.UserRepository
	Payments       PaymentGateway
	Events         events.Publisher
	Now            func() time.Time
}

func NewEnrollmentService(db *gorm.DB, courseRepo *repository.CourseRepository, enrollmentRepo *repository.EnrollmentRepository, userRepo *repository.UserRepository, payments PaymentGateway, publisher events.Publisher) *EnrollmentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &EnrollmentService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		UserRepo:       userRepo,
		Payments:       payments,
		Events:         publisher,
		Now:            time.Now,
	}
}

type CourseBrief struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int    `json:"price,omitempty"`
}

// EnrollmentInitiation 免费课程直接返回 Enrollment，付费课程返回支付链接
type EnrollmentInitiation struct {
	Enrollment *model.CourseEnrollment `json:"enrollment,omitempty"`
	PaymentURL string                  `json:"paymentUrl,omitempty"`
	Reference  string                  `json:"reference,omitempty"`
	Course     CourseBrief             `json:"course"`
}

func (e *EnrollmentInitiation) RequiresPayment() bool {
	return e.PaymentURL != ""
}

type EnrollmentCompletion struct {
	Enrollment    *model.CourseEnrollment `json:"enrollment"`
	Course        CourseBrief             `json:"course"`
	PaymentAmount int                     `json:"paymentAmount"`
}

type EnrollmentStatus struct {
	CourseID     string                  `json:"courseId"`
	CourseTitle  string                  `json:"courseTitle"`
	CourseStatus model.CourseStatus      `json:"courseStatus"`
	IsEnrolled   bool                    `json:"isEnrolled"`
	Enrollment   *model.CourseEnrollment `json:"enrollment"`
}

type EnrolledCourse struct {
	Course             model.Course `json:"course"`
	InstructorName     string       `json:"instructorName"`
	EnrolledAt         time.Time    `json:"enrolledAt"`
	ProgressPercentage int          `json:"progressPercentage"`
	CompletedAt        *time.Time   `json:"completedAt"`
	TotalLessons       int          `json:"totalLessons"`
	CompletedLessons   int          `json:"completedLessons"`
	NextLessonID       *string      `json:"nextLessonId"`
}

type CourseStudents struct {
	Course        CourseBrief                `json:"course"`
	Students      []repository.CourseStudent `json:"students"`
	TotalStudents int                        `json:"totalStudents"`
}

type LessonCompletionResult struct {
	LessonID           string `json:"lessonId"`
	CourseID           string `json:"courseId"`
	ProgressPercentage int    `json:"progressPercentage"`
	IsCourseCompleted  bool   `json:"isCourseCompleted"`
}

type LessonProgress struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
}

type ModuleProgress struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Lessons []LessonProgress `json:"lessons"`
}

type CourseProgress struct {
	Course             CourseBrief      `json:"course"`
	ProgressPercentage int              `json:"progressPercentage"`
	TotalLessons       int              `json:"totalLessons"`
	CompletedLessons   int              `json:"completedLessons"`
	IsCompleted        bool             `json:"isCompleted"`
	CompletedAt        *time.Time       `json:"completedAt"`
	EnrolledAt         time.Time        `json:"enrolledAt"`
	Modules            []ModuleProgress `json:"modules"`
}

type UserProgress struct {
	Enrollments       []model.CourseEnrollment `json:"enrollments"`
	TotalEnrollments  int                      `json:"totalEnrollments"`
	CompletedCourses  int                      `json:"completedCourses"`
	InProgressCourses int                      `json:"inProgressCourses"`
}

func (s *EnrollmentService) findCourse(courseID string) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourse(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

func (s *EnrollmentService) enroll(course *model.Course, userID uint, reference *string) (*model.CourseEnrollment, error) {
	enrollment := &model.CourseEnrollment{
		UserID:           userID,
		CourseID:         course.ID,
		EnrolledAt:       s.Now(),
		PaymentReference: reference,
	}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyEnrolled
		}
		return nil, err
	}

	logger.L().Info("user enrolled",
		zap.Uint("userId", userID),
		zap.String("courseId", course.ID),
		zap.Bool("paid", reference != nil),
	)
	if err := s.Events.Publish(events.EnrollmentCompleted, map[string]interface{}{
		"userId":   userID,
		"courseId": course.ID,
		"paid":     reference != nil,
	}); err != nil {
		logger.L().Warn("publish event failed", zap.String("type", events.EnrollmentCompleted), zap.Error(err))
	}
	return enrollment, nil
}

// InitiateEnrollment 免费课程直接选课；付费课程向支付网关下单，支付完成后再调用 CompleteEnrollment
func (s *EnrollmentService) InitiateEnrollment(ctx context.Context, courseID string, userID uint) (*EnrollmentInitiation, error) {
	course, err := s.findCourse(courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CoursePublished {
		return nil, util.NewValidation("Course is not available for enrollment")
	}

	enrolled, err := s.EnrollmentRepo.Exists(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, util.ErrAlreadyEnrolled
	}

	brief := CourseBrief{ID: course.ID, Title: course.Title, Price: course.Price}

	if course.IsFree() {
		enrollment, err := s.enroll(course, userID, nil)
		if err != nil {
			return nil, err
		}
		return &EnrollmentInitiation{Enrollment: enrollment, Course: brief}, nil
	}

	if s.Payments == nil {
		return nil, util.NewInvalidState("Paid enrollment is not configured")
	}

	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	payment, err := s.Payments.Initialize(ctx, PaymentInitRequest{
		Email:  user.Email,
		Amount: course.Price * 100,
		Metadata: PaymentMetadata{
			CourseID:     course.ID,
			UserID:       userID,
			CourseName:   course.Title,
			InstructorID: course.InstructorID,
			Type:         "course_enrollment",
		},
	})
	if err != nil {
		return nil, err
	}

	return &EnrollmentInitiation{
		PaymentURL: payment.AuthorizationURL,
		Reference:  payment.Reference,
		Course:     brief,
	}, nil
}

func (s *EnrollmentService) CompleteEnrollment(ctx context.Context, reference string, userID uint) (*EnrollmentCompletion, error) {
	if reference == "" {
		return nil, util.NewValidation("Payment reference is required")
	}
	if s.Payments == nil {
		return nil, util.NewInvalidState("Paid enrollment is not configured")
	}

	payment, err := s.Payments.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !payment.Succeeded() {
		return nil, util.NewValidation("Payment was not successful")
	}
	if payment.Metadata.UserID != userID {
		return nil, util.NewForbidden("Payment does not belong to this user")
	}

	course, err := s.findCourse(payment.Metadata.CourseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.EnrollmentRepo.Exists(userID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, util.ErrAlreadyEnrolled
	}

	ref := reference
	enrollment, err := s.enroll(course, userID, &ref)
	if err != nil {
		return nil, err
	}

	return &EnrollmentCompletion{
		Enrollment:    enrollment,
		Course:        CourseBrief{ID: course.ID, Title: course.Title},
		PaymentAmount: payment.Amount / 100,
	}, nil
}

func (s *EnrollmentService) Unenroll(courseID string, userID uint) error {
	deleted, err := s.EnrollmentRepo.Delete(userID, courseID)
	if err != nil {
		return err
	}
	if !deleted {
		return util.NewNotFound("Enrollment not found")
	}
	return nil
}

func (s *EnrollmentService) GetEnrollmentStatus(courseID string, userID uint) (*EnrollmentStatus, error) {
	course, err := s.findCourse(courseID)
	if err != nil {
		return nil, err
	}

	status := &EnrollmentStatus{
		CourseID:     course.ID,
		CourseTitle:  course.Title,
		CourseStatus: course.Status,
	}
	enrollment, err := s.EnrollmentRepo.Find(userID, courseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if enrollment != nil {
		status.IsEnrolled = true
		status.Enrollment = enrollment
	}
	return status, nil
}

func (s *EnrollmentService) ListEnrolledCourses(userID uint, page, limit int) ([]EnrolledCourse, int64, error) {
	enrollments, total, err := s.EnrollmentRepo.ListByUser(userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]EnrolledCourse, 0, len(enrollments))
	instructorIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		course, err := s.CourseRepo.FindCourse(e.CourseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}

		lessonIDs, err := s.CourseRepo.LessonIDsInOrder(course.ID)
		if err != nil {
			return nil, 0, err
		}
		completed, err := s.EnrollmentRepo.CompletedLessons(userID, course.ID)
		if err != nil {
			return nil, 0, err
		}

		item := EnrolledCourse{
			Course:             *course,
			EnrolledAt:         e.EnrolledAt,
			ProgressPercentage: e.ProgressPercentage,
			CompletedAt:        e.CompletedAt,
			TotalLessons:       len(lessonIDs),
			CompletedLessons:   len(completed),
		}
		for _, id := range lessonIDs {
			if _, done := completed[id]; !done {
				next := id
				item.NextLessonID = &next
				break
			}
		}
		result = append(result, item)
		instructorIDs = append(instructorIDs, course.InstructorID)
	}

	instructors, err := s.UserRepo.FindByIDs(instructorIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range result {
		if u, ok := instructors[result[i].Course.InstructorID]; ok {
			result[i].InstructorName = u.FullName()
		}
	}
	return result, total, nil
}

func (s *EnrollmentService) ListCourseStudents(courseID string, userID uint, isAdmin bool) (*CourseStudents, error) {
	course, err := s.findCourse(courseID)
	if err != nil {
		return nil, err
	}
	if !canManage(course.InstructorID, userID, isAdmin) {
		return nil, util.NewForbidden("You can only view students of your own courses")
	}

	students, err := s.EnrollmentRepo.ListStudents(courseID)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []repository.CourseStudent{}
	}
	return &CourseStudents{
		Course:        CourseBrief{ID: course.ID, Title: course.Title},
		Students:      students,
		TotalStudents: len(students),
	}, nil
}

// CompleteLesson 标记课时完成并重算课程进度，进度达到 100 时记录课程完成时间
func (s *EnrollmentService) CompleteLesson(ctx context.Context, lessonID string, userID uint) (*LessonCompletionResult, error) {
	course, err := s.CourseRepo.FindLessonCourse(lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.Now()
	result := &LessonCompletionResult{LessonID: lessonID, CourseID: course.ID}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollmentRepo := s.EnrollmentRepo.WithTx(tx)
		courseRepo := s.CourseRepo.WithTx(tx)

		enrollment, err := enrollmentRepo.Find(userID, course.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotEnrolled
		}
		if err != nil {
			return err
		}

		if err := enrollmentRepo.UpsertCompletion(&model.LessonCompletion{
			UserID:      userID,
			LessonID:    lessonID,
			IsCompleted: true,
			CompletedAt: now,
		}); err != nil {
			return err
		}

		total, err := courseRepo.CountLessons(course.ID)
		if err != nil {
			return err
		}
		completed, err := enrollmentRepo.CompletedLessons(userID, course.ID)
		if err != nil {
			return err
		}

		progress := 0
		if total > 0 {
			progress = int(math.Round(float64(len(completed)) / float64(total) * 100))
		}

		var completedAt *time.Time
		if progress >= 100 {
			completedAt = enrollment.CompletedAt
			if completedAt == nil {
				completedAt = &now
			}
		}

		result.ProgressPercentage = progress
		result.IsCourseCompleted = completedAt != nil
		return enrollmentRepo.UpdateProgress(userID, course.ID, progress, completedAt)
	})
	if err != nil {
		return nil, err
	}

	if err := s.Events.Publish(events.LessonCompleted, map[string]interface{}{
		"userId":   userID,
		"lessonId": lessonID,
		"courseId": course.ID,
		"progress": result.ProgressPercentage,
	}); err != nil {
		logger.L().Warn("publish event failed", zap.String("type", events.LessonCompleted), zap.Error(err))
	}
	return result, nil
}

func (s *EnrollmentService) GetCourseProgress(courseID string, userID uint) (*CourseProgress, error) {
	enrollment, err := s.EnrollmentRepo.Find(userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}

	course, err := s.CourseRepo.FindCourseWithContent(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	completed, err := s.EnrollmentRepo.CompletedLessons(userID, courseID)
	if err != nil {
		return nil, err
	}

	progress := &CourseProgress{
		Course:             CourseBrief{ID: course.ID, Title: course.Title},
		ProgressPercentage: enrollment.ProgressPercentage,
		CompletedLessons:   len(completed),
		IsCompleted:        enrollment.CompletedAt != nil,
		CompletedAt:        enrollment.CompletedAt,
		EnrolledAt:         enrollment.EnrolledAt,
		Modules:            make([]ModuleProgress, 0, len(course.Modules)),
	}
	for _, m := range course.Modules {
		mp := ModuleProgress{ID: m.ID, Name: m.Title, Lessons: make([]LessonProgress, 0, len(m.Lessons))}
		for _, l := range m.Lessons {
			lp := LessonProgress{ID: l.ID, Name: l.Title}
			if at, ok := completed[l.ID]; ok {
				lp.IsCompleted = true
				lp.CompletedAt = &at
			}
			mp.Lessons = append(mp.Lessons, lp)
			progress.TotalLessons++
		}
		progress.Modules = append(progress.Modules, mp)
	}
	return progress, nil
}

func (s *EnrollmentService) GetUserProgress(userID uint) (*UserProgress, error) {
	enrollments, total, err := s.EnrollmentRepo.ListByUser(userID, 1, 0)
	if err != nil {
		return nil, err
	}

	out := &UserProgress{Enrollments: enrollments, TotalEnrollments: int(total)}
	for _, e := range enrollments {
		if e.CompletedAt != nil {
			out.CompletedCourses++
		} else {
			out.InProgressCourses++
		}
	}
	return out, nil
}
