package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// EnrollmentController 选课、支付回调和学习进度
type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

type verifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// @Summary 选课
// @Description 免费课程直接选课并返回 201；付费课程返回支付链接
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.EnrollmentInitiation}
// @Success 201 {object} util.Response{data=service.EnrollmentInitiation}
// @Failure 409 {object} util.Response
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	res, err := c.EnrollmentService.InitiateEnrollment(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if res.RequiresPayment() {
		util.SuccessWithMessage(ctx, "Payment initialized", res)
		return
	}
	util.CreatedWithMessage(ctx, "Successfully enrolled in course", res)
}

// @Summary 支付完成后确认选课
// @Tags 选课
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body verifyPaymentRequest true "支付流水号"
// @Success 201 {object} util.Response{data=service.EnrollmentCompletion}
// @Failure 400 {object} util.Response
// @Router /api/enrollments/verify [post]
func (c *EnrollmentController) VerifyPayment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req verifyPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.EnrollmentService.CompleteEnrollment(ctx.Request.Context(), req.Reference, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.CreatedWithMessage(ctx, "Payment verified and enrollment completed", res)
}

// @Summary 退课
// @Tags 选课
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/enroll [delete]
func (c *EnrollmentController) Unenroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.EnrollmentService.Unenroll(ctx.Param("id"), user.UserID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Successfully unenrolled from course", nil)
}

// @Summary 选课状态
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.EnrollmentStatus}
// @Router /api/courses/{id}/enrollment [get]
func (c *EnrollmentController) GetStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	status, err := c.EnrollmentService.GetEnrollmentStatus(ctx.Param("id"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// @Summary 我的课程
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/enrollments/me [get]
func (c *EnrollmentController) ListMyCourses(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := util.ParsePage(ctx, 10, 100)
	courses, total, err := c.EnrollmentService.ListEnrolledCourses(user.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// @Summary 课程学员
// @Description 课程讲师或管理员可查看
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseStudents}
// @Failure 403 {object} util.Response
// @Router /api/courses/{id}/students [get]
func (c *EnrollmentController) ListStudents(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	students, err := c.EnrollmentService.ListCourseStudents(ctx.Param("id"), user.UserID, user.IsAdmin())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, students)
}

// @Summary 完成课时
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonCompletionResult}
// @Failure 403 {object} util.Response
// @Router /api/lessons/{lessonId}/complete [post]
func (c *EnrollmentController) CompleteLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	res, err := c.EnrollmentService.CompleteLesson(ctx.Request.Context(), ctx.Param("lessonId"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Lesson marked as completed", res)
}

// @Summary 课程学习进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/progress/courses/{id} [get]
func (c *EnrollmentController) GetCourseProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.EnrollmentService.GetCourseProgress(ctx.Param("id"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary 全部课程进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.UserProgress}
// @Router /api/progress/me [get]
func (c *EnrollmentController) GetMyProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.EnrollmentService.GetUserProgress(user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
